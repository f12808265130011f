// Package auth implements the two pure gate checks consumed by the wager
// service: the funds-shape check (what must or must not be attached to a
// call) and the authorization predicate (who may perform it).
//
// Authorization policies form a closed set of variants evaluated by one
// predicate, instead of boolean checks scattered across handlers.
package auth

import (
	"errors"

	"github.com/omflip/flip-engine/internal/model"
)

var (
	// ErrUnauthorized is returned when the sender does not satisfy the
	// policy attached to an operation.
	ErrUnauthorized = errors.New("auth: sender does not have access permissions")

	// ErrNoSingleCoin is returned when a call requiring funds did not
	// attach exactly one coin.
	ErrNoSingleCoin = errors.New("auth: exactly one coin must be attached")

	// ErrZeroCoin is returned when the attached coin amount is zero or
	// negative.
	ErrZeroCoin = errors.New("auth: attached coin amount must be positive")

	// ErrUnexpectedFunds is returned when a non-payable call attached funds.
	ErrUnexpectedFunds = errors.New("auth: this operation does not accept funds")
)

// FundsShape describes what funds a call is expected to carry.
type FundsShape int

const (
	// FundsEmpty requires that no funds are attached.
	FundsEmpty FundsShape = iota
	// FundsSingleCoin requires exactly one coin with a positive amount.
	FundsSingleCoin
)

// CheckFunds validates the attached funds against the expected shape and
// returns the single attached coin for FundsSingleCoin.
func CheckFunds(funds []model.Coin, shape FundsShape) (model.Coin, error) {
	switch shape {
	case FundsEmpty:
		if len(funds) != 0 {
			return model.Coin{}, ErrUnexpectedFunds
		}
		return model.Coin{}, nil

	case FundsSingleCoin:
		if len(funds) != 1 {
			return model.Coin{}, ErrNoSingleCoin
		}
		coin := funds[0]
		if !coin.Amount.IsPositive() {
			return model.Coin{}, ErrZeroCoin
		}
		return coin, nil

	default:
		return model.Coin{}, ErrNoSingleCoin
	}
}

// policyKind tags the closed set of authorization variants.
type policyKind int

const (
	kindAny policyKind = iota
	kindAdmin
	kindAdminOrWorker
	kindAllowlist
	kindAdminOrAllowlist
)

// Policy is one variant of the authorization predicate.
type Policy struct {
	kind      policyKind
	allowlist []string
}

// Any admits every sender.
func Any() Policy { return Policy{kind: kindAny} }

// AdminOnly admits only the configured admin.
func AdminOnly() Policy { return Policy{kind: kindAdmin} }

// AdminOrWorker admits the admin and, when configured, the worker.
func AdminOrWorker() Policy { return Policy{kind: kindAdminOrWorker} }

// Allowlist admits only the listed identities. Empty entries are ignored.
func Allowlist(addrs ...string) Policy {
	return Policy{kind: kindAllowlist, allowlist: addrs}
}

// AdminOrAllowlist admits the admin and the listed identities.
func AdminOrAllowlist(addrs ...string) Policy {
	return Policy{kind: kindAdminOrAllowlist, allowlist: addrs}
}

// Check evaluates the policy for the given sender. worker may be empty,
// meaning no worker is configured.
func Check(sender, admin, worker string, policy Policy) error {
	switch policy.kind {
	case kindAny:
		return nil

	case kindAdmin:
		if sender != admin {
			return ErrUnauthorized
		}

	case kindAdminOrWorker:
		if sender != admin && !(worker != "" && sender == worker) {
			return ErrUnauthorized
		}

	case kindAllowlist:
		if !listed(policy.allowlist, sender) {
			return ErrUnauthorized
		}

	case kindAdminOrAllowlist:
		if sender != admin && !listed(policy.allowlist, sender) {
			return ErrUnauthorized
		}
	}

	return nil
}

func listed(allowlist []string, sender string) bool {
	for _, addr := range allowlist {
		if addr != "" && addr == sender {
			return true
		}
	}
	return false
}
