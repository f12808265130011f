// Package pool implements the liquidity arithmetic over the pool ledger:
// how much the operator may withdraw, how much the operator would need to
// deposit to cover outstanding IOUs, and the solvency invariant every
// mutation must preserve.
package pool

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/model"
)

var (
	// ErrInvariantViolated is returned when a pool ledger does not satisfy
	// balance == revenue.current + deposited + userUnclaimed.
	ErrInvariantViolated = errors.New("pool: balance does not match revenue + deposited + unclaimed")

	// ErrNegativeDeposited is returned when deposited capital went negative.
	ErrNegativeDeposited = errors.New("pool: deposited capital is negative")

	// ErrNegativeBalance is returned when the custodied balance went negative.
	ErrNegativeBalance = errors.New("pool: custodied balance is negative")
)

// AvailableToWithdraw computes the operator-withdrawable amount:
// max(0, deposited + revenueCurrent). Funds reserved to cover pending user
// IOUs live in userUnclaimed and are excluded by construction, since the
// balance already nets them out.
func AvailableToWithdraw(deposited, revenueCurrent decimal.Decimal) decimal.Decimal {
	available := deposited.Add(revenueCurrent)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// RequiredToDeposit computes how much the operator must add before all
// outstanding IOUs could be claimed: max(0, totalUnclaimed − balance).
func RequiredToDeposit(balance, totalUnclaimed decimal.Decimal) decimal.Decimal {
	if balance.GreaterThanOrEqual(totalUnclaimed) {
		return decimal.Zero
	}
	return totalUnclaimed.Sub(balance)
}

// CheckInvariant verifies the solvency invariant on a pool ledger. It is
// asserted after every ledger mutation; a violation means a bookkeeping bug,
// not a user error.
func CheckInvariant(p *model.PoolLedger) error {
	if p.Deposited.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeDeposited, p.Deposited)
	}
	if p.Balance.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeBalance, p.Balance)
	}

	expected := p.Revenue.Current.Add(p.Deposited).Add(p.UserUnclaimed)
	if !p.Balance.Equal(expected) {
		return fmt.Errorf("%w: balance %s, expected %s",
			ErrInvariantViolated, p.Balance, expected)
	}
	return nil
}
