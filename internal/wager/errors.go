package wager

import (
	"errors"

	"github.com/omflip/flip-engine/internal/auth"
	"github.com/omflip/flip-engine/internal/model"
	"github.com/omflip/flip-engine/internal/store"
)

var (
	// ErrPaused is returned when a user-facing operation hits the pause gate.
	ErrPaused = errors.New("wager: the platform is paused")

	// ErrCooldown is returned when a caller flips again before the
	// per-user cooldown has elapsed.
	ErrCooldown = errors.New("wager: flip cooldown has not elapsed")

	// ErrInvalidSide is returned for a side other than head or tail.
	ErrInvalidSide = errors.New("wager: side must be head or tail")

	// ErrWrongDenom is returned when attached funds use an unaccepted denom.
	ErrWrongDenom = errors.New("wager: wrong asset denomination")

	// ErrBetOutOfRange is returned when the stake lies outside the
	// configured [min, max] range.
	ErrBetOutOfRange = errors.New("wager: bet is out of range")

	// ErrZeroAmount is returned for zero or negative withdrawal amounts.
	// A negative amount would inflate the recorded balance past what the
	// pool actually custodies.
	ErrZeroAmount = errors.New("wager: amount must be positive")

	// ErrNothingToClaim is returned when a claim finds no unclaimed
	// winnings. A no-op claim is an error, not a silent success.
	ErrNothingToClaim = errors.New("wager: nothing to claim")

	// ErrNotEnoughLiquidity is returned when the pool cannot cover a
	// claim or a withdrawal.
	ErrNotEnoughLiquidity = errors.New("wager: not enough liquidity")

	// ErrTransferDeadline is returned when an admin-role acceptance
	// arrives at or after the transfer deadline.
	ErrTransferDeadline = errors.New("wager: it is too late to accept the admin role")

	// ErrNoParameters is returned when a config update specifies nothing.
	ErrNoParameters = errors.New("wager: no parameters provided")

	// ErrInvalidFee is returned when a platform fee lies outside [0, 1].
	ErrInvalidFee = errors.New("wager: platform fee must be within [0, 1]")

	// ErrInvalidRange is returned when a bet range has a negative min or
	// min greater than max.
	ErrInvalidRange = errors.New("wager: invalid bet range")
)

// Error kinds, so integrators can branch on cause without matching
// individual sentinels.
const (
	KindAuthorization = "authorization"
	KindValidation    = "validation"
	KindStateGate     = "state"
	KindLiquidity     = "liquidity"
	KindInternal      = "internal"
)

// Kind classifies an error into the taxonomy above.
func Kind(err error) string {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return KindAuthorization

	case errors.Is(err, auth.ErrNoSingleCoin),
		errors.Is(err, auth.ErrZeroCoin),
		errors.Is(err, auth.ErrUnexpectedFunds),
		errors.Is(err, model.ErrInvalidAddress),
		errors.Is(err, model.ErrInvalidDenom),
		errors.Is(err, ErrInvalidSide),
		errors.Is(err, ErrWrongDenom),
		errors.Is(err, ErrBetOutOfRange),
		errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrNothingToClaim),
		errors.Is(err, ErrNoParameters),
		errors.Is(err, ErrInvalidFee),
		errors.Is(err, ErrInvalidRange):
		return KindValidation

	case errors.Is(err, ErrPaused),
		errors.Is(err, ErrCooldown),
		errors.Is(err, ErrTransferDeadline):
		return KindStateGate

	case errors.Is(err, ErrNotEnoughLiquidity):
		return KindLiquidity

	case errors.Is(err, store.ErrNotInitialized):
		return KindInternal

	default:
		return KindInternal
	}
}
