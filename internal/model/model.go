// Package model defines the core domain types shared across the flip engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the coin side a player bets on.
type Side string

const (
	SideHead Side = "head"
	SideTail Side = "tail"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideHead || s == SideTail
}

// Coin is a single amount of a native denomination attached to a call.
type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

// StatsItem is a count/value pair for one kind of event (bets or wins).
type StatsItem struct {
	Count uint32          `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// Increase records one more event of the given value.
func (s *StatsItem) Increase(value decimal.Decimal) {
	s.Count++
	s.Value = s.Value.Add(value)
}

// Stats aggregates bet and win statistics.
type Stats struct {
	Bets StatsItem `json:"bets"`
	Wins StatsItem `json:"wins"`
}

// roi computes wins/bets − 1, or zero when no value has been bet.
func roi(bets, wins StatsItem) decimal.Decimal {
	if bets.Value.IsZero() {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	return wins.Value.Div(bets.Value).Sub(one)
}

// UserLedger is the per-user row: betting history, deferred winnings and the
// cooldown anchor. Created lazily with zero values on first interaction and
// never deleted.
type UserLedger struct {
	Stats Stats `json:"stats"`
	// ROI = wins/bets − 1. Derived, not authoritative.
	ROI       decimal.Decimal `json:"roi"`
	Unclaimed decimal.Decimal `json:"unclaimed"`
	LastFlip  time.Time       `json:"last_flip"`
}

// UpdateROI recomputes the derived return-on-investment metric.
func (u *UserLedger) UpdateROI() {
	u.ROI = roi(u.Stats.Bets, u.Stats.Wins)
}

// Revenue tracks the house take. Total is lifetime; Current is the part not
// yet withdrawn and may go negative when the operator withdraws ahead of
// realized net revenue.
type Revenue struct {
	Total   decimal.Decimal `json:"total"`
	Current decimal.Decimal `json:"current"`
}

// PoolLedger is the singleton solvency record for the shared liquidity pool.
//
// Invariant after every mutation:
//
//	Balance == Revenue.Current + Deposited + UserUnclaimed
//
// with Deposited ≥ 0 and Balance ≥ 0 (Revenue.Current may be negative).
type PoolLedger struct {
	// Stats aggregates bets and wins across all users.
	Stats Stats `json:"stats"`
	// UserUnclaimed is the aggregate IOU liability: winnings recorded but
	// not yet paid out.
	UserUnclaimed decimal.Decimal `json:"user_unclaimed"`
	// AverageFee = 1 − wins/bets. Derived, not authoritative.
	AverageFee decimal.Decimal `json:"average_fee"`
	// Deposited is operator-contributed capital still available for payouts.
	Deposited decimal.Decimal `json:"deposited"`
	// Balance is the total value actually custodied by the pool.
	Balance decimal.Decimal `json:"balance"`
	Revenue Revenue         `json:"revenue"`
}

// UpdateAverageFee recomputes the derived average platform take.
func (p *PoolLedger) UpdateAverageFee() {
	p.AverageFee = roi(p.Stats.Bets, p.Stats.Wins).Neg()
}

// Range is the inclusive [Min, Max] stake bounds accepted by the pool.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether the bet lies within the inclusive range.
func (r Range) Contains(bet decimal.Decimal) bool {
	return bet.GreaterThanOrEqual(r.Min) && bet.LessThanOrEqual(r.Max)
}

// Config is the mutable platform configuration. Only the admin may change it.
type Config struct {
	Admin string `json:"admin"`
	// Worker is an optional delegated operator identity. Empty means unset.
	Worker string `json:"worker,omitempty"`
	Bet    Range  `json:"bet"`
	Denom  string `json:"denom"`
	// PlatformFee is the fraction of the weight domain that always loses,
	// in [0, 1].
	PlatformFee decimal.Decimal `json:"platform_fee"`
}

// AdminTransfer is the pending admin-handover state. The zero value (or any
// deadline in the past) means no transfer can be accepted.
type AdminTransfer struct {
	NewAdmin string    `json:"new_admin"`
	Deadline time.Time `json:"deadline"`
}

// TransferIntent is an outbound payout the engine asks the host to execute.
// The engine never executes transfers itself and must not assume an emitted
// intent succeeded.
type TransferIntent struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Denom     string          `json:"denom"`
}

// FlipRecord is an immutable record of one resolved wager.
// Once created, these are never modified or deleted.
type FlipRecord struct {
	ID     string          `json:"id" db:"id"`
	User   string          `json:"user" db:"user_address"`
	Side   Side            `json:"side" db:"side"`
	Stake  decimal.Decimal `json:"stake" db:"stake"`
	Weight decimal.Decimal `json:"weight" db:"weight"`
	Won    bool            `json:"won" db:"won"`
	// Prize is 2×stake on a win, zero otherwise.
	Prize decimal.Decimal `json:"prize" db:"prize"`
	// Deferred marks a win recorded as an IOU because the pool could not
	// pay at resolution time.
	Deferred  bool      `json:"deferred" db:"deferred"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// UserEntry pairs a user address with its ledger row for list queries.
type UserEntry struct {
	Address string     `json:"address"`
	Info    UserLedger `json:"info"`
}
