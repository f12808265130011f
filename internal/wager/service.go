// Package wager ties the weight generator, the outcome resolver and both
// ledgers together: it implements the stake-and-resolve pipeline, deferred
// claim payouts, pool deposits and withdrawals, and the admin gates, and
// exposes them over HTTP.
//
// All monetary values use shopspring/decimal — never float64 for money.
package wager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/auth"
	"github.com/omflip/flip-engine/internal/fairness"
	"github.com/omflip/flip-engine/internal/metrics"
	"github.com/omflip/flip-engine/internal/model"
	"github.com/omflip/flip-engine/internal/pool"
	"github.com/omflip/flip-engine/internal/store"
)

// Platform defaults. Bet bounds and the fee can be changed at runtime via
// UpdateConfig; the cooldown and the admin-transfer timeout are fixed.
const (
	DefaultCooldown        = 3 * time.Second
	DefaultAdminTimeout    = 7 * 24 * time.Hour
	DefaultDenom           = "uom"
	DefaultBetMin          = 1_000_000
	DefaultBetMax          = 20_000_000
	DefaultPlatformFee     = "0.1"
	defaultUserPageSize    = 30
	maxUserPageSize        = 100
	defaultFlipHistorySize = 50
)

// Seed is the initial input to the weight chain at platform instantiation.
var Seed = decimal.NewFromInt(8888)

var two = decimal.NewFromInt(2)

// Service handles wager operations. Uses a mutex for serialized execution
// (single-instance): one logical call at a time, each committed through the
// store completely or not at all.
type Service struct {
	store        store.Store
	source       fairness.Source
	hub          *Hub // optional WebSocket hub for real-time broadcasts
	mu           sync.Mutex
	now          func() time.Time
	cooldown     time.Duration
	adminTimeout time.Duration
}

// NewService creates a new wager service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, src fairness.Source, hub *Hub) *Service {
	return &Service{
		store:        st,
		source:       src,
		hub:          hub,
		now:          time.Now,
		cooldown:     DefaultCooldown,
		adminTimeout: DefaultAdminTimeout,
	}
}

// Init creates the platform singleton if it does not exist: the given
// config, an empty pool and the first chain weight derived from Seed, the
// current time and the admin identity.
func (s *Service) Init(ctx context.Context, cfg *model.Config) error {
	weight := s.source.Next(Seed, s.now().UnixNano(), cfg.Admin)
	created, err := s.store.InitPlatform(ctx, cfg, weight)
	if err != nil {
		return err
	}
	if created {
		slog.Info("platform initialized",
			"admin", cfg.Admin,
			"denom", cfg.Denom,
			"bet_min", cfg.Bet.Min.String(),
			"bet_max", cfg.Bet.Max.String(),
			"fee", cfg.PlatformFee.String(),
		)
	}
	return nil
}

// FlipResult is the outcome of one resolved wager.
type FlipResult struct {
	FlipID string          `json:"flip_id"`
	Weight decimal.Decimal `json:"weight"`
	Won    bool            `json:"won"`
	Prize  decimal.Decimal `json:"prize"`
	// Deferred is true when the prize was recorded as an IOU because the
	// pool could not pay at resolution time.
	Deferred bool                  `json:"deferred"`
	Transfer *model.TransferIntent `json:"transfer,omitempty"`
	User     model.UserLedger      `json:"user"`
}

// Flip runs the stake-and-resolve pipeline for one wager.
//
// Precondition order (first failure aborts with zero state change): not
// paused, exactly one nonzero coin of the configured denom, stake within
// the bet range, cooldown elapsed. The advanced weight, pool ledger, user
// ledger and flip record are then committed atomically.
func (s *Service) Flip(ctx context.Context, sender string, side model.Side, funds []model.Coin) (*FlipResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPause(ctx); err != nil {
		return nil, err
	}

	coin, err := auth.CheckFunds(funds, auth.FundsSingleCoin)
	if err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, ErrInvalidSide
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if coin.Denom != cfg.Denom {
		return nil, ErrWrongDenom
	}
	stake := coin.Amount
	if !cfg.Bet.Contains(stake) {
		return nil, ErrBetOutOfRange
	}

	user, err := s.store.GetUser(ctx, sender)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if now.Before(user.LastFlip.Add(s.cooldown)) {
		return nil, ErrCooldown
	}

	// Resolve from the previous persisted weight. The new weight must be
	// committed with the ledgers: no outcome may come from a weight that
	// is not subsequently persisted.
	prev, err := s.store.GetWeight(ctx)
	if err != nil {
		return nil, err
	}
	weight := s.source.Next(prev, now.UnixNano(), sender)
	won := fairness.IsWinner(side, weight, cfg.PlatformFee)

	p, err := s.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	p.Stats.Bets.Increase(stake)
	p.Revenue.Total = p.Revenue.Total.Add(stake)
	p.Revenue.Current = p.Revenue.Current.Add(stake)
	p.Balance = p.Balance.Add(stake)
	user.Stats.Bets.Increase(stake)

	prize := decimal.Zero
	deferred := false
	var intent *model.TransferIntent

	if won {
		prize = stake.Mul(two)
		p.Revenue.Total = p.Revenue.Total.Sub(prize)
		p.Revenue.Current = p.Revenue.Current.Sub(prize)
		p.Stats.Wins.Increase(prize)
		user.Stats.Wins.Increase(prize)

		if p.Balance.GreaterThanOrEqual(prize) {
			// Auto-claim: pay immediately.
			p.Balance = p.Balance.Sub(prize)
			intent = &model.TransferIntent{Recipient: sender, Amount: prize, Denom: cfg.Denom}
		} else {
			// The pool cannot pay right now; record the liability
			// instead of reverting.
			deferred = true
			p.UserUnclaimed = p.UserUnclaimed.Add(prize)
			user.Unclaimed = user.Unclaimed.Add(prize)
		}
	}

	p.UpdateAverageFee()
	user.UpdateROI()
	user.LastFlip = now

	if err := pool.CheckInvariant(p); err != nil {
		return nil, fmt.Errorf("flip bookkeeping: %w", err)
	}

	rec := &model.FlipRecord{
		ID:        uuid.New().String(),
		User:      sender,
		Side:      side,
		Stake:     stake,
		Weight:    weight,
		Won:       won,
		Prize:     prize,
		Deferred:  deferred,
		Timestamp: now,
	}
	if err := s.store.CommitFlip(ctx, weight, p, sender, user, rec); err != nil {
		return nil, err
	}

	outcome := "lose"
	if won {
		outcome = "win"
	}
	metrics.FlipsTotal.WithLabelValues(string(side), outcome).Inc()
	if deferred {
		metrics.PayoutsTotal.WithLabelValues("deferred").Inc()
	} else if won {
		metrics.PayoutsTotal.WithLabelValues("paid").Inc()
	}
	metrics.PoolBalance.Set(p.Balance.InexactFloat64())
	metrics.UnclaimedTotal.Set(p.UserUnclaimed.InexactFloat64())

	slog.Info("flip resolved",
		"flip_id", rec.ID,
		"user", sender,
		"side", side,
		"stake", stake.String(),
		"weight", weight.String(),
		"won", won,
		"deferred", deferred,
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:     "flip_resolved",
			FlipID:   rec.ID,
			User:     sender,
			Side:     string(side),
			Stake:    stake.String(),
			Won:      won,
			Prize:    prize.String(),
			Deferred: deferred,
		})
	}

	return &FlipResult{
		FlipID:   rec.ID,
		Weight:   weight,
		Won:      won,
		Prize:    prize,
		Deferred: deferred,
		Transfer: intent,
		User:     *user,
	}, nil
}

// ClaimResult reports a successful payout of deferred winnings.
type ClaimResult struct {
	Amount   decimal.Decimal      `json:"amount"`
	Transfer model.TransferIntent `json:"transfer"`
}

// Claim pays out the caller's deferred winnings in full. Rejected when
// there is nothing to claim or when the pool cannot cover the amount; the
// caller must then wait for a deposit or for revenue to accumulate.
func (s *Service) Claim(ctx context.Context, sender string, funds []model.Coin) (*ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPause(ctx); err != nil {
		return nil, err
	}
	if _, err := auth.CheckFunds(funds, auth.FundsEmpty); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, sender)
	if err != nil {
		return nil, err
	}
	if user.Unclaimed.IsZero() {
		return nil, ErrNothingToClaim
	}

	p, err := s.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	if user.Unclaimed.GreaterThan(p.Balance) {
		return nil, ErrNotEnoughLiquidity
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	amount := user.Unclaimed
	p.Balance = p.Balance.Sub(amount)
	p.UserUnclaimed = p.UserUnclaimed.Sub(amount)
	user.Unclaimed = decimal.Zero

	if err := pool.CheckInvariant(p); err != nil {
		return nil, fmt.Errorf("claim bookkeeping: %w", err)
	}
	if err := s.store.CommitClaim(ctx, p, sender, user); err != nil {
		return nil, err
	}

	metrics.ClaimsTotal.Inc()
	metrics.PoolBalance.Set(p.Balance.InexactFloat64())
	metrics.UnclaimedTotal.Set(p.UserUnclaimed.InexactFloat64())

	slog.Info("claim paid", "user", sender, "amount", amount.String())

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:  "claim_paid",
			User:  sender,
			Prize: amount.String(),
		})
	}

	return &ClaimResult{
		Amount:   amount,
		Transfer: model.TransferIntent{Recipient: sender, Amount: amount, Denom: cfg.Denom},
	}, nil
}

// Deposit adds operator capital to the pool. Admin or worker only; the
// pause gate deliberately does not apply to pool management.
func (s *Service) Deposit(ctx context.Context, sender string, funds []model.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coin, err := auth.CheckFunds(funds, auth.FundsSingleCoin)
	if err != nil {
		return err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := auth.Check(sender, cfg.Admin, cfg.Worker, auth.AdminOrWorker()); err != nil {
		return err
	}
	if coin.Denom != cfg.Denom {
		return ErrWrongDenom
	}

	p, err := s.store.GetPool(ctx)
	if err != nil {
		return err
	}
	p.Deposited = p.Deposited.Add(coin.Amount)
	p.Balance = p.Balance.Add(coin.Amount)

	if err := pool.CheckInvariant(p); err != nil {
		return fmt.Errorf("deposit bookkeeping: %w", err)
	}
	if err := s.store.SavePool(ctx, p); err != nil {
		return err
	}

	metrics.PoolBalance.Set(p.Balance.InexactFloat64())
	slog.Info("pool deposit", "sender", sender, "amount", coin.Amount.String())
	return nil
}

// WithdrawResult reports a successful operator withdrawal.
type WithdrawResult struct {
	Amount   decimal.Decimal      `json:"amount"`
	Transfer model.TransferIntent `json:"transfer"`
}

// Withdraw removes operator-withdrawable funds from the pool. Admin or
// worker only. A nil amount withdraws everything available. Deposited
// capital is drawn down first; the remainder comes out of current revenue,
// which may go negative. Funds reserved for user IOUs are never touched.
func (s *Service) Withdraw(ctx context.Context, sender string, amount *decimal.Decimal, recipient string, funds []model.Coin) (*WithdrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := auth.CheckFunds(funds, auth.FundsEmpty); err != nil {
		return nil, err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.Check(sender, cfg.Admin, cfg.Worker, auth.AdminOrWorker()); err != nil {
		return nil, err
	}

	if recipient == "" {
		recipient = sender
	} else if err := model.ValidateAddress(recipient); err != nil {
		return nil, err
	}

	p, err := s.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	available := pool.AvailableToWithdraw(p.Deposited, p.Revenue.Current)
	target := available
	if amount != nil {
		target = *amount
	}
	if !target.IsPositive() {
		return nil, ErrZeroAmount
	}
	if target.GreaterThan(available) {
		return nil, ErrNotEnoughLiquidity
	}

	fromDeposited := decimal.Min(target, p.Deposited)
	p.Deposited = p.Deposited.Sub(fromDeposited)
	p.Revenue.Current = p.Revenue.Current.Sub(target.Sub(fromDeposited))
	p.Balance = p.Balance.Sub(target)

	if err := pool.CheckInvariant(p); err != nil {
		return nil, fmt.Errorf("withdraw bookkeeping: %w", err)
	}
	if err := s.store.SavePool(ctx, p); err != nil {
		return nil, err
	}

	metrics.PoolBalance.Set(p.Balance.InexactFloat64())
	slog.Info("pool withdraw",
		"sender", sender,
		"recipient", recipient,
		"amount", target.String(),
	)

	return &WithdrawResult{
		Amount:   target,
		Transfer: model.TransferIntent{Recipient: recipient, Amount: target, Denom: cfg.Denom},
	}, nil
}

// AcceptAdminRole completes a pending admin transfer. Only the named
// candidate may accept, and only strictly before the deadline; acceptance
// collapses the deadline to now, so a second acceptance fails naturally.
// Expiry is enforced lazily here, never swept.
func (s *Service) AcceptAdminRole(ctx context.Context, sender string, funds []model.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := auth.CheckFunds(funds, auth.FundsEmpty); err != nil {
		return err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	transfer, err := s.store.GetAdminTransfer(ctx)
	if err != nil {
		return err
	}

	if err := auth.Check(sender, cfg.Admin, cfg.Worker, auth.Allowlist(transfer.NewAdmin)); err != nil {
		return err
	}
	now := s.now()
	if !now.Before(transfer.Deadline) {
		return ErrTransferDeadline
	}

	cfg.Admin = sender
	transfer.Deadline = now
	if err := s.store.SaveConfig(ctx, cfg, transfer); err != nil {
		return err
	}

	slog.Info("admin role accepted", "admin", sender)
	return nil
}

// ConfigUpdate carries the optional fields of an UpdateConfig call. Nil
// fields are left unchanged; setting Admin initiates an admin transfer
// rather than switching the admin directly.
type ConfigUpdate struct {
	Admin       *string          `json:"admin,omitempty"`
	Worker      *string          `json:"worker,omitempty"`
	Bet         *model.Range     `json:"bet,omitempty"`
	Denom       *string          `json:"denom,omitempty"`
	PlatformFee *decimal.Decimal `json:"platform_fee,omitempty"`
}

// UpdateConfig validates and applies a config update. Admin only. An
// update that specifies nothing is rejected.
func (s *Service) UpdateConfig(ctx context.Context, sender string, upd ConfigUpdate, funds []model.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := auth.CheckFunds(funds, auth.FundsEmpty); err != nil {
		return err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := auth.Check(sender, cfg.Admin, cfg.Worker, auth.AdminOnly()); err != nil {
		return err
	}

	updated := false
	var transfer *model.AdminTransfer

	if upd.Admin != nil {
		if err := model.ValidateAddress(*upd.Admin); err != nil {
			return err
		}
		transfer = &model.AdminTransfer{
			NewAdmin: *upd.Admin,
			Deadline: s.now().Add(s.adminTimeout),
		}
		updated = true
	}
	if upd.Worker != nil {
		if err := model.ValidateAddress(*upd.Worker); err != nil {
			return err
		}
		cfg.Worker = *upd.Worker
		updated = true
	}
	if upd.Bet != nil {
		if upd.Bet.Min.IsNegative() || upd.Bet.Min.GreaterThan(upd.Bet.Max) {
			return ErrInvalidRange
		}
		cfg.Bet = *upd.Bet
		updated = true
	}
	if upd.Denom != nil {
		if err := model.ValidateDenom(*upd.Denom); err != nil {
			return err
		}
		cfg.Denom = *upd.Denom
		updated = true
	}
	if upd.PlatformFee != nil {
		fee := *upd.PlatformFee
		if fee.IsNegative() || fee.GreaterThan(decimal.NewFromInt(1)) {
			return ErrInvalidFee
		}
		cfg.PlatformFee = fee
		updated = true
	}

	if !updated {
		return ErrNoParameters
	}

	if err := s.store.SaveConfig(ctx, cfg, transfer); err != nil {
		return err
	}
	slog.Info("config updated", "sender", sender)
	return nil
}

// Pause halts user-facing operations. Admin or worker: a compromised
// worker may halt the platform but not resume it.
func (s *Service) Pause(ctx context.Context, sender string, funds []model.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := auth.CheckFunds(funds, auth.FundsEmpty); err != nil {
		return err
	}
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := auth.Check(sender, cfg.Admin, cfg.Worker, auth.AdminOrWorker()); err != nil {
		return err
	}
	if err := s.store.SavePaused(ctx, true); err != nil {
		return err
	}
	slog.Info("platform paused", "sender", sender)
	return nil
}

// Unpause resumes user-facing operations. Admin only.
func (s *Service) Unpause(ctx context.Context, sender string, funds []model.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := auth.CheckFunds(funds, auth.FundsEmpty); err != nil {
		return err
	}
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := auth.Check(sender, cfg.Admin, cfg.Worker, auth.AdminOnly()); err != nil {
		return err
	}
	if err := s.store.SavePaused(ctx, false); err != nil {
		return err
	}
	slog.Info("platform unpaused", "sender", sender)
	return nil
}

// --- Read-only queries ---

// Config returns the current platform configuration.
func (s *Service) Config(ctx context.Context) (*model.Config, error) {
	return s.store.GetConfig(ctx)
}

// PoolView is the pool ledger with its derived liquidity figures.
type PoolView struct {
	model.PoolLedger
	AvailableToWithdraw decimal.Decimal `json:"available_to_withdraw"`
	RequiredToDeposit   decimal.Decimal `json:"required_to_deposit"`
}

// Pool returns the pool ledger together with the operator-withdrawable
// amount and the deposit shortfall against outstanding IOUs.
func (s *Service) Pool(ctx context.Context) (*PoolView, error) {
	p, err := s.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	return &PoolView{
		PoolLedger:          *p,
		AvailableToWithdraw: pool.AvailableToWithdraw(p.Deposited, p.Revenue.Current),
		RequiredToDeposit:   pool.RequiredToDeposit(p.Balance, p.UserUnclaimed),
	}, nil
}

// AvailableToWithdraw returns only the operator-withdrawable amount.
func (s *Service) AvailableToWithdraw(ctx context.Context) (decimal.Decimal, error) {
	p, err := s.store.GetPool(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return pool.AvailableToWithdraw(p.Deposited, p.Revenue.Current), nil
}

// User returns the ledger row for an address (zero values for a user who
// has never interacted).
func (s *Service) User(ctx context.Context, address string) (*model.UserLedger, error) {
	if err := model.ValidateAddress(address); err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, address)
}

// Users returns a page of user ledgers ascending by address. startAfter is
// an exclusive lower bound; limit 0 applies the default page size.
func (s *Service) Users(ctx context.Context, startAfter string, limit int) ([]model.UserEntry, error) {
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	return s.store.ListUsers(ctx, startAfter, limit)
}

// UserFlips returns a user's most recent resolved flips, newest first.
func (s *Service) UserFlips(ctx context.Context, address string, limit int) ([]model.FlipRecord, error) {
	if err := model.ValidateAddress(address); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultFlipHistorySize {
		limit = defaultFlipHistorySize
	}
	return s.store.ListFlips(ctx, address, limit)
}

func (s *Service) checkPause(ctx context.Context) error {
	paused, err := s.store.GetPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}
