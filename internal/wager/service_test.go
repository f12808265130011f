package wager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/auth"
	"github.com/omflip/flip-engine/internal/model"
	"github.com/omflip/flip-engine/internal/pool"
	"github.com/omflip/flip-engine/internal/store"
)

const (
	adminAddr  = "omflip1admin000"
	workerAddr = "omflip1worker00"
	userAddr   = "omflip1user0000"
	otherAddr  = "omflip1other000"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedSource returns preset weights in order, ignoring its inputs.
type fixedSource struct {
	weights []decimal.Decimal
	calls   int
}

func (f *fixedSource) Next(_ decimal.Decimal, _ int64, _ string) decimal.Decimal {
	w := f.weights[f.calls%len(f.weights)]
	f.calls++
	return w
}

type fixture struct {
	svc    *Service
	store  *store.MemoryStore
	source *fixedSource
	clock  time.Time
}

func newFixture(t *testing.T, weights ...string) *fixture {
	t.Helper()

	src := &fixedSource{}
	for _, w := range weights {
		src.weights = append(src.weights, d(w))
	}
	if len(src.weights) == 0 {
		src.weights = []decimal.Decimal{d("0.5")}
	}

	ms := store.NewMemoryStore()
	svc := NewService(ms, src, nil)

	f := &fixture{svc: svc, store: ms, source: src,
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return f.clock }

	cfg := &model.Config{
		Admin:       adminAddr,
		Worker:      workerAddr,
		Bet:         model.Range{Min: d("1"), Max: d("1000")},
		Denom:       "uom",
		PlatformFee: d("0.1"),
	}
	if err := svc.Init(context.Background(), cfg); err != nil {
		t.Fatalf("init: %v", err)
	}
	return f
}

func (f *fixture) advance(dt time.Duration) {
	f.clock = f.clock.Add(dt)
}

func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()
	p, err := f.store.GetPool(context.Background())
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if err := pool.CheckInvariant(p); err != nil {
		t.Fatalf("solvency violated: %v (pool %+v)", err, p)
	}
}

func uom(amount string) []model.Coin {
	return []model.Coin{{Denom: "uom", Amount: d(amount)}}
}

func TestFlip_DeferredPrizeThenClaim(t *testing.T) {
	// Weight 0.40 with fee 0.1: head wins at or below 0.45.
	f := newFixture(t, "0.40")
	ctx := context.Background()

	res, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("1000"))
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !res.Won {
		t.Fatal("head at weight 0.40 must win")
	}
	if !res.Prize.Equal(d("2000")) {
		t.Errorf("prize = %s, want 2000", res.Prize)
	}
	// Pool held only the fresh stake, so the prize is deferred.
	if !res.Deferred {
		t.Error("prize should be deferred with an underfunded pool")
	}
	if res.Transfer != nil {
		t.Error("deferred win must not produce a transfer")
	}
	f.assertInvariant(t)

	p, _ := f.store.GetPool(ctx)
	if !p.Balance.Equal(d("1000")) {
		t.Errorf("pool balance = %s, want 1000", p.Balance)
	}
	if !p.UserUnclaimed.Equal(d("2000")) {
		t.Errorf("pool unclaimed = %s, want 2000", p.UserUnclaimed)
	}
	if !p.Revenue.Current.Equal(d("-1000")) {
		t.Errorf("revenue current = %s, want -1000", p.Revenue.Current)
	}

	// Cannot pay out yet: the claim needs the full amount in balance.
	if _, err := f.svc.Claim(ctx, userAddr, nil); !errors.Is(err, ErrNotEnoughLiquidity) {
		t.Fatalf("expected ErrNotEnoughLiquidity, got %v", err)
	}

	if err := f.svc.Deposit(ctx, adminAddr, uom("2000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.assertInvariant(t)

	claim, err := f.svc.Claim(ctx, userAddr, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claim.Amount.Equal(d("2000")) {
		t.Errorf("claim amount = %s, want 2000", claim.Amount)
	}
	if claim.Transfer.Recipient != userAddr || claim.Transfer.Denom != "uom" {
		t.Errorf("unexpected transfer: %+v", claim.Transfer)
	}
	f.assertInvariant(t)

	u, _ := f.store.GetUser(ctx, userAddr)
	if !u.Unclaimed.IsZero() {
		t.Errorf("unclaimed not cleared: %s", u.Unclaimed)
	}
	if _, err := f.svc.Claim(ctx, userAddr, nil); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("second claim should fail with ErrNothingToClaim, got %v", err)
	}
}

func TestFlip_ImmediatePayoutWhenFunded(t *testing.T) {
	f := newFixture(t, "0.40")
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, adminAddr, uom("5000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	res, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("1000"))
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !res.Won || res.Deferred {
		t.Fatalf("expected an immediately paid win, got %+v", res)
	}
	if res.Transfer == nil || !res.Transfer.Amount.Equal(d("2000")) {
		t.Fatalf("expected a 2000 transfer, got %+v", res.Transfer)
	}
	f.assertInvariant(t)

	// 5000 deposited + 1000 stake in, 2000 prize out.
	p, _ := f.store.GetPool(ctx)
	if !p.Balance.Equal(d("4000")) {
		t.Errorf("pool balance = %s, want 4000", p.Balance)
	}
	if !p.UserUnclaimed.IsZero() {
		t.Errorf("unclaimed should stay zero, got %s", p.UserUnclaimed)
	}
}

func TestFlip_LossKeepsStake(t *testing.T) {
	// Weight 0.60 with fee 0.1: head loses, tail would win.
	f := newFixture(t, "0.60")
	ctx := context.Background()

	res, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("500"))
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if res.Won {
		t.Fatal("head at weight 0.60 must lose")
	}
	if !res.Prize.IsZero() {
		t.Errorf("losing prize = %s, want 0", res.Prize)
	}
	f.assertInvariant(t)

	p, _ := f.store.GetPool(ctx)
	if !p.Balance.Equal(d("500")) || !p.Revenue.Current.Equal(d("500")) {
		t.Errorf("stake not retained: balance %s, revenue %s", p.Balance, p.Revenue.Current)
	}

	u, _ := f.store.GetUser(ctx, userAddr)
	if !u.ROI.Equal(d("-1")) {
		t.Errorf("all-loss ROI = %s, want -1", u.ROI)
	}
}

func TestFlip_PreconditionGates(t *testing.T) {
	ctx := context.Background()

	t.Run("paused", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.Pause(ctx, workerAddr, nil); err != nil {
			t.Fatalf("pause: %v", err)
		}
		if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("10")); !errors.Is(err, ErrPaused) {
			t.Errorf("expected ErrPaused, got %v", err)
		}
	})

	t.Run("no funds", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, nil); !errors.Is(err, auth.ErrNoSingleCoin) {
			t.Errorf("expected ErrNoSingleCoin, got %v", err)
		}
	})

	t.Run("zero coin", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("0")); !errors.Is(err, auth.ErrZeroCoin) {
			t.Errorf("expected ErrZeroCoin, got %v", err)
		}
	})

	t.Run("invalid side", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Flip(ctx, userAddr, model.Side("edge"), uom("10")); !errors.Is(err, ErrInvalidSide) {
			t.Errorf("expected ErrInvalidSide, got %v", err)
		}
	})

	t.Run("wrong denom", func(t *testing.T) {
		f := newFixture(t)
		funds := []model.Coin{{Denom: "uosmo", Amount: d("10")}}
		if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, funds); !errors.Is(err, ErrWrongDenom) {
			t.Errorf("expected ErrWrongDenom, got %v", err)
		}
	})

	t.Run("bet out of range", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("1001")); !errors.Is(err, ErrBetOutOfRange) {
			t.Errorf("above max: expected ErrBetOutOfRange, got %v", err)
		}
		if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("0.5")); !errors.Is(err, ErrBetOutOfRange) {
			t.Errorf("below min: expected ErrBetOutOfRange, got %v", err)
		}
	})
}

func TestFlip_Cooldown(t *testing.T) {
	f := newFixture(t, "0.60")
	ctx := context.Background()

	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("10")); err != nil {
		t.Fatalf("first flip: %v", err)
	}

	f.advance(2 * time.Second)
	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("10")); !errors.Is(err, ErrCooldown) {
		t.Errorf("expected ErrCooldown inside the window, got %v", err)
	}

	// A different user is unaffected.
	if _, err := f.svc.Flip(ctx, otherAddr, model.SideHead, uom("10")); err != nil {
		t.Errorf("other user blocked: %v", err)
	}

	// Exactly at the boundary the cooldown has elapsed.
	f.advance(1 * time.Second)
	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("10")); err != nil {
		t.Errorf("flip at cooldown boundary: %v", err)
	}
}

func TestFlip_AverageFeeConverges(t *testing.T) {
	// Alternating win/loss at fair odds: two stakes in, one prize out
	// leaves revenue at fee * volume on average. Here one win and one
	// loss of 100 each: bets 200, wins 200, average fee 0.
	f := newFixture(t, "0.40", "0.60")
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, adminAddr, uom("1000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("100")); err != nil {
		t.Fatalf("flip 1: %v", err)
	}
	f.advance(5 * time.Second)
	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("100")); err != nil {
		t.Fatalf("flip 2: %v", err)
	}

	p, _ := f.store.GetPool(ctx)
	if !p.AverageFee.Equal(decimal.Zero) {
		t.Errorf("average fee = %s, want 0", p.AverageFee)
	}
	u, _ := f.store.GetUser(ctx, userAddr)
	if !u.ROI.Equal(decimal.Zero) {
		t.Errorf("ROI = %s, want 0", u.ROI)
	}
	f.assertInvariant(t)
}

func TestClaim_PausedAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, userAddr, nil); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("expected ErrNothingToClaim, got %v", err)
	}

	if err := f.svc.Pause(ctx, adminAddr, nil); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.svc.Claim(ctx, userAddr, nil); !errors.Is(err, ErrPaused) {
		t.Errorf("expected ErrPaused, got %v", err)
	}

	// Funds attached to a claim are rejected.
	if err := f.svc.Unpause(ctx, adminAddr, nil); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := f.svc.Claim(ctx, userAddr, uom("5")); !errors.Is(err, auth.ErrUnexpectedFunds) {
		t.Errorf("expected ErrUnexpectedFunds, got %v", err)
	}
}

func TestDeposit_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, userAddr, uom("100")); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("user deposit: expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.Deposit(ctx, workerAddr, uom("100")); err != nil {
		t.Errorf("worker deposit: %v", err)
	}
	if err := f.svc.Deposit(ctx, adminAddr, uom("100")); err != nil {
		t.Errorf("admin deposit: %v", err)
	}
	f.assertInvariant(t)

	p, _ := f.store.GetPool(ctx)
	if !p.Deposited.Equal(d("200")) || !p.Balance.Equal(d("200")) {
		t.Errorf("pool after deposits: %+v", p)
	}
}

func TestWithdraw_DefaultsAndBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, adminAddr, uom("300")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := f.svc.Withdraw(ctx, userAddr, nil, "", nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("user withdraw: expected ErrUnauthorized, got %v", err)
	}

	over := d("301")
	if _, err := f.svc.Withdraw(ctx, adminAddr, &over, "", nil); !errors.Is(err, ErrNotEnoughLiquidity) {
		t.Errorf("expected ErrNotEnoughLiquidity, got %v", err)
	}

	part := d("100")
	res, err := f.svc.Withdraw(ctx, adminAddr, &part, otherAddr, nil)
	if err != nil {
		t.Fatalf("partial withdraw: %v", err)
	}
	if res.Transfer.Recipient != otherAddr || !res.Amount.Equal(d("100")) {
		t.Errorf("unexpected result: %+v", res)
	}
	f.assertInvariant(t)

	// Nil amount drains everything still available.
	rest, err := f.svc.Withdraw(ctx, adminAddr, nil, "", nil)
	if err != nil {
		t.Fatalf("full withdraw: %v", err)
	}
	if !rest.Amount.Equal(d("200")) {
		t.Errorf("drained %s, want 200", rest.Amount)
	}
	f.assertInvariant(t)

	if _, err := f.svc.Withdraw(ctx, adminAddr, nil, "", nil); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("empty pool withdraw: expected ErrZeroAmount, got %v", err)
	}
}

func TestWithdraw_RejectsNegativeAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, adminAddr, uom("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// A negative amount would subtract from the ledger columns and leave
	// the pool recording value it never custodied.
	neg := d("-900")
	if _, err := f.svc.Withdraw(ctx, adminAddr, &neg, "", nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("negative withdraw: expected ErrZeroAmount, got %v", err)
	}

	p, _ := f.store.GetPool(ctx)
	if !p.Balance.Equal(d("100")) || !p.Deposited.Equal(d("100")) {
		t.Errorf("pool mutated by rejected withdraw: %+v", p)
	}
	f.assertInvariant(t)
}

func TestDeposit_RejectsNonPositiveCoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, adminAddr, uom("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// A negative coin would shrink Deposited and Balance below what the
	// pool actually holds.
	if err := f.svc.Deposit(ctx, adminAddr, uom("-60")); !errors.Is(err, auth.ErrZeroCoin) {
		t.Fatalf("negative deposit: expected ErrZeroCoin, got %v", err)
	}

	p, _ := f.store.GetPool(ctx)
	if !p.Deposited.Equal(d("100")) || !p.Balance.Equal(d("100")) {
		t.Errorf("pool mutated by rejected deposit: %+v", p)
	}
	f.assertInvariant(t)
}

func TestWithdraw_NeverTouchesUnclaimed(t *testing.T) {
	// A deferred win reserves 2000 for the user. Withdrawable is capped
	// at deposited + current revenue, so the IOU stays funded once the
	// pool can cover it.
	f := newFixture(t, "0.40")
	ctx := context.Background()

	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("1000")); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if err := f.svc.Deposit(ctx, adminAddr, uom("3000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// deposited 3000, revenue current -1000: available is 2000.
	avail, err := f.svc.AvailableToWithdraw(ctx)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if !avail.Equal(d("2000")) {
		t.Fatalf("available = %s, want 2000", avail)
	}

	res, err := f.svc.Withdraw(ctx, adminAddr, nil, "", nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !res.Amount.Equal(d("2000")) {
		t.Errorf("withdrew %s, want 2000", res.Amount)
	}
	f.assertInvariant(t)

	// Exactly the IOU remains in the pool.
	if _, err := f.svc.Claim(ctx, userAddr, nil); err != nil {
		t.Fatalf("claim after withdraw: %v", err)
	}
	p, _ := f.store.GetPool(ctx)
	if !p.Balance.IsZero() || !p.UserUnclaimed.IsZero() {
		t.Errorf("pool not fully settled: %+v", p)
	}
}

func TestAdminTransfer_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No transfer pending: nobody can accept.
	if err := f.svc.AcceptAdminRole(ctx, otherAddr, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	newAdmin := otherAddr
	upd := ConfigUpdate{Admin: &newAdmin}
	if err := f.svc.UpdateConfig(ctx, adminAddr, upd, nil); err != nil {
		t.Fatalf("initiate transfer: %v", err)
	}

	// The current admin keeps the role until acceptance.
	cfg, _ := f.svc.Config(ctx)
	if cfg.Admin != adminAddr {
		t.Errorf("admin switched early: %s", cfg.Admin)
	}

	// Only the named candidate may accept.
	if err := f.svc.AcceptAdminRole(ctx, userAddr, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("wrong candidate: expected ErrUnauthorized, got %v", err)
	}

	f.advance(time.Hour)
	if err := f.svc.AcceptAdminRole(ctx, otherAddr, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}
	cfg, _ = f.svc.Config(ctx)
	if cfg.Admin != otherAddr {
		t.Errorf("admin = %s, want %s", cfg.Admin, otherAddr)
	}

	// Acceptance collapses the deadline: a second accept fails.
	if err := f.svc.AcceptAdminRole(ctx, otherAddr, nil); !errors.Is(err, ErrTransferDeadline) {
		t.Errorf("re-accept: expected ErrTransferDeadline, got %v", err)
	}

	// The old admin lost the role.
	if err := f.svc.Pause(ctx, adminAddr, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("old admin still authorized: %v", err)
	}
}

func TestAdminTransfer_Expiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newAdmin := otherAddr
	if err := f.svc.UpdateConfig(ctx, adminAddr, ConfigUpdate{Admin: &newAdmin}, nil); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// Exactly at the deadline is already too late.
	f.advance(DefaultAdminTimeout)
	if err := f.svc.AcceptAdminRole(ctx, otherAddr, nil); !errors.Is(err, ErrTransferDeadline) {
		t.Errorf("expected ErrTransferDeadline at deadline, got %v", err)
	}

	// A fresh transfer resets the window.
	if err := f.svc.UpdateConfig(ctx, adminAddr, ConfigUpdate{Admin: &newAdmin}, nil); err != nil {
		t.Fatalf("re-initiate: %v", err)
	}
	f.advance(DefaultAdminTimeout - time.Second)
	if err := f.svc.AcceptAdminRole(ctx, otherAddr, nil); err != nil {
		t.Errorf("accept inside fresh window: %v", err)
	}
}

func TestUpdateConfig_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.UpdateConfig(ctx, workerAddr, ConfigUpdate{}, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("worker update: expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.UpdateConfig(ctx, adminAddr, ConfigUpdate{}, nil); !errors.Is(err, ErrNoParameters) {
		t.Errorf("empty update: expected ErrNoParameters, got %v", err)
	}

	badFee := d("1.5")
	if err := f.svc.UpdateConfig(ctx, adminAddr, ConfigUpdate{PlatformFee: &badFee}, nil); !errors.Is(err, ErrInvalidFee) {
		t.Errorf("expected ErrInvalidFee, got %v", err)
	}

	badRange := model.Range{Min: d("10"), Max: d("1")}
	if err := f.svc.UpdateConfig(ctx, adminAddr, ConfigUpdate{Bet: &badRange}, nil); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}

	// A negative min would admit negative stakes through the range gate.
	negRange := model.Range{Min: d("-5"), Max: d("10")}
	if err := f.svc.UpdateConfig(ctx, adminAddr, ConfigUpdate{Bet: &negRange}, nil); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange for negative min, got %v", err)
	}

	fee := d("0.05")
	denom := "untrn"
	bet := model.Range{Min: d("5"), Max: d("50")}
	upd := ConfigUpdate{PlatformFee: &fee, Denom: &denom, Bet: &bet}
	if err := f.svc.UpdateConfig(ctx, adminAddr, upd, nil); err != nil {
		t.Fatalf("valid update: %v", err)
	}
	cfg, _ := f.svc.Config(ctx)
	if cfg.Denom != "untrn" || !cfg.PlatformFee.Equal(d("0.05")) || !cfg.Bet.Max.Equal(d("50")) {
		t.Errorf("config not applied: %+v", cfg)
	}
}

func TestPause_Asymmetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Pause(ctx, userAddr, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("user pause: expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.Pause(ctx, workerAddr, nil); err != nil {
		t.Fatalf("worker pause: %v", err)
	}

	// The worker may halt the platform but not resume it.
	if err := f.svc.Unpause(ctx, workerAddr, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("worker unpause: expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.Unpause(ctx, adminAddr, nil); err != nil {
		t.Fatalf("admin unpause: %v", err)
	}

	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("10")); err != nil {
		t.Errorf("flip after unpause: %v", err)
	}
}

func TestUsers_Pagination(t *testing.T) {
	f := newFixture(t, "0.60")
	ctx := context.Background()

	for _, addr := range []string{"omflip1bbb0000", "omflip1aaa0000", "omflip1ccc0000"} {
		if _, err := f.svc.Flip(ctx, addr, model.SideHead, uom("10")); err != nil {
			t.Fatalf("flip %s: %v", addr, err)
		}
	}

	page, err := f.svc.Users(ctx, "", 2)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(page) != 2 || page[0].Address != "omflip1aaa0000" || page[1].Address != "omflip1bbb0000" {
		t.Errorf("first page wrong: %+v", page)
	}

	next, _ := f.svc.Users(ctx, page[1].Address, 2)
	if len(next) != 1 || next[0].Address != "omflip1ccc0000" {
		t.Errorf("second page wrong: %+v", next)
	}
}

func TestFlipRecord_History(t *testing.T) {
	f := newFixture(t, "0.40", "0.60")
	ctx := context.Background()

	if err := f.svc.Deposit(ctx, adminAddr, uom("1000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.svc.Flip(ctx, userAddr, model.SideHead, uom("100")); err != nil {
		t.Fatalf("flip 1: %v", err)
	}
	f.advance(5 * time.Second)
	if _, err := f.svc.Flip(ctx, userAddr, model.SideTail, uom("200")); err != nil {
		t.Fatalf("flip 2: %v", err)
	}

	flips, err := f.svc.UserFlips(ctx, userAddr, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(flips) != 2 {
		t.Fatalf("expected 2 records, got %d", len(flips))
	}
	// Newest first.
	if !flips[0].Stake.Equal(d("200")) || flips[0].Side != model.SideTail {
		t.Errorf("newest record wrong: %+v", flips[0])
	}
	if flips[0].ID == flips[1].ID || flips[0].ID == "" {
		t.Errorf("records need distinct non-empty ids: %q %q", flips[0].ID, flips[1].ID)
	}
}
