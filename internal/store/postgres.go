package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// The platform singleton lives in a one-row table; CommitFlip and
// CommitClaim run inside a transaction to keep the weight, pool and user
// rows consistent.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the flip-engine tables.
const Schema = `
CREATE TABLE IF NOT EXISTS platform (
    id                BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
    paused            BOOLEAN NOT NULL,
    admin             TEXT NOT NULL,
    worker            TEXT NOT NULL DEFAULT '',
    bet_min           NUMERIC NOT NULL,
    bet_max           NUMERIC NOT NULL,
    denom             TEXT NOT NULL,
    platform_fee      NUMERIC NOT NULL,
    transfer_admin    TEXT NOT NULL DEFAULT '',
    transfer_deadline TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    weight            NUMERIC NOT NULL,
    bets_count        BIGINT NOT NULL DEFAULT 0,
    bets_value        NUMERIC NOT NULL DEFAULT 0,
    wins_count        BIGINT NOT NULL DEFAULT 0,
    wins_value        NUMERIC NOT NULL DEFAULT 0,
    user_unclaimed    NUMERIC NOT NULL DEFAULT 0,
    average_fee       NUMERIC NOT NULL DEFAULT 0,
    deposited         NUMERIC NOT NULL DEFAULT 0,
    balance           NUMERIC NOT NULL DEFAULT 0,
    revenue_total     NUMERIC NOT NULL DEFAULT 0,
    revenue_current   NUMERIC NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    address     TEXT PRIMARY KEY,
    bets_count  BIGINT NOT NULL DEFAULT 0,
    bets_value  NUMERIC NOT NULL DEFAULT 0,
    wins_count  BIGINT NOT NULL DEFAULT 0,
    wins_value  NUMERIC NOT NULL DEFAULT 0,
    roi         NUMERIC NOT NULL DEFAULT 0,
    unclaimed   NUMERIC NOT NULL DEFAULT 0,
    last_flip   TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);

CREATE TABLE IF NOT EXISTS flips (
    id           UUID PRIMARY KEY,
    user_address TEXT NOT NULL,
    side         TEXT NOT NULL,
    stake        NUMERIC NOT NULL,
    weight       NUMERIC NOT NULL,
    won          BOOLEAN NOT NULL,
    prize        NUMERIC NOT NULL,
    deferred     BOOLEAN NOT NULL,
    timestamp    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS flips_user_idx ON flips (user_address, timestamp DESC);
`

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InitPlatform(ctx context.Context, cfg *model.Config, weight decimal.Decimal) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO platform (id, paused, admin, worker, bet_min, bet_max, denom, platform_fee, weight)
		 VALUES (TRUE, FALSE, $1, $2, $3::NUMERIC, $4::NUMERIC, $5, $6::NUMERIC, $7::NUMERIC)
		 ON CONFLICT (id) DO NOTHING`,
		cfg.Admin, cfg.Worker,
		cfg.Bet.Min.String(), cfg.Bet.Max.String(),
		cfg.Denom, cfg.PlatformFee.String(), weight.String(),
	)
	if err != nil {
		return false, fmt.Errorf("init platform: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetConfig(ctx context.Context) (*model.Config, error) {
	var cfg model.Config
	var betMin, betMax, fee string

	err := s.pool.QueryRow(ctx,
		`SELECT admin, worker, bet_min::TEXT, bet_max::TEXT, denom, platform_fee::TEXT
		 FROM platform WHERE id`).
		Scan(&cfg.Admin, &cfg.Worker, &betMin, &betMax, &cfg.Denom, &fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("get config: %w", err)
	}

	cfg.Bet.Min, _ = decimal.NewFromString(betMin)
	cfg.Bet.Max, _ = decimal.NewFromString(betMax)
	cfg.PlatformFee, _ = decimal.NewFromString(fee)
	return &cfg, nil
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg *model.Config, transfer *model.AdminTransfer) error {
	var err error
	if transfer == nil {
		_, err = s.pool.Exec(ctx,
			`UPDATE platform
			 SET admin = $1, worker = $2, bet_min = $3::NUMERIC, bet_max = $4::NUMERIC,
			     denom = $5, platform_fee = $6::NUMERIC
			 WHERE id`,
			cfg.Admin, cfg.Worker, cfg.Bet.Min.String(), cfg.Bet.Max.String(),
			cfg.Denom, cfg.PlatformFee.String(),
		)
	} else {
		_, err = s.pool.Exec(ctx,
			`UPDATE platform
			 SET admin = $1, worker = $2, bet_min = $3::NUMERIC, bet_max = $4::NUMERIC,
			     denom = $5, platform_fee = $6::NUMERIC,
			     transfer_admin = $7, transfer_deadline = $8
			 WHERE id`,
			cfg.Admin, cfg.Worker, cfg.Bet.Min.String(), cfg.Bet.Max.String(),
			cfg.Denom, cfg.PlatformFee.String(),
			transfer.NewAdmin, transfer.Deadline,
		)
	}
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPaused(ctx context.Context) (bool, error) {
	var paused bool
	err := s.pool.QueryRow(ctx, `SELECT paused FROM platform WHERE id`).Scan(&paused)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotInitialized
		}
		return false, fmt.Errorf("get paused: %w", err)
	}
	return paused, nil
}

func (s *PostgresStore) SavePaused(ctx context.Context, paused bool) error {
	if _, err := s.pool.Exec(ctx, `UPDATE platform SET paused = $1 WHERE id`, paused); err != nil {
		return fmt.Errorf("save paused: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAdminTransfer(ctx context.Context) (*model.AdminTransfer, error) {
	var transfer model.AdminTransfer
	err := s.pool.QueryRow(ctx,
		`SELECT transfer_admin, transfer_deadline FROM platform WHERE id`).
		Scan(&transfer.NewAdmin, &transfer.Deadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("get admin transfer: %w", err)
	}
	if transfer.Deadline.Equal(time.Unix(0, 0)) {
		transfer.Deadline = time.Time{}
	}
	return &transfer, nil
}

func (s *PostgresStore) GetWeight(ctx context.Context) (decimal.Decimal, error) {
	var weight string
	err := s.pool.QueryRow(ctx, `SELECT weight::TEXT FROM platform WHERE id`).Scan(&weight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotInitialized
		}
		return decimal.Zero, fmt.Errorf("get weight: %w", err)
	}
	w, _ := decimal.NewFromString(weight)
	return w, nil
}

func (s *PostgresStore) GetPool(ctx context.Context) (*model.PoolLedger, error) {
	var p model.PoolLedger
	var betsValue, winsValue, unclaimed, avgFee, deposited, balance, revTotal, revCurrent string

	err := s.pool.QueryRow(ctx,
		`SELECT bets_count, bets_value::TEXT, wins_count, wins_value::TEXT,
		        user_unclaimed::TEXT, average_fee::TEXT, deposited::TEXT,
		        balance::TEXT, revenue_total::TEXT, revenue_current::TEXT
		 FROM platform WHERE id`).
		Scan(&p.Stats.Bets.Count, &betsValue, &p.Stats.Wins.Count, &winsValue,
			&unclaimed, &avgFee, &deposited, &balance, &revTotal, &revCurrent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}

	p.Stats.Bets.Value, _ = decimal.NewFromString(betsValue)
	p.Stats.Wins.Value, _ = decimal.NewFromString(winsValue)
	p.UserUnclaimed, _ = decimal.NewFromString(unclaimed)
	p.AverageFee, _ = decimal.NewFromString(avgFee)
	p.Deposited, _ = decimal.NewFromString(deposited)
	p.Balance, _ = decimal.NewFromString(balance)
	p.Revenue.Total, _ = decimal.NewFromString(revTotal)
	p.Revenue.Current, _ = decimal.NewFromString(revCurrent)
	return &p, nil
}

func (s *PostgresStore) SavePool(ctx context.Context, p *model.PoolLedger) error {
	if _, err := s.pool.Exec(ctx, poolUpdateSQL, poolUpdateArgs(p)...); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

const poolUpdateSQL = `
UPDATE platform
SET bets_count = $1, bets_value = $2::NUMERIC,
    wins_count = $3, wins_value = $4::NUMERIC,
    user_unclaimed = $5::NUMERIC, average_fee = $6::NUMERIC,
    deposited = $7::NUMERIC, balance = $8::NUMERIC,
    revenue_total = $9::NUMERIC, revenue_current = $10::NUMERIC
WHERE id`

func poolUpdateArgs(p *model.PoolLedger) []any {
	return []any{
		p.Stats.Bets.Count, p.Stats.Bets.Value.String(),
		p.Stats.Wins.Count, p.Stats.Wins.Value.String(),
		p.UserUnclaimed.String(), p.AverageFee.String(),
		p.Deposited.String(), p.Balance.String(),
		p.Revenue.Total.String(), p.Revenue.Current.String(),
	}
}

func (s *PostgresStore) GetUser(ctx context.Context, address string) (*model.UserLedger, error) {
	var u model.UserLedger
	var betsValue, winsValue, roi, unclaimed string

	err := s.pool.QueryRow(ctx,
		`SELECT bets_count, bets_value::TEXT, wins_count, wins_value::TEXT,
		        roi::TEXT, unclaimed::TEXT, last_flip
		 FROM users WHERE address = $1`, address).
		Scan(&u.Stats.Bets.Count, &betsValue, &u.Stats.Wins.Count, &winsValue,
			&roi, &unclaimed, &u.LastFlip)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lazily-created rows: absent users read as zero ledgers.
			return &model.UserLedger{
				Stats: model.Stats{
					Bets: model.StatsItem{Value: decimal.Zero},
					Wins: model.StatsItem{Value: decimal.Zero},
				},
				ROI:       decimal.Zero,
				Unclaimed: decimal.Zero,
			}, nil
		}
		return nil, fmt.Errorf("get user %s: %w", address, err)
	}

	u.Stats.Bets.Value, _ = decimal.NewFromString(betsValue)
	u.Stats.Wins.Value, _ = decimal.NewFromString(winsValue)
	u.ROI, _ = decimal.NewFromString(roi)
	u.Unclaimed, _ = decimal.NewFromString(unclaimed)
	if u.LastFlip.Equal(time.Unix(0, 0)) {
		u.LastFlip = time.Time{}
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, startAfter string, limit int) ([]model.UserEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, bets_count, bets_value::TEXT, wins_count, wins_value::TEXT,
		        roi::TEXT, unclaimed::TEXT, last_flip
		 FROM users
		 WHERE address > $1
		 ORDER BY address ASC
		 LIMIT $2`, startAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var entries []model.UserEntry
	for rows.Next() {
		var e model.UserEntry
		var betsValue, winsValue, roi, unclaimed string

		if err := rows.Scan(&e.Address,
			&e.Info.Stats.Bets.Count, &betsValue,
			&e.Info.Stats.Wins.Count, &winsValue,
			&roi, &unclaimed, &e.Info.LastFlip); err != nil {
			return nil, err
		}

		e.Info.Stats.Bets.Value, _ = decimal.NewFromString(betsValue)
		e.Info.Stats.Wins.Value, _ = decimal.NewFromString(winsValue)
		e.Info.ROI, _ = decimal.NewFromString(roi)
		e.Info.Unclaimed, _ = decimal.NewFromString(unclaimed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const userUpsertSQL = `
INSERT INTO users (address, bets_count, bets_value, wins_count, wins_value, roi, unclaimed, last_flip)
VALUES ($1, $2, $3::NUMERIC, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)
ON CONFLICT (address) DO UPDATE
SET bets_count = EXCLUDED.bets_count, bets_value = EXCLUDED.bets_value,
    wins_count = EXCLUDED.wins_count, wins_value = EXCLUDED.wins_value,
    roi = EXCLUDED.roi, unclaimed = EXCLUDED.unclaimed, last_flip = EXCLUDED.last_flip`

func userUpsertArgs(address string, u *model.UserLedger) []any {
	return []any{
		address,
		u.Stats.Bets.Count, u.Stats.Bets.Value.String(),
		u.Stats.Wins.Count, u.Stats.Wins.Value.String(),
		u.ROI.String(), u.Unclaimed.String(), u.LastFlip,
	}
}

func (s *PostgresStore) CommitFlip(ctx context.Context, weight decimal.Decimal, p *model.PoolLedger,
	address string, u *model.UserLedger, rec *model.FlipRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("commit flip: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE platform SET weight = $1::NUMERIC WHERE id`, weight.String()); err != nil {
		return fmt.Errorf("commit flip weight: %w", err)
	}
	if _, err := tx.Exec(ctx, poolUpdateSQL, poolUpdateArgs(p)...); err != nil {
		return fmt.Errorf("commit flip pool: %w", err)
	}
	if _, err := tx.Exec(ctx, userUpsertSQL, userUpsertArgs(address, u)...); err != nil {
		return fmt.Errorf("commit flip user: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO flips (id, user_address, side, stake, weight, won, prize, deferred, timestamp)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6, $7::NUMERIC, $8, $9)`,
		rec.ID, rec.User, string(rec.Side), rec.Stake.String(), rec.Weight.String(),
		rec.Won, rec.Prize.String(), rec.Deferred, rec.Timestamp); err != nil {
		return fmt.Errorf("commit flip record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit flip: %w", err)
	}
	return nil
}

func (s *PostgresStore) CommitClaim(ctx context.Context, p *model.PoolLedger, address string, u *model.UserLedger) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, poolUpdateSQL, poolUpdateArgs(p)...); err != nil {
		return fmt.Errorf("commit claim pool: %w", err)
	}
	if _, err := tx.Exec(ctx, userUpsertSQL, userUpsertArgs(address, u)...); err != nil {
		return fmt.Errorf("commit claim user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFlips(ctx context.Context, address string, limit int) ([]model.FlipRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_address, side, stake::TEXT, weight::TEXT, won, prize::TEXT, deferred, timestamp
		 FROM flips WHERE user_address = $1
		 ORDER BY timestamp DESC
		 LIMIT $2`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("list flips: %w", err)
	}
	defer rows.Close()

	var records []model.FlipRecord
	for rows.Next() {
		var r model.FlipRecord
		var side, stake, weight, prize string

		if err := rows.Scan(&r.ID, &r.User, &side, &stake, &weight,
			&r.Won, &prize, &r.Deferred, &r.Timestamp); err != nil {
			return nil, err
		}

		r.Side = model.Side(side)
		r.Stake, _ = decimal.NewFromString(stake)
		r.Weight, _ = decimal.NewFromString(weight)
		r.Prize, _ = decimal.NewFromString(prize)
		records = append(records, r)
	}
	return records, rows.Err()
}
