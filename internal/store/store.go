// Package store defines the persistence interface for the flip engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/model"
)

// ErrNotInitialized is returned when the platform singleton row is missing.
var ErrNotInitialized = errors.New("store: platform is not initialized")

// Store is the persistence interface. Every mutating call on the engine maps
// onto exactly one Store write, so a write is the transaction boundary:
// implementations must apply each call completely or not at all.
type Store interface {
	// --- Platform singleton ---

	// InitPlatform creates the platform singleton (config, fairness seed
	// weight, empty pool, unpaused, no pending admin transfer) if it does
	// not exist yet. Returns true when the row was created by this call.
	InitPlatform(ctx context.Context, cfg *model.Config, weight decimal.Decimal) (bool, error)

	// GetConfig returns the current platform configuration.
	GetConfig(ctx context.Context) (*model.Config, error)

	// SaveConfig persists an updated configuration and, when transfer is
	// non-nil, the admin-transfer state in the same write.
	SaveConfig(ctx context.Context, cfg *model.Config, transfer *model.AdminTransfer) error

	// GetPaused returns the pause flag.
	GetPaused(ctx context.Context) (bool, error)

	// SavePaused persists the pause flag.
	SavePaused(ctx context.Context, paused bool) error

	// GetAdminTransfer returns the pending admin-transfer state. A zero
	// deadline means no transfer was ever initiated.
	GetAdminTransfer(ctx context.Context) (*model.AdminTransfer, error)

	// GetWeight returns the persisted fairness weight.
	GetWeight(ctx context.Context) (decimal.Decimal, error)

	// --- Pool ledger ---

	// GetPool returns the pool ledger singleton.
	GetPool(ctx context.Context) (*model.PoolLedger, error)

	// SavePool persists the pool ledger (deposit and withdraw paths).
	SavePool(ctx context.Context, p *model.PoolLedger) error

	// --- User ledgers ---

	// GetUser returns the ledger row for address, or a zero-valued row if
	// the user has never interacted.
	GetUser(ctx context.Context, address string) (*model.UserLedger, error)

	// ListUsers returns up to limit user entries ordered ascending by
	// address, strictly after startAfter (exclusive lower bound; empty
	// means from the beginning).
	ListUsers(ctx context.Context, startAfter string, limit int) ([]model.UserEntry, error)

	// --- Atomic multi-row commits ---

	// CommitFlip persists the advanced fairness weight, the pool ledger,
	// the user ledger and the immutable flip record together or not at
	// all. No outcome may be derived from a weight that is not persisted.
	CommitFlip(ctx context.Context, weight decimal.Decimal, p *model.PoolLedger,
		address string, u *model.UserLedger, rec *model.FlipRecord) error

	// CommitClaim persists the pool and user ledgers together or not at all.
	CommitClaim(ctx context.Context, p *model.PoolLedger, address string, u *model.UserLedger) error

	// --- Immutable flip log ---

	// ListFlips returns the most recent flips for a user, newest first.
	ListFlips(ctx context.Context, address string, limit int) ([]model.FlipRecord, error)
}
