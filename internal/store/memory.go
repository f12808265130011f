package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	paused      bool
	cfg         model.Config
	transfer    model.AdminTransfer
	weight      decimal.Decimal
	pool        model.PoolLedger
	users       map[string]model.UserLedger
	flips       []model.FlipRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]model.UserLedger),
	}
}

func (s *MemoryStore) InitPlatform(_ context.Context, cfg *model.Config, weight decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return false, nil
	}

	s.initialized = true
	s.cfg = *cfg
	s.weight = weight
	s.paused = false
	s.transfer = model.AdminTransfer{}
	s.pool = zeroPool()
	return true, nil
}

func (s *MemoryStore) GetConfig(_ context.Context) (*model.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	cfg := s.cfg
	return &cfg, nil
}

func (s *MemoryStore) SaveConfig(_ context.Context, cfg *model.Config, transfer *model.AdminTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.cfg = *cfg
	if transfer != nil {
		s.transfer = *transfer
	}
	return nil
}

func (s *MemoryStore) GetPaused(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return false, ErrNotInitialized
	}
	return s.paused, nil
}

func (s *MemoryStore) SavePaused(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.paused = paused
	return nil
}

func (s *MemoryStore) GetAdminTransfer(_ context.Context) (*model.AdminTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	transfer := s.transfer
	return &transfer, nil
}

func (s *MemoryStore) GetWeight(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return decimal.Zero, ErrNotInitialized
	}
	return s.weight, nil
}

func (s *MemoryStore) GetPool(_ context.Context) (*model.PoolLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	pool := s.pool
	return &pool, nil
}

func (s *MemoryStore) SavePool(_ context.Context, p *model.PoolLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.pool = *p
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, address string) (*model.UserLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	// Lazily-created rows: absent users read as zero-valued ledgers.
	u, ok := s.users[address]
	if !ok {
		u = zeroUser()
	}
	return &u, nil
}

func (s *MemoryStore) ListUsers(_ context.Context, startAfter string, limit int) ([]model.UserEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	addrs := make([]string, 0, len(s.users))
	for addr := range s.users {
		if startAfter == "" || addr > startAfter {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)

	if limit > 0 && len(addrs) > limit {
		addrs = addrs[:limit]
	}

	entries := make([]model.UserEntry, 0, len(addrs))
	for _, addr := range addrs {
		entries = append(entries, model.UserEntry{Address: addr, Info: s.users[addr]})
	}
	return entries, nil
}

func (s *MemoryStore) CommitFlip(_ context.Context, weight decimal.Decimal, p *model.PoolLedger,
	address string, u *model.UserLedger, rec *model.FlipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.weight = weight
	s.pool = *p
	s.users[address] = *u
	s.flips = append(s.flips, *rec)
	return nil
}

func (s *MemoryStore) CommitClaim(_ context.Context, p *model.PoolLedger, address string, u *model.UserLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.pool = *p
	s.users[address] = *u
	return nil
}

func (s *MemoryStore) ListFlips(_ context.Context, address string, limit int) ([]model.FlipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	var result []model.FlipRecord
	for i := len(s.flips) - 1; i >= 0; i-- {
		if s.flips[i].User == address {
			result = append(result, s.flips[i])
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// zeroPool returns a pool ledger with explicit zero decimals, so JSON and
// invariant checks see 0 rather than uninitialized values.
func zeroPool() model.PoolLedger {
	return model.PoolLedger{
		Stats:         zeroStats(),
		UserUnclaimed: decimal.Zero,
		AverageFee:    decimal.Zero,
		Deposited:     decimal.Zero,
		Balance:       decimal.Zero,
		Revenue:       model.Revenue{Total: decimal.Zero, Current: decimal.Zero},
	}
}

func zeroUser() model.UserLedger {
	return model.UserLedger{
		Stats:     zeroStats(),
		ROI:       decimal.Zero,
		Unclaimed: decimal.Zero,
	}
}

func zeroStats() model.Stats {
	return model.Stats{
		Bets: model.StatsItem{Value: decimal.Zero},
		Wins: model.StatsItem{Value: decimal.Zero},
	}
}
