package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: config, pool ledger and user rows. Writes go
// to the primary store and invalidate the cache; reads check Redis first
// then fall back to the primary. The fairness weight is never cached — it is
// read once per flip and must always reflect the committed chain.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetConfig(ctx context.Context) (*model.Config, error) {
	data, err := s.rdb.Get(ctx, configKey()).Bytes()
	if err == nil {
		var cfg model.Config
		if json.Unmarshal(data, &cfg) == nil {
			return &cfg, nil
		}
	}

	cfg, err := s.primary.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, configKey(), cfg)
	return cfg, nil
}

func (s *CachedStore) GetPool(ctx context.Context) (*model.PoolLedger, error) {
	data, err := s.rdb.Get(ctx, poolKey()).Bytes()
	if err == nil {
		var p model.PoolLedger
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, poolKey(), p)
	return p, nil
}

func (s *CachedStore) GetUser(ctx context.Context, address string) (*model.UserLedger, error) {
	data, err := s.rdb.Get(ctx, userKey(address)).Bytes()
	if err == nil {
		var u model.UserLedger
		if json.Unmarshal(data, &u) == nil {
			return &u, nil
		}
	}

	u, err := s.primary.GetUser(ctx, address)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, userKey(address), u)
	return u, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) SaveConfig(ctx context.Context, cfg *model.Config, transfer *model.AdminTransfer) error {
	if err := s.primary.SaveConfig(ctx, cfg, transfer); err != nil {
		return err
	}
	s.rdb.Del(ctx, configKey())
	return nil
}

func (s *CachedStore) SavePool(ctx context.Context, p *model.PoolLedger) error {
	if err := s.primary.SavePool(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, poolKey())
	return nil
}

func (s *CachedStore) CommitFlip(ctx context.Context, weight decimal.Decimal, p *model.PoolLedger,
	address string, u *model.UserLedger, rec *model.FlipRecord) error {
	if err := s.primary.CommitFlip(ctx, weight, p, address, u, rec); err != nil {
		return err
	}
	s.rdb.Del(ctx, poolKey(), userKey(address))
	return nil
}

func (s *CachedStore) CommitClaim(ctx context.Context, p *model.PoolLedger, address string, u *model.UserLedger) error {
	if err := s.primary.CommitClaim(ctx, p, address, u); err != nil {
		return err
	}
	s.rdb.Del(ctx, poolKey(), userKey(address))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) InitPlatform(ctx context.Context, cfg *model.Config, weight decimal.Decimal) (bool, error) {
	return s.primary.InitPlatform(ctx, cfg, weight)
}

func (s *CachedStore) GetPaused(ctx context.Context) (bool, error) {
	return s.primary.GetPaused(ctx)
}

func (s *CachedStore) SavePaused(ctx context.Context, paused bool) error {
	return s.primary.SavePaused(ctx, paused)
}

func (s *CachedStore) GetAdminTransfer(ctx context.Context) (*model.AdminTransfer, error) {
	return s.primary.GetAdminTransfer(ctx)
}

func (s *CachedStore) GetWeight(ctx context.Context) (decimal.Decimal, error) {
	return s.primary.GetWeight(ctx)
}

func (s *CachedStore) ListUsers(ctx context.Context, startAfter string, limit int) ([]model.UserEntry, error) {
	return s.primary.ListUsers(ctx, startAfter, limit)
}

func (s *CachedStore) ListFlips(ctx context.Context, address string, limit int) ([]model.FlipRecord, error) {
	return s.primary.ListFlips(ctx, address, limit)
}

// --- Cache helpers ---

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func configKey() string          { return "flip:config" }
func poolKey() string            { return "flip:pool" }
func userKey(addr string) string { return fmt.Sprintf("flip:user:%s", addr) }
