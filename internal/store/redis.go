package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/settld/settlement-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
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

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := s.primary.CreateEvent(ctx, e); err != nil {
		return err
	}
	s.cacheEvent(ctx, e)
	return nil
}

func (s *CachedStore) UpdateEventSupplies(ctx context.Context, creator string, uniqueID uint64, yesSupply, noSupply uint64) error {
	if err := s.primary.UpdateEventSupplies(ctx, creator, uniqueID, yesSupply, noSupply); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, eventCacheKey(creator, uniqueID))
	return nil
}

func (s *CachedStore) ResolveEvent(ctx context.Context, creator string, uniqueID uint64, result model.Outcome) error {
	if err := s.primary.ResolveEvent(ctx, creator, uniqueID, result); err != nil {
		return err
	}
	s.rdb.Del(ctx, eventCacheKey(creator, uniqueID))
	return nil
}

func (s *CachedStore) UpdateTreasuryFees(ctx context.Context, totalFees uint64) error {
	if err := s.primary.UpdateTreasuryFees(ctx, totalFees); err != nil {
		return err
	}
	s.rdb.Del(ctx, treasuryCacheKey())
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetEvent(ctx context.Context, creator string, uniqueID uint64) (*model.Event, error) {
	data, err := s.rdb.Get(ctx, eventCacheKey(creator, uniqueID)).Bytes()
	if err == nil {
		var e model.Event
		if json.Unmarshal(data, &e) == nil {
			return &e, nil
		}
	}

	// Cache miss: read from primary.
	e, err := s.primary.GetEvent(ctx, creator, uniqueID)
	if err != nil {
		return nil, err
	}

	s.cacheEvent(ctx, e)
	return e, nil
}

func (s *CachedStore) GetTreasury(ctx context.Context) (*model.Treasury, error) {
	data, err := s.rdb.Get(ctx, treasuryCacheKey()).Bytes()
	if err == nil {
		var t model.Treasury
		if json.Unmarshal(data, &t) == nil {
			return &t, nil
		}
	}

	t, err := s.primary.GetTreasury(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(t); err == nil {
		s.rdb.Set(ctx, treasuryCacheKey(), data, s.ttl)
	}
	return t, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.primary.ListEvents(ctx)
}

func (s *CachedStore) InitTreasury(ctx context.Context, t *model.Treasury) (*model.Treasury, error) {
	return s.primary.InitTreasury(ctx, t)
}

// --- Cache helpers ---

func (s *CachedStore) cacheEvent(ctx context.Context, e *model.Event) {
	if data, err := json.Marshal(e); err == nil {
		s.rdb.Set(ctx, eventCacheKey(e.Creator, e.UniqueID), data, s.ttl)
	}
}

func eventCacheKey(creator string, uniqueID uint64) string {
	return fmt.Sprintf("event:%s", model.EventKey(creator, uniqueID))
}

func treasuryCacheKey() string { return "treasury" }
