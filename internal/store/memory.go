package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/settld/settlement-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string]*model.Event
	treasury *model.Treasury
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*model.Event),
	}
}

func (s *MemoryStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Key()
	if _, ok := s.events[key]; ok {
		return fmt.Errorf("event %s already exists", key)
	}

	// Store a copy to avoid external mutation.
	copy := *e
	s.events[key] = &copy
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, creator string, uniqueID uint64) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[model.EventKey(creator, uniqueID)]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", model.EventKey(creator, uniqueID), ErrNotFound)
	}
	copy := *e
	return &copy, nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, *e)
	}
	return events, nil
}

func (s *MemoryStore) UpdateEventSupplies(_ context.Context, creator string, uniqueID uint64, yesSupply, noSupply uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[model.EventKey(creator, uniqueID)]
	if !ok {
		return fmt.Errorf("event %s: %w", model.EventKey(creator, uniqueID), ErrNotFound)
	}
	e.YesSupply = yesSupply
	e.NoSupply = noSupply
	return nil
}

func (s *MemoryStore) ResolveEvent(_ context.Context, creator string, uniqueID uint64, result model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[model.EventKey(creator, uniqueID)]
	if !ok {
		return fmt.Errorf("event %s: %w", model.EventKey(creator, uniqueID), ErrNotFound)
	}
	e.Status = model.StatusResolved
	r := result
	e.Result = &r
	return nil
}

func (s *MemoryStore) InitTreasury(_ context.Context, t *model.Treasury) (*model.Treasury, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.treasury == nil {
		copy := *t
		s.treasury = &copy
	}
	copy := *s.treasury
	return &copy, nil
}

func (s *MemoryStore) GetTreasury(_ context.Context) (*model.Treasury, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.treasury == nil {
		return nil, fmt.Errorf("treasury: %w", ErrNotFound)
	}
	copy := *s.treasury
	return &copy, nil
}

func (s *MemoryStore) UpdateTreasuryFees(_ context.Context, totalFees uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.treasury == nil {
		return fmt.Errorf("treasury: %w", ErrNotFound)
	}
	s.treasury.TotalFees = totalFees
	return nil
}
