// Package store defines the persistence interface for event and treasury
// records. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/settld/settlement-engine/internal/model"
)

// ErrNotFound is wrapped by implementations when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. Events are keyed by (creator,
// uniqueID); exactly one treasury record exists per deployment.
type Store interface {
	// --- Event records ---

	// CreateEvent persists a new event; fails if the (creator, uniqueID)
	// pair already exists.
	CreateEvent(ctx context.Context, event *model.Event) error

	// GetEvent retrieves an event by its composite key.
	GetEvent(ctx context.Context, creator string, uniqueID uint64) (*model.Event, error)

	// ListEvents returns all events.
	ListEvents(ctx context.Context) ([]model.Event, error)

	// UpdateEventSupplies writes the per-outcome supply counters after a
	// stake. Only legal while the event is active.
	UpdateEventSupplies(ctx context.Context, creator string, uniqueID uint64, yesSupply, noSupply uint64) error

	// ResolveEvent marks the event resolved with the given result.
	ResolveEvent(ctx context.Context, creator string, uniqueID uint64, result model.Outcome) error

	// --- Treasury record ---

	// InitTreasury creates the treasury record if absent and returns the
	// stored record either way.
	InitTreasury(ctx context.Context, treasury *model.Treasury) (*model.Treasury, error)

	// GetTreasury retrieves the treasury record.
	GetTreasury(ctx context.Context) (*model.Treasury, error)

	// UpdateTreasuryFees writes the cumulative fee counter.
	UpdateTreasuryFees(ctx context.Context, totalFees uint64) error
}
