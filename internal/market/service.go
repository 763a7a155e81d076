// Package market implements the settlement engine proper: the event
// lifecycle state machine, stake accounting, and redemption settlement,
// plus the HTTP surface exposing them.
//
// Each top-level operation runs under a single mutex so that concurrent
// callers against the same records are serialized (single-instance). Every
// precondition — including ledger balances and overflow checks — is
// verified before the first effectful ledger call, so an operation either
// commits fully or leaves no trace.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/settld/settlement-engine/internal/ledger"
	"github.com/settld/settlement-engine/internal/metrics"
	"github.com/settld/settlement-engine/internal/model"
	"github.com/settld/settlement-engine/internal/settle"
	"github.com/settld/settlement-engine/internal/store"
)

// Service orchestrates event, stake, and redemption operations against the
// store and the external ledger adapter.
type Service struct {
	store  store.Store
	ledger ledger.Ledger
	clock  Clock
	mu     sync.Mutex
	wsHub  *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new settlement service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, lg ledger.Ledger, clock Clock, hub *WSHub) *Service {
	return &Service{
		store:  st,
		ledger: lg,
		clock:  clock,
		wsHub:  hub,
	}
}

// InitTreasury creates the process-wide treasury record if it does not
// exist yet. Idempotent: a second call returns the existing record.
func (s *Service) InitTreasury(ctx context.Context, authority string) (*model.Treasury, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &model.Treasury{
		Authority: authority,
		AccountID: "treasury-" + uuid.New().String(),
		TotalFees: 0,
		CreatedAt: s.clock.Now(),
	}
	stored, err := s.store.InitTreasury(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("init treasury: %w", err)
	}

	slog.Info("treasury ready", "authority", stored.Authority, "account", stored.AccountID)
	return stored, nil
}

// CreateEvent provisions a new binary market: the event record, its escrow
// account, and the two outcome tokens with minting bound to this event.
func (s *Service) CreateEvent(ctx context.Context, creator string, uniqueID uint64, description string, deadline time.Time) (*model.Event, error) {
	if len(description) > settle.MaxDescriptionBytes {
		return nil, ErrDescriptionTooLong
	}
	if !deadline.After(s.clock.Now()) {
		return nil, ErrInvalidDeadline
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate check before any token is provisioned, so a retried create
	// fails without leaving orphan token types in the ledger.
	if _, err := s.store.GetEvent(ctx, creator, uniqueID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventExists, model.EventKey(creator, uniqueID))
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	event := &model.Event{
		Creator:     creator,
		UniqueID:    uniqueID,
		Description: description,
		Deadline:    deadline.UTC(),
		Status:      model.StatusActive,
		YesTokenID:  "yes-" + uuid.New().String(),
		NoTokenID:   "no-" + uuid.New().String(),
		EscrowID:    "escrow-" + uuid.New().String(),
		YesSupply:   0,
		NoSupply:    0,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.ledger.CreateToken(ctx, event.YesTokenID); err != nil {
		return nil, fmt.Errorf("provision yes token: %w", err)
	}
	if err := s.ledger.CreateToken(ctx, event.NoTokenID); err != nil {
		return nil, fmt.Errorf("provision no token: %w", err)
	}

	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	metrics.ActiveEvents.Inc()
	slog.Info("event created",
		"creator", creator,
		"unique_id", uniqueID,
		"deadline", event.Deadline,
		"escrow", event.EscrowID,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "event_created",
			Creator:  creator,
			UniqueID: uniqueID,
		})
	}

	return event, nil
}

// Resolve transitions an event from active to resolved, records the result,
// and revokes minting on both outcome tokens so the supplies the payout
// formula depends on are frozen. The single legal transition: once resolved,
// an event never changes again.
func (s *Service) Resolve(ctx context.Context, caller, creator string, uniqueID uint64, result model.Outcome) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.store.GetEvent(ctx, creator, uniqueID)
	if err != nil {
		return nil, err
	}

	if caller != event.Creator {
		return nil, ErrUnauthorized
	}
	if event.Status != model.StatusActive {
		return nil, ErrNotActive
	}
	if s.clock.Now().Before(event.Deadline) {
		return nil, ErrTooEarly
	}

	// Revocation is idempotent on the ledger side; once both succeed no
	// mint can land through any path.
	if err := s.ledger.RevokeMintAuthority(ctx, event.YesTokenID); err != nil {
		return nil, fmt.Errorf("revoke yes mint: %w", err)
	}
	if err := s.ledger.RevokeMintAuthority(ctx, event.NoTokenID); err != nil {
		return nil, fmt.Errorf("revoke no mint: %w", err)
	}

	if err := s.store.ResolveEvent(ctx, creator, uniqueID, result); err != nil {
		return nil, err
	}

	event.Status = model.StatusResolved
	r := result
	event.Result = &r

	metrics.ActiveEvents.Dec()
	metrics.ResolvedEvents.Inc()
	slog.Info("event resolved",
		"creator", creator,
		"unique_id", uniqueID,
		"result", result,
		"yes_supply", event.YesSupply,
		"no_supply", event.NoSupply,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "event_resolved",
			Creator:  creator,
			UniqueID: uniqueID,
			Result:   string(result),
		})
	}

	return event, nil
}

// GetEvent returns a single event record.
func (s *Service) GetEvent(ctx context.Context, creator string, uniqueID uint64) (*model.Event, error) {
	return s.store.GetEvent(ctx, creator, uniqueID)
}

// ListEvents returns all event records.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// GetTreasury returns the treasury record.
func (s *Service) GetTreasury(ctx context.Context) (*model.Treasury, error) {
	return s.store.GetTreasury(ctx)
}

// EscrowBalance reads the current escrow balance for an event from the
// ledger. After full redemption this is the stranded rounding residue.
func (s *Service) EscrowBalance(ctx context.Context, event *model.Event) (uint64, error) {
	return s.ledger.BalanceOf(ctx, event.EscrowID)
}

// Position is one account's outcome-token holdings in one event.
type Position struct {
	Creator     string         `json:"creator"`
	UniqueID    uint64         `json:"unique_id"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Result      *model.Outcome `json:"result,omitempty"`
	YesBalance  uint64         `json:"yes_balance"`
	NoBalance   uint64         `json:"no_balance"`
}

// Positions returns the account's nonzero outcome-token holdings across all
// events, read from the ledger adapter.
func (s *Service) Positions(ctx context.Context, account string) ([]Position, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	var positions []Position
	for _, e := range events {
		yes, err := s.ledger.TokenBalanceOf(ctx, e.YesTokenID, account)
		if err != nil {
			return nil, err
		}
		no, err := s.ledger.TokenBalanceOf(ctx, e.NoTokenID, account)
		if err != nil {
			return nil, err
		}
		if yes == 0 && no == 0 {
			continue
		}
		positions = append(positions, Position{
			Creator:     e.Creator,
			UniqueID:    e.UniqueID,
			Description: e.Description,
			Status:      e.Status,
			Result:      e.Result,
			YesBalance:  yes,
			NoBalance:   no,
		})
	}
	return positions, nil
}
