package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/settld/settlement-engine/internal/metrics"
	"github.com/settld/settlement-engine/internal/model"
	"github.com/settld/settlement-engine/internal/settle"
)

// Stake records a position: it moves amount from the staker into the
// event's escrow, mints the same quantity of the chosen outcome's token to
// the staker (1:1 with staked value), and bumps the outcome's supply
// counter with overflow-checked addition.
//
// Preconditions are checked in order — not active, expired, amount too low,
// then supply overflow — all before the value transfer, so a failed stake
// changes nothing.
func (s *Service) Stake(ctx context.Context, staker, creator string, uniqueID uint64, amount uint64, outcome model.Outcome) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.store.GetEvent(ctx, creator, uniqueID)
	if err != nil {
		return nil, err
	}

	if event.Status != model.StatusActive {
		return nil, ErrNotActive
	}
	if !s.clock.Now().Before(event.Deadline) {
		return nil, ErrExpired
	}
	if amount < settle.MinStake {
		return nil, fmt.Errorf("%w: %d < %d", ErrAmountTooLow, amount, settle.MinStake)
	}

	newYes, newNo := event.YesSupply, event.NoSupply
	if outcome == model.OutcomeYes {
		if newYes, err = settle.CheckedAdd(event.YesSupply, amount); err != nil {
			return nil, err
		}
	} else {
		if newNo, err = settle.CheckedAdd(event.NoSupply, amount); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.Transfer(ctx, staker, event.EscrowID, amount); err != nil {
		return nil, fmt.Errorf("escrow transfer: %w", err)
	}
	if err := s.ledger.Mint(ctx, event.TokenID(outcome), staker, amount); err != nil {
		return nil, fmt.Errorf("mint position token: %w", err)
	}
	if err := s.store.UpdateEventSupplies(ctx, creator, uniqueID, newYes, newNo); err != nil {
		return nil, err
	}

	event.YesSupply, event.NoSupply = newYes, newNo

	metrics.StakesTotal.WithLabelValues(string(outcome)).Inc()
	metrics.StakeVolume.WithLabelValues(string(outcome)).Add(float64(amount))
	slog.Info("stake placed",
		"staker", staker,
		"creator", creator,
		"unique_id", uniqueID,
		"outcome", outcome,
		"amount", model.DisplayAmount(amount).String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "stake_placed",
			Creator:  creator,
			UniqueID: uniqueID,
			Outcome:  string(outcome),
			Amount:   model.DisplayAmount(amount).String(),
		})
	}

	return event, nil
}
