package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/settld/settlement-engine/internal/metrics"
	"github.com/settld/settlement-engine/internal/model"
	"github.com/settld/settlement-engine/internal/settle"
)

// RedeemReceipt reports the amounts moved by one redemption.
type RedeemReceipt struct {
	Gross  uint64 // redeemer's share of the escrow before the fee
	Fee    uint64 // routed to the treasury
	Net    uint64 // paid to the redeemer
	Burned uint64 // winning tokens burned (the full held balance)
}

// Redeem settles one winner's claim: it computes the proportional payout
// against the escrow balance at call time and the winning supply frozen at
// resolution, routes the fee to the treasury, pays the net to the redeemer,
// and burns the redeemer's entire winning-token balance. Redemption is
// all-or-nothing per call; there is no partial claim.
//
// The three ledger effects plus the treasury counter form one logical
// transaction: everything that can fail — preconditions, ledger balances,
// payout arithmetic, the fee-counter overflow check — is verified before
// the first effect is issued. A store write failing mid-apply (a lost
// database connection after the fee transfer landed) can still leave the
// fee moved with the counter or payout unapplied; that window requires an
// infrastructure fault, not any client input, and is surfaced as an error
// to the caller for operator reconciliation.
func (s *Service) Redeem(ctx context.Context, redeemer, creator string, uniqueID uint64, outcome model.Outcome) (*RedeemReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.store.GetEvent(ctx, creator, uniqueID)
	if err != nil {
		return nil, err
	}

	if event.Status != model.StatusResolved || event.Result == nil {
		return nil, ErrNotResolved
	}
	if *event.Result != outcome {
		return nil, ErrLost
	}

	token := event.TokenID(outcome)
	balance, err := s.ledger.TokenBalanceOf(ctx, token, redeemer)
	if err != nil {
		return nil, fmt.Errorf("read token balance: %w", err)
	}
	if balance == 0 {
		return nil, ErrNothingToRedeem
	}

	escrow, err := s.ledger.BalanceOf(ctx, event.EscrowID)
	if err != nil {
		return nil, fmt.Errorf("read escrow balance: %w", err)
	}

	payout, err := settle.ComputePayout(balance, escrow, event.Supply(outcome))
	if err != nil {
		return nil, err
	}

	treasury, err := s.store.GetTreasury(ctx)
	if err != nil {
		return nil, err
	}
	newTotalFees, err := settle.CheckedAdd(treasury.TotalFees, payout.Fee)
	if err != nil {
		return nil, err
	}

	// Apply phase. All inputs validated above; adapter failures here are
	// fatal to the operation and propagated as-is.
	if payout.Fee > 0 {
		if err := s.ledger.Transfer(ctx, event.EscrowID, treasury.AccountID, payout.Fee); err != nil {
			return nil, fmt.Errorf("fee transfer: %w", err)
		}
		if err := s.store.UpdateTreasuryFees(ctx, newTotalFees); err != nil {
			return nil, err
		}
	}
	if err := s.ledger.Transfer(ctx, event.EscrowID, redeemer, payout.Net); err != nil {
		return nil, fmt.Errorf("payout transfer: %w", err)
	}
	if err := s.ledger.Burn(ctx, token, redeemer, balance); err != nil {
		return nil, fmt.Errorf("burn position tokens: %w", err)
	}

	metrics.RedemptionsTotal.Inc()
	metrics.FeesCollected.Add(float64(payout.Fee))
	slog.Info("redeemed",
		"redeemer", redeemer,
		"creator", creator,
		"unique_id", uniqueID,
		"outcome", outcome,
		"gross", model.DisplayAmount(payout.Gross).String(),
		"fee", model.DisplayAmount(payout.Fee).String(),
		"net", model.DisplayAmount(payout.Net).String(),
		"burned", balance,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "redeemed",
			Creator:  creator,
			UniqueID: uniqueID,
			Outcome:  string(outcome),
			Amount:   model.DisplayAmount(payout.Net).String(),
		})
	}

	return &RedeemReceipt{
		Gross:  payout.Gross,
		Fee:    payout.Fee,
		Net:    payout.Net,
		Burned: balance,
	}, nil
}
