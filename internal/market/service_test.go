package market_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/settld/settlement-engine/internal/ledger"
	"github.com/settld/settlement-engine/internal/market"
	"github.com/settld/settlement-engine/internal/model"
	"github.com/settld/settlement-engine/internal/settle"
	"github.com/settld/settlement-engine/internal/store"
)

// fakeClock is a settable time source for deadline gates.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestEnv wires a service against the in-memory store and ledger.
func newTestEnv(t *testing.T) (*market.Service, *store.MemoryStore, *ledger.MemoryLedger, *fakeClock) {
	t.Helper()
	ms := store.NewMemoryStore()
	ml := ledger.NewMemoryLedger()
	clk := &fakeClock{now: t0}
	svc := market.NewService(ms, ml, clk, nil)

	if _, err := svc.InitTreasury(context.Background(), "protocol-admin"); err != nil {
		t.Fatalf("init treasury: %v", err)
	}
	return svc, ms, ml, clk
}

// createEvent provisions a test event with a one-hour deadline.
func createEvent(t *testing.T, svc *market.Service) *model.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), "alice", 1, "Will it rain tomorrow?", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// --- Lifecycle tests ---

func TestCreateEvent_Valid(t *testing.T) {
	svc, _, _, _ := newTestEnv(t)
	event := createEvent(t, svc)

	if event.Status != model.StatusActive {
		t.Errorf("status = %s, want active", event.Status)
	}
	if event.Result != nil {
		t.Error("new event must have no result")
	}
	if event.YesSupply != 0 || event.NoSupply != 0 {
		t.Errorf("supplies = %d/%d, want 0/0", event.YesSupply, event.NoSupply)
	}
	if event.EscrowID == "" || event.YesTokenID == "" || event.NoTokenID == "" {
		t.Error("escrow and token identifiers must be provisioned")
	}
}

func TestCreateEvent_DescriptionTooLong(t *testing.T) {
	svc, _, _, _ := newTestEnv(t)

	long := make([]byte, 257)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.CreateEvent(context.Background(), "alice", 1, string(long), t0.Add(time.Hour))
	if !errors.Is(err, market.ErrDescriptionTooLong) {
		t.Fatalf("expected ErrDescriptionTooLong, got %v", err)
	}
	if !errors.Is(err, market.ErrInvalidInput) {
		t.Error("ErrDescriptionTooLong should match ErrInvalidInput")
	}
}

func TestCreateEvent_DuplicateLeavesNoOrphans(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	if got := ml.TokenCount(); got != 2 {
		t.Fatalf("token types after create = %d, want 2", got)
	}

	_, err := svc.CreateEvent(ctx, "alice", 1, "retried create", t0.Add(2*time.Hour))
	if !errors.Is(err, market.ErrEventExists) {
		t.Fatalf("expected ErrEventExists, got %v", err)
	}

	// The failed duplicate must not provision any token types.
	if got := ml.TokenCount(); got != 2 {
		t.Errorf("token types after duplicate create = %d, want still 2", got)
	}
	stored, err := svc.GetEvent(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if stored.Description != event.Description {
		t.Errorf("description = %q, original record must be untouched", stored.Description)
	}
}

func TestCreateEvent_DeadlineNotInFuture(t *testing.T) {
	svc, _, _, _ := newTestEnv(t)

	for _, deadline := range []time.Time{t0, t0.Add(-time.Minute)} {
		_, err := svc.CreateEvent(context.Background(), "alice", 1, "past", deadline)
		if !errors.Is(err, market.ErrInvalidDeadline) {
			t.Errorf("deadline %v: expected ErrInvalidDeadline, got %v", deadline, err)
		}
	}
}

func TestResolve_HappyPath(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	clk.now = event.Deadline
	resolved, err := svc.Resolve(ctx, "alice", "alice", 1, model.OutcomeYes)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if resolved.Status != model.StatusResolved {
		t.Errorf("status = %s, want resolved", resolved.Status)
	}
	if resolved.Result == nil || *resolved.Result != model.OutcomeYes {
		t.Errorf("result = %v, want YES", resolved.Result)
	}

	// Minting must be locked on both outcome tokens thereafter.
	for _, token := range []string{event.YesTokenID, event.NoTokenID} {
		if err := ml.Mint(ctx, token, "mallory", 1); !errors.Is(err, ledger.ErrMintRevoked) {
			t.Errorf("mint on %s after resolve: expected ErrMintRevoked, got %v", token, err)
		}
	}
}

func TestResolve_Unauthorized(t *testing.T) {
	svc, _, _, clk := newTestEnv(t)
	event := createEvent(t, svc)
	clk.now = event.Deadline

	_, err := svc.Resolve(context.Background(), "mallory", "alice", 1, model.OutcomeYes)
	if !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolve_TooEarly(t *testing.T) {
	svc, _, _, _ := newTestEnv(t)
	createEvent(t, svc)

	_, err := svc.Resolve(context.Background(), "alice", "alice", 1, model.OutcomeNo)
	if !errors.Is(err, market.ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
}

func TestResolve_Twice(t *testing.T) {
	svc, _, _, clk := newTestEnv(t)
	event := createEvent(t, svc)
	clk.now = event.Deadline

	if _, err := svc.Resolve(context.Background(), "alice", "alice", 1, model.OutcomeYes); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	_, err := svc.Resolve(context.Background(), "alice", "alice", 1, model.OutcomeNo)
	if !errors.Is(err, market.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

// --- Stake tests ---

func TestStake_MintsOneToOne(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	ml.Fund("bob", 5_000_000)
	updated, err := svc.Stake(ctx, "bob", "alice", 1, 2_000_000, model.OutcomeYes)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}

	if updated.YesSupply != 2_000_000 {
		t.Errorf("yes supply = %d, want 2000000", updated.YesSupply)
	}
	escrow, _ := ml.BalanceOf(ctx, event.EscrowID)
	if escrow != 2_000_000 {
		t.Errorf("escrow = %d, want 2000000", escrow)
	}
	tokens, _ := ml.TokenBalanceOf(ctx, event.YesTokenID, "bob")
	if tokens != 2_000_000 {
		t.Errorf("position tokens = %d, want 2000000 (1:1 with stake)", tokens)
	}
	funds, _ := ml.BalanceOf(ctx, "bob")
	if funds != 3_000_000 {
		t.Errorf("remaining funds = %d, want 3000000", funds)
	}
}

func TestStake_SuppliesMonotonic(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	createEvent(t, svc)
	ml.Fund("bob", 10_000_000)

	var last uint64
	for i := 0; i < 3; i++ {
		event, err := svc.Stake(ctx, "bob", "alice", 1, 1_000_000, model.OutcomeNo)
		if err != nil {
			t.Fatalf("stake %d: %v", i, err)
		}
		if event.NoSupply <= last {
			t.Fatalf("no supply must grow: %d after %d", event.NoSupply, last)
		}
		last = event.NoSupply
	}
}

func TestStake_AmountTooLow(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	createEvent(t, svc)
	ml.Fund("bob", settle.MinStake)

	_, err := svc.Stake(context.Background(), "bob", "alice", 1, settle.MinStake-1, model.OutcomeYes)
	if !errors.Is(err, market.ErrAmountTooLow) {
		t.Fatalf("expected ErrAmountTooLow, got %v", err)
	}
}

func TestStake_AfterDeadline(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	event := createEvent(t, svc)
	ml.Fund("bob", 2_000_000)

	clk.now = event.Deadline
	_, err := svc.Stake(context.Background(), "bob", "alice", 1, 1_000_000, model.OutcomeYes)
	if !errors.Is(err, market.ErrExpired) {
		t.Fatalf("expected ErrExpired at the deadline, got %v", err)
	}
}

func TestStake_AfterResolve(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	event := createEvent(t, svc)
	ml.Fund("bob", 2_000_000)

	clk.now = event.Deadline
	if _, err := svc.Resolve(context.Background(), "alice", "alice", 1, model.OutcomeYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	_, err := svc.Stake(context.Background(), "bob", "alice", 1, 1_000_000, model.OutcomeYes)
	if !errors.Is(err, market.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestStake_InsufficientFunds(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)
	ml.Fund("bob", 500_000)

	_, err := svc.Stake(ctx, "bob", "alice", 1, 1_000_000, model.OutcomeYes)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// No partial commit: escrow untouched, supply untouched.
	escrow, _ := ml.BalanceOf(ctx, event.EscrowID)
	if escrow != 0 {
		t.Errorf("escrow = %d after failed stake, want 0", escrow)
	}
	stored, _ := svc.GetEvent(ctx, "alice", 1)
	if stored.YesSupply != 0 {
		t.Errorf("yes supply = %d after failed stake, want 0", stored.YesSupply)
	}
}

func TestStake_SupplyOverflow(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	ml.Fund("whale", math.MaxUint64)
	if _, err := svc.Stake(ctx, "whale", "alice", 1, math.MaxUint64, model.OutcomeYes); err != nil {
		t.Fatalf("max stake: %v", err)
	}

	ml.Fund("bob", settle.MinStake)
	_, err := svc.Stake(ctx, "bob", "alice", 1, settle.MinStake, model.OutcomeYes)
	if !errors.Is(err, settle.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}

	// Supply and balances unchanged by the rejected stake.
	stored, _ := svc.GetEvent(ctx, "alice", 1)
	if stored.YesSupply != math.MaxUint64 {
		t.Errorf("yes supply = %d, want MaxUint64", stored.YesSupply)
	}
	funds, _ := ml.BalanceOf(ctx, "bob")
	if funds != settle.MinStake {
		t.Errorf("bob's funds = %d, want untouched %d", funds, settle.MinStake)
	}
	escrow, _ := ml.BalanceOf(ctx, event.EscrowID)
	if escrow != math.MaxUint64 {
		t.Errorf("escrow = %d, want MaxUint64", escrow)
	}
}

// --- Redemption tests ---

func TestRedeem_WinnerTakesPoolMinusFee(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	ml.Fund("yes-staker", 1_000_000)
	ml.Fund("no-staker", 3_000_000)
	if _, err := svc.Stake(ctx, "yes-staker", "alice", 1, 1_000_000, model.OutcomeYes); err != nil {
		t.Fatalf("yes stake: %v", err)
	}
	if _, err := svc.Stake(ctx, "no-staker", "alice", 1, 3_000_000, model.OutcomeNo); err != nil {
		t.Fatalf("no stake: %v", err)
	}

	clk.now = event.Deadline.Add(time.Minute)
	if _, err := svc.Resolve(ctx, "alice", "alice", 1, model.OutcomeYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	receipt, err := svc.Redeem(ctx, "yes-staker", "alice", 1, model.OutcomeYes)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if receipt.Gross != 4_000_000 {
		t.Errorf("gross = %d, want 4000000", receipt.Gross)
	}
	if receipt.Fee != 80_000 {
		t.Errorf("fee = %d, want 80000", receipt.Fee)
	}
	if receipt.Net != 3_920_000 {
		t.Errorf("net = %d, want 3920000", receipt.Net)
	}
	if receipt.Burned != 1_000_000 {
		t.Errorf("burned = %d, want full balance 1000000", receipt.Burned)
	}

	funds, _ := ml.BalanceOf(ctx, "yes-staker")
	if funds != 3_920_000 {
		t.Errorf("redeemer funds = %d, want 3920000", funds)
	}
	tokens, _ := ml.TokenBalanceOf(ctx, event.YesTokenID, "yes-staker")
	if tokens != 0 {
		t.Errorf("tokens after redeem = %d, want 0", tokens)
	}
	treasury, _ := svc.GetTreasury(ctx)
	if treasury.TotalFees != 80_000 {
		t.Errorf("treasury fees = %d, want 80000", treasury.TotalFees)
	}
	treasuryFunds, _ := ml.BalanceOf(ctx, treasury.AccountID)
	if treasuryFunds != 80_000 {
		t.Errorf("treasury custody = %d, want 80000", treasuryFunds)
	}

	// Loser gets nothing.
	_, err = svc.Redeem(ctx, "no-staker", "alice", 1, model.OutcomeNo)
	if !errors.Is(err, market.ErrLost) {
		t.Fatalf("expected ErrLost for losing side, got %v", err)
	}
}

func TestRedeem_BeforeResolve(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	createEvent(t, svc)
	ml.Fund("bob", 1_000_000)
	if _, err := svc.Stake(ctx, "bob", "alice", 1, 1_000_000, model.OutcomeYes); err != nil {
		t.Fatalf("stake: %v", err)
	}

	_, err := svc.Redeem(ctx, "bob", "alice", 1, model.OutcomeYes)
	if !errors.Is(err, market.ErrNotResolved) {
		t.Fatalf("expected ErrNotResolved, got %v", err)
	}
}

func TestRedeem_NothingToRedeem(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)
	ml.Fund("bob", 1_000_000)
	svc.Stake(ctx, "bob", "alice", 1, 1_000_000, model.OutcomeYes)

	clk.now = event.Deadline
	svc.Resolve(ctx, "alice", "alice", 1, model.OutcomeYes)

	_, err := svc.Redeem(ctx, "carol", "alice", 1, model.OutcomeYes)
	if !errors.Is(err, market.ErrNothingToRedeem) {
		t.Fatalf("expected ErrNothingToRedeem, got %v", err)
	}
}

func TestRedeem_Twice(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)
	ml.Fund("bob", 1_000_000)
	svc.Stake(ctx, "bob", "alice", 1, 1_000_000, model.OutcomeYes)

	clk.now = event.Deadline
	svc.Resolve(ctx, "alice", "alice", 1, model.OutcomeYes)

	if _, err := svc.Redeem(ctx, "bob", "alice", 1, model.OutcomeYes); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	_, err := svc.Redeem(ctx, "bob", "alice", 1, model.OutcomeYes)
	if !errors.Is(err, market.ErrNothingToRedeem) {
		t.Fatalf("second redeem: expected ErrNothingToRedeem, got %v", err)
	}
}

func TestRedeem_NoWinnerSupply(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	// Everyone staked NO; the winning side has zero recorded supply. A
	// stray YES holding (minted outside stake accounting while the event
	// was active) cannot claim anything: the escrow is unclaimable.
	ml.Fund("no-staker", 2_000_000)
	svc.Stake(ctx, "no-staker", "alice", 1, 2_000_000, model.OutcomeNo)
	ml.Mint(ctx, event.YesTokenID, "mallory", 10)

	clk.now = event.Deadline
	svc.Resolve(ctx, "alice", "alice", 1, model.OutcomeYes)

	_, err := svc.Redeem(ctx, "mallory", "alice", 1, model.OutcomeYes)
	if !errors.Is(err, settle.ErrNoWinnerSupply) {
		t.Fatalf("expected ErrNoWinnerSupply, got %v", err)
	}

	escrow, _ := ml.BalanceOf(ctx, event.EscrowID)
	if escrow != 2_000_000 {
		t.Errorf("escrow = %d, want fully held 2000000", escrow)
	}
}

func TestRedeem_SequentialWinnersConserveValue(t *testing.T) {
	svc, _, ml, clk := newTestEnv(t)
	ctx := context.Background()
	event := createEvent(t, svc)

	ml.Fund("w1", 1_000_000)
	ml.Fund("w2", 2_000_000)
	ml.Fund("loser", 3_000_000)
	svc.Stake(ctx, "w1", "alice", 1, 1_000_000, model.OutcomeYes)
	svc.Stake(ctx, "w2", "alice", 1, 2_000_000, model.OutcomeYes)
	svc.Stake(ctx, "loser", "alice", 1, 3_000_000, model.OutcomeNo)

	clk.now = event.Deadline
	svc.Resolve(ctx, "alice", "alice", 1, model.OutcomeYes)

	// Escrow 6,000,000 against a frozen winner supply of 3,000,000.
	r1, err := svc.Redeem(ctx, "w1", "alice", 1, model.OutcomeYes)
	if err != nil {
		t.Fatalf("w1 redeem: %v", err)
	}
	r2, err := svc.Redeem(ctx, "w2", "alice", 1, model.OutcomeYes)
	if err != nil {
		t.Fatalf("w2 redeem: %v", err)
	}

	if r1.Gross != 2_000_000 {
		t.Errorf("w1 gross = %d, want 2000000", r1.Gross)
	}
	// w2 draws 2/3 of the shrunk 4,000,000 escrow.
	if r2.Gross != 2_666_666 {
		t.Errorf("w2 gross = %d, want 2666666", r2.Gross)
	}

	totalOut := r1.Net + r1.Fee + r2.Net + r2.Fee
	escrow, _ := ml.BalanceOf(ctx, event.EscrowID)
	if totalOut+escrow != 6_000_000 {
		t.Errorf("value not conserved: out %d + residue %d != 6000000", totalOut, escrow)
	}
	if totalOut > 6_000_000 {
		t.Errorf("paid out %d more than was ever escrowed", totalOut)
	}

	treasury, _ := svc.GetTreasury(ctx)
	if treasury.TotalFees != r1.Fee+r2.Fee {
		t.Errorf("treasury fees = %d, want %d", treasury.TotalFees, r1.Fee+r2.Fee)
	}
}

// --- Position query ---

func TestPositions(t *testing.T) {
	svc, _, ml, _ := newTestEnv(t)
	ctx := context.Background()
	createEvent(t, svc)

	ml.Fund("bob", 3_000_000)
	svc.Stake(ctx, "bob", "alice", 1, 1_000_000, model.OutcomeYes)
	svc.Stake(ctx, "bob", "alice", 1, 2_000_000, model.OutcomeNo)

	positions, err := svc.Positions(ctx, "bob")
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if p.YesBalance != 1_000_000 || p.NoBalance != 2_000_000 {
		t.Errorf("balances = %d/%d, want 1000000/2000000", p.YesBalance, p.NoBalance)
	}

	none, err := svc.Positions(ctx, "nobody")
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no positions, got %d", len(none))
	}
}
