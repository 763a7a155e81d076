package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestTransfer_MovesFunds(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Fund("alice", 1000)

	if err := l.Transfer(ctx, "alice", "bob", 400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := l.BalanceOf(ctx, "alice")
	b, _ := l.BalanceOf(ctx, "bob")
	if a != 600 || b != 400 {
		t.Errorf("balances = %d/%d, want 600/400", a, b)
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Fund("alice", 100)

	err := l.Transfer(ctx, "alice", "bob", 101)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	a, _ := l.BalanceOf(ctx, "alice")
	if a != 100 {
		t.Errorf("failed transfer must not move funds, alice = %d", a)
	}
}

func TestMint_AfterRevokeFails(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	if err := l.CreateToken(ctx, "yes-token"); err != nil {
		t.Fatalf("create token: %v", err)
	}
	if err := l.Mint(ctx, "yes-token", "alice", 50); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Revoke twice: idempotent.
	if err := l.RevokeMintAuthority(ctx, "yes-token"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := l.RevokeMintAuthority(ctx, "yes-token"); err != nil {
		t.Fatalf("second revoke should be a no-op: %v", err)
	}

	err := l.Mint(ctx, "yes-token", "alice", 1)
	if !errors.Is(err, ErrMintRevoked) {
		t.Fatalf("expected ErrMintRevoked, got %v", err)
	}

	bal, _ := l.TokenBalanceOf(ctx, "yes-token", "alice")
	if bal != 50 {
		t.Errorf("balance = %d, want 50", bal)
	}
}

func TestBurn_InsufficientTokens(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.CreateToken(ctx, "no-token")
	l.Mint(ctx, "no-token", "bob", 10)

	err := l.Burn(ctx, "no-token", "bob", 11)
	if !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}

	if err := l.Burn(ctx, "no-token", "bob", 10); err != nil {
		t.Fatalf("full burn should succeed: %v", err)
	}
	bal, _ := l.TokenBalanceOf(ctx, "no-token", "bob")
	if bal != 0 {
		t.Errorf("balance = %d, want 0", bal)
	}
}

func TestCreateToken_Duplicate(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.CreateToken(ctx, "tok")

	if err := l.CreateToken(ctx, "tok"); !errors.Is(err, ErrTokenExists) {
		t.Fatalf("expected ErrTokenExists, got %v", err)
	}
}

func TestTokenBalanceOf_UnknownToken(t *testing.T) {
	l := NewMemoryLedger()
	if _, err := l.TokenBalanceOf(context.Background(), "nope", "alice"); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}
