package ledger

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
)

// MemoryLedger implements Ledger with in-memory maps. Used for testing and
// single-node development; a production deployment wires the real chain
// adapter behind the same interface.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
	tokens   map[string]*tokenState
}

type tokenState struct {
	holders map[string]uint64
	supply  uint64
	revoked bool
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]uint64),
		tokens:   make(map[string]*tokenState),
	}
}

// Fund credits an account with value out of thin air. Test/bootstrap helper,
// deliberately not part of the Ledger interface.
func (l *MemoryLedger) Fund(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// TokenCount reports the number of provisioned token types. Test helper,
// deliberately not part of the Ledger interface.
func (l *MemoryLedger) TokenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tokens)
}

func (l *MemoryLedger) Transfer(_ context.Context, source, destination string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[source] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, source, l.balances[source], amount)
	}
	sum, carry := bits.Add64(l.balances[destination], amount, 0)
	if carry != 0 {
		return fmt.Errorf("ledger: balance overflow on %s", destination)
	}
	l.balances[source] -= amount
	l.balances[destination] = sum
	return nil
}

func (l *MemoryLedger) CreateToken(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[token]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, token)
	}
	l.tokens[token] = &tokenState{holders: make(map[string]uint64)}
	return nil
}

func (l *MemoryLedger) Mint(_ context.Context, token, destination string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if ts.revoked {
		return fmt.Errorf("%w: %s", ErrMintRevoked, token)
	}
	supply, carry := bits.Add64(ts.supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("ledger: supply overflow on %s", token)
	}
	ts.supply = supply
	ts.holders[destination] += amount
	return nil
}

func (l *MemoryLedger) Burn(_ context.Context, token, source string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if ts.holders[source] < amount {
		return fmt.Errorf("%w: %s holds %d of %s, burning %d", ErrInsufficientTokens, source, ts.holders[source], token, amount)
	}
	ts.holders[source] -= amount
	ts.supply -= amount
	return nil
}

func (l *MemoryLedger) RevokeMintAuthority(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	ts.revoked = true
	return nil
}

func (l *MemoryLedger) BalanceOf(_ context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *MemoryLedger) TokenBalanceOf(_ context.Context, token, holder string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, ok := l.tokens[token]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return ts.holders[holder], nil
}
