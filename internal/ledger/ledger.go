// Package ledger defines the external value-transfer and token-mint adapter
// the settlement engine issues commands to. Every call is assumed atomic:
// it either fully commits or leaves no trace. The engine validates its own
// preconditions before issuing effects, so on a well-behaved adapter the
// effect calls of one operation cannot fail halfway.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds is returned when a transfer source holds less
	// than the requested amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientTokens is returned when a burn source holds less
	// than the requested token amount.
	ErrInsufficientTokens = errors.New("ledger: insufficient token balance")

	// ErrUnknownToken is returned for operations on a token that was
	// never provisioned.
	ErrUnknownToken = errors.New("ledger: unknown token")

	// ErrTokenExists is returned when provisioning a duplicate token.
	ErrTokenExists = errors.New("ledger: token already exists")

	// ErrMintRevoked is returned by Mint after RevokeMintAuthority.
	ErrMintRevoked = errors.New("ledger: mint authority revoked")
)

// Ledger is the adapter contract. Accounts are identified by opaque strings
// and exist implicitly with a zero balance; tokens must be provisioned with
// CreateToken before they can be minted or burned.
type Ledger interface {
	// Transfer atomically moves amount from source to destination.
	Transfer(ctx context.Context, source, destination string, amount uint64) error

	// CreateToken provisions a new fungible token type with an active
	// minting authority.
	CreateToken(ctx context.Context, token string) error

	// Mint credits amount of token to destination. Fails once the token's
	// minting authority has been revoked.
	Mint(ctx context.Context, token, destination string, amount uint64) error

	// Burn removes amount of token from source's holding.
	Burn(ctx context.Context, token, source string, amount uint64) error

	// RevokeMintAuthority permanently disables minting for token.
	// Idempotent: revoking twice is not an error.
	RevokeMintAuthority(ctx context.Context, token string) error

	// BalanceOf returns the value balance of an account.
	BalanceOf(ctx context.Context, account string) (uint64, error)

	// TokenBalanceOf returns holder's balance of the given token.
	TokenBalanceOf(ctx context.Context, token, holder string) (uint64, error)
}
