package market

import (
	"errors"
	"fmt"
)

// Precondition failures. Every one aborts the operation before any state
// mutation or ledger effect; callers can distinguish them with errors.Is.
var (
	// ErrInvalidInput covers bad creation parameters. The two concrete
	// cases below wrap it so clients can match either the class or the
	// specific cause.
	ErrInvalidInput = errors.New("market: invalid input")

	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds 256 bytes", ErrInvalidInput)
	ErrInvalidDeadline    = fmt.Errorf("%w: deadline must be in the future", ErrInvalidInput)

	// ErrEventExists is returned when creating an event whose (creator,
	// uniqueID) pair is already taken.
	ErrEventExists = errors.New("market: event already exists")

	// ErrNotActive is returned when staking or resolving a non-active event.
	ErrNotActive = errors.New("market: event is not active")

	// ErrExpired is returned when staking at or after the deadline.
	ErrExpired = errors.New("market: event has expired")

	// ErrAmountTooLow is returned for stakes below the minimum.
	ErrAmountTooLow = errors.New("market: stake amount below minimum")

	// ErrUnauthorized is returned when a non-creator tries to resolve.
	ErrUnauthorized = errors.New("market: unauthorized")

	// ErrTooEarly is returned when resolving before the deadline.
	ErrTooEarly = errors.New("market: deadline not reached yet")

	// ErrNotResolved is returned when redeeming an unresolved event.
	ErrNotResolved = errors.New("market: event is not resolved")

	// ErrLost is returned when redeeming the losing outcome. Not an error
	// for the market, only for this redeemer.
	ErrLost = errors.New("market: losing outcome cannot be redeemed")

	// ErrNothingToRedeem is returned when the redeemer holds no winning
	// tokens.
	ErrNothingToRedeem = errors.New("market: no tokens to redeem")
)
