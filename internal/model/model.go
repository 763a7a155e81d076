// Package model defines the core domain types shared across the settlement
// engine. All monetary values are unsigned integer base units (9 decimals);
// shopspring/decimal is used only for display conversion — never for the
// settlement arithmetic itself.
package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Event lifecycle states.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Outcome is one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// ParseOutcome validates an outcome string from an API request.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeYes, OutcomeNo:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("outcome must be YES or NO, got %q", s)
}

// Event is the aggregate root for one binary prediction market: lifecycle
// state, deadline, per-outcome position-token supplies, and the ledger
// identifiers of its escrow account and outcome tokens.
//
// Supplies are monotonically non-decreasing while active and frozen once
// resolved; each unit staked mints exactly one position-token unit.
type Event struct {
	Creator     string    `json:"creator" db:"creator"`
	UniqueID    uint64    `json:"unique_id" db:"unique_id"`
	Description string    `json:"description" db:"description"`
	Deadline    time.Time `json:"deadline" db:"deadline"`
	Status      string    `json:"status" db:"status"` // "active" or "resolved"
	Result      *Outcome  `json:"result,omitempty" db:"result"`
	YesTokenID  string    `json:"yes_token_id" db:"yes_token_id"`
	NoTokenID   string    `json:"no_token_id" db:"no_token_id"`
	EscrowID    string    `json:"escrow_id" db:"escrow_id"`
	YesSupply   uint64    `json:"yes_supply" db:"yes_supply"`
	NoSupply    uint64    `json:"no_supply" db:"no_supply"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Key returns the creator-scoped identifier used for store lookups and
// cache keys.
func (e *Event) Key() string {
	return EventKey(e.Creator, e.UniqueID)
}

// EventKey builds the composite record key for a (creator, uniqueID) pair.
func EventKey(creator string, uniqueID uint64) string {
	return fmt.Sprintf("%s/%d", creator, uniqueID)
}

// TokenID returns the position-token identifier for the given outcome.
func (e *Event) TokenID(outcome Outcome) string {
	if outcome == OutcomeYes {
		return e.YesTokenID
	}
	return e.NoTokenID
}

// Supply returns the recorded position-token supply for the given outcome.
func (e *Event) Supply(outcome Outcome) uint64 {
	if outcome == OutcomeYes {
		return e.YesSupply
	}
	return e.NoSupply
}

// Treasury is the process-wide accumulator of protocol fees. It is created
// once per deployment; total fees only grow, written solely by redemption.
type Treasury struct {
	Authority string    `json:"authority" db:"authority"`
	AccountID string    `json:"account_id" db:"account_id"`
	TotalFees uint64    `json:"total_fees" db:"total_fees"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BaseUnitScale is the number of decimal places in one whole unit of the
// staked asset (1 unit = 10^9 base units).
const BaseUnitScale = 9

// DisplayAmount converts base units to a human-readable decimal amount.
// Goes through big.Int because base-unit values can exceed int64.
func DisplayAmount(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -BaseUnitScale)
}
