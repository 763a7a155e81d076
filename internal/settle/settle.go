// Package settle implements the proportional payout arithmetic for binary
// outcome markets: a redeemer's gross payout is their share of the escrow,
// floor-divided against the winning side's frozen token supply, minus a
// fixed-rate protocol fee.
//
// All arithmetic is unsigned integer math on base units. Intermediate
// products are widened to 128 bits via math/bits so that
// balance * escrow never wraps; every addition that feeds a persisted
// counter is overflow-checked. No floating point anywhere.
package settle

import (
	"errors"
	"math/bits"
)

// Protocol constants. Fee is 200 basis points (2%) of the gross payout.
const (
	FeeRateBps     = 200
	FeeDenominator = 10_000

	// MinStake is the smallest accepted stake: 0.001 of a 9-decimal asset.
	MinStake = 1_000_000

	// MaxDescriptionBytes bounds event descriptions.
	MaxDescriptionBytes = 256
)

var (
	// ErrOverflow is returned when a checked operation would wrap uint64.
	ErrOverflow = errors.New("settle: arithmetic overflow")

	// ErrNoWinnerSupply is returned when nobody holds the winning outcome.
	// The escrow is unclaimable by design in that case.
	ErrNoWinnerSupply = errors.New("settle: no winner supply")

	// ErrPayoutTooSmall is returned when the floor-divided gross payout
	// rounds to zero.
	ErrPayoutTooSmall = errors.New("settle: payout amount too small")
)

// Payout is the result of a redemption computation.
type Payout struct {
	Gross uint64 // floor(balance * escrow / winnerSupply)
	Fee   uint64 // floor(gross * FeeRateBps / FeeDenominator)
	Net   uint64 // gross - fee
}

// CheckedAdd returns a+b, or ErrOverflow if the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// MulDiv computes floor(a * b / den) with a 128-bit intermediate product.
// Returns ErrOverflow if the quotient does not fit in uint64; den must be
// nonzero (callers guard the zero-denominator case with a domain error).
func MulDiv(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		// bits.Div64 panics on quotient overflow; reject first.
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// ComputePayout derives the gross, fee, and net amounts owed to a redeemer
// holding balance units of the winning token, given the escrow balance at
// call time and the winning side's supply frozen at resolution.
//
// winnerSupply is the denominator: it never shrinks after resolution, while
// the escrow shrinks with each redemption, so floor rounding can strand a
// small residue in escrow. That dust is accepted and never reconciled here.
func ComputePayout(balance, escrow, winnerSupply uint64) (Payout, error) {
	if winnerSupply == 0 {
		return Payout{}, ErrNoWinnerSupply
	}

	gross, err := MulDiv(balance, escrow, winnerSupply)
	if err != nil {
		return Payout{}, err
	}
	if gross == 0 {
		return Payout{}, ErrPayoutTooSmall
	}

	// fee <= gross because FeeRateBps < FeeDenominator, so this MulDiv
	// cannot overflow and the subtraction cannot underflow.
	fee, err := MulDiv(gross, FeeRateBps, FeeDenominator)
	if err != nil {
		return Payout{}, err
	}

	return Payout{
		Gross: gross,
		Fee:   fee,
		Net:   gross - fee,
	}, nil
}
