package market

import "time"

// Clock is the injected time source for deadline gates. Expiry is a domain
// precondition, not a scheduling concern, so the engine never sleeps or sets
// timers — it only compares against Now.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
