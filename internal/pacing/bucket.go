// Package pacing implements the sender's token-bucket rate pacer.
package pacing

import (
	"time"

	"golang.org/x/time/rate"
)

// Bucket is a token bucket: refills continuously at Rate tokens/sec up to
// Capacity, consulted once per candidate transmission via TryConsume. It
// wraps golang.org/x/time/rate.Limiter, whose Allow semantics are exactly
// the spec's "refill based on elapsed time, then consume 1 token if
// available" (spec.md §4.2) — there is no reason to re-derive that
// arithmetic by hand.
type Bucket struct {
	limiter *rate.Limiter
}

// NewBucket constructs a Bucket with the given sustained rate (tokens/sec)
// and burst capacity (max tokens held).
func NewBucket(ratePerSec, capacity float64) *Bucket {
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), int(capacity)),
	}
}

// TryConsume refills based on wall-clock elapsed time since the last call,
// then consumes one token if at least one is available, returning whether
// the consumption succeeded. It never blocks.
func (b *Bucket) TryConsume() bool {
	return b.TryConsumeAt(time.Now())
}

// TryConsumeAt is TryConsume with an explicit timestamp, for deterministic
// tests.
func (b *Bucket) TryConsumeAt(now time.Time) bool {
	return b.limiter.AllowN(now, 1)
}
