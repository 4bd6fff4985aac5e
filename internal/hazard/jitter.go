package hazard

import (
	"math/rand"
	"time"
)

// Jitter draws each packet's delay from a Normal(meanMS, stdMS)
// distribution, clamped at zero, and never drops.
type Jitter struct {
	meanMS, stdMS float64
	rng           *rand.Rand
}

// NewJitter constructs a Jitter hazard.
func NewJitter(meanMS, stdMS float64, rng *rand.Rand) *Jitter {
	return &Jitter{meanMS: meanMS, stdMS: stdMS, rng: rng}
}

func (h *Jitter) Evaluate(_ Direction, _ uint32, _ time.Time) Effect {
	delay := h.meanMS + h.rng.NormFloat64()*h.stdMS
	if delay < 0 {
		delay = 0
	}
	return Effect{DelayMS: int64(delay)}
}
