package hazard

import (
	"math/rand"
	"time"
)

// IndependentLoss drops each packet with independent Bernoulli probability
// P and never delays what it admits.
type IndependentLoss struct {
	p   float64
	rng *rand.Rand
}

// NewIndependentLoss constructs an IndependentLoss hazard with drop
// probability p.
func NewIndependentLoss(p float64, rng *rand.Rand) *IndependentLoss {
	return &IndependentLoss{p: p, rng: rng}
}

func (h *IndependentLoss) Evaluate(_ Direction, _ uint32, _ time.Time) Effect {
	if h.rng.Float64() < h.p {
		return Effect{Drop: true}
	}
	return Effect{}
}
