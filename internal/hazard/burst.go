package hazard

import (
	"math/rand"
	"time"
)

// BurstLoss maintains an accumulating drop_count; each packet increments it
// with probability PMark. While not already bursting, PStart (gated on
// drop_count>0) starts a burst; while bursting, every packet is dropped and
// drop_count is decremented until it reaches zero, ending the burst.
//
// drop_count is left uncapped, matching the source behaviour the spec's
// design notes call out as ambiguous-but-not-mandated-to-fix (spec.md §9).
type BurstLoss struct {
	pMark, pStart float64
	rng           *rand.Rand

	dropCount int
	bursting  bool
}

// NewBurstLoss constructs a BurstLoss hazard.
func NewBurstLoss(pMark, pStart float64, rng *rand.Rand) *BurstLoss {
	return &BurstLoss{pMark: pMark, pStart: pStart, rng: rng}
}

func (h *BurstLoss) Evaluate(_ Direction, _ uint32, _ time.Time) Effect {
	if h.rng.Float64() < h.pMark {
		h.dropCount++
	}

	if !h.bursting && h.dropCount > 0 && h.rng.Float64() < h.pStart {
		h.bursting = true
	}

	if !h.bursting {
		return Effect{}
	}

	h.dropCount--
	if h.dropCount <= 0 {
		h.dropCount = 0
		h.bursting = false
	}
	return Effect{Drop: true}
}
