package hazard

import "time"

// ShallowBuffer models the forward direction as a FIFO with finite integer
// occupancy and a constant drain rate: before admission it drains
// floor(elapsed*drainRate) slots (capped at current occupancy); if the
// buffer is at capacity it drops, otherwise it admits and increments
// occupancy. Acks bypass the buffer entirely (delay 0, never dropped),
// matching spec.md §4.6.
type ShallowBuffer struct {
	capacity  int
	drainRate float64 // slots/sec

	occupancy int
	lastDrain time.Time
	now       func() time.Time
}

// NewShallowBuffer constructs a ShallowBuffer hazard. now must be non-nil:
// it is called once to stamp the initial drain time, and tests should
// supply a deterministic clock.
func NewShallowBuffer(capacity int, drainRate float64, now func() time.Time) *ShallowBuffer {
	return &ShallowBuffer{
		capacity:  capacity,
		drainRate: drainRate,
		lastDrain: now(),
		now:       now,
	}
}

func (h *ShallowBuffer) Evaluate(dir Direction, _ uint32, now time.Time) Effect {
	if dir == Backward {
		return Effect{}
	}

	elapsed := now.Sub(h.lastDrain).Seconds()
	if drained := int(elapsed * h.drainRate); drained > 0 {
		if drained >= h.occupancy {
			h.occupancy = 0
			h.lastDrain = now
		} else {
			h.occupancy -= drained
			h.lastDrain = h.lastDrain.Add(time.Duration(float64(drained) / h.drainRate * float64(time.Second)))
		}
	}

	if h.occupancy >= h.capacity {
		return Effect{Drop: true}
	}
	h.occupancy++
	return Effect{}
}

// Occupancy reports the buffer's current simulated occupancy, for tests.
func (h *ShallowBuffer) Occupancy() int {
	return h.occupancy
}
