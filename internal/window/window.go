// Package window implements the sender's fixed-capacity ordered buffer of
// outstanding packets.
package window

import "lossynet/internal/wire"

// Slot is a single outstanding packet tracked by the window.
type Slot struct {
	Packet        wire.Data
	Acked         bool
	Transmissions uint64
}

// Window is a sequence of at most Capacity slots in strict ascending id
// order. Ids in the window are contiguous; the lowest id is the oldest
// unretired packet.
type Window struct {
	capacity int
	slots    []*Slot
}

// New constructs an empty Window bounded to capacity slots.
func New(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Add appends a new slot for d iff the window has spare capacity. Returns
// false when full, in which case the caller should stop admitting new ids
// until the next Compact frees room (spec.md §7: window-full is not an
// error).
func (w *Window) Add(d wire.Data) bool {
	if len(w.slots) >= w.capacity {
		return false
	}
	w.slots = append(w.slots, &Slot{Packet: d})
	return true
}

// SetAcks marks every slot whose id is in ids as acked. Unknown ids are
// ignored, tolerating duplicate or late acks. Applying the same id set
// twice is equivalent to applying it once, since Acked is idempotent.
func (w *Window) SetAcks(ids map[uint32]struct{}) {
	for _, s := range w.slots {
		if _, ok := ids[s.Packet.ID]; ok {
			s.Acked = true
		}
	}
}

// Compact removes the longest acked prefix of the window, shifting the
// remainder down, and returns the count removed. An acked slot preceded by
// an unacked one is left in place, keeping the remaining id range
// contiguous; the first unacked slot defines the new window base.
func (w *Window) Compact() int {
	k := 0
	for k < len(w.slots) && w.slots[k].Acked {
		k++
	}
	if k == 0 {
		return 0
	}
	remaining := len(w.slots) - k
	copy(w.slots[:remaining], w.slots[k:])
	w.slots = w.slots[:remaining]
	return k
}

// UnackedCount returns the number of slots not yet acked.
func (w *Window) UnackedCount() int {
	n := 0
	for _, s := range w.slots {
		if !s.Acked {
			n++
		}
	}
	return n
}

// IterateUnacked calls fn for every unacked slot in id-ascending order, in
// the order needed for retransmission bursts. fn returns whether iteration
// should continue; returning false stops the burst at the current slot,
// letting a caller break out early (e.g. on pacing exhaustion) rather than
// merely skip the slot that failed.
func (w *Window) IterateUnacked(fn func(*Slot) bool) {
	for _, s := range w.slots {
		if !s.Acked {
			if !fn(s) {
				return
			}
		}
	}
}

// Len returns the current number of slots held (acked or not).
func (w *Window) Len() int {
	return len(w.slots)
}

// Empty reports whether the window currently holds no slots.
func (w *Window) Empty() bool {
	return len(w.slots) == 0
}
