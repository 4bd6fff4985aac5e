// Package reassembly implements the receiver's out-of-order holding area:
// an ordered set of Data packets keyed by id, with O(log n) insertion and
// O(1) access to the minimum pending id (SPEC_FULL §4.8), grounded on the
// teacher pack's own container/heap priority queues
// (telepresenceio-telepresence/pkg/client/rootd/dns/client_queue_linux.go).
package reassembly

import (
	"container/heap"

	"lossynet/internal/wire"
)

// Cursor is the receiver's delivery cursor: an explicit optional rather
// than the id_t(-1) modular-underflow sentinel the spec's design notes
// flag as worth avoiding (spec.md §9).
type Cursor struct {
	id    uint32
	valid bool
}

// NoneCursor is the cursor before anything has been delivered.
func NoneCursor() Cursor { return Cursor{} }

// Next returns the id the cursor expects to deliver next.
func (c Cursor) Next() uint32 {
	if !c.valid {
		return 0
	}
	return c.id + 1
}

// Advance returns the cursor after delivering id.
func (c Cursor) Advance(id uint32) Cursor {
	return Cursor{id: id, valid: true}
}

// idHeap is a min-heap of pending ids, used only to find the smallest
// pending id in O(1) (Len()>0 guarded Peek via idHeap[0]) and pop it in
// O(log n).
type idHeap []uint32

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(uint32)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Buffer is the receiver's reassembly set: every id present is strictly
// greater than the delivery cursor, and no id appears twice.
type Buffer struct {
	cursor Cursor
	set    map[uint32]wire.Data
	order  idHeap
}

// New constructs an empty reassembly Buffer.
func New() *Buffer {
	return &Buffer{
		set: make(map[uint32]wire.Data),
	}
}

// Insert records d if its id is new: greater than the delivery cursor and
// not already buffered. It reports whether d was newly recorded — ids at
// or below the cursor, and ids already buffered, are duplicates and are
// not (re-)inserted.
func (b *Buffer) Insert(d wire.Data) bool {
	if b.cursor.valid && d.ID <= b.cursor.id {
		return false
	}
	if _, exists := b.set[d.ID]; exists {
		return false
	}
	b.set[d.ID] = d
	heap.Push(&b.order, d.ID)
	return true
}

// DrainReady removes and returns, in ascending id order, the longest
// contiguous run of buffered packets starting at the cursor's next
// expected id, advancing the cursor past them.
func (b *Buffer) DrainReady() []wire.Data {
	var out []wire.Data
	for len(b.order) > 0 && b.order[0] == b.cursor.Next() {
		id := heap.Pop(&b.order).(uint32)
		d := b.set[id]
		delete(b.set, id)
		b.cursor = b.cursor.Advance(id)
		out = append(out, d)
	}
	return out
}

// Cursor returns the current delivery cursor.
func (b *Buffer) Cursor() Cursor { return b.cursor }

// Len returns the number of packets currently buffered awaiting delivery.
func (b *Buffer) Len() int { return len(b.set) }
