// Package delayqueue implements the emulator's delay-ordered forwarding
// queue: a priority queue over (release_time, packet) ordered by
// (release_time ASC, id ASC), grounded on the teacher pack's own
// container/heap priority queues
// (telepresenceio-telepresence/pkg/client/rootd/dns/client_queue_linux.go
// and connpool_linux.go).
package delayqueue

import (
	"container/heap"

	"lossynet/internal/wire"
)

// Direction names which leg of the pipeline a queued packet travels:
// Forward is sender->receiver (Data), Backward is receiver->sender (Ack).
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Entry is a single queued packet awaiting forwarding.
type Entry struct {
	ReleaseAtMS int64
	Direction   Direction
	Packet      wire.Packet

	index int // heap bookkeeping
}

// entryHeap implements heap.Interface over *Entry, ordered by
// (ReleaseAtMS ASC, id ASC) so packets released in the same tick drain in
// id order (spec.md §4.6 "Ordering").
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].ReleaseAtMS != h[j].ReleaseAtMS {
		return h[i].ReleaseAtMS < h[j].ReleaseAtMS
	}
	return h[i].Packet.PacketID() < h[j].Packet.PacketID()
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is the emulator's shared delay queue.
type Queue struct {
	items entryHeap
}

// New constructs an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Push enqueues e.
func (q *Queue) Push(e *Entry) {
	heap.Push(&q.items, e)
}

// Peek returns the entry with the earliest release time without removing
// it, and whether the queue is non-empty.
func (q *Queue) Peek() (*Entry, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Pop removes and returns the entry with the earliest release time.
func (q *Queue) Pop() *Entry {
	return heap.Pop(&q.items).(*Entry)
}

// Len returns the number of entries currently queued.
func (q *Queue) Len() int {
	return len(q.items)
}
