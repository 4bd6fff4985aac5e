// Package sender implements the reliability engine that delivers a finite,
// ordered id sequence to the receiver exactly once and in order, subject to
// arbitrary loss, duplication, reordering, and delay (spec.md §4.4).
package sender

import (
	"context"
	"net"
	"time"

	"github.com/datawire/dlib/dlog"

	"lossynet/internal/netconn"
	"lossynet/internal/pacing"
	"lossynet/internal/stats"
	"lossynet/internal/wire"
	"lossynet/internal/window"
)

// Config bundles the sender's tunable constants (spec.md §6).
type Config struct {
	// N is the total number of ids to deliver, 0..N-1.
	N uint32
	// WindowSize is the sender window's capacity (spec default 10).
	WindowSize int
	// PayloadSize is the deterministic payload length built for each id.
	PayloadSize int
	// Tick is the fixed inter-iteration sleep (spec default 100ms).
	Tick time.Duration
	// AckTimeout bounds the per-iteration ack-drain wait (spec default 1-5ms).
	AckTimeout time.Duration
	// Paced enables token-bucket pacing of the transmit burst.
	Paced bool
	// Rate and Capacity configure the pacer when Paced is set (spec
	// defaults 75 pkt/s, burst 5).
	Rate, Capacity float64
}

// DefaultConfig returns the spec's constants (spec.md §6) for the given N
// and pacing choice.
func DefaultConfig(n uint32, paced bool) Config {
	return Config{
		N:           n,
		WindowSize:  10,
		PayloadSize: 64,
		Tick:        100 * time.Millisecond,
		AckTimeout:  3 * time.Millisecond,
		Paced:       paced,
		Rate:        75,
		Capacity:    5,
	}
}

// Engine is the sender's single-threaded cooperative loop.
type Engine struct {
	conn netconn.Conn
	dest net.Addr
	cfg  Config
	sink stats.Sink
	now  netconn.Clock

	win    *window.Window
	bucket *pacing.Bucket

	nextID     uint32
	totalSent  uint64
	uniqueSent uint64
}

// New constructs a sender Engine that writes to dest over conn.
func New(conn netconn.Conn, dest net.Addr, cfg Config, sink stats.Sink) *Engine {
	e := &Engine{
		conn: conn,
		dest: dest,
		cfg:  cfg,
		sink: sink,
		now:  time.Now,
		win:  window.New(cfg.WindowSize),
	}
	if cfg.Paced {
		e.bucket = pacing.NewBucket(cfg.Rate, cfg.Capacity)
	}
	return e
}

// TotalSent returns the number of transmission attempts made, including
// retransmissions.
func (e *Engine) TotalSent() uint64 { return e.totalSent }

// UniqueSent returns the number of distinct ids transmitted at least once.
func (e *Engine) UniqueSent() uint64 { return e.uniqueSent }

// Run drives the engine until every id 0..N-1 has been admitted and
// acknowledged, or ctx is cancelled. An N=0 configuration terminates
// immediately (spec.md §8 boundary behaviour).
func (e *Engine) Run(ctx context.Context) error {
	for e.nextID < e.cfg.N || !e.win.Empty() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e.drainAcks(ctx)
		e.win.Compact()
		e.admitNew()
		e.transmitBurst(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.Tick):
		}
	}
	dlog.Infof(ctx, "sender: delivered all %d ids (total_sent=%d unique_sent=%d)", e.cfg.N, e.totalSent, e.uniqueSent)
	return nil
}

// drainAcks reads every pending ack within AckTimeout and applies them to
// the window in one batch (spec.md §4.4 step 1).
func (e *Engine) drainAcks(ctx context.Context) {
	ids := make(map[uint32]struct{})
	buf := make([]byte, wire.MaxPayload+64)
	deadline := e.now().Add(e.cfg.AckTimeout)

	for {
		if err := e.conn.SetReadDeadline(deadline); err != nil {
			break
		}
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			break // timeout or transient failure: stop draining this tick
		}
		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			continue // malformed datagram: discard
		}
		ack, ok := pkt.(wire.Ack)
		if !ok {
			continue
		}
		ids[ack.ID] = struct{}{}
	}

	if len(ids) > 0 {
		e.win.SetAcks(ids)
		if e.sink != nil {
			e.sink.AddEvent("acks drained")
		}
	}
}

// admitNew fills the window with new ids while capacity allows (spec.md
// §4.4 step 3). Payload synthesis is deterministic so retransmissions
// carry identical bytes.
func (e *Engine) admitNew() {
	for e.nextID < e.cfg.N {
		d := wire.Data{ID: e.nextID, Payload: buildPayload(e.nextID, e.cfg.PayloadSize)}
		if !e.win.Add(d) {
			break
		}
		e.nextID++
	}
}

// transmitBurst sends every unacked slot in id order, deferring to the next
// tick once the pacer's budget for this burst is exhausted (spec.md §4.4
// step 4).
func (e *Engine) transmitBurst(ctx context.Context) {
	e.win.IterateUnacked(func(s *window.Slot) bool {
		if e.cfg.Paced && !e.bucket.TryConsume() {
			return false // pacer exhausted: stop filling this burst entirely
		}
		if _, err := e.conn.WriteTo(wire.EncodeData(s.Packet), e.dest); err != nil {
			dlog.Debugf(ctx, "sender: transmit id=%d failed (will retry next tick): %v", s.Packet.ID, err)
			return true // transient send failure: skip this slot, keep the burst going
		}
		if s.Transmissions == 0 {
			e.uniqueSent++
		}
		s.Transmissions++
		e.totalSent++
		return true
	})
}

// buildPayload synthesises the deterministic payload for id: size bytes of
// id&0xFF, matching spec.md §4.4 and the teacher's memset idiom (spec.md §9
// design note). admitNew calls it once per id and the result is kept in
// the window slot, so every retransmission is byte-identical.
func buildPayload(id uint32, size int) []byte {
	b := make([]byte, size)
	v := byte(id & 0xFF)
	for i := range b {
		b[i] = v
	}
	return b
}
