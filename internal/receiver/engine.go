// Package receiver implements the engine that turns a stream of possibly
// lost, duplicated, reordered datagrams into an in-order, duplicate-free
// delivery sequence (spec.md §4.5).
package receiver

import (
	"context"
	"net"

	"github.com/datawire/dlib/dlog"

	"lossynet/internal/netconn"
	"lossynet/internal/reassembly"
	"lossynet/internal/stats"
	"lossynet/internal/wire"
)

// Deliver is invoked, in order, for every Data payload that becomes
// deliverable. It must not block the engine for long: the receiver sends
// acks eagerly and only drains ready ids afterward.
type Deliver func(wire.Data)

// Engine is the receiver's single-threaded read/ack/deliver loop.
type Engine struct {
	conn    netconn.Conn
	ackDest net.Addr
	sink    stats.Sink
	buf     *reassembly.Buffer
	onData  Deliver

	received   uint64
	duplicates uint64
	delivered  uint64
}

// New constructs a receiver Engine that reads datagrams from conn and
// invokes onData for each payload as it becomes deliverable in order.
// Acks are always sent to ackDest (spec.md §6's ack_dest_port) rather than
// to a datagram's source address, since the emulator's two sockets are
// deliberately cross-wired (spec.md §4.6).
func New(conn netconn.Conn, ackDest net.Addr, sink stats.Sink, onData Deliver) *Engine {
	return &Engine{
		conn:    conn,
		ackDest: ackDest,
		sink:    sink,
		buf:     reassembly.New(),
		onData:  onData,
	}
}

func (e *Engine) Received() uint64   { return e.received }
func (e *Engine) Duplicates() uint64 { return e.duplicates }
func (e *Engine) Delivered() uint64  { return e.delivered }

// Run blocks on conn.ReadFrom, decodes each datagram, acks every Data
// packet it receives (whether or not it is new), and delivers ids in
// order as gaps close (spec.md §4.5). It returns when ctx is cancelled or
// the socket fails permanently.
func (e *Engine) Run(ctx context.Context) error {
	buf := make([]byte, wire.MaxPayload+64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			dlog.Debugf(ctx, "receiver: discarding malformed datagram: %v", err)
			continue
		}
		data, ok := pkt.(wire.Data)
		if !ok {
			continue // acks never arrive on this socket; ignore defensively
		}
		e.received++

		// Ack unconditionally, including for duplicates and packets at or
		// below the delivery cursor: the sender cannot otherwise learn a
		// previously-lost ack was redundant (spec.md §4.5).
		if _, err := e.conn.WriteTo(wire.EncodeAck(wire.Ack{ID: data.ID}), e.ackDest); err != nil {
			dlog.Debugf(ctx, "receiver: ack for id=%d failed: %v", data.ID, err)
		}

		if !e.buf.Insert(data) {
			e.duplicates++
			if e.sink != nil {
				e.sink.AddEvent("duplicate discarded")
			}
			continue
		}

		for _, ready := range e.buf.DrainReady() {
			e.delivered++
			e.onData(ready)
		}
	}
}
