// Package emulator implements the lossy-channel intermediary: it forwards
// Data packets from the sender to the receiver and Acks from the receiver
// back to the sender, subjecting each direction independently to a single
// selected hazard and a shared delay queue (spec.md §4.6).
package emulator

import (
	"context"
	"net"
	"time"

	"github.com/datawire/dlib/dlog"

	"lossynet/internal/delayqueue"
	"lossynet/internal/hazard"
	"lossynet/internal/netconn"
	"lossynet/internal/stats"
	"lossynet/internal/wire"
)

// Config bundles the emulator's tunable constants.
type Config struct {
	// Tick is the fixed polling/drain interval (spec default 10ms).
	Tick time.Duration
	// ReadTimeout bounds each per-socket, per-tick read attempt.
	ReadTimeout time.Duration
}

// DefaultConfig returns the spec's constants (spec.md §6) for the emulator.
func DefaultConfig() Config {
	return Config{
		Tick:        10 * time.Millisecond,
		ReadTimeout: 2 * time.Millisecond,
	}
}

// Engine is the emulator's dual-socket cooperative loop. recvConn receives
// Data from the sender and carries Acks back to it; ackConn receives Acks
// from the receiver and carries Data to it. The cross-wiring is deliberate
// (spec.md §4.6): recvConn's peer is the sender, ackConn's peer is the
// receiver, but each socket both reads the hazarded direction and writes
// the other direction's forwarded packets.
type Engine struct {
	recvConn   netconn.Conn
	ackConn    netconn.Conn
	senderAddr net.Addr
	recvAddr   net.Addr

	hz    hazard.Hazard
	queue *delayqueue.Queue
	sink  stats.Sink
	cfg   Config
	now   netconn.Clock

	forwarded uint64
	dropped   uint64
}

// New constructs an emulator Engine. senderAddr and recvAddr are the
// destinations packets are forwarded to once released from the delay
// queue: a Data packet releases to recvAddr over ackConn, an Ack releases
// to senderAddr over recvConn.
func New(recvConn, ackConn netconn.Conn, senderAddr, recvAddr net.Addr, hz hazard.Hazard, sink stats.Sink, cfg Config) *Engine {
	return &Engine{
		recvConn:   recvConn,
		ackConn:    ackConn,
		senderAddr: senderAddr,
		recvAddr:   recvAddr,
		hz:         hz,
		queue:      delayqueue.New(),
		sink:       sink,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (e *Engine) Forwarded() uint64 { return e.forwarded }
func (e *Engine) Dropped() uint64   { return e.dropped }

// Run polls both sockets every tick (spec.md §9: neither socket is
// starved in favour of the other) and drains every delay-queue entry whose
// release time has come.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e.pollRecv(ctx)
		e.pollAck(ctx)
		e.drainReady(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.Tick):
		}
	}
}

// pollRecv drains Data datagrams arriving from the sender.
func (e *Engine) pollRecv(ctx context.Context) {
	e.drainSocket(ctx, e.recvConn, delayqueue.Forward)
}

// pollAck drains Ack datagrams arriving from the receiver.
func (e *Engine) pollAck(ctx context.Context) {
	e.drainSocket(ctx, e.ackConn, delayqueue.Backward)
}

func (e *Engine) drainSocket(ctx context.Context, conn netconn.Conn, dir delayqueue.Direction) {
	buf := make([]byte, wire.MaxPayload+64)
	deadline := e.now().Add(e.cfg.ReadTimeout)

	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			dlog.Debugf(ctx, "emulator: discarding malformed datagram: %v", err)
			continue
		}

		now := e.now()
		effect := e.hz.Evaluate(dir, pkt.PacketID(), now)
		if effect.Drop {
			e.dropped++
			if e.sink != nil {
				e.sink.AddEvent("packet dropped")
			}
			continue
		}

		e.queue.Push(&delayqueue.Entry{
			ReleaseAtMS: now.UnixMilli() + effect.DelayMS,
			Direction:   dir,
			Packet:      pkt,
		})
	}
}

// drainReady forwards every delay-queue entry whose release time has
// arrived, each to the destination socket matching its direction.
func (e *Engine) drainReady(ctx context.Context) {
	now := e.now().UnixMilli()
	for {
		entry, ok := e.queue.Peek()
		if !ok || entry.ReleaseAtMS > now {
			return
		}
		entry = e.queue.Pop()

		var (
			out  netconn.Conn
			dest net.Addr
			raw  []byte
		)
		switch entry.Direction {
		case delayqueue.Forward:
			out, dest = e.ackConn, e.recvAddr
			raw = wire.EncodeData(entry.Packet.(wire.Data))
		case delayqueue.Backward:
			out, dest = e.recvConn, e.senderAddr
			raw = wire.EncodeAck(entry.Packet.(wire.Ack))
		}

		if _, err := out.WriteTo(raw, dest); err != nil {
			dlog.Debugf(ctx, "emulator: forward id=%d failed: %v", entry.Packet.PacketID(), err)
			continue
		}
		e.forwarded++
	}
}
