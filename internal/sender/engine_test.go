package sender

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lossynet/internal/wire"
)

var destAddr net.Addr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}

// fakeConn is an in-memory netconn.Conn: writes land in `sent`, reads are
// served from `inbox` and unblock immediately or return a timeout error
// once inbox is empty, so Engine.Run never actually sleeps on real I/O.
type fakeConn struct {
	mu       sync.Mutex
	sent     []wire.Data
	inbox    [][]byte
	deadline time.Time
}

func (c *fakeConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	d, err := wire.DecodeData(b)
	if err == nil {
		c.mu.Lock()
		c.sent = append(c.sent, d)
		c.mu.Unlock()
	}
	return len(b), nil
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return 0, nil, &net.OpError{Op: "read", Err: errTimeout{}}
	}
	next := c.inbox[0]
	c.inbox = c.inbox[1:]
	n := copy(b, next)
	return n, destAddr, nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func (c *fakeConn) pushAck(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, wire.EncodeAck(wire.Ack{ID: id}))
}

type errTimeout struct{}

func (errTimeout) Error() string   { return "i/o timeout" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }

func fastConfig(n uint32) Config {
	cfg := DefaultConfig(n, false)
	cfg.Tick = time.Millisecond
	cfg.AckTimeout = time.Millisecond
	return cfg
}

func TestRunTerminatesWhenAllAcked(t *testing.T) {
	conn := &fakeConn{}
	e := New(conn, destAddr, fastConfig(5), nil)

	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- e.Run(ctx) }()

	// Ack every id as soon as it appears to be sent, draining the window.
	acked := make(map[uint32]bool)
	deadline := time.After(2 * time.Second)
	for len(acked) < 5 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for all ids to be sent")
		default:
		}
		conn.mu.Lock()
		for _, d := range conn.sent {
			if !acked[d.ID] {
				acked[d.ID] = true
				conn.inbox = append(conn.inbox, wire.EncodeAck(wire.Ack{ID: d.ID}))
			}
		}
		conn.mu.Unlock()
		time.Sleep(time.Millisecond)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not terminate after all ids acked")
	}
	assert.Equal(t, uint64(5), e.UniqueSent())
}

func TestRunWithZeroIDsTerminatesImmediately(t *testing.T) {
	conn := &fakeConn{}
	e := New(conn, destAddr, fastConfig(0), nil)
	err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), e.TotalSent())
}

func TestRetransmissionsCarryIdenticalPayload(t *testing.T) {
	conn := &fakeConn{}
	cfg := fastConfig(1)
	e := New(conn, destAddr, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = e.Run(ctx)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.NotEmpty(t, conn.sent)
	first := conn.sent[0].Payload
	for _, d := range conn.sent {
		assert.Equal(t, first, d.Payload, "every retransmission of id 0 must carry identical bytes")
	}
}

func TestTransmitBurstStopsAtPacingExhaustion(t *testing.T) {
	conn := &fakeConn{}
	cfg := fastConfig(10)
	cfg.Paced = true
	cfg.Rate = 0 // never refills
	cfg.Capacity = 2
	e := New(conn, destAddr, cfg, nil)

	e.admitNew() // fills the window with ids 0..9 (capacity 10)
	e.transmitBurst(context.Background())

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.sent, 2, "burst must stop entirely once the pacer is exhausted, not just skip the failing slot")
	assert.Equal(t, uint32(0), conn.sent[0].ID)
	assert.Equal(t, uint32(1), conn.sent[1].ID)
}

func TestBuildPayloadIsDeterministicByID(t *testing.T) {
	a := buildPayload(257, 8) // 257 & 0xFF == 1
	b := buildPayload(1, 8)
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.Equal(t, byte(1), v)
	}
}
