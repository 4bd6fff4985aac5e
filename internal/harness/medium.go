// Package harness wires the sender, emulator, and receiver engines
// together over an in-memory datagram fabric so the end-to-end scenarios
// of spec.md §8 can be exercised without real sockets (SPEC_FULL.md §8).
package harness

import (
	"net"
	"sync"
	"time"

	"lossynet/internal/netconn"
)

// Medium is an in-memory datagram fabric: any number of fake endpoints,
// addressed the same way real loopback sockets are, can exchange
// datagrams through it. It stands in for the host's datagram facility
// (spec.md §6's out-of-scope collaborator).
type Medium struct {
	mu        sync.Mutex
	endpoints map[string]*endpoint
}

// NewMedium constructs an empty fabric.
func NewMedium() *Medium {
	return &Medium{endpoints: make(map[string]*endpoint)}
}

// NewConn returns a netconn.Conn bound to addr on this fabric. Multiple
// calls with the same addr share the same inbox, matching how a real
// bound UDP socket behaves.
func (m *Medium) NewConn(addr net.Addr) netconn.Conn {
	return &fakeConn{medium: m, addr: addr}
}

func (m *Medium) lookup(addr net.Addr) *endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := addr.String()
	ep, ok := m.endpoints[key]
	if !ok {
		ep = &endpoint{}
		m.endpoints[key] = ep
	}
	return ep
}

type datagram struct {
	data []byte
	from net.Addr
}

// endpoint is one address's inbox: an unbounded FIFO guarded by a mutex.
// A channel would risk the writer blocking on a full buffer, which would
// deadlock a single-threaded engine loop; polling a plain slice avoids
// that at the cost of a short busy-wait in ReadFrom.
type endpoint struct {
	mu    sync.Mutex
	queue []datagram
}

func (e *endpoint) push(d datagram) {
	e.mu.Lock()
	e.queue = append(e.queue, d)
	e.mu.Unlock()
}

func (e *endpoint) pop() (datagram, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return datagram{}, false
	}
	d := e.queue[0]
	e.queue = e.queue[1:]
	return d, true
}

type fakeConn struct {
	medium *Medium
	addr   net.Addr

	mu       sync.Mutex
	deadline time.Time
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	ep := c.medium.lookup(c.addr)
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	for {
		if d, ok := ep.pop(); ok {
			n := copy(b, d.data)
			return n, d.from, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, nil, &net.OpError{Op: "read", Err: timeoutError{}}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func (c *fakeConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	c.medium.lookup(addr).push(datagram{data: cp, from: c.addr})
	return len(b), nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
