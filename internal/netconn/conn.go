// Package netconn defines the narrow datagram-socket interface the three
// engines consume. Socket creation itself (net.ListenUDP) is an
// out-of-scope collaborator owned by cmd/* (spec.md §1/§6); engines only
// ever see this interface, which a cmd/* binary satisfies with a real
// *net.UDPConn and tests satisfy with an in-memory fake.
package netconn

import (
	"net"
	"time"
)

// Conn is a bound, connectionless datagram endpoint.
type Conn interface {
	ReadFrom(b []byte) (n int, addr net.Addr, err error)
	WriteTo(b []byte, addr net.Addr) (n int, err error)
	SetReadDeadline(t time.Time) error
}

// Clock abstracts wall-clock access so engines can be driven by a
// deterministic fake in tests (SPEC_FULL §6).
type Clock func() time.Time
