// Package transport defines the byte-stream socket abstraction the link is
// built on, and the error taxonomy its state machine recovers from.
// Implementations live in the l2cap, tcp and mem subpackages.
package transport

import (
	"context"
	"io"
)

// Kind identifies the transport type for logging and policy decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindL2CAP
	KindTCP
	KindMem
)

func (k Kind) String() string {
	switch k {
	case KindL2CAP:
		return "l2cap"
	case KindTCP:
		return "tcp"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// Socket is a connected bidirectional byte stream bound to a remote peer.
// Read blocks until data arrives, the peer closes (0, io.EOF style error)
// or the socket is closed locally. Close is idempotent and unblocks any
// in-flight Read or Write on the same socket.
//
// Framing is a raw byte stream; chunk sizes are a buffering convention of
// the pumps, not part of the wire protocol.
type Socket interface {
	io.Reader
	io.Writer
	io.Closer

	// RemoteAddr returns the peer address in transport-specific form.
	RemoteAddr() string
}

// Listener accepts inbound sockets. Close unblocks a pending Accept,
// which then returns an error satisfying IsClosed.
type Listener interface {
	// Accept blocks until an inbound connection is established.
	Accept() (Socket, error)
	// Addr returns the local listening address.
	Addr() string
	// Close stops the listener. Idempotent.
	Close() error
}

// Transport provides dialing and listening for one link kind.
type Transport interface {
	Kind() Kind

	// Listen binds the transport's configured local endpoint.
	Listen(ctx context.Context) (Listener, error)

	// Dial performs a single outbound connect attempt to addr
	// (a device address string for l2cap, host:port for tcp,
	// a listener name for mem).
	Dial(ctx context.Context, addr string) (Socket, error)
}
