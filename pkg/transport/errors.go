package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Sentinel errors implementations wrap so the link can classify failures.
var (
	// ErrAdapterUnavailable means the local radio/adapter is missing or
	// powered off. Fatal to initialization; never recovered internally.
	ErrAdapterUnavailable = errors.New("transport: adapter unavailable")

	// ErrClosed is returned by operations on a locally closed socket or
	// listener.
	ErrClosed = errors.New("transport: closed")

	// ErrDisconnected means the peer went away mid-stream.
	ErrDisconnected = errors.New("transport: disconnected")

	// ErrUnreachable means an outbound connect could not reach the peer.
	ErrUnreachable = errors.New("transport: peer unreachable")
)

// IsClosed reports whether err resulted from a local Close, including the
// races where the stdlib surfaces its own closed-connection error first.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrClosed) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}

// IsDisconnect reports whether err indicates the peer ended the stream.
// Local closes also count: by the time a pump observes the error it no
// longer matters which side tore the connection down.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDisconnected) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
