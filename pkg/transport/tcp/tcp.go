// Package tcp implements the transport over plain TCP. It carries the same
// raw byte-stream semantics as the Bluetooth transport and exists so the
// link can be exercised between hosts without a radio.
package tcp

import (
	"context"
	"fmt"
	"net"

	"btlink/pkg/transport"
)

// Transport dials and listens on plain TCP sockets.
type Transport struct {
	listenAddr string
}

// New creates a TCP transport that binds listenAddr when listening.
func New(listenAddr string) *Transport {
	return &Transport{listenAddr: listenAddr}
}

func (t *Transport) Kind() transport.Kind { return transport.KindTCP }

func (t *Transport) Listen(ctx context.Context) (transport.Listener, error) {
	lc := net.ListenConfig{}
	l, err := lc.Listen(ctx, "tcp", t.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", t.listenAddr, err)
	}
	return &listener{l: l}, nil
}

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Socket, error) {
	d := net.Dialer{}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", addr, err)
	}
	return &socket{c: c}, nil
}

type listener struct {
	l net.Listener
}

func (l *listener) Addr() string { return l.l.Addr().String() }

func (l *listener) Accept() (transport.Socket, error) {
	c, err := l.l.Accept()
	if err != nil {
		return nil, fmt.Errorf("tcp: accept: %w", err)
	}
	return &socket{c: c}, nil
}

func (l *listener) Close() error { return l.l.Close() }

type socket struct {
	c net.Conn
}

func (s *socket) Read(p []byte) (int, error)  { return s.c.Read(p) }
func (s *socket) Write(p []byte) (int, error) { return s.c.Write(p) }
func (s *socket) RemoteAddr() string          { return s.c.RemoteAddr().String() }

// Close is safe to call more than once; net.Conn tolerates double close.
func (s *socket) Close() error { return s.c.Close() }
