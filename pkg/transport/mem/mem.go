// Package mem is an in-process transport over net.Pipe. It exists for tests
// and for running two links inside one process.
package mem

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"btlink/pkg/transport"
)

// Network is a registry of named in-process listeners. Transports created
// from the same Network can dial each other by name.
type Network struct {
	mu        sync.Mutex
	listeners map[string]*listener
}

// NewNetwork creates an empty in-process network.
func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*listener)}
}

// Transport returns a transport whose Listen binds the given name on n.
func (n *Network) Transport(name string) *Transport {
	return &Transport{net: n, name: name}
}

// Transport implements the transport interfaces over net.Pipe.
type Transport struct {
	net  *Network
	name string
}

func (t *Transport) Kind() transport.Kind { return transport.KindMem }

func (t *Transport) Listen(_ context.Context) (transport.Listener, error) {
	t.net.mu.Lock()
	defer t.net.mu.Unlock()
	if _, ok := t.net.listeners[t.name]; ok {
		return nil, fmt.Errorf("mem: listener %q already exists", t.name)
	}
	l := &listener{
		net:     t.net,
		name:    t.name,
		inbound: make(chan *socket, 4),
		closeCh: make(chan struct{}),
	}
	t.net.listeners[t.name] = l
	return l, nil
}

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Socket, error) {
	t.net.mu.Lock()
	l := t.net.listeners[addr]
	t.net.mu.Unlock()
	if l == nil {
		return nil, fmt.Errorf("mem: dial %q: %w", addr, transport.ErrUnreachable)
	}

	c1, c2 := net.Pipe()
	srv := &socket{c: c1, remote: t.name}
	cli := &socket{c: c2, remote: addr}
	select {
	case l.inbound <- srv:
		return cli, nil
	case <-l.closeCh:
		_ = srv.Close()
		_ = cli.Close()
		return nil, fmt.Errorf("mem: dial %q: %w", addr, transport.ErrUnreachable)
	case <-ctx.Done():
		_ = srv.Close()
		_ = cli.Close()
		return nil, ctx.Err()
	}
}

type listener struct {
	net     *Network
	name    string
	inbound chan *socket

	closeOnce sync.Once
	closeCh   chan struct{}
}

func (l *listener) Addr() string { return l.name }

func (l *listener) Accept() (transport.Socket, error) {
	select {
	case <-l.closeCh:
		return nil, fmt.Errorf("mem: accept: %w", transport.ErrClosed)
	case s := <-l.inbound:
		return s, nil
	}
}

func (l *listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.net.mu.Lock()
		delete(l.net.listeners, l.name)
		l.net.mu.Unlock()
	})
	return nil
}

type socket struct {
	c      net.Conn
	remote string

	closeOnce sync.Once
}

func (s *socket) Read(p []byte) (int, error)  { return s.c.Read(p) }
func (s *socket) Write(p []byte) (int, error) { return s.c.Write(p) }
func (s *socket) RemoteAddr() string          { return s.remote }

func (s *socket) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.c.Close() })
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
