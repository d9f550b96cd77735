//go:build linux

package l2cap

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"btlink/pkg/transport"
)

// New opens the local Bluetooth adapter and returns a transport bound to it.
// Returns transport.ErrAdapterUnavailable when no powered adapter is found.
func New(cfg Config) (*Transport, error) {
	a, err := openAdapter(cfg.Adapter)
	if err != nil {
		return nil, err
	}
	return &Transport{psm: uint16(cfg.PSM), adapter: a}, nil
}

// Transport dials and listens on L2CAP connection-oriented channels bound
// to a fixed PSM. Sockets are opened non-blocking and handed to os.File so
// the runtime poller makes Close unblock in-flight accept/read/write.
type Transport struct {
	psm     uint16
	adapter *adapter
}

func (t *Transport) Kind() transport.Kind { return transport.KindL2CAP }

// Adapter returns the BlueZ adapter address ("AA:BB:CC:DD:EE:FF").
func (t *Transport) Adapter() string { return t.adapter.address }

// Close releases the adapter's bus connection.
func (t *Transport) Close() error { return t.adapter.close() }

func (t *Transport) Listen(_ context.Context) (transport.Listener, error) {
	fd, err := l2capSocket()
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrL2{PSM: t.psm} // BDADDR_ANY
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2cap: bind psm %#x: %w", t.psm, err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2cap: listen: %w", err)
	}
	f := os.NewFile(uintptr(fd), "l2cap-listen")
	return &listener{f: f, psm: t.psm}, nil
}

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Socket, error) {
	bd, err := parseBDAddr(addr)
	if err != nil {
		return nil, err
	}

	// Discovery slows connection establishment down considerably; stop it
	// first, best-effort.
	t.adapter.cancelDiscovery()

	fd, err := l2capSocket()
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrL2{PSM: t.psm, Addr: bd}
	err = unix.Connect(fd, sa)
	if err == nil {
		return newSocket(fd, addr), nil
	}
	if err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, connectError(addr, err)
	}

	// Non-blocking connect: re-issue connect on writability until the
	// kernel reports EISCONN or a real failure.
	f := os.NewFile(uintptr(fd), "l2cap-connect")
	rc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("l2cap: dial %s: %w", addr, err)
	}

	stop := watchContext(ctx, f)
	defer stop()

	var cerr error
	werr := rc.Write(func(fd uintptr) bool {
		cerr = unix.Connect(int(fd), sa)
		switch cerr {
		case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
			return false
		case unix.EISCONN:
			cerr = nil
			return true
		default:
			return true
		}
	})
	if werr != nil {
		f.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("l2cap: dial %s: %w", addr, werr)
	}
	if cerr != nil {
		f.Close()
		return nil, connectError(addr, cerr)
	}
	return &socket{f: f, remote: addr}, nil
}

// watchContext closes f when ctx is cancelled, unblocking pending I/O.
// The returned stop func releases the watcher.
func watchContext(ctx context.Context, f *os.File) (stop func()) {
	if ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			f.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func l2capSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.BTPROTO_L2CAP)
	if err != nil {
		return -1, fmt.Errorf("l2cap: socket: %w", err)
	}
	return fd, nil
}

func connectError(addr string, err error) error {
	switch err {
	case unix.EHOSTDOWN, unix.EHOSTUNREACH, unix.ECONNREFUSED, unix.ETIMEDOUT:
		return fmt.Errorf("l2cap: dial %s: %v: %w", addr, err, transport.ErrUnreachable)
	case unix.EACCES, unix.EPERM:
		return fmt.Errorf("l2cap: dial %s: permission denied: %w", addr, err)
	default:
		return fmt.Errorf("l2cap: dial %s: %w", addr, err)
	}
}

type listener struct {
	f   *os.File
	psm uint16

	closeOnce sync.Once
	closeErr  error
}

func (l *listener) Addr() string { return fmt.Sprintf("psm:%#x", l.psm) }

func (l *listener) Accept() (transport.Socket, error) {
	rc, err := l.f.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("l2cap: accept: %w", transport.ErrClosed)
	}

	var (
		nfd  int
		sa   unix.Sockaddr
		aerr error
	)
	rerr := rc.Read(func(fd uintptr) bool {
		nfd, sa, aerr = unix.Accept4(int(fd), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		return aerr != unix.EAGAIN
	})
	if rerr != nil {
		// poller reports "use of closed file" once Close ran
		return nil, fmt.Errorf("l2cap: accept: %w", transport.ErrClosed)
	}
	if aerr != nil {
		return nil, fmt.Errorf("l2cap: accept: %w", aerr)
	}

	remote := ""
	if l2, ok := sa.(*unix.SockaddrL2); ok {
		remote = formatBDAddr(l2.Addr)
	}
	return newSocket(nfd, remote), nil
}

func (l *listener) Close() error {
	l.closeOnce.Do(func() { l.closeErr = l.f.Close() })
	return l.closeErr
}

type socket struct {
	f      *os.File
	remote string

	closeOnce sync.Once
	closeErr  error
}

func newSocket(fd int, remote string) *socket {
	return &socket{f: os.NewFile(uintptr(fd), "l2cap"), remote: remote}
}

func (s *socket) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *socket) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *socket) RemoteAddr() string          { return s.remote }

func (s *socket) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.f.Close() })
	return s.closeErr
}
