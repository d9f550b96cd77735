package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
)

func TestIsDisconnect(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{io.ErrClosedPipe, true},
		{net.ErrClosed, true},
		{syscall.ECONNRESET, true},
		{syscall.EPIPE, true},
		{fmt.Errorf("read: %w", ErrDisconnected), true},
		{errors.New("something else"), false},
	}
	for _, c := range cases {
		if got := IsDisconnect(c.err); got != c.want {
			t.Errorf("IsDisconnect(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsClosed(t *testing.T) {
	if !IsClosed(fmt.Errorf("accept: %w", ErrClosed)) {
		t.Error("wrapped ErrClosed not recognized")
	}
	if !IsClosed(net.ErrClosed) {
		t.Error("net.ErrClosed not recognized")
	}
	if IsClosed(io.EOF) {
		t.Error("EOF is not a local close")
	}
}

func TestKindString(t *testing.T) {
	if KindL2CAP.String() != "l2cap" || KindTCP.String() != "tcp" || KindMem.String() != "mem" {
		t.Fatal("kind names wrong")
	}
	if Kind(99).String() != "unknown" {
		t.Fatal("unknown kind name wrong")
	}
}
