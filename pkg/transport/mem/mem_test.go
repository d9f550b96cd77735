package mem

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"btlink/pkg/transport"
)

func TestDialAcceptRoundTrip(t *testing.T) {
	n := NewNetwork()
	srv := n.Transport("server")
	cli := n.Transport("client")

	l, err := srv.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	accepted := make(chan transport.Socket, 1)
	go func() {
		s, err := l.Accept()
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		accepted <- s
	}()

	out, err := cli.Dial(context.Background(), "server")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer out.Close()

	in := <-accepted
	defer in.Close()

	payload := []byte("pcm pcm pcm")
	go func() {
		if _, err := out.Write(payload); err != nil {
			t.Errorf("write: %v", err)
		}
	}()
	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(in, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(buf, payload) {
		t.Fatalf("got %q, want %q", buf, payload)
	}
}

func TestDialUnknownName(t *testing.T) {
	n := NewNetwork()
	_, err := n.Transport("x").Dial(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected error dialing unknown name")
	}
}

func TestCloseUnblocksAccept(t *testing.T) {
	n := NewNetwork()
	l, err := n.Transport("server").Listen(context.Background())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-errCh:
		if !transport.IsClosed(err) {
			t.Fatalf("accept returned %v, want closed error", err)
		}
	case <-time.After(time.Second):
		t.Fatal("accept did not unblock after close")
	}
	// double close is a no-op
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSocketDoubleClose(t *testing.T) {
	n := NewNetwork()
	l, _ := n.Transport("server").Listen(context.Background())
	defer l.Close()
	go func() {
		s, err := l.Accept()
		if err == nil {
			_ = s.Close()
		}
	}()
	s, err := n.Transport("c").Dial(context.Background(), "server")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}

func TestReadAfterPeerClose(t *testing.T) {
	n := NewNetwork()
	l, _ := n.Transport("server").Listen(context.Background())
	defer l.Close()

	go func() {
		s, err := l.Accept()
		if err != nil {
			return
		}
		_ = s.Close()
	}()

	s, err := n.Transport("c").Dial(context.Background(), "server")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	buf := make([]byte, 16)
	_, err = s.Read(buf)
	if !transport.IsDisconnect(err) {
		t.Fatalf("read returned %v, want disconnect error", err)
	}
}
