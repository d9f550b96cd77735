package link

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"btlink/pkg/transport"
)

// connectWorker performs one outbound connect attempt and reports success
// or failure exactly once.
type connectWorker struct {
	w        *worker
	link     *Link
	addr     string
	isSender bool

	mu        sync.Mutex
	abort     context.CancelFunc
	sock      transport.Socket
	closed    bool
}

func (l *Link) startConnectorLocked(addr string, isSender bool) {
	cw := &connectWorker{link: l, addr: addr, isSender: isSender}
	cw.w = newWorker(roleConnector, cw.close)
	l.workers[roleConnector] = cw.w
	go cw.run()
}

// close aborts a pending dial and closes an already-established socket,
// whichever the attempt got to.
func (cw *connectWorker) close() {
	cw.mu.Lock()
	cw.closed = true
	abort := cw.abort
	sock := cw.sock
	cw.mu.Unlock()
	if abort != nil {
		abort()
	}
	if sock != nil {
		_ = sock.Close()
	}
}

func (cw *connectWorker) run() {
	defer close(cw.w.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cw.mu.Lock()
	if cw.closed {
		cw.mu.Unlock()
		return
	}
	cw.abort = cancel
	cw.mu.Unlock()

	sock, err := cw.link.tr.Dial(ctx, cw.addr)
	if err != nil {
		if cw.w.isCancelled() {
			return
		}
		cw.link.connectionLost("connect failed", err)
		return
	}

	cw.mu.Lock()
	if cw.closed {
		cw.mu.Unlock()
		_ = sock.Close()
		return
	}
	cw.sock = sock
	cw.mu.Unlock()

	cw.link.connectorFinished(cw.w, sock, cw.isSender)
}

// connectorFinished completes a successful connect attempt. The worker's
// own registry entry is cleared first so connectedLocked does not close
// the socket being handed over.
func (l *Link) connectorFinished(w *worker, sock transport.Socket, isSender bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.workers[roleConnector] != w {
		// superseded while connecting; the socket is unwanted
		l.log.Debug("discarding superseded outbound connection", zap.String("peer", sock.RemoteAddr()))
		_ = sock.Close()
		return
	}
	delete(l.workers, roleConnector)
	l.connectedLocked(sock, isSender)
}
