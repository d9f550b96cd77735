package link

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"btlink/pkg/transport"
)

// listenWorker accepts inbound connections until cancelled or until an
// accept fails. An accept failure is fatal for this listener instance;
// the state machine starts a fresh one on the next Start.
type listenWorker struct {
	w    *worker
	link *Link

	mu     sync.Mutex
	ln     transport.Listener
	closed bool
}

func (l *Link) startListenerLocked() {
	lw := &listenWorker{link: l}
	lw.w = newWorker(roleListener, lw.close)
	l.workers[roleListener] = lw.w
	go lw.run()
}

// close shuts the listen socket, which unblocks a pending accept with an
// error and makes the loop exit.
func (lw *listenWorker) close() {
	lw.mu.Lock()
	lw.closed = true
	ln := lw.ln
	lw.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

func (lw *listenWorker) run() {
	defer close(lw.w.done)
	log := lw.link.log

	ln, err := lw.link.tr.Listen(context.Background())
	if err != nil {
		log.Error("listen failed", zap.Error(err))
		return
	}

	lw.mu.Lock()
	if lw.closed {
		lw.mu.Unlock()
		_ = ln.Close()
		return
	}
	lw.ln = ln
	lw.mu.Unlock()

	log.Info("listening", zap.String("addr", ln.Addr()))
	for {
		sock, err := ln.Accept()
		if err != nil {
			if !lw.w.isCancelled() && !transport.IsClosed(err) {
				log.Error("accept failed", zap.Error(err))
			}
			return
		}
		lw.link.offerInbound(sock)
	}
}
