package link

import (
	"go.uber.org/zap"

	"btlink/pkg/audio"
	"btlink/pkg/transport"
)

// recvWorker reads chunks from the socket and fans each one out to the
// enabled sinks in order: playback, loopback, file. A playback or
// loopback failure is logged and the remaining sinks still get the chunk;
// a file sink failure counts as a lost connection.
type recvWorker struct {
	w    *worker
	link *Link
	sock transport.Socket

	playback audio.Sink
	file     audio.Sink
	loopback bool
}

func (l *Link) startReceiverLocked(sock transport.Socket, txActive bool) {
	rw := &recvWorker{link: l, sock: sock}

	if l.cfg.NewPlayback != nil {
		sink, err := l.cfg.NewPlayback()
		if err != nil {
			l.log.Error("open playback failed; sink disabled", zap.Error(err))
		} else {
			rw.playback = sink
		}
	}
	if l.cfg.NewFileSink != nil {
		sink, err := l.cfg.NewFileSink()
		if err != nil {
			l.log.Error("open file sink failed; sink disabled", zap.Error(err))
		} else {
			rw.file = sink
		}
	}
	// loopback would collide with our own outbound stream
	rw.loopback = l.cfg.Loopback && !txActive

	rw.w = newWorker(roleReceiver, rw.close)
	l.workers[roleReceiver] = rw.w
	go rw.run()
}

// close unblocks a pending read by closing the socket and stops the
// playback device; sinks are released by the loop's deferred cleanup.
func (rw *recvWorker) close() {
	_ = rw.sock.Close()
	if dev, ok := rw.playback.(audio.PlaybackDevice); ok {
		_ = dev.Stop()
	}
}

func (rw *recvWorker) run() {
	defer close(rw.w.done)
	defer rw.releaseSinks()

	log := rw.link.log

	if dev, ok := rw.playback.(audio.PlaybackDevice); ok {
		if err := dev.Start(); err != nil {
			log.Error("start playback failed; sink disabled", zap.Error(err))
			rw.playback = nil
		}
	}

	buf := make([]byte, rw.link.cfg.ChunkSize)
	for {
		n, err := rw.sock.Read(buf)
		if n > 0 {
			// a read may return the stream's final bytes together with
			// the error; deliver them before acting on it
			if !rw.deliver(buf[:n]) {
				return
			}
		}
		if n <= 0 || err != nil {
			// zero-length and error reads both mean the peer is gone
			if !rw.w.isCancelled() {
				cause := "receive failed"
				if n <= 0 || transport.IsDisconnect(err) {
					cause = "peer disconnected"
				}
				rw.link.connectionLost(cause, err)
			}
			return
		}
	}
}

// deliver fans one chunk out to the enabled sinks. Returns false when the
// pump must exit because the file sink failed.
func (rw *recvWorker) deliver(chunk []byte) bool {
	log := rw.link.log
	if rw.playback != nil {
		if err := rw.playback.WriteChunk(chunk); err != nil {
			log.Warn("playback write failed; chunk skipped", zap.Error(err))
		}
	}
	if rw.loopback {
		if err := writeFull(rw.sock, chunk); err != nil {
			log.Warn("loopback write failed; chunk skipped", zap.Error(err))
		}
	}
	if rw.file != nil {
		if err := rw.file.WriteChunk(chunk); err != nil {
			if !rw.w.isCancelled() {
				rw.link.connectionLost("file sink write failed", err)
			}
			return false
		}
	}
	return true
}

func (rw *recvWorker) releaseSinks() {
	if rw.playback != nil {
		_ = rw.playback.Close()
	}
	if rw.file != nil {
		_ = rw.file.Close()
	}
}
