package link

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"btlink/pkg/audio"
	"btlink/pkg/transport"
)

// sendWorker reads fixed-size chunks from the source and writes them to
// the socket. Non-realtime sources (files) are paced by the playback
// duration of each chunk so the transport is not overrun.
type sendWorker struct {
	w    *worker
	link *Link
	sock transport.Socket
	src  audio.Source
}

func (l *Link) startSenderLocked(sock transport.Socket) {
	if l.cfg.NewSource == nil {
		l.log.Error("no source configured; sender pump not started")
		return
	}
	src, err := l.cfg.NewSource()
	if err != nil {
		l.log.Error("open source failed; sender pump not started", zap.Error(err))
		return
	}
	sw := &sendWorker{link: l, sock: sock, src: src}
	sw.w = newWorker(roleSender, sw.close)
	l.workers[roleSender] = sw.w
	go sw.run()
}

// close unblocks an in-flight write by closing the socket and, for live
// capture, stops the device to unblock a pending read.
func (sw *sendWorker) close() {
	_ = sw.sock.Close()
	if dev, ok := sw.src.(audio.CaptureDevice); ok {
		_ = dev.Stop()
	}
}

func (sw *sendWorker) run() {
	defer close(sw.w.done)
	defer sw.src.Close()

	log := sw.link.log

	if dev, ok := sw.src.(audio.CaptureDevice); ok {
		if err := dev.Start(); err != nil {
			log.Error("start capture failed; sender pump exiting", zap.Error(err))
			return
		}
	}

	realtime := sw.src.Realtime()
	buf := make([]byte, sw.link.cfg.ChunkSize)
	for {
		n, err := sw.src.ReadChunk(buf)
		if n > 0 {
			if werr := writeFull(sw.sock, buf[:n]); werr != nil {
				if !sw.w.isCancelled() {
					cause := "send failed"
					if transport.IsDisconnect(werr) {
						cause = "peer disconnected"
					}
					sw.link.connectionLost(cause, werr)
				}
				return
			}
			if !realtime {
				time.Sleep(sw.link.cfg.Format.ChunkDuration(n))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if realtime {
					// live sources idle through gaps; keep polling
					continue
				}
				log.Info("source exhausted; sender pump complete")
				return
			}
			if !sw.w.isCancelled() {
				log.Error("source read failed; sender pump exiting", zap.Error(err))
			}
			return
		}
	}
}

// writeFull writes all of p, looping over short writes.
func writeFull(sock transport.Socket, p []byte) error {
	for len(p) > 0 {
		n, err := sock.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
