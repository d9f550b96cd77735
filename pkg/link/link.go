// Package link implements the connection state machine and the worker
// tasks (listener, connector, sender and receiver pumps) that move audio
// bytes between a transport socket and the local endpoints.
package link

import (
	"sync"

	"go.uber.org/zap"

	"btlink/pkg/audio"
	"btlink/pkg/transport"
)

// Config wires the link's format and local endpoints. Endpoint factories
// are invoked per connection so files are reopened and devices reacquired
// for every session.
type Config struct {
	// Format is the PCM format of the stream.
	Format audio.Format

	// ChunkSize is the buffer size in bytes moved per pump iteration.
	ChunkSize int

	// NewSource returns the byte source for the sender pump.
	NewSource func() (audio.Source, error)

	// NewPlayback returns the playback sink; nil disables it.
	NewPlayback func() (audio.Sink, error)

	// NewFileSink returns the file sink; nil disables it. A file sink
	// write failure is treated as a lost connection.
	NewFileSink func() (audio.Sink, error)

	// Loopback echoes received chunks back to the peer. Only honored on
	// the side that is not itself sending.
	Loopback bool
}

// Link owns the connection state and the active workers. All operations
// serialize on one lock; the blocking accept/connect/read/write calls run
// outside it, inside each worker's own goroutine.
type Link struct {
	tr  transport.Transport
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	closed  bool
	state   State
	workers map[role]*worker

	onState   func(State)
	notifyQ   []State
	notifying bool
}

// New creates an idle link on the given transport.
func New(tr transport.Transport, cfg Config, log *zap.Logger) *Link {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 768
	}
	return &Link{
		tr:      tr,
		cfg:     cfg,
		log:     log,
		state:   StateNone,
		workers: make(map[role]*worker),
	}
}

// State returns the current connection state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// OnStateChange registers fn to be called after every state transition.
// Transitions are delivered one at a time, in order, off the link's lock;
// fn may call back into the link.
func (l *Link) OnStateChange(fn func(State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onState = fn
}

// Start puts the link into listening (server) mode, cancelling any
// connect attempt or running pumps.
func (l *Link) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startLocked()
}

func (l *Link) startLocked() {
	if l.closed {
		return
	}
	l.log.Debug("start")
	l.stopWorkerLocked(roleConnector)
	l.stopWorkerLocked(roleSender)
	l.stopWorkerLocked(roleReceiver)
	l.setStateLocked(StateListening)
	if l.workers[roleListener] == nil {
		l.startListenerLocked()
	}
}

// Connect starts a single outbound connect attempt to addr. isSender
// selects whether this side will pump audio to the peer once connected.
func (l *Link) Connect(addr string, isSender bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.log.Info("connecting", zap.String("peer", addr), zap.Bool("sender", isSender))
	if l.state == StateConnecting {
		l.stopWorkerLocked(roleConnector)
	}
	l.stopWorkerLocked(roleSender)
	l.stopWorkerLocked(roleReceiver)
	l.startConnectorLocked(addr, isSender)
	l.setStateLocked(StateConnecting)
}

// Stop cancels every worker and returns the link to idle.
func (l *Link) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Debug("stop")
	l.stopWorkerLocked(roleConnector)
	l.stopWorkerLocked(roleSender)
	l.stopWorkerLocked(roleReceiver)
	l.stopWorkerLocked(roleListener)
	l.setStateLocked(StateNone)
}

// Disconnect drops the active connection, if any, and resumes listening.
func (l *Link) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateConnected {
		return
	}
	l.log.Info("disconnect requested")
	l.startLocked()
}

// Close stops the link permanently. Subsequent operations are no-ops.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.log.Debug("close")
	l.stopWorkerLocked(roleConnector)
	l.stopWorkerLocked(roleSender)
	l.stopWorkerLocked(roleReceiver)
	l.stopWorkerLocked(roleListener)
	l.setStateLocked(StateNone)
	l.closed = true
	return nil
}

// connected hands an established socket to the state machine. Exactly one
// peer is allowed, so the listener and any connector are cancelled before
// the pumps start.
func (l *Link) connectedLocked(sock transport.Socket, isSender bool) {
	if l.closed {
		_ = sock.Close()
		return
	}
	l.log.Info("connected", zap.String("peer", sock.RemoteAddr()), zap.Bool("sender", isSender))
	l.stopWorkerLocked(roleConnector)
	l.stopWorkerLocked(roleSender)
	l.stopWorkerLocked(roleReceiver)
	l.stopWorkerLocked(roleListener)

	if isSender {
		l.startSenderLocked(sock)
	}
	l.startReceiverLocked(sock, isSender)
	l.setStateLocked(StateConnected)
}

// offerInbound is called by the listener worker with a freshly accepted
// socket. Unwanted sockets (idle or already connected) are closed.
func (l *Link) offerInbound(sock transport.Socket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateListening, StateConnecting:
		l.connectedLocked(sock, false)
	default:
		l.log.Debug("closing unwanted inbound connection", zap.String("peer", sock.RemoteAddr()))
		_ = sock.Close()
	}
}

// connectionLost is the single recovery path for every transport failure
// during or after connection establishment: return to listening mode.
// No backoff, no retry cap.
func (l *Link) connectionLost(cause string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.state == StateNone {
		return
	}
	l.log.Warn("connection failed or lost; returning to listening",
		zap.String("cause", cause), zap.Error(err))
	l.startLocked()
}

// stopWorkerLocked cancels and abandons the worker of role r, if any.
// The goroutine is not joined; its cancelled resources unblock it and it
// exits on its own.
func (l *Link) stopWorkerLocked(r role) {
	w := l.workers[r]
	if w == nil {
		return
	}
	delete(l.workers, r)
	w.cancel()
}

func (l *Link) setStateLocked(st State) {
	if st == l.state {
		return
	}
	l.log.Debug("state change", zap.Stringer("from", l.state), zap.Stringer("to", st))
	l.state = st
	if l.onState == nil {
		return
	}
	l.notifyQ = append(l.notifyQ, st)
	if !l.notifying {
		l.notifying = true
		go l.drainNotifications()
	}
}

// drainNotifications delivers queued transitions one at a time so the
// callback never runs concurrently with itself and never sees them out of
// order. The callback runs without the link lock held.
func (l *Link) drainNotifications() {
	for {
		l.mu.Lock()
		if len(l.notifyQ) == 0 {
			l.notifying = false
			l.mu.Unlock()
			return
		}
		st := l.notifyQ[0]
		l.notifyQ = l.notifyQ[1:]
		fn := l.onState
		l.mu.Unlock()
		if fn != nil {
			fn(st)
		}
	}
}

// activeRoles reports which worker roles are currently registered.
func (l *Link) activeRoles() map[role]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[role]bool, len(l.workers))
	for r := range l.workers {
		out[r] = true
	}
	return out
}
