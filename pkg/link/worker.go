package link

import "sync"

// role identifies the background tasks the link owns. At most one worker
// per role is active at any time.
type role int

const (
	roleListener role = iota
	roleConnector
	roleSender
	roleReceiver
)

func (r role) String() string {
	switch r {
	case roleListener:
		return "listener"
	case roleConnector:
		return "connector"
	case roleSender:
		return "sender"
	case roleReceiver:
		return "receiver"
	default:
		return "invalid"
	}
}

// worker is one running background task. The link keeps workers in a
// registry keyed by role; a superseded worker is cancelled and abandoned,
// never joined from inside a state operation.
type worker struct {
	role role

	// stop closes the worker's blocking resources (socket, listen socket,
	// capture device), which unblocks its loop and makes it exit soon.
	stop func()

	// done is closed when the goroutine exits.
	done chan struct{}

	mu        sync.Mutex
	cancelled bool
}

func newWorker(r role, stop func()) *worker {
	return &worker{role: r, stop: stop, done: make(chan struct{})}
}

// cancel is idempotent and safe to call after the worker already exited
// on its own.
func (w *worker) cancel() {
	w.mu.Lock()
	already := w.cancelled
	w.cancelled = true
	w.mu.Unlock()
	if already {
		return
	}
	if w.stop != nil {
		w.stop()
	}
}

// isCancelled lets a pump distinguish a deliberate teardown from a peer
// failure before reporting a lost connection.
func (w *worker) isCancelled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelled
}
