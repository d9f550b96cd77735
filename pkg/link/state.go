package link

// State is the connection state of the link. Exactly one value holds at a
// time; it is owned by the Link and mutated only under its lock.
type State int

const (
	// StateNone: idle, nothing running.
	StateNone State = iota
	// StateListening: waiting for an inbound connection.
	StateListening
	// StateConnecting: one outbound connect attempt in flight.
	StateConnecting
	// StateConnected: duplex stream established with one peer.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateListening:
		return "listening"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "invalid"
	}
}
