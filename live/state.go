package live

// State is the session lifecycle state.
//
// Transitions: Idle -> Connecting -> Active -> {Closing -> Idle,
// Reconnecting -> Connecting}. An endpoint interrupt is a transient
// condition of Active, not a state of its own.
type State int

const (
	// StateIdle means no session is running.
	StateIdle State = iota

	// StateConnecting means the transport is being established.
	StateConnecting

	// StateActive means the session is live and streaming.
	StateActive

	// StateReconnecting means the session is waiting to re-dial with its
	// resumption handle.
	StateReconnecting

	// StateClosing means the session is tearing down.
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
