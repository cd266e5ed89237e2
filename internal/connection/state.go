package connection

// State is the connection lifecycle state. Exactly one state holds at any
// time; it is owned exclusively by the Manager.
type State int

const (
	// StateIdle means no connection exists and none is being attempted.
	StateIdle State = iota

	// StateConnecting means the transport dial is in flight.
	StateConnecting

	// StateAuthenticating means the transport is open and the auth
	// handshake is awaiting a verdict.
	StateAuthenticating

	// StateConnected means the handshake succeeded and frames flow.
	StateConnected

	// StateDisconnected means the connection was lost unexpectedly and a
	// reconnect is pending.
	StateDisconnected

	// StateReconnecting means a backoff delay elapsed and a new attempt is
	// starting.
	StateReconnecting

	// StateClosed means the manager gave up: auth was rejected or the
	// retry budget ran out. Only an explicit Connect() leaves this state.
	StateClosed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
