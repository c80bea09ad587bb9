package transport

// State represents the connection state a transport reports through its
// state-changed callback.
type State uint8

const (
	// StateInitializing indicates the transport exists but has not started.
	StateInitializing State = iota

	// StateStarting indicates the start sequence is in progress.
	StateStarting

	// StateConnecting indicates a network connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates the transport is retrying internally.
	StateReconnecting

	// StateDisconnected indicates the connection is down.
	StateDisconnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateStarting:
		return "STARTING"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}
