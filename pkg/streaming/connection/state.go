package connection

// LifecycleState represents the connection lifecycle state.
type LifecycleState uint8

const (
	// StateCreated indicates the connection exists but was never started.
	StateCreated LifecycleState = iota

	// StateStarted indicates the consumer has started the connection.
	StateStarted

	// StateStopped indicates the consumer has stopped the connection.
	StateStopped

	// StateDisposed is terminal: no consumer callback fires after it.
	StateDisposed
)

// String returns a human-readable state name.
func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateStarted:
		return "STARTED"
	case StateStopped:
		return "STOPPED"
	case StateDisposed:
		return "DISPOSED"
	default:
		return "UNKNOWN"
	}
}
