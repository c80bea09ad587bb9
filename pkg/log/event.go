package log

import (
	"time"
)

// Event represents a client log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Level is the event severity.
	Level Level `cbor:"2,keyasint"`

	// Area names the subsystem that produced the event
	// (e.g. "connection", "transport", "fetch").
	Area string `cbor:"3,keyasint"`

	// Message is the human-readable event description.
	Message string `cbor:"4,keyasint"`

	// ConnectionID identifies the streaming connection instance (UUID).
	// Empty for events not tied to a connection.
	ConnectionID string `cbor:"5,keyasint,omitempty"`

	// Details carries event-specific context. For connection events this
	// includes the endpoint, fallback cursor position, session context id
	// and configured transport preference.
	Details map[string]any `cbor:"6,keyasint,omitempty"`
}

// Level is the severity of a log event.
type Level uint8

const (
	// LevelDebug is for verbose diagnostic events.
	LevelDebug Level = 0
	// LevelInfo is for normal lifecycle events.
	LevelInfo Level = 1
	// LevelWarn is for unexpected but handled conditions.
	LevelWarn Level = 2
	// LevelError is for failures.
	LevelError Level = 3
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
