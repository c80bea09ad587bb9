package log

import "time"

// Logger is the interface applications implement to receive client log events.
// Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records a client event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking affects
	// connection fallback latency.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}

// emit builds an event and sends it to l. A nil logger is a no-op, so
// callers never need to guard their log calls.
func emit(l Logger, level Level, area, msg string, details map[string]any) {
	if l == nil {
		return
	}
	l.Log(Event{
		Timestamp: time.Now(),
		Level:     level,
		Area:      area,
		Message:   msg,
		Details:   details,
	})
}

// Debug logs a debug-level event.
func Debug(l Logger, area, msg string, details map[string]any) {
	emit(l, LevelDebug, area, msg, details)
}

// Info logs an info-level event.
func Info(l Logger, area, msg string, details map[string]any) {
	emit(l, LevelInfo, area, msg, details)
}

// Warn logs a warn-level event.
func Warn(l Logger, area, msg string, details map[string]any) {
	emit(l, LevelWarn, area, msg, details)
}

// Error logs an error-level event.
func Error(l Logger, area, msg string, details map[string]any) {
	emit(l, LevelError, area, msg, details)
}
