package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes client events to an slog.Logger.
// Useful for development when you want to see fallback events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at the corresponding level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("area", event.Area),
	}

	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	for k, v := range event.Details {
		attrs = append(attrs, slog.Any(k, v))
	}

	a.logger.LogAttrs(context.Background(), slogLevel(event.Level), event.Message, attrs...)
}

// slogLevel maps an event level to the slog level.
func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
