// Package log provides structured client event logging.
//
// This package defines the Logger interface and Event type used by every
// layer of the client (streaming connection, transports, fetch) to report
// transport selection, failure and request events. It is separate from
// operational logging (slog) - a capture file provides a complete
// machine-readable event trace for debugging fallback behavior.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production diagnosis: write to binary capture file
//	opts.Logger, _ = log.NewFileLogger("/var/log/openapi/client.clog")
//
//	// Both: use MultiLogger
//	opts.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Events
//
// Events carry a level, an area naming the subsystem that produced them
// (for example "connection" or "fetch"), a human-readable message and a
// free-form details map. The details for connection events include the
// endpoint, fallback cursor position, session context id and configured
// transport preference.
//
// # Capture Files
//
// FileLogger writes a stream of CBOR-encoded events with integer keys for
// compactness. Reader plays a capture file back, optionally filtered by
// area, level, connection id or time range.
package log
