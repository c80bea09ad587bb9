// Package connection provides the streaming connection controller.
//
// A Connection owns at most one live streaming transport at a time.
// Candidates are taken from an ordered preference list (or the built-in
// default order), filtered against the transport registry, and probed for
// environment support before anything is constructed. When the active
// transport reports an unrecoverable failure the connection promotes the
// next viable candidate, rebinding every consumer-registered callback and
// replaying the session context so the consumer never needs to
// re-subscribe.
//
// # Fallback
//
// The search through the candidate list is strictly forward: the cursor
// only advances, a failed or unsupported variant is never retried, and
// once the list is exhausted the total-failure callback fires exactly
// once and the connection stays transport-less. Recovery after exhaustion
// is the caller's responsibility, typically by constructing a fresh
// Connection.
//
// # Disposal
//
// Dispose is the hard cancellation boundary: after it returns, no
// consumer-visible callback fires again, regardless of what a stale
// transport does. Suppressed callbacks are logged at warning level.
package connection
