// Package transport defines the capability contract every streaming
// transport must satisfy, plus the plumbing they share.
//
// The streaming connection never talks to a concrete transport type; it
// drives candidates through the Factory and Transport interfaces defined
// here. A Factory is probed with IsSupported before anything is
// constructed, so unsupported variants cost nothing at runtime.
//
// # Capability Set
//
// Every transport supports start/stop, the four forwarding callbacks
// (received, state-changed, unauthorized, connection-slow) and session
// query propagation via UpdateQuery/GetQuery. Optional capabilities
// (orphan notification, subscribe-network-error notification, inner
// transport unwrapping) are modeled as separate interfaces discovered by
// type assertion.
//
// # Shared Plumbing
//
// Query is the session triple (auth token, context id, auth expiry)
// replayed to a transport whenever one is (re)created. Backoff provides
// the exponential retry delay transports use internally; its retries are
// invisible to the connection, which only learns about a transport once
// it declares itself unrecoverable through the fail callback.
package transport
