// Package legacysignalr implements the previous-generation protocol
// library integration. Two selection variants (socket and long-polling)
// share one implementation; the variant only decides which mechanism the
// wrapped protocol connection prefers.
//
// The legacy library managed its own subscription bookkeeping, so this
// transport carries the hooks the rest of the client still calls:
// orphaned-subscription notification and subscribe-network-error
// notification, both of which cycle the wrapped connection. The wrapped
// connection is reachable through InnerTransport, the unwrap hook kept
// for callers that still reach into the nesting.
package legacysignalr

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport/signalr"
)

// Transport names for the two selection variants.
const (
	WebSocketsName  = "legacy-signalr-websockets"
	LongPollingName = "legacy-signalr-longpolling"
)

// subscribeErrorReconnectDelay is how long the legacy library waited
// after a subscribe network error before cycling the connection, giving
// a transient outage a chance to clear first.
const subscribeErrorReconnectDelay = time.Second

// Factory creates legacy transports for one selection variant.
type Factory struct {
	name  string
	inner transport.Factory
}

// WebSockets is the factory for the socket selection variant.
var WebSockets = Factory{name: WebSocketsName, inner: signalr.WebSockets}

// LongPolling is the factory for the long-polling selection variant.
var LongPolling = Factory{name: LongPollingName, inner: signalr.LongPolling}

// Name returns the variant name.
func (f Factory) Name() string { return f.name }

// IsSupported reports whether this environment can use the variant.
func (f Factory) IsSupported() bool { return f.inner.IsSupported() }

// New constructs a legacy transport targeting baseURL.
func (f Factory) New(baseURL string, onFail transport.FailFunc) transport.Transport {
	t := &Transport{
		name:   f.name,
		onFail: onFail,
		clk:    clock.New(),
	}
	// Each reconnect cycle gets a fresh wrapped connection; a connection
	// that has already reported failure is never restarted.
	t.newInner = func() transport.Transport {
		return f.inner.New(baseURL, t.innerFailed)
	}
	t.inner = t.newInner()
	return t
}

// Transport wraps a protocol-library connection and adds the legacy
// subscription bookkeeping hooks.
type Transport struct {
	mu sync.Mutex

	name     string
	onFail   transport.FailFunc
	clk      clock.Clock
	newInner func() transport.Transport
	inner    transport.Transport

	// Last start arguments, replayed on a reconnect cycle.
	startOptions map[string]any
	onStarted    transport.StartedFunc
	started          bool
	stopped          bool
	failed           bool
	reconnectPending bool

	// Stored so a fresh wrapped connection can be rebound.
	onReceived       transport.ReceivedFunc
	onStateChanged   transport.StateChangedFunc
	onUnauthorized   func()
	onConnectionSlow func()
}

// Name returns the variant name.
func (t *Transport) Name() string { return t.name }

// Start starts the wrapped connection.
func (t *Transport) Start(options map[string]any, onStarted transport.StartedFunc) {
	t.mu.Lock()
	t.startOptions = options
	t.onStarted = onStarted
	t.started = true
	inner := t.inner
	t.mu.Unlock()

	inner.Start(options, onStarted)
}

// Stop stops the wrapped connection. The fail callback never fires after
// Stop.
func (t *Transport) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.started = false
	inner := t.inner
	t.mu.Unlock()

	inner.Stop()
}

// SetReceivedCallback replaces the received-payload target.
func (t *Transport) SetReceivedCallback(fn transport.ReceivedFunc) {
	t.mu.Lock()
	t.onReceived = fn
	inner := t.inner
	t.mu.Unlock()
	inner.SetReceivedCallback(fn)
}

// SetStateChangedCallback replaces the state-changed target.
func (t *Transport) SetStateChangedCallback(fn transport.StateChangedFunc) {
	t.mu.Lock()
	t.onStateChanged = fn
	inner := t.inner
	t.mu.Unlock()
	inner.SetStateChangedCallback(fn)
}

// SetUnauthorizedCallback replaces the unauthorized target.
func (t *Transport) SetUnauthorizedCallback(fn func()) {
	t.mu.Lock()
	t.onUnauthorized = fn
	inner := t.inner
	t.mu.Unlock()
	inner.SetUnauthorizedCallback(fn)
}

// SetConnectionSlowCallback replaces the slow-connection target.
func (t *Transport) SetConnectionSlowCallback(fn func()) {
	t.mu.Lock()
	t.onConnectionSlow = fn
	inner := t.inner
	t.mu.Unlock()
	inner.SetConnectionSlowCallback(fn)
}

// UpdateQuery forwards the session context to the wrapped connection.
func (t *Transport) UpdateQuery(authToken, contextID string, authExpiry int64, forceAuth bool) {
	t.mu.Lock()
	inner := t.inner
	t.mu.Unlock()
	inner.UpdateQuery(authToken, contextID, authExpiry, forceAuth)
}

// GetQuery returns the wrapped connection's session context.
func (t *Transport) GetQuery() transport.Query {
	t.mu.Lock()
	inner := t.inner
	t.mu.Unlock()
	return inner.GetQuery()
}

// InnerTransport returns the wrapped protocol connection.
func (t *Transport) InnerTransport() transport.Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner
}

// OnOrphanFound is called when the client finds a subscription the
// service no longer knows about. The legacy library's answer was to
// cycle the connection so the session is rebuilt.
func (t *Transport) OnOrphanFound() {
	t.reconnect()
}

// OnSubscribeNetworkError is called when a subscribe request failed at
// the network level, which the legacy library treated as a sign the
// connection has silently died. The cycle is delayed and coalesced so a
// burst of failing subscribes causes one reconnect.
func (t *Transport) OnSubscribeNetworkError() {
	t.mu.Lock()
	if t.reconnectPending || t.stopped || t.failed || !t.started {
		t.mu.Unlock()
		return
	}
	t.reconnectPending = true
	t.mu.Unlock()

	t.clk.AfterFunc(subscribeErrorReconnectDelay, func() {
		t.mu.Lock()
		t.reconnectPending = false
		t.mu.Unlock()
		t.reconnect()
	})
}

// reconnect replaces the wrapped connection with a fresh one, rebinding
// the stored callbacks and replaying the session context and start
// options.
func (t *Transport) reconnect() {
	t.mu.Lock()
	if t.stopped || t.failed || !t.started {
		t.mu.Unlock()
		return
	}

	old := t.inner
	query := old.GetQuery()

	inner := t.newInner()
	t.inner = inner

	received := t.onReceived
	stateChanged := t.onStateChanged
	unauthorized := t.onUnauthorized
	slow := t.onConnectionSlow
	options := t.startOptions
	onStarted := t.onStarted
	t.mu.Unlock()

	old.Stop()

	if received != nil {
		inner.SetReceivedCallback(received)
	}
	if stateChanged != nil {
		inner.SetStateChangedCallback(stateChanged)
	}
	if unauthorized != nil {
		inner.SetUnauthorizedCallback(unauthorized)
	}
	if slow != nil {
		inner.SetConnectionSlowCallback(slow)
	}
	inner.UpdateQuery(query.AuthToken, query.ContextID, query.AuthExpiry, false)
	inner.Start(options, onStarted)
}

// innerFailed forwards an unrecoverable failure of the current wrapped
// connection, at most once and never after Stop.
func (t *Transport) innerFailed(err error) {
	t.mu.Lock()
	if t.stopped || t.failed {
		t.mu.Unlock()
		return
	}
	t.failed = true
	onFail := t.onFail
	t.mu.Unlock()

	if onFail != nil {
		onFail(err)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Factory              = Factory{}
	_ transport.Transport            = (*Transport)(nil)
	_ transport.Unwrapper            = (*Transport)(nil)
	_ transport.OrphanFinder         = (*Transport)(nil)
	_ transport.NetworkErrorNotifier = (*Transport)(nil)
)
