package connection

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/log"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
)

// logArea tags every event this package logs.
const logArea = "connection"

// Options configures a Connection.
type Options struct {
	// TransportTypes is the ordered transport preference. Unknown
	// identifiers are dropped; an empty list uses DefaultTransportTypes.
	TransportTypes []string

	// StartOptions are merged into every transport start call. Keys set
	// here always override a variant's default start options.
	StartOptions map[string]any

	// Logger receives connection events. Nil disables logging.
	Logger log.Logger
}

// Connection owns the active streaming transport and falls back through
// the candidate list when it fails. All consumer-facing operations are
// safe to call whether or not a transport is currently active.
type Connection struct {
	mu sync.Mutex

	id      string
	baseURL string
	options Options
	logger  log.Logger

	// Fallback state. cursor only ever advances; candidates is immutable
	// once built.
	candidates []candidate
	cursor     int
	active     transport.Transport
	exhausted  bool

	state LifecycleState

	// Last session context, replayed onto every replacement transport.
	query    transport.Query
	hasQuery bool

	// Total-failure callback, set once at construction.
	onFail func()

	// Disposal-guarded consumer callbacks, rebound on every fallback.
	onStarted        transport.StartedFunc
	onReceived       transport.ReceivedFunc
	onStateChanged   transport.StateChangedFunc
	onUnauthorized   func()
	onConnectionSlow func()
}

// NewConnection creates a connection to baseURL and immediately probes
// for the first viable transport. If no candidate is viable the
// total-failure callback fires before NewConnection returns and the
// connection stays permanently transport-less; every operation on it is
// still safe.
func NewConnection(baseURL string, options Options, onFail func()) *Connection {
	candidates, unknown := buildCandidates(options.TransportTypes)
	return newConnection(baseURL, options, onFail, candidates, unknown)
}

// newConnection is the constructor behind NewConnection, split out so
// tests can inject candidate lists directly.
func newConnection(baseURL string, options Options, onFail func(), candidates []candidate, unknown []string) *Connection {
	c := &Connection{
		id:         uuid.NewString(),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		options:    options,
		logger:     options.Logger,
		candidates: candidates,
		cursor:     -1,
		state:      StateCreated,
		onFail:     onFail,
	}

	if len(unknown) > 0 {
		c.log(log.LevelWarn, "unknown transport types dropped from preference", map[string]any{
			"unknown": unknown,
		})
	}

	c.mu.Lock()
	active, skipped := c.nextTransportLocked()
	c.active = active
	if active == nil {
		c.exhausted = true
	}
	c.mu.Unlock()

	c.logSkipped(skipped)
	if active == nil {
		c.log(log.LevelError, "no supported streaming transport available", map[string]any{
			"url":        c.baseURL,
			"transports": options.TransportTypes,
		})
		if onFail != nil {
			onFail()
		}
		return c
	}

	c.log(log.LevelInfo, "streaming transport selected", map[string]any{
		"transport": active.Name(),
		"url":       c.baseURL,
	})
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetReceivedCallback wraps fn with the disposal guard and registers it
// on the active transport. No-op without an active transport.
func (c *Connection) SetReceivedCallback(fn transport.ReceivedFunc) {
	c.mu.Lock()
	active := c.active
	if active == nil {
		c.mu.Unlock()
		return
	}
	wrapped := c.guardReceived(fn)
	c.onReceived = wrapped
	c.mu.Unlock()

	active.SetReceivedCallback(wrapped)
}

// SetStateChangedCallback wraps fn with the disposal guard and registers
// it on the active transport. No-op without an active transport.
func (c *Connection) SetStateChangedCallback(fn transport.StateChangedFunc) {
	c.mu.Lock()
	active := c.active
	if active == nil {
		c.mu.Unlock()
		return
	}
	wrapped := c.guardStateChanged(fn)
	c.onStateChanged = wrapped
	c.mu.Unlock()

	active.SetStateChangedCallback(wrapped)
}

// SetUnauthorizedCallback wraps fn with the disposal guard and registers
// it on the active transport. No-op without an active transport.
func (c *Connection) SetUnauthorizedCallback(fn func()) {
	c.mu.Lock()
	active := c.active
	if active == nil {
		c.mu.Unlock()
		return
	}
	wrapped := c.guard("unauthorized", fn)
	c.onUnauthorized = wrapped
	c.mu.Unlock()

	active.SetUnauthorizedCallback(wrapped)
}

// SetConnectionSlowCallback wraps fn with the disposal guard and
// registers it on the active transport. No-op without an active
// transport.
func (c *Connection) SetConnectionSlowCallback(fn func()) {
	c.mu.Lock()
	active := c.active
	if active == nil {
		c.mu.Unlock()
		return
	}
	wrapped := c.guard("connection-slow", fn)
	c.onConnectionSlow = wrapped
	c.mu.Unlock()

	active.SetConnectionSlowCallback(wrapped)
}

// Start marks the connection started and starts the active transport
// with the merge of the candidate's default start options and the
// connection's configured options. onStarted is wrapped with the
// disposal guard and survives fallbacks: the consumer observes the same
// start-completion signal however many fallbacks occur. No-op without an
// active transport.
func (c *Connection) Start(onStarted transport.StartedFunc) {
	c.mu.Lock()
	active := c.active
	if active == nil || c.state == StateDisposed {
		c.mu.Unlock()
		return
	}
	c.state = StateStarted
	wrapped := c.guard("start", onStarted)
	c.onStarted = wrapped
	merged := transport.MergeOptions(c.candidates[c.cursor].defaultOptions, c.options.StartOptions)
	c.mu.Unlock()

	c.log(log.LevelDebug, "starting streaming transport", map[string]any{
		"transport": active.Name(),
	})
	active.Start(merged, wrapped)
}

// Stop marks the connection stopped and stops the active transport.
// No-op without an active transport.
func (c *Connection) Stop() {
	c.mu.Lock()
	active := c.active
	if active == nil || c.state == StateDisposed {
		c.mu.Unlock()
		return
	}
	c.state = StateStopped
	c.mu.Unlock()

	c.log(log.LevelDebug, "stopping streaming transport", map[string]any{
		"transport": active.Name(),
	})
	active.Stop()
}

// Dispose terminates the connection. It does not touch the transport;
// instead every wrapped callback suppresses anything a stale transport
// raises afterwards. Dispose is irreversible.
func (c *Connection) Dispose() {
	c.mu.Lock()
	c.state = StateDisposed
	c.mu.Unlock()

	c.log(log.LevelInfo, "connection disposed", nil)
}

// UpdateQuery stores the session context and forwards it to the active
// transport if one exists. The stored context is replayed onto every
// replacement transport created by a fallback.
func (c *Connection) UpdateQuery(authToken, contextID string, authExpiry int64, forceAuth bool) {
	c.mu.Lock()
	c.query = transport.Query{
		AuthToken:  authToken,
		ContextID:  contextID,
		AuthExpiry: authExpiry,
	}
	c.hasQuery = true
	active := c.active
	c.mu.Unlock()

	c.log(log.LevelDebug, "session query updated", map[string]any{
		"contextId":  contextID,
		"authExpiry": authExpiry,
		"forceAuth":  forceAuth,
	})

	if active != nil {
		active.UpdateQuery(authToken, contextID, authExpiry, forceAuth)
	}
}

// GetQuery returns the active transport's session context. The second
// return is false when no transport is active.
func (c *Connection) GetQuery() (transport.Query, bool) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == nil {
		return transport.Query{}, false
	}
	return active.GetQuery(), true
}

// OnOrphanFound forwards to the active transport if it exposes the
// optional hook.
func (c *Connection) OnOrphanFound() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if finder, ok := active.(transport.OrphanFinder); ok {
		finder.OnOrphanFound()
	}
}

// OnSubscribeNetworkError forwards to the active transport if it exposes
// the optional hook.
func (c *Connection) OnSubscribeNetworkError() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if notifier, ok := active.(transport.NetworkErrorNotifier); ok {
		notifier.OnSubscribeNetworkError()
	}
}

// GetTransport returns the active transport, unwrapping one level of
// legacy nesting if the transport exposes it. Returns nil when no
// transport is active.
func (c *Connection) GetTransport() transport.Transport {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == nil {
		return nil
	}
	if unwrapper, ok := active.(transport.Unwrapper); ok {
		return unwrapper.InnerTransport()
	}
	return active
}

// handleTransportFail is the single failure callback shared by every
// transport this connection creates. It advances the fallback cursor,
// rebinds the consumer callbacks on the replacement and, when the
// connection is started, replays the session context and restarts. After
// Stop the search still runs but the replacement is not auto-started.
func (c *Connection) handleTransportFail(err error) {
	c.mu.Lock()
	failDetails := map[string]any{
		"url":        c.baseURL,
		"index":      c.cursor,
		"contextId":  c.query.ContextID,
		"transports": c.options.TransportTypes,
	}
	if err != nil {
		failDetails["error"] = err.Error()
	}

	next, skipped := c.nextTransportLocked()
	if next == nil {
		alreadyExhausted := c.exhausted
		c.exhausted = true
		c.active = nil
		onFail := c.onFail
		c.mu.Unlock()

		c.log(log.LevelError, "streaming transport failed", failDetails)
		c.logSkipped(skipped)
		c.log(log.LevelWarn, "streaming transports exhausted", map[string]any{
			"url":        c.baseURL,
			"transports": c.options.TransportTypes,
		})
		if !alreadyExhausted && onFail != nil {
			onFail()
		}
		return
	}

	c.active = next
	received := c.onReceived
	stateChanged := c.onStateChanged
	unauthorized := c.onUnauthorized
	slow := c.onConnectionSlow
	onStarted := c.onStarted
	startNeeded := c.state == StateStarted
	hasQuery := c.hasQuery
	query := c.query
	merged := transport.MergeOptions(c.candidates[c.cursor].defaultOptions, c.options.StartOptions)
	c.mu.Unlock()

	c.log(log.LevelError, "streaming transport failed", failDetails)
	c.logSkipped(skipped)
	c.log(log.LevelInfo, "falling back to streaming transport", map[string]any{
		"transport": next.Name(),
	})

	next.SetReceivedCallback(received)
	next.SetStateChangedCallback(stateChanged)
	next.SetUnauthorizedCallback(unauthorized)
	next.SetConnectionSlowCallback(slow)

	if startNeeded {
		if hasQuery {
			next.UpdateQuery(query.AuthToken, query.ContextID, query.AuthExpiry, false)
		}
		next.Start(merged, onStarted)
	}
}

// nextTransportLocked advances the cursor to the next viable candidate
// and constructs it. The cursor never moves backwards; a candidate whose
// capability probe fails is skipped and never revisited. Returns nil
// when the list is exhausted, plus the names of skipped candidates for
// logging. Caller must hold c.mu.
func (c *Connection) nextTransportLocked() (transport.Transport, []string) {
	var skipped []string
	for {
		c.cursor++
		if c.cursor >= len(c.candidates) {
			return nil, skipped
		}
		cand := c.candidates[c.cursor]
		if !cand.factory.IsSupported() {
			skipped = append(skipped, cand.transportType)
			continue
		}
		return cand.factory.New(c.baseURL, c.handleTransportFail), skipped
	}
}

// guard wraps a plain callback with the disposal check.
func (c *Connection) guard(kind string, fn func()) func() {
	if fn == nil {
		return nil
	}
	return func() {
		if c.disposed() {
			c.warnSuppressed(kind)
			return
		}
		fn()
	}
}

// guardReceived wraps a received callback with the disposal check.
func (c *Connection) guardReceived(fn transport.ReceivedFunc) transport.ReceivedFunc {
	if fn == nil {
		return nil
	}
	return func(data []byte) {
		if c.disposed() {
			c.warnSuppressed("received")
			return
		}
		fn(data)
	}
}

// guardStateChanged wraps a state-changed callback with the disposal check.
func (c *Connection) guardStateChanged(fn transport.StateChangedFunc) transport.StateChangedFunc {
	if fn == nil {
		return nil
	}
	return func(state transport.State) {
		if c.disposed() {
			c.warnSuppressed("state-changed")
			return
		}
		fn(state)
	}
}

func (c *Connection) disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateDisposed
}

// warnSuppressed logs a callback dropped by the disposal guard.
func (c *Connection) warnSuppressed(kind string) {
	c.log(log.LevelWarn, "callback suppressed after dispose", map[string]any{
		"callback": kind,
	})
}

// logSkipped logs candidates whose capability probe failed.
func (c *Connection) logSkipped(skipped []string) {
	for _, transportType := range skipped {
		c.log(log.LevelDebug, "transport unsupported in this environment, skipped", map[string]any{
			"transport": transportType,
		})
	}
}

// log emits an event tagged with this connection's id.
func (c *Connection) log(level log.Level, msg string, details map[string]any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		Level:        level,
		Area:         logArea,
		Message:      msg,
		ConnectionID: c.id,
		Details:      details,
	})
}
