package connection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/log"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
)

// fakeTransport records every call the connection makes, in order.
type fakeTransport struct {
	name   string
	onFail transport.FailFunc

	calls        []string
	startOptions []map[string]any
	startCbs     []transport.StartedFunc
	stops        int
	queries      []transport.Query

	received     transport.ReceivedFunc
	stateChanged transport.StateChangedFunc
	unauthorized func()
	slow         func()
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Start(options map[string]any, onStarted transport.StartedFunc) {
	f.calls = append(f.calls, "start")
	f.startOptions = append(f.startOptions, options)
	f.startCbs = append(f.startCbs, onStarted)
}

func (f *fakeTransport) Stop() {
	f.calls = append(f.calls, "stop")
	f.stops++
}

func (f *fakeTransport) SetReceivedCallback(fn transport.ReceivedFunc) {
	f.calls = append(f.calls, "setReceived")
	f.received = fn
}

func (f *fakeTransport) SetStateChangedCallback(fn transport.StateChangedFunc) {
	f.calls = append(f.calls, "setStateChanged")
	f.stateChanged = fn
}

func (f *fakeTransport) SetUnauthorizedCallback(fn func()) {
	f.calls = append(f.calls, "setUnauthorized")
	f.unauthorized = fn
}

func (f *fakeTransport) SetConnectionSlowCallback(fn func()) {
	f.calls = append(f.calls, "setConnectionSlow")
	f.slow = fn
}

func (f *fakeTransport) UpdateQuery(authToken, contextID string, authExpiry int64, forceAuth bool) {
	f.calls = append(f.calls, "updateQuery")
	f.queries = append(f.queries, transport.Query{
		AuthToken:  authToken,
		ContextID:  contextID,
		AuthExpiry: authExpiry,
	})
}

func (f *fakeTransport) GetQuery() transport.Query {
	if len(f.queries) == 0 {
		return transport.Query{}
	}
	return f.queries[len(f.queries)-1]
}

// fail simulates the transport reporting an unrecoverable failure.
func (f *fakeTransport) fail(err error) { f.onFail(err) }

// fakeFactory counts capability probes and records created transports.
type fakeFactory struct {
	name      string
	supported bool
	probes    int
	created   []*fakeTransport
}

func (f *fakeFactory) Name() string { return f.name }

func (f *fakeFactory) IsSupported() bool {
	f.probes++
	return f.supported
}

func (f *fakeFactory) New(baseURL string, onFail transport.FailFunc) transport.Transport {
	t := &fakeTransport{name: f.name, onFail: onFail}
	f.created = append(f.created, t)
	return t
}

// unwrappable wraps a fakeTransport one level, like the legacy library.
type unwrappable struct {
	*fakeTransport
	inner transport.Transport
}

func (u *unwrappable) InnerTransport() transport.Transport { return u.inner }

// newFakeConnection builds a connection over the given factories, each
// with default options {"tier": <name>}.
func newFakeConnection(t *testing.T, options Options, onFail func(), factories ...*fakeFactory) *Connection {
	t.Helper()
	candidates := make([]candidate, 0, len(factories))
	for _, f := range factories {
		candidates = append(candidates, candidate{
			transportType:  f.name,
			defaultOptions: map[string]any{"tier": f.name},
			factory:        f,
		})
	}
	return newConnection("https://gateway.example.com", options, onFail, candidates, nil)
}

func supportedFactories(names ...string) []*fakeFactory {
	fs := make([]*fakeFactory, 0, len(names))
	for _, n := range names {
		fs = append(fs, &fakeFactory{name: n, supported: true})
	}
	return fs
}

func TestConstructorSelectsFirstViable(t *testing.T) {
	fs := supportedFactories("a", "b")
	c := newFakeConnection(t, Options{}, nil, fs...)

	require.Len(t, fs[0].created, 1, "first viable candidate must be constructed")
	assert.Empty(t, fs[1].created, "later candidates must not be constructed")
	assert.Equal(t, StateCreated, c.State())
}

func TestSkipUnsupportedProbesEachOnce(t *testing.T) {
	unsupported1 := &fakeFactory{name: "u1"}
	unsupported2 := &fakeFactory{name: "u2"}
	viable := &fakeFactory{name: "v", supported: true}

	newFakeConnection(t, Options{}, nil, unsupported1, unsupported2, viable)

	assert.Equal(t, 1, unsupported1.probes, "skipped entry probed exactly once")
	assert.Equal(t, 1, unsupported2.probes, "skipped entry probed exactly once")
	require.Len(t, viable.created, 1)
	assert.Empty(t, unsupported1.created)
	assert.Empty(t, unsupported2.created)
}

func TestExhaustionFiresOnce(t *testing.T) {
	all := []*fakeFactory{
		{name: "u1"},
		{name: "u2"},
		{name: "u3"},
	}

	failures := 0
	c := newFakeConnection(t, Options{}, func() { failures++ }, all...)

	assert.Equal(t, 1, failures, "total-failure callback fires exactly once")
	for _, f := range all {
		assert.Empty(t, f.created, "no transport may be constructed")
	}

	// The connection stays usable as a no-op shell.
	c.Start(nil)
	c.Stop()
	c.SetReceivedCallback(func([]byte) {})
	_, ok := c.GetQuery()
	assert.False(t, ok)
	assert.Nil(t, c.GetTransport())
}

func TestForwardOnlySearchNeverRepeats(t *testing.T) {
	fs := supportedFactories("a", "b", "c")

	failures := 0
	c := newFakeConnection(t, Options{}, func() { failures++ }, fs...)
	c.Start(nil)

	fs[0].created[0].fail(errors.New("a down"))
	require.Len(t, fs[1].created, 1)

	fs[1].created[0].fail(errors.New("b down"))
	require.Len(t, fs[2].created, 1)

	fs[2].created[0].fail(errors.New("c down"))

	// Each factory constructed exactly once, in list order, then exhaustion.
	assert.Len(t, fs[0].created, 1)
	assert.Len(t, fs[1].created, 1)
	assert.Len(t, fs[2].created, 1)
	assert.Equal(t, 1, failures)

	// A stale failure after exhaustion must not refire the callback.
	fs[2].created[0].fail(errors.New("late"))
	assert.Equal(t, 1, failures, "exhaustion fires at most once")
}

func TestCallbackContinuityAcrossFallbacks(t *testing.T) {
	fs := supportedFactories("a", "b", "c")
	c := newFakeConnection(t, Options{}, nil, fs...)

	var gotData []string
	var gotStates []transport.State
	unauthorized := 0
	slow := 0
	started := 0

	c.SetReceivedCallback(func(data []byte) { gotData = append(gotData, string(data)) })
	c.SetStateChangedCallback(func(s transport.State) { gotStates = append(gotStates, s) })
	c.SetUnauthorizedCallback(func() { unauthorized++ })
	c.SetConnectionSlowCallback(func() { slow++ })
	c.Start(func() { started++ })

	// Two consecutive failures, each with a viable candidate remaining.
	fs[0].created[0].fail(nil)
	fs[1].created[0].fail(nil)

	current := fs[2].created[0]
	require.NotNil(t, current.received, "received callback must be re-registered")
	require.NotNil(t, current.stateChanged, "state-changed callback must be re-registered")
	require.NotNil(t, current.unauthorized, "unauthorized callback must be re-registered")
	require.NotNil(t, current.slow, "connection-slow callback must be re-registered")

	// Synthetic events through the current transport reach the original
	// consumer functions unchanged.
	current.received([]byte("payload"))
	current.stateChanged(transport.StateConnected)
	current.unauthorized()
	current.slow()
	require.Len(t, current.startCbs, 1)
	current.startCbs[0]()

	assert.Equal(t, []string{"payload"}, gotData)
	assert.Equal(t, []transport.State{transport.StateConnected}, gotStates)
	assert.Equal(t, 1, unauthorized)
	assert.Equal(t, 1, slow)
	assert.Equal(t, 1, started, "consumer observes its original start signal after fallbacks")
}

func TestDisposalSilencesAllPaths(t *testing.T) {
	fs := supportedFactories("a")
	logger := &captureLogger{}
	c := newFakeConnection(t, Options{Logger: logger}, nil, fs...)

	invoked := 0
	c.SetReceivedCallback(func([]byte) { invoked++ })
	c.SetStateChangedCallback(func(transport.State) { invoked++ })
	c.SetUnauthorizedCallback(func() { invoked++ })
	c.SetConnectionSlowCallback(func() { invoked++ })
	c.Start(func() { invoked++ })

	stale := fs[0].created[0]
	c.Dispose()

	// Synthetic late events through the stale transport: none may reach
	// consumer code, none may panic.
	stale.received([]byte("late"))
	stale.stateChanged(transport.StateDisconnected)
	stale.unauthorized()
	stale.slow()
	stale.startCbs[0]()

	assert.Zero(t, invoked, "no consumer callback may fire after dispose")

	suppressed := 0
	for _, ev := range logger.events {
		if ev.Level == log.LevelWarn && ev.Message == "callback suppressed after dispose" {
			suppressed++
		}
	}
	assert.Equal(t, 5, suppressed, "each suppressed callback kind is logged")
}

func TestSessionReplayAndOptionMergeOnFallback(t *testing.T) {
	fs := supportedFactories("a", "b")
	c := newFakeConnection(t, Options{
		StartOptions: map[string]any{"tier": "override", "timeout": 30},
	}, nil, fs...)

	c.UpdateQuery("T1", "C1", 1000, false)
	c.Start(nil)

	fs[0].created[0].fail(errors.New("down"))

	replacement := fs[1].created[0]

	// The session is replayed before start.
	require.GreaterOrEqual(t, len(replacement.calls), 2)
	var order []string
	for _, call := range replacement.calls {
		if call == "updateQuery" || call == "start" {
			order = append(order, call)
		}
	}
	assert.Equal(t, []string{"updateQuery", "start"}, order)

	require.Len(t, replacement.queries, 1)
	assert.Equal(t, transport.Query{AuthToken: "T1", ContextID: "C1", AuthExpiry: 1000}, replacement.queries[0])

	// Start options are the candidate defaults overridden by the
	// connection's configured options.
	require.Len(t, replacement.startOptions, 1)
	assert.Equal(t, "override", replacement.startOptions[0]["tier"])
	assert.Equal(t, 30, replacement.startOptions[0]["timeout"])
}

func TestStopHaltsAutoRestartButNotSearch(t *testing.T) {
	fs := supportedFactories("a", "b")
	c := newFakeConnection(t, Options{}, nil, fs...)

	c.Start(nil)
	c.Stop()
	assert.Equal(t, 1, fs[0].created[0].stops)

	// A failure arriving after stop still advances the search...
	fs[0].created[0].fail(errors.New("late failure"))
	require.Len(t, fs[1].created, 1, "fallback search continues after stop")

	// ...but the replacement is not auto-started.
	for _, call := range fs[1].created[0].calls {
		assert.NotEqual(t, "start", call, "replacement must not be auto-started after stop")
	}
}

func TestPreferenceFiltering(t *testing.T) {
	candidates, unknown := buildCandidates([]string{
		"unknown-id",
		TypeLegacySignalRLongPolling,
		TypeWebSocket,
	})

	require.Len(t, candidates, 2)
	assert.Equal(t, TypeLegacySignalRLongPolling, candidates[0].transportType)
	assert.Equal(t, TypeWebSocket, candidates[1].transportType)
	assert.Equal(t, []string{"unknown-id"}, unknown)
}

func TestDefaultPreferenceOrder(t *testing.T) {
	candidates, unknown := buildCandidates(nil)

	require.Len(t, candidates, 2)
	assert.Equal(t, TypeWebSocket, candidates[0].transportType)
	assert.Equal(t, TypeLegacySignalRWebSockets, candidates[1].transportType)
	assert.Empty(t, unknown)
}

func TestGetTransportUnwrapsOneLevel(t *testing.T) {
	inner := &fakeTransport{name: "inner"}
	wrapped := &unwrappable{fakeTransport: &fakeTransport{name: "outer"}, inner: inner}

	f := &fakeFactory{name: "legacy", supported: true}
	c := newFakeConnection(t, Options{}, nil, f)

	// Swap in the wrapping transport directly.
	c.mu.Lock()
	c.active = wrapped
	c.mu.Unlock()

	got := c.GetTransport()
	assert.Same(t, inner, got, "GetTransport must unwrap one level")
}

func TestGetTransportPlain(t *testing.T) {
	fs := supportedFactories("a")
	c := newFakeConnection(t, Options{}, nil, fs...)

	got := c.GetTransport()
	assert.Same(t, fs[0].created[0], got)
}

func TestUpdateQueryWithoutTransportIsSafe(t *testing.T) {
	logger := &captureLogger{}
	c := newFakeConnection(t, Options{Logger: logger}, nil, &fakeFactory{name: "u"})

	c.UpdateQuery("T1", "C1", 0, true)

	// Logged even without a transport.
	found := false
	for _, ev := range logger.events {
		if ev.Message == "session query updated" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStartIsNoopWhenDisposed(t *testing.T) {
	fs := supportedFactories("a")
	c := newFakeConnection(t, Options{}, nil, fs...)

	c.Dispose()
	c.Start(nil)

	for _, call := range fs[0].created[0].calls {
		assert.NotEqual(t, "start", call)
	}
	assert.Equal(t, StateDisposed, c.State())
}

func TestOptionalHooksForwardOnlyWhenPresent(t *testing.T) {
	fs := supportedFactories("a")
	c := newFakeConnection(t, Options{}, nil, fs...)

	// The plain fake exposes neither hook; both must be safe no-ops.
	c.OnOrphanFound()
	c.OnSubscribeNetworkError()
}

func TestFallbackLogsContext(t *testing.T) {
	logger := &captureLogger{}
	fs := supportedFactories("a", "b")
	c := newFakeConnection(t, Options{
		TransportTypes: []string{"a", "b"},
		Logger:         logger,
	}, nil, fs...)

	c.UpdateQuery("T1", "C1", 0, false)
	c.Start(nil)
	fs[0].created[0].fail(fmt.Errorf("boom"))

	var failEvent *log.Event
	for i := range logger.events {
		if logger.events[i].Message == "streaming transport failed" {
			failEvent = &logger.events[i]
		}
	}
	require.NotNil(t, failEvent, "transport failure must be logged")
	assert.Equal(t, "https://gateway.example.com", failEvent.Details["url"])
	assert.Equal(t, 0, failEvent.Details["index"])
	assert.Equal(t, "C1", failEvent.Details["contextId"])
	assert.Equal(t, []string{"a", "b"}, failEvent.Details["transports"])
	assert.Equal(t, "boom", failEvent.Details["error"])
	assert.NotEmpty(t, failEvent.ConnectionID)
}

// captureLogger records events for assertions.
type captureLogger struct {
	events []log.Event
}

func (c *captureLogger) Log(event log.Event) {
	c.events = append(c.events, event)
}
