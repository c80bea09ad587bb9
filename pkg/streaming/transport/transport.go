package transport

// FailFunc is invoked by a transport when it determines its connection is
// unrecoverable. A transport calls it at most once and never after Stop
// has been called. The error payload is optional and may be nil.
type FailFunc func(err error)

// ReceivedFunc receives a raw streaming payload from the transport.
type ReceivedFunc func(data []byte)

// StateChangedFunc receives transport connection state changes.
type StateChangedFunc func(state State)

// StartedFunc signals that a transport's start sequence completed.
type StartedFunc func()

// Transport is the capability set every streaming transport variant must
// satisfy. The streaming connection owns at most one Transport at a time
// and rebinds all four forwarding callbacks after every (re)creation.
type Transport interface {
	// Name returns the human-readable transport name, used for logging only.
	Name() string

	// Start begins the transport's connect sequence. options is the merge
	// of the variant's default start options with connection-level
	// overrides. onStarted is invoked once the transport is up; it may be
	// nil.
	Start(options map[string]any, onStarted StartedFunc)

	// Stop shuts the transport down. After Stop returns the transport must
	// not invoke its fail callback.
	Stop()

	// SetReceivedCallback replaces the target for received payloads.
	SetReceivedCallback(fn ReceivedFunc)

	// SetStateChangedCallback replaces the target for state changes.
	SetStateChangedCallback(fn StateChangedFunc)

	// SetUnauthorizedCallback replaces the target for authorization
	// failures reported by the service.
	SetUnauthorizedCallback(fn func())

	// SetConnectionSlowCallback replaces the target for slow-connection
	// notifications.
	SetConnectionSlowCallback(fn func())

	// UpdateQuery replaces the session context the transport sends to the
	// service. forceAuth requests immediate re-authorization on transports
	// that distinguish it.
	UpdateQuery(authToken, contextID string, authExpiry int64, forceAuth bool)

	// GetQuery returns the transport's current session context.
	GetQuery() Query
}

// Factory creates instances of one transport variant. IsSupported is a
// stateless capability probe evaluated before construction; a variant
// whose probe fails is skipped without ever being instantiated.
type Factory interface {
	// Name returns the variant name, used for logging only.
	Name() string

	// IsSupported reports whether the runtime environment can use this
	// variant at all.
	IsSupported() bool

	// New constructs a transport targeting baseURL. onFail is the single
	// failure callback shared by the owning connection.
	New(baseURL string, onFail FailFunc) Transport
}

// OrphanFinder is an optional capability: transports that track
// subscriptions can be told an orphaned subscription was found.
type OrphanFinder interface {
	OnOrphanFound()
}

// NetworkErrorNotifier is an optional capability: transports that batch
// subscribe requests can be told a subscribe call hit a network error.
type NetworkErrorNotifier interface {
	OnSubscribeNetworkError()
}

// Unwrapper is an optional capability kept for the legacy protocol
// library integration, which nests the real transport one level down.
type Unwrapper interface {
	InnerTransport() Transport
}
