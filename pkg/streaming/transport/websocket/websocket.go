// Package websocket implements the native socket streaming transport.
//
// It connects straight to the streaming endpoint over a websocket with no
// intermediate protocol library. This is the preferred transport and the
// first candidate in the default preference order.
package websocket

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
)

// TransportName identifies this transport in logs.
const TransportName = "websocket"

// connectPath is appended to the base URL to form the streaming endpoint.
const connectPath = "/streaming/connection"

// handshakeTimeout bounds the websocket dial.
const handshakeTimeout = 20 * time.Second

// Factory creates native websocket transports.
type Factory struct{}

// Name returns the transport name.
func (Factory) Name() string { return TransportName }

// IsSupported reports whether this environment can use the native
// websocket transport.
func (Factory) IsSupported() bool { return true }

// New constructs a transport targeting baseURL.
func (Factory) New(baseURL string, onFail transport.FailFunc) transport.Transport {
	return &Transport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		onFail:  onFail,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Transport is a native websocket connection to the streaming endpoint.
type Transport struct {
	mu sync.Mutex

	baseURL string
	onFail  transport.FailFunc
	dialer  *websocket.Dialer

	conn  *websocket.Conn
	query transport.Query

	// Lifecycle flags. stopped suppresses the fail callback; failed makes
	// it fire at most once.
	stopped bool
	failed  bool

	// Forwarding callbacks, rebound by the owning connection.
	onReceived       transport.ReceivedFunc
	onStateChanged   transport.StateChangedFunc
	onUnauthorized   func()
	onConnectionSlow func()
}

// Name returns the transport name.
func (t *Transport) Name() string { return TransportName }

// Start dials the streaming endpoint and begins the read loop. The dial
// runs asynchronously; Start never blocks on the network.
func (t *Transport) Start(options map[string]any, onStarted transport.StartedFunc) {
	t.setState(transport.StateStarting)
	go t.connect(onStarted)
}

// connect performs the dial and hands the connection to the read loop.
func (t *Transport) connect(onStarted transport.StartedFunc) {
	connectURL, err := t.connectURL()
	if err != nil {
		t.fail(err)
		return
	}

	t.setState(transport.StateConnecting)

	conn, resp, err := t.dialer.Dial(connectURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			t.notifyUnauthorized()
		}
		t.fail(fmt.Errorf("websocket dial failed: %w", err))
		return
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.setState(transport.StateConnected)
	if onStarted != nil {
		onStarted()
	}

	go t.readLoop(conn)
}

// Stop closes the connection. The fail callback never fires after Stop.
func (t *Transport) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}

	t.setState(transport.StateDisconnected)
}

// SetReceivedCallback replaces the received-payload target.
func (t *Transport) SetReceivedCallback(fn transport.ReceivedFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReceived = fn
}

// SetStateChangedCallback replaces the state-changed target.
func (t *Transport) SetStateChangedCallback(fn transport.StateChangedFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStateChanged = fn
}

// SetUnauthorizedCallback replaces the unauthorized target.
func (t *Transport) SetUnauthorizedCallback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUnauthorized = fn
}

// SetConnectionSlowCallback replaces the slow-connection target.
func (t *Transport) SetConnectionSlowCallback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnectionSlow = fn
}

// UpdateQuery replaces the session context used on the next connect.
func (t *Transport) UpdateQuery(authToken, contextID string, authExpiry int64, forceAuth bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.query = transport.Query{
		AuthToken:  authToken,
		ContextID:  contextID,
		AuthExpiry: authExpiry,
	}
}

// GetQuery returns the current session context.
func (t *Transport) GetQuery() transport.Query {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.query
}

// connectURL converts the http(s) base URL into the ws(s) endpoint with
// the session query appended.
func (t *Transport) connectURL() (string, error) {
	u, err := url.Parse(t.baseURL + connectPath)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", t.baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket url
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	t.mu.Lock()
	u.RawQuery = t.query.Encode().Encode()
	t.mu.Unlock()

	return u.String(), nil
}

// readLoop forwards payloads until the connection drops.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				t.notifyUnauthorized()
			}
			t.setState(transport.StateDisconnected)
			t.fail(fmt.Errorf("websocket read failed: %w", err))
			return
		}

		t.mu.Lock()
		received := t.onReceived
		t.mu.Unlock()
		if received != nil {
			received(data)
		}
	}
}

// setState reports a state change to the bound callback.
func (t *Transport) setState(state transport.State) {
	t.mu.Lock()
	changed := t.onStateChanged
	t.mu.Unlock()
	if changed != nil {
		changed(state)
	}
}

// notifyUnauthorized reports an authorization failure to the bound callback.
func (t *Transport) notifyUnauthorized() {
	t.mu.Lock()
	unauthorized := t.onUnauthorized
	t.mu.Unlock()
	if unauthorized != nil {
		unauthorized()
	}
}

// fail reports an unrecoverable failure at most once, never after Stop.
func (t *Transport) fail(err error) {
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
	_ transport.Factory   = Factory{}
	_ transport.Transport = (*Transport)(nil)
)
