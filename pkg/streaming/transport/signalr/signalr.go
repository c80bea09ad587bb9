// Package signalr implements the current-generation hybrid protocol
// transports: a socket variant and a long-polling variant sharing one
// implementation.
//
// Both variants negotiate a connection token over HTTP first, then either
// hold a websocket open or drive a long-poll loop. Transient errors are
// retried internally with exponential backoff; only after the retry
// budget is spent does the transport declare itself unrecoverable through
// the fail callback.
package signalr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
)

// Transport names for the two variants.
const (
	WebSocketsName  = "signalr-websockets"
	LongPollingName = "signalr-longpolling"
)

// Endpoint paths relative to the base URL.
const (
	negotiatePath = "/streaming/negotiate"
	connectPath   = "/streaming/connect"
	pollPath      = "/streaming/poll"
)

// maxRetries is the internal retry budget. Once spent, the transport
// reports failure and the owning connection falls back.
const maxRetries = 3

// requestTimeout bounds negotiate and poll requests.
const requestTimeout = 125 * time.Second

// Mode selects which wire mechanism the shared implementation uses.
type Mode uint8

const (
	// ModeWebSockets holds a websocket open after negotiation.
	ModeWebSockets Mode = iota

	// ModeLongPolling drives a long-poll request loop after negotiation.
	ModeLongPolling
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeWebSockets:
		return "webSockets"
	case ModeLongPolling:
		return "longPolling"
	default:
		return "unknown"
	}
}

// Factory creates transports for one of the two variants.
type Factory struct {
	mode Mode
}

// WebSockets is the factory for the socket variant.
var WebSockets = Factory{mode: ModeWebSockets}

// LongPolling is the factory for the long-polling variant.
var LongPolling = Factory{mode: ModeLongPolling}

// Name returns the variant name.
func (f Factory) Name() string {
	if f.mode == ModeLongPolling {
		return LongPollingName
	}
	return WebSocketsName
}

// IsSupported reports whether this environment can use the variant.
func (f Factory) IsSupported() bool { return true }

// New constructs a transport targeting baseURL.
func (f Factory) New(baseURL string, onFail transport.FailFunc) transport.Transport {
	return &Transport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		mode:    f.mode,
		onFail:  onFail,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		dialer:  websocket.DefaultDialer,
		clk:     clock.New(),
		backoff: transport.NewBackoff(),
	}
}

// negotiateResponse is the JSON body of the negotiate endpoint.
type negotiateResponse struct {
	ConnectionToken string `json:"connectionToken"`
	ConnectionID    string `json:"connectionId"`
}

// Transport is the shared implementation behind both variants.
type Transport struct {
	mu sync.Mutex

	baseURL    string
	mode       Mode
	onFail     transport.FailFunc
	httpClient *http.Client
	dialer     *websocket.Dialer
	clk        clock.Clock
	backoff    *transport.Backoff

	query           transport.Query
	connectionToken string
	conn            *websocket.Conn

	stopped bool
	failed  bool

	onReceived       transport.ReceivedFunc
	onStateChanged   transport.StateChangedFunc
	onUnauthorized   func()
	onConnectionSlow func()
}

// Name returns the variant name.
func (t *Transport) Name() string {
	if t.mode == ModeLongPolling {
		return LongPollingName
	}
	return WebSocketsName
}

// Start negotiates and begins the receive loop for the configured mode.
// The whole sequence runs asynchronously; Start never blocks on the
// network.
func (t *Transport) Start(options map[string]any, onStarted transport.StartedFunc) {
	t.setState(transport.StateStarting)
	go t.run(onStarted)
}

// Stop shuts the transport down. The fail callback never fires after Stop.
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

// UpdateQuery replaces the session context used on subsequent requests.
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

// run negotiates, signals start completion and enters the receive loop.
func (t *Transport) run(onStarted transport.StartedFunc) {
	t.setState(transport.StateConnecting)

	if err := t.negotiate(); err != nil {
		t.fail(err)
		return
	}
	if t.isStopped() {
		return
	}

	t.setState(transport.StateConnected)
	if onStarted != nil {
		onStarted()
	}

	switch t.mode {
	case ModeLongPolling:
		t.pollLoop()
	default:
		t.socketLoop()
	}
}

// negotiate obtains the connection token.
func (t *Transport) negotiate() error {
	u, err := t.endpoint(negotiatePath, nil)
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("negotiate failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		t.notifyUnauthorized()
		return fmt.Errorf("negotiate rejected: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("negotiate rejected: %s", resp.Status)
	}

	var neg negotiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&neg); err != nil {
		return fmt.Errorf("negotiate response invalid: %w", err)
	}
	if neg.ConnectionToken == "" {
		return fmt.Errorf("negotiate response missing connection token")
	}

	t.mu.Lock()
	t.connectionToken = neg.ConnectionToken
	t.mu.Unlock()
	return nil
}

// socketLoop holds a websocket open, reconnecting internally on error.
func (t *Transport) socketLoop() {
	for {
		if t.isStopped() {
			return
		}

		err := t.runSocket()
		if err == nil {
			// runSocket returns nil only when stopped.
			return
		}

		if !t.retryWait(err) {
			return
		}
	}
}

// runSocket dials the websocket and forwards payloads until it drops.
// Returns nil when the transport was stopped.
func (t *Transport) runSocket() error {
	wsURL, err := t.endpoint(connectPath, map[string]string{
		"transport":       ModeWebSockets.String(),
		"connectionToken": t.token(),
	})
	if err != nil {
		return err
	}
	wsURL = toWebSocketScheme(wsURL)

	conn, resp, err := t.dialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			t.notifyUnauthorized()
		}
		return fmt.Errorf("socket connect failed: %w", err)
	}
	defer conn.Close()

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.conn = conn
	t.mu.Unlock()

	t.backoff.Reset()

	for {
		if t.isStopped() {
			return nil
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if t.isStopped() {
				return nil
			}
			return fmt.Errorf("socket read failed: %w", err)
		}
		t.forward(data)
	}
}

// pollLoop drives long-poll requests, reconnecting internally on error.
func (t *Transport) pollLoop() {
	for {
		if t.isStopped() {
			return
		}

		data, err := t.pollOnce()
		if err != nil {
			if t.isStopped() {
				return
			}
			if !t.retryWait(err) {
				return
			}
			continue
		}

		t.backoff.Reset()
		if len(data) > 0 {
			t.forward(data)
		}
	}
}

// pollOnce issues one long-poll request and returns its payload.
func (t *Transport) pollOnce() ([]byte, error) {
	u, err := t.endpoint(pollPath, map[string]string{
		"transport":       ModeLongPolling.String(),
		"connectionToken": t.token(),
	})
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Get(u)
	if err != nil {
		return nil, fmt.Errorf("poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		t.notifyUnauthorized()
		return nil, fmt.Errorf("poll rejected: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("poll rejected: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// retryWait reports a slow connection, waits out the backoff and decides
// whether another internal attempt is allowed. Returns false once the
// retry budget is spent, after reporting the terminal failure.
func (t *Transport) retryWait(cause error) bool {
	if t.backoff.Attempts() >= maxRetries {
		t.setState(transport.StateDisconnected)
		t.fail(fmt.Errorf("%s gave up after %d retries: %w", t.Name(), maxRetries, cause))
		return false
	}

	t.notifyConnectionSlow()
	t.setState(transport.StateReconnecting)

	timer := t.clk.Timer(t.backoff.Next())
	defer timer.Stop()
	<-timer.C

	return !t.isStopped()
}

// endpoint builds an absolute URL with the session query plus extra
// parameters appended.
func (t *Transport) endpoint(path string, extra map[string]string) (string, error) {
	u, err := url.Parse(t.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", t.baseURL, err)
	}

	t.mu.Lock()
	values := t.query.Encode()
	t.mu.Unlock()

	for k, v := range extra {
		values.Set(k, v)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// token returns the negotiated connection token.
func (t *Transport) token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectionToken
}

func (t *Transport) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// forward delivers a payload to the bound received callback.
func (t *Transport) forward(data []byte) {
	t.mu.Lock()
	received := t.onReceived
	t.mu.Unlock()
	if received != nil {
		received(data)
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

// notifyConnectionSlow reports a slow connection to the bound callback.
func (t *Transport) notifyConnectionSlow() {
	t.mu.Lock()
	slow := t.onConnectionSlow
	t.mu.Unlock()
	if slow != nil {
		slow()
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

// toWebSocketScheme rewrites an http(s) URL to ws(s).
func toWebSocketScheme(u string) string {
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	if strings.HasPrefix(u, "http://") {
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Factory   = Factory{}
	_ transport.Transport = (*Transport)(nil)
)
