package connection

import (
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport/legacysignalr"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport/signalr"
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport/websocket"
)

// Transport type identifiers. This is the closed set of variants a
// preference list may name.
const (
	// TypeWebSocket is the native socket transport.
	TypeWebSocket = "websocket"

	// TypeSignalRWebSockets is the current protocol library, socket variant.
	TypeSignalRWebSockets = "signalr-websockets"

	// TypeSignalRLongPolling is the current protocol library, long-poll variant.
	TypeSignalRLongPolling = "signalr-longpolling"

	// TypeLegacySignalRWebSockets is the legacy protocol library, socket
	// selection variant.
	TypeLegacySignalRWebSockets = "legacy-signalr-websockets"

	// TypeLegacySignalRLongPolling is the legacy protocol library,
	// long-poll selection variant.
	TypeLegacySignalRLongPolling = "legacy-signalr-longpolling"
)

// DefaultTransportTypes is the built-in preference order used when the
// caller supplies none.
var DefaultTransportTypes = []string{
	TypeWebSocket,
	TypeLegacySignalRWebSockets,
}

// registryEntry pairs a transport factory with the default start options
// for that variant. Entries are fixed configuration data, never mutated
// at runtime.
type registryEntry struct {
	defaultOptions map[string]any
	factory        transport.Factory
}

// transportRegistry maps each transport type identifier to its entry.
var transportRegistry = map[string]registryEntry{
	TypeWebSocket: {
		factory: websocket.Factory{},
	},
	TypeSignalRWebSockets: {
		defaultOptions: map[string]any{
			"transport": []string{"webSockets"},
		},
		factory: signalr.WebSockets,
	},
	TypeSignalRLongPolling: {
		defaultOptions: map[string]any{
			"transport": []string{"longPolling"},
		},
		factory: signalr.LongPolling,
	},
	TypeLegacySignalRWebSockets: {
		defaultOptions: map[string]any{
			"waitForPageLoad": false,
			"transport":       []string{"webSockets"},
		},
		factory: legacysignalr.WebSockets,
	},
	TypeLegacySignalRLongPolling: {
		defaultOptions: map[string]any{
			"waitForPageLoad": false,
			"transport":       []string{"longPolling"},
		},
		factory: legacysignalr.LongPolling,
	},
}
