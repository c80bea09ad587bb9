// Package fetch provides the request/response HTTP client used alongside
// the streaming connection. It handles URL templating, request-id tagging,
// auth and language headers, JSON bodies and error mapping for non-2xx
// responses.
package fetch
