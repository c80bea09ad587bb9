package transport

import (
	"net/url"
	"strconv"
)

// Query is the session context a transport sends to the service: the
// auth token, the streaming context id and the token expiry. The owning
// connection replays the last Query onto every transport it creates.
type Query struct {
	// AuthToken is the bearer token, including any scheme prefix.
	AuthToken string

	// ContextID identifies the streaming session on the service.
	ContextID string

	// AuthExpiry is the token expiry as unix milliseconds. Zero means
	// not provided.
	AuthExpiry int64
}

// Encode returns the query as URL values, the form every transport
// appends to its connect URL.
func (q Query) Encode() url.Values {
	v := url.Values{}
	v.Set("authorization", q.AuthToken)
	v.Set("context", q.ContextID)
	if q.AuthExpiry != 0 {
		v.Set("authexpiry", strconv.FormatInt(q.AuthExpiry, 10))
	}
	return v
}

// String returns the encoded query string.
func (q Query) String() string {
	return q.Encode().Encode()
}
