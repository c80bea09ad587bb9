package connection

import (
	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/streaming/transport"
)

// candidate is one eligible transport variant for a connection lifetime.
type candidate struct {
	transportType  string
	defaultOptions map[string]any
	factory        transport.Factory
}

// buildCandidates filters an ordered preference list against the
// registry, preserving order and dropping unknown identifiers. An empty
// preference list uses the built-in default order. The result is fixed
// for the life of the connection. Unknown identifiers are returned so
// the caller can log them.
func buildCandidates(preference []string) ([]candidate, []string) {
	if len(preference) == 0 {
		preference = DefaultTransportTypes
	}

	candidates := make([]candidate, 0, len(preference))
	var unknown []string
	for _, transportType := range preference {
		entry, ok := transportRegistry[transportType]
		if !ok {
			unknown = append(unknown, transportType)
			continue
		}
		candidates = append(candidates, candidate{
			transportType:  transportType,
			defaultOptions: entry.defaultOptions,
			factory:        entry.factory,
		})
	}
	return candidates, unknown
}
