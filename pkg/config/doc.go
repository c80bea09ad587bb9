// Package config loads client configuration from YAML. The configuration
// feeds both the HTTP client and the streaming connection: gateway URL,
// language, request timeout, transport preference and per-transport start
// option overrides.
package config
