package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingBaseURL is returned by Validate when no gateway URL is set.
	ErrMissingBaseURL = errors.New("config: base url is required")

	// ErrInvalidBaseURL is returned by Validate for an unparsable gateway URL.
	ErrInvalidBaseURL = errors.New("config: invalid base url")

	// ErrInvalidTimeout is returned by Validate for a negative timeout.
	ErrInvalidTimeout = errors.New("config: request timeout must not be negative")
)

// DefaultRequestTimeout applies when the file sets no timeout.
const DefaultRequestTimeout = 30 * time.Second

// DefaultLanguage applies when the file sets no language.
const DefaultLanguage = "en"

// Config is the full client configuration.
type Config struct {
	// BaseURL is the gateway root, e.g. "https://gateway.example.com/openapi".
	BaseURL string `yaml:"baseUrl"`

	// Language is sent as the Accept-Language header on HTTP requests.
	Language string `yaml:"language"`

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// TransportTypes is the ordered streaming transport preference. Empty
	// uses the built-in default order.
	TransportTypes []string `yaml:"transportTypes"`

	// StartOptions override per-transport default start options.
	StartOptions map[string]any `yaml:"startOptions"`

	// Auth carries the initial session context.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig is the initial session context applied to the streaming
// connection before start.
type AuthConfig struct {
	// Token is the bearer token.
	Token string `yaml:"token"`

	// ContextID identifies the streaming session.
	ContextID string `yaml:"contextId"`

	// Expiry is the token expiry as unix milliseconds.
	Expiry int64 `yaml:"expiry"`
}

// Default returns a configuration with all defaults applied and no
// gateway URL.
func Default() Config {
	return Config{
		Language:       DefaultLanguage,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by the file.
func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Validate checks the configuration for use.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.RequestTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
