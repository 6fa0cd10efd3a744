package agent

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single submission round trip.
const DefaultTimeout = 30 * time.Second

// Config holds agent client configuration.
type Config struct {
	// URL is the agent chat endpoint.
	URL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds the HTTP round trip.
	Timeout time.Duration

	// HTTPClient overrides the shared default client.
	HTTPClient *http.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: DefaultTimeout,
		Logger:  slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithURL sets the agent chat endpoint.
func WithURL(url string) Option {
	return func(c *Config) { c.URL = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout sets the round-trip timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
