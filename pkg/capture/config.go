package capture

import (
	"fmt"
	"log/slog"
	"time"
)

// Defaults for the capture controller.
const (
	// DefaultSilenceTimeout stops listening after this much silence
	// following the last recognized text.
	DefaultSilenceTimeout = 2500 * time.Millisecond

	// DefaultMaxRetries bounds automatic restarts after network errors.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first backoff delay; each further
	// attempt doubles it (1s, 2s, 4s).
	DefaultRetryBaseDelay = 1 * time.Second
)

// Config holds capture controller configuration.
type Config struct {
	// SilenceTimeout is the silence auto-stop window. Zero disables
	// auto-stop (required when Continuous is set).
	SilenceTimeout time.Duration

	// Continuous restarts the underlying recognition handle whenever the
	// platform ends it on its own, so one listening session survives
	// platform session limits. Mutually exclusive with silence auto-stop:
	// an immediate restart after an auto-stop would loop forever.
	Continuous bool

	// MaxRetries bounds automatic restarts after network errors.
	MaxRetries int

	// RetryBaseDelay is the initial network backoff delay.
	RetryBaseDelay time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the standard configuration: silence auto-stop
// on, continuous mode off.
func DefaultConfig() *Config {
	return &Config{
		SilenceTimeout: DefaultSilenceTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		Logger:         slog.Default(),
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Continuous && c.SilenceTimeout > 0 {
		return fmt.Errorf("capture: continuous mode and silence auto-stop are mutually exclusive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("capture: MaxRetries must be >= 0")
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("capture: RetryBaseDelay must be positive")
	}
	return nil
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring the controller.
type Option func(*Config)

// WithSilenceTimeout sets the silence auto-stop window. Zero disables it.
func WithSilenceTimeout(d time.Duration) Option {
	return func(c *Config) { c.SilenceTimeout = d }
}

// WithContinuous enables continuous auto-restart and disables silence
// auto-stop.
func WithContinuous() Option {
	return func(c *Config) {
		c.Continuous = true
		c.SilenceTimeout = 0
	}
}

// WithRetry sets the network backoff parameters.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryBaseDelay = baseDelay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
