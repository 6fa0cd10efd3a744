package playback

import "log/slog"

// Delivery parameters tuned for clarity: slightly slower and lower than
// the platform defaults, full volume.
const (
	DefaultLocale = "en-US"
	DefaultRate   = 0.95
	DefaultPitch  = 0.95
	DefaultVolume = 1.0
)

// Config holds playback controller configuration.
type Config struct {
	// Locale is the BCP-47 tag used for utterances and voice selection.
	Locale string

	// Rate is the speaking rate (1.0 = platform default).
	Rate float64

	// Pitch is the voice pitch (1.0 = platform default).
	Pitch float64

	// Volume is the output volume in [0, 1].
	Volume float64

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the standard delivery parameters.
func DefaultConfig() *Config {
	return &Config{
		Locale: DefaultLocale,
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
		Logger: slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring the controller.
type Option func(*Config)

// WithLocale sets the utterance locale.
func WithLocale(locale string) Option {
	return func(c *Config) { c.Locale = locale }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
