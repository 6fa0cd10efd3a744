package session

import (
	"log/slog"
	"time"

	"github.com/voiceloop/voiceloop/pkg/agent"
	"github.com/voiceloop/voiceloop/pkg/history"
)

// Display windows for soft errors. Hard errors never auto-clear.
const (
	// DefaultErrorTTL is the standard soft-error display window.
	DefaultErrorTTL = 4 * time.Second

	// DefaultStickyErrorTTL is the longer window for device failures and
	// exhausted retries.
	DefaultStickyErrorTTL = 10 * time.Second

	// DefaultSubmitTimeout bounds one agent submission.
	DefaultSubmitTimeout = 30 * time.Second
)

// Config holds orchestrator configuration.
type Config struct {
	// VoiceLoop re-arms capture when playback ends, enabling hands-free
	// multi-turn conversation. Gated on client visibility.
	VoiceLoop bool

	// Context seeds the session context threaded through submissions.
	Context agent.SessionContext

	// History receives submitted messages and replies. Optional.
	History history.Store

	// ErrorTTL is the soft-error display window.
	ErrorTTL time.Duration

	// StickyErrorTTL is the longer-lived error display window.
	StickyErrorTTL time.Duration

	// SubmitTimeout bounds one agent submission.
	SubmitTimeout time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults: voice loop off, no history.
func DefaultConfig() *Config {
	return &Config{
		ErrorTTL:       DefaultErrorTTL,
		StickyErrorTTL: DefaultStickyErrorTTL,
		SubmitTimeout:  DefaultSubmitTimeout,
		Logger:         slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring the orchestrator.
type Option func(*Config)

// WithVoiceLoop enables hands-free re-arm after playback.
func WithVoiceLoop() Option {
	return func(c *Config) { c.VoiceLoop = true }
}

// WithContext seeds the initial session context.
func WithContext(sctx agent.SessionContext) Option {
	return func(c *Config) { c.Context = sctx }
}

// WithHistory attaches a conversation log.
func WithHistory(store history.Store) Option {
	return func(c *Config) { c.History = store }
}

// WithErrorTTL overrides the error display windows.
func WithErrorTTL(soft, sticky time.Duration) Option {
	return func(c *Config) {
		c.ErrorTTL = soft
		c.StickyErrorTTL = sticky
	}
}

// WithSubmitTimeout bounds one agent submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Config) { c.SubmitTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
