// Package playback speaks agent replies through a speech-synthesis
// capability, keeping a single active utterance and reporting playback
// lifecycle to its owner.
//
// Playback failures are degraded-but-recoverable: the reply text is
// still visible in the chat, so errors are logged and reported as a
// finished playback, never surfaced to the user.
package playback

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/voiceloop/voiceloop/pkg/synthesis"
)

// ErrMuted is returned by Speak while output is muted.
var ErrMuted = errors.New("playback: output muted")

// Controller owns utterance construction and playback lifecycle.
type Controller struct {
	synth  synthesis.Synthesizer
	cfg    *Config
	logger *slog.Logger

	mu       sync.Mutex
	muted    bool
	speaking bool

	onStarted func()
	onEnded   func()
	onFailed  func()
}

// New creates a playback controller over a synthesis capability.
// A nil synthesizer is allowed: Speak then fails with
// synthesis.ErrUnavailable and everything else is a no-op.
func New(synth synthesis.Synthesizer, opts ...Option) *Controller {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	c := &Controller{
		synth:  synth,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "playback"),
	}

	if synth != nil {
		synth.OnStart(c.handleStart)
		synth.OnEnd(c.handleEnd)
		synth.OnError(c.handleError)
	}
	return c
}

// OnStarted sets the callback for playback start.
func (c *Controller) OnStarted(fn func()) {
	c.mu.Lock()
	c.onStarted = fn
	c.mu.Unlock()
}

// OnEnded sets the callback for playback end. This is the voice-loop
// re-arm point; it does not fire for swallowed playback errors.
func (c *Controller) OnEnded(fn func()) {
	c.mu.Lock()
	c.onEnded = fn
	c.mu.Unlock()
}

// OnFailed sets the callback for swallowed playback errors.
func (c *Controller) OnFailed(fn func()) {
	c.mu.Lock()
	c.onFailed = fn
	c.mu.Unlock()
}

// Speaking reports whether an utterance is currently playing.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Muted reports whether output is muted.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Speak plays the given text, cancelling any utterance already playing.
// Returns ErrMuted or synthesis.ErrUnavailable when nothing will play,
// so the caller can settle its state instead of waiting for callbacks.
func (c *Controller) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return synthesis.ErrEmptyText
	}
	if c.synth == nil {
		return synthesis.ErrUnavailable
	}

	c.mu.Lock()
	if c.muted {
		c.mu.Unlock()
		c.logger.Debug("speak skipped, output muted")
		return ErrMuted
	}
	c.mu.Unlock()

	// Single active utterance: replace, never queue.
	c.synth.Cancel()

	u := synthesis.Utterance{
		Text:   text,
		Lang:   c.cfg.Locale,
		Rate:   c.cfg.Rate,
		Pitch:  c.cfg.Pitch,
		Volume: c.cfg.Volume,
	}
	// An empty voice list just falls through the ladder; the platform
	// default voice carries the utterance.
	if voice, ok := synthesis.Select(c.synth.Voices(), c.cfg.Locale); ok {
		u.Voice = &voice
		c.logger.Debug("voice selected", "voice", voice.Name, "lang", voice.Lang)
	}

	return c.synth.Speak(u)
}

// Stop cancels the current utterance unconditionally. Always safe.
func (c *Controller) Stop() {
	if c.synth == nil {
		return
	}
	c.mu.Lock()
	was := c.speaking
	c.speaking = false
	c.mu.Unlock()

	c.synth.Cancel()
	if was {
		c.emitEnded()
	}
}

// ToggleMute flips the mute flag and returns the new value. Muting
// while speech is active cancels it immediately.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	c.muted = !c.muted
	muted := c.muted
	was := c.speaking
	if muted {
		c.speaking = false
	}
	c.mu.Unlock()

	if muted && was && c.synth != nil {
		c.synth.Cancel()
		c.emitEnded()
	}
	return muted
}

// handleStart funnels the platform playback-start event.
func (c *Controller) handleStart() {
	c.mu.Lock()
	already := c.speaking
	c.speaking = true
	fn := c.onStarted
	c.mu.Unlock()

	if !already && fn != nil {
		fn()
	}
}

// handleEnd funnels the platform playback-end event. A stop or mute
// that already settled the state suppresses the duplicate.
func (c *Controller) handleEnd() {
	c.mu.Lock()
	was := c.speaking
	c.speaking = false
	c.mu.Unlock()

	if was {
		c.emitEnded()
	}
}

// handleError swallows playback failures: log, settle state, report as
// failed so the owner returns to idle without re-arming the voice loop.
func (c *Controller) handleError(err error) {
	c.logger.Warn("playback error swallowed", "error", err)

	c.mu.Lock()
	c.speaking = false
	fn := c.onFailed
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (c *Controller) emitEnded() {
	c.mu.Lock()
	fn := c.onEnded
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
