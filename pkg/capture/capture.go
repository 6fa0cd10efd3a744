// Package capture turns a speech-recognition capability into a single
// coherent transcript stream with bounded, classified failure handling.
//
// The controller owns one logical listening session at a time. A session
// begins at Start and ends at Stop, at the silence auto-stop, or at an
// error; in continuous mode it transparently spans platform restarts.
// Session outcomes reach the owner through the OnStopped and OnError
// callbacks, transcript updates through OnTranscript.
package capture

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/voiceloop/voiceloop/pkg/recognition"
)

// StopReason says why a listening session ended.
type StopReason int

const (
	// StopUser means Stop was called explicitly.
	StopUser StopReason = iota

	// StopSilence means the silence auto-stop fired.
	StopSilence

	// StopEnded means the platform ended recognition on its own.
	StopEnded
)

// String returns the reason name.
func (r StopReason) String() string {
	switch r {
	case StopSilence:
		return "silence"
	case StopEnded:
		return "ended"
	default:
		return "user"
	}
}

// Controller reconciles recognition events, user intent, and timers into
// one listening session with a single accumulated transcript.
type Controller struct {
	rec    recognition.Recognizer
	cfg    *Config
	logger *slog.Logger

	mu         sync.Mutex
	available  bool
	want       bool // user intent to listen; read by async callbacks
	active     bool // underlying handle is live
	transcript Transcript

	retryAttempt int
	retryTimer   *time.Timer
	silenceTimer *time.Timer

	onStarted    func()
	onTranscript func(text string)
	onStopped    func(reason StopReason)
	onError      func(rec Record)
}

// New creates a capture controller over a recognition capability.
// A nil recognizer is allowed: the controller reports the capability as
// unavailable and Start fails with ErrUnavailable.
func New(rec recognition.Recognizer, opts ...Option) (*Controller, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		rec:       rec,
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "capture"),
		available: rec != nil,
	}

	if rec != nil {
		rec.OnStart(c.handleStart)
		rec.OnResult(c.handleResults)
		rec.OnError(c.handleError)
		rec.OnEnd(c.handleEnd)
	}
	return c, nil
}

// OnStarted sets the callback for session start.
func (c *Controller) OnStarted(fn func()) {
	c.mu.Lock()
	c.onStarted = fn
	c.mu.Unlock()
}

// OnTranscript sets the callback for transcript updates. The callback
// receives the full displayed value, finalized plus interim.
func (c *Controller) OnTranscript(fn func(text string)) {
	c.mu.Lock()
	c.onTranscript = fn
	c.mu.Unlock()
}

// OnStopped sets the callback for session end. It fires once per
// session for user stops, silence stops, and platform self-ends; error
// endings are reported through OnError instead.
func (c *Controller) OnStopped(fn func(reason StopReason)) {
	c.mu.Lock()
	c.onStopped = fn
	c.mu.Unlock()
}

// OnError sets the callback for classified recognition failures.
func (c *Controller) OnError(fn func(rec Record)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// Available reports whether the recognition capability is usable.
// Flips to false permanently on permission errors.
func (c *Controller) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Listening reports whether a listening session is in progress.
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.want
}

// Transcript returns the current displayed transcript.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.String()
}

// Start begins a listening session.
//
// Idempotent: a second Start during a live session is ignored, so the
// underlying handle is never double-started. Starting resets the
// transcript and the retry state.
func (c *Controller) Start() error {
	c.mu.Lock()
	if !c.available {
		c.mu.Unlock()
		return ErrUnavailable
	}
	if c.want {
		c.mu.Unlock()
		c.logger.Debug("start ignored, session already active")
		return nil
	}
	c.want = true
	c.retryAttempt = 0
	c.stopTimersLocked()
	c.transcript.Reset()
	c.mu.Unlock()

	if err := c.rec.Start(); err != nil {
		if errors.Is(err, recognition.ErrAlreadyStarted) {
			// The previous handle is still winding down; it keeps serving
			// the new session.
			return nil
		}
		c.mu.Lock()
		c.want = false
		c.mu.Unlock()
		return err
	}
	c.logger.Info("listening session started")
	return nil
}

// Stop ends the current session at the user's request. Safe to call with
// no session active, and idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	wasListening := c.want
	c.want = false
	c.retryAttempt = 0
	c.stopTimersLocked()
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.Stop()
	}
	if wasListening {
		c.logger.Info("listening session stopped", "reason", StopUser)
		c.emitStopped(StopUser)
	}
}

// Abort tears the session down without reporting a stop. Used when
// capture must yield to playback and on shutdown.
func (c *Controller) Abort() {
	c.mu.Lock()
	c.want = false
	c.retryAttempt = 0
	c.stopTimersLocked()
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.Abort()
	}
}

// ClearTranscript empties the accumulated transcript.
func (c *Controller) ClearTranscript() {
	c.mu.Lock()
	c.transcript.Reset()
	c.mu.Unlock()
	c.emitTranscript("")
}

// Close releases the controller. Safe to call more than once.
func (c *Controller) Close() {
	c.Abort()
}

// handleStart funnels the platform start event.
func (c *Controller) handleStart() {
	c.mu.Lock()
	c.active = true
	c.retryAttempt = 0
	fn := c.onStarted
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// handleResults funnels a cumulative result event: full rescan, then
// silence timer re-arm on non-empty text.
func (c *Controller) handleResults(results []recognition.Result) {
	c.mu.Lock()
	c.transcript.Apply(results)
	text := c.transcript.String()
	if text != "" && c.want && c.cfg.SilenceTimeout > 0 {
		c.armSilenceLocked()
	}
	c.mu.Unlock()

	c.emitTranscript(text)
}

// handleError funnels a platform error through the classification table.
func (c *Controller) handleError(err *recognition.Error) {
	rec := classify(err, time.Now())

	c.mu.Lock()
	switch {
	case rec.Kind == Hard:
		c.available = false
		c.want = false
		c.retryAttempt = 0
		c.stopTimersLocked()
		c.logger.Warn("capability disabled", "code", err.Code)

	case err.Code == recognition.ErrCodeNetwork && c.want:
		if c.retryAttempt >= c.cfg.MaxRetries {
			c.want = false
			c.stopTimersLocked()
			rec.Message = msgNetworkGaveUp
			rec.Sticky = true
			c.logger.Warn("network retries exhausted", "attempts", c.retryAttempt)
		} else {
			c.retryAttempt++
			delay := c.cfg.RetryBaseDelay << (c.retryAttempt - 1)
			c.stopSilenceLocked()
			// The restarted handle reports a fresh cumulative list;
			// checkpoint so it can't erase the pre-failure transcript.
			c.transcript.Checkpoint()
			c.retryTimer = time.AfterFunc(delay, c.retryStart)
			c.logger.Info("network error, retry scheduled",
				"attempt", c.retryAttempt, "delay", delay)
		}

	default:
		// Soft, no retry: the session is over and the user re-triggers.
		c.want = false
		c.stopTimersLocked()
	}
	fn := c.onError
	c.mu.Unlock()

	if fn != nil {
		fn(rec)
	}
}

// handleEnd funnels the platform end event. This is where continuous
// mode restarts the handle so the session feels uninterrupted.
func (c *Controller) handleEnd() {
	c.mu.Lock()
	c.active = false
	restartable := c.want && c.available && c.retryTimer == nil
	continuous := c.cfg.Continuous
	if restartable && !continuous {
		// Platform ended on its own; treat it like a stop.
		c.want = false
		c.stopTimersLocked()
	}
	if restartable && continuous {
		// The next handle's cumulative list starts over; fold what this
		// one confirmed into the prefix so the session stays one stream.
		c.transcript.Checkpoint()
	}
	c.mu.Unlock()

	if !restartable {
		return
	}
	if !continuous {
		c.logger.Info("listening session stopped", "reason", StopEnded)
		c.emitStopped(StopEnded)
		return
	}
	if err := c.rec.Start(); err != nil && !errors.Is(err, recognition.ErrAlreadyStarted) {
		c.logger.Warn("continuous restart failed", "error", err)
		c.mu.Lock()
		c.want = false
		c.mu.Unlock()
		c.emitStopped(StopEnded)
	}
}

// retryStart fires from the backoff timer. A stop that raced the timer
// already cleared the intent flag, which suppresses the stale retry.
func (c *Controller) retryStart() {
	c.mu.Lock()
	c.retryTimer = nil
	if !c.want {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.rec.Start(); err != nil && !errors.Is(err, recognition.ErrAlreadyStarted) {
		c.handleError(&recognition.Error{
			Code:    recognition.ErrCodeNetwork,
			Message: err.Error(),
		})
	}
}

// handleSilence fires from the silence auto-stop timer.
func (c *Controller) handleSilence() {
	c.mu.Lock()
	if !c.want {
		c.mu.Unlock()
		return
	}
	c.want = false
	c.stopTimersLocked()
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.Stop()
	}
	c.logger.Info("listening session stopped", "reason", StopSilence)
	c.emitStopped(StopSilence)
}

func (c *Controller) armSilenceLocked() {
	c.stopSilenceLocked()
	c.silenceTimer = time.AfterFunc(c.cfg.SilenceTimeout, c.handleSilence)
}

func (c *Controller) stopSilenceLocked() {
	if c.silenceTimer != nil {
		c.silenceTimer.Stop()
		c.silenceTimer = nil
	}
}

func (c *Controller) stopTimersLocked() {
	c.stopSilenceLocked()
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Controller) emitTranscript(text string) {
	c.mu.Lock()
	fn := c.onTranscript
	c.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (c *Controller) emitStopped(reason StopReason) {
	c.mu.Lock()
	fn := c.onStopped
	c.mu.Unlock()
	if fn != nil {
		fn(reason)
	}
}
