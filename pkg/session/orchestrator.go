// Package session holds the voice session orchestrator: the single
// source of truth for the visible voice state. It sequences capture →
// submit → playback and owns the boundary with the remote agent.
//
// Every capture, playback, and timer event funnels through one guarded
// transition path here, so the five callback kinds can never mutate
// shared state independently.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voiceloop/voiceloop/pkg/agent"
	"github.com/voiceloop/voiceloop/pkg/capture"
	"github.com/voiceloop/voiceloop/pkg/playback"
)

// msgSubmissionFailed is shown when the agent call fails. Distinct from
// voice errors: it says nothing about the microphone.
const msgSubmissionFailed = "Something went wrong sending your message. Please try again."

// Snapshot is the full UI contract: everything the chat UI needs to
// render the voice session.
type Snapshot struct {
	SessionID      string `json:"sessionId"`
	VoiceState     string `json:"voiceState"`
	Transcript     string `json:"transcript"`
	IsListening    bool   `json:"isListening"`
	IsSpeaking     bool   `json:"isSpeaking"`
	IsMicAvailable bool   `json:"isMicAvailable"`
	IsMuted        bool   `json:"isMuted"`
	ErrorMessage   string `json:"errorMessage"`
}

// Orchestrator reconciles capture output, playback lifecycle, and user
// intent into one coherent VoiceState.
type Orchestrator struct {
	cfg      *Config
	capture  *capture.Controller
	playback *playback.Controller
	agent    agent.Submitter
	logger   *slog.Logger

	mu     sync.Mutex
	id     string
	state  State
	latest string // latest transcript; always current at read time
	msgs   []agent.Message
	sctx   agent.SessionContext

	errorMsg string
	errTimer *time.Timer

	visible  bool
	closed   bool
	onUpdate func(Snapshot)
	updates  chan Snapshot
	done     chan struct{}
}

// New creates the orchestrator and wires itself into both controllers.
func New(cap *capture.Controller, play *playback.Controller, submitter agent.Submitter, opts ...Option) *Orchestrator {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	o := &Orchestrator{
		cfg:      cfg,
		capture:  cap,
		playback: play,
		agent:    submitter,
		logger:   cfg.Logger.With("component", "session"),
		id:       uuid.NewString(),
		state:    StateIdle,
		sctx:     cfg.Context,
		visible:  true,
		updates:  make(chan Snapshot, 64),
		done:     make(chan struct{}),
	}
	go o.dispatchUpdates()

	cap.OnStarted(o.handleCaptureStarted)
	cap.OnTranscript(o.handleTranscript)
	cap.OnStopped(o.handleCaptureStopped)
	cap.OnError(o.handleCaptureError)

	play.OnStarted(o.handlePlaybackStarted)
	play.OnEnded(o.handlePlaybackEnded)
	play.OnFailed(o.handlePlaybackFailed)

	return o
}

// SessionID returns the session identifier.
func (o *Orchestrator) SessionID() string {
	return o.id
}

// OnUpdate sets the callback invoked with a fresh snapshot on every
// observable change.
func (o *Orchestrator) OnUpdate(fn func(Snapshot)) {
	o.mu.Lock()
	o.onUpdate = fn
	o.mu.Unlock()
}

// State returns the current voice state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the current UI contract values.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Messages returns the conversation so far.
func (o *Orchestrator) Messages() []agent.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]agent.Message, len(o.msgs))
	copy(out, o.msgs)
	return out
}

// SetCustomer seeds the customer ID threaded through submissions.
func (o *Orchestrator) SetCustomer(customerID string) {
	o.mu.Lock()
	o.sctx.CustomerID = customerID
	o.mu.Unlock()
}

// SetVisible records whether the client tab is visible. The voice loop
// only re-arms capture while it is.
func (o *Orchestrator) SetVisible(visible bool) {
	o.mu.Lock()
	o.visible = visible
	o.mu.Unlock()
}

// StartListening begins a capture session. Speaking and listening are
// mutually exclusive, so any in-flight playback is cancelled first.
// Ignored while a submission is processing.
func (o *Orchestrator) StartListening() error {
	o.mu.Lock()
	if o.closed || o.state == StateProcessing {
		o.mu.Unlock()
		return nil
	}
	o.clearErrorLocked()
	// Settle out of speaking first so the cancel below can't re-arm the
	// voice loop on top of this start.
	if o.state == StateSpeaking {
		o.state = StateIdle
	}
	o.mu.Unlock()

	o.playback.Stop()

	if err := o.capture.Start(); err != nil {
		o.mu.Lock()
		o.setErrorLocked(msgFor(err), 0)
		o.notifyLocked()
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	if o.state != StateListening {
		o.state = StateListening
		o.logger.Info("state", "voice_state", o.state)
	}
	o.notifyLocked()
	o.mu.Unlock()
	return nil
}

// StopListening ends the capture session. If the accumulated transcript
// is non-empty it is submitted to the agent. Always safe, idempotent.
func (o *Orchestrator) StopListening() {
	o.capture.Stop()

	// If capture had nothing active, no stop event fired; settle state.
	o.mu.Lock()
	if o.state == StateListening {
		o.state = StateIdle
		o.notifyLocked()
	}
	o.mu.Unlock()
}

// Speak plays arbitrary text, cancelling any capture session without
// submitting it.
func (o *Orchestrator) Speak(text string) {
	o.capture.Abort()

	if err := o.playback.Speak(text); err != nil {
		o.mu.Lock()
		if o.state != StateIdle {
			o.state = StateIdle
			o.notifyLocked()
		}
		o.mu.Unlock()
	}
}

// StopSpeaking cancels the current utterance. The state settles to idle
// before the cancel so the voice loop never re-arms off a manual stop.
func (o *Orchestrator) StopSpeaking() {
	o.mu.Lock()
	if o.state == StateSpeaking {
		o.state = StateIdle
		o.notifyLocked()
	}
	o.mu.Unlock()

	o.playback.Stop()
}

// ToggleMute flips output mute and returns the new value. Muting during
// speech cancels it and settles to idle without re-arming the loop.
func (o *Orchestrator) ToggleMute() bool {
	if !o.playback.Muted() {
		o.mu.Lock()
		if o.state == StateSpeaking {
			o.state = StateIdle
		}
		o.mu.Unlock()
	}

	muted := o.playback.ToggleMute()

	o.mu.Lock()
	o.notifyLocked()
	o.mu.Unlock()
	return muted
}

// ClearTranscript empties the accumulated transcript.
func (o *Orchestrator) ClearTranscript() {
	o.capture.ClearTranscript()
}

// SubmitText sends typed chat input through the same processing and
// playback pipeline as voice submissions. Dropped while a submission is
// already processing, matching StartListening: one agent call at a time.
func (o *Orchestrator) SubmitText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	o.mu.Lock()
	if o.closed || o.state == StateProcessing {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	// Typing supersedes whatever voice activity is in flight.
	o.capture.Abort()
	o.StopSpeaking()

	o.submit(text)
}

// Close shuts the session down. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.done)
	}
	if o.errTimer != nil {
		o.errTimer.Stop()
		o.errTimer = nil
	}
	o.mu.Unlock()

	o.capture.Close()
	o.playback.Stop()
}

// handleCaptureStarted confirms the listening state once the platform
// session is live (including backoff restarts).
func (o *Orchestrator) handleCaptureStarted() {
	o.mu.Lock()
	if !o.closed && o.state != StateListening {
		o.state = StateListening
		o.logger.Info("state", "voice_state", o.state)
	}
	o.notifyLocked()
	o.mu.Unlock()
}

// handleTranscript keeps the latest-transcript cell current. The cell is
// read at submission time, never captured earlier, so a stop handler
// always sees the most recent text.
func (o *Orchestrator) handleTranscript(text string) {
	o.mu.Lock()
	o.latest = text
	o.notifyLocked()
	o.mu.Unlock()
}

// handleCaptureStopped runs the stop-with-content rule: submit the live
// transcript if non-empty, otherwise settle to idle.
func (o *Orchestrator) handleCaptureStopped(reason capture.StopReason) {
	o.mu.Lock()
	text := strings.TrimSpace(o.latest)
	o.mu.Unlock()

	if text != "" {
		o.logger.Info("submitting transcript", "reason", reason, "chars", len(text))
		o.submit(text)
		return
	}

	o.mu.Lock()
	if o.state == StateListening {
		o.state = StateIdle
		o.notifyLocked()
	}
	o.mu.Unlock()
}

// handleCaptureError surfaces classified capture failures and returns
// the session to idle. Capture keeps its own retry schedule; a backoff
// restart re-enters listening through handleCaptureStarted.
func (o *Orchestrator) handleCaptureError(rec capture.Record) {
	o.mu.Lock()
	if !rec.Silent {
		ttl := o.cfg.ErrorTTL
		if rec.Sticky {
			ttl = o.cfg.StickyErrorTTL
		}
		if rec.Kind == capture.Hard {
			ttl = 0 // displayed until the capability comes back
		}
		o.setErrorLocked(rec.Message, ttl)
	}
	if o.state == StateListening {
		o.state = StateIdle
	}
	o.notifyLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) handlePlaybackStarted() {
	o.mu.Lock()
	if !o.closed {
		o.state = StateSpeaking
		o.logger.Info("state", "voice_state", o.state)
	}
	o.notifyLocked()
	o.mu.Unlock()
}

// handlePlaybackEnded closes the loop: idle, or straight back to
// listening in voice-loop mode while the client tab is visible.
func (o *Orchestrator) handlePlaybackEnded() {
	o.mu.Lock()
	if o.state != StateSpeaking || o.closed {
		o.mu.Unlock()
		return
	}
	rearm := o.cfg.VoiceLoop && o.visible
	o.state = StateIdle
	o.notifyLocked()
	o.mu.Unlock()

	if rearm {
		if err := o.StartListening(); err != nil {
			o.logger.Warn("voice loop re-arm failed", "error", err)
		}
	}
}

func (o *Orchestrator) handlePlaybackFailed() {
	o.mu.Lock()
	if o.state == StateSpeaking || o.state == StateProcessing {
		o.state = StateIdle
	}
	o.notifyLocked()
	o.mu.Unlock()
}

// submit sends text to the agent on its own goroutine. The transcript is
// cleared only after its value has been captured for submission.
func (o *Orchestrator) submit(text string) {
	o.mu.Lock()
	if o.closed || o.state == StateProcessing {
		o.mu.Unlock()
		return
	}
	o.state = StateProcessing
	o.logger.Info("state", "voice_state", o.state)
	o.msgs = append(o.msgs, agent.Message{Role: agent.RoleUser, Content: text})
	msgs := make([]agent.Message, len(o.msgs))
	copy(msgs, o.msgs)
	sctx := o.sctx
	o.latest = ""
	o.notifyLocked()
	o.mu.Unlock()

	o.capture.ClearTranscript()
	o.appendHistory(agent.RoleUser, text)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.SubmitTimeout)
		defer cancel()

		reply, err := o.agent.Submit(ctx, msgs, sctx)

		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		if err != nil {
			o.logger.Warn("submission failed", "error", err)
			o.setErrorLocked(msgSubmissionFailed, o.cfg.StickyErrorTTL)
			o.state = StateIdle
			o.notifyLocked()
			o.mu.Unlock()
			return
		}

		o.msgs = append(o.msgs, agent.Message{Role: agent.RoleAssistant, Content: reply.Content})
		o.sctx = reply.Context
		o.notifyLocked()
		o.mu.Unlock()

		o.appendHistory(agent.RoleAssistant, reply.Content)

		if err := o.playback.Speak(reply.Content); err != nil {
			// Muted or no synthesis: the reply is still visible as text.
			o.mu.Lock()
			o.state = StateIdle
			o.notifyLocked()
			o.mu.Unlock()
		}
	}()
}

func (o *Orchestrator) appendHistory(role, content string) {
	if o.cfg.History == nil {
		return
	}
	if _, err := o.cfg.History.Append(role, content); err != nil {
		o.logger.Warn("history append failed", "error", err)
	}
}

// setErrorLocked displays a message, replacing any earlier one. At most
// one error is visible at a time. ttl zero means no auto-clear.
func (o *Orchestrator) setErrorLocked(msg string, ttl time.Duration) {
	if o.errTimer != nil {
		o.errTimer.Stop()
		o.errTimer = nil
	}
	o.errorMsg = msg
	if ttl <= 0 {
		return
	}
	o.errTimer = time.AfterFunc(ttl, func() {
		o.mu.Lock()
		if o.errorMsg == msg {
			o.errorMsg = ""
			o.notifyLocked()
		}
		o.mu.Unlock()
	})
}

func (o *Orchestrator) clearErrorLocked() {
	if o.errTimer != nil {
		o.errTimer.Stop()
		o.errTimer = nil
	}
	o.errorMsg = ""
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:      o.id,
		VoiceState:     o.state.String(),
		Transcript:     o.latest,
		IsListening:    o.state == StateListening,
		IsSpeaking:     o.state == StateSpeaking,
		IsMicAvailable: o.capture.Available(),
		IsMuted:        o.playback.Muted(),
		ErrorMessage:   o.errorMsg,
	}
}

// notifyLocked queues a snapshot for the update subscriber. Delivery
// goes through a single dispatch goroutine so subscribers see state
// transitions in the order they happened.
func (o *Orchestrator) notifyLocked() {
	if o.onUpdate == nil {
		return
	}
	select {
	case o.updates <- o.snapshotLocked():
	default:
		o.logger.Warn("update queue full, snapshot dropped")
	}
}

// dispatchUpdates drains queued snapshots to the subscriber, one at a
// time, until Close.
func (o *Orchestrator) dispatchUpdates() {
	for {
		select {
		case snap := <-o.updates:
			o.mu.Lock()
			fn := o.onUpdate
			o.mu.Unlock()
			if fn != nil {
				fn(snap)
			}
		case <-o.done:
			return
		}
	}
}

// msgFor maps start failures to user-facing text.
func msgFor(err error) string {
	if errors.Is(err, capture.ErrUnavailable) {
		return "Voice input isn't available in this browser or the microphone is blocked."
	}
	return "Couldn't start listening. Please try again."
}
