package synthesis

import "sync"

// Bridge is a Synthesizer driven by an external playback engine,
// typically a browser relaying platform synthesis events over a
// WebSocket. Speak and Cancel forward to pluggable command funcs; the
// engine reports lifecycle back through the Emit methods and publishes
// its (possibly late-arriving) voice list through SetVoices.
//
// Bridge also serves as the in-process fake for tests.
type Bridge struct {
	// SpeakFunc is invoked with the prepared utterance. Optional; when
	// nil, Speak succeeds without side effects and the feeder drives the
	// lifecycle.
	SpeakFunc func(u Utterance) error

	// CancelFunc is invoked on Cancel. Optional.
	CancelFunc func()

	mu     sync.Mutex
	voices []Voice

	onStart func()
	onEnd   func()
	onError func(error)
}

// NewBridge creates a command-sink synthesizer.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Voices returns the last published voice list.
func (b *Bridge) Voices() []Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Voice, len(b.voices))
	copy(out, b.voices)
	return out
}

// SetVoices publishes the available voice list. Platforms populate the
// list asynchronously, so this may arrive after Speak has been called.
func (b *Bridge) SetVoices(voices []Voice) {
	b.mu.Lock()
	b.voices = make([]Voice, len(voices))
	copy(b.voices, voices)
	b.mu.Unlock()
}

// Speak forwards the utterance to the playback engine.
func (b *Bridge) Speak(u Utterance) error {
	b.mu.Lock()
	speak := b.SpeakFunc
	b.mu.Unlock()

	if speak != nil {
		return speak(u)
	}
	return nil
}

// Cancel forwards cancellation to the playback engine.
func (b *Bridge) Cancel() {
	b.mu.Lock()
	cancel := b.CancelFunc
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// OnStart sets the playback-start callback.
func (b *Bridge) OnStart(fn func()) {
	b.mu.Lock()
	b.onStart = fn
	b.mu.Unlock()
}

// OnEnd sets the playback-end callback.
func (b *Bridge) OnEnd(fn func()) {
	b.mu.Lock()
	b.onEnd = fn
	b.mu.Unlock()
}

// OnError sets the playback-error callback.
func (b *Bridge) OnError(fn func(error)) {
	b.mu.Lock()
	b.onError = fn
	b.mu.Unlock()
}

// EmitStart delivers a playback-start event from the engine.
func (b *Bridge) EmitStart() {
	b.mu.Lock()
	fn := b.onStart
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EmitEnd delivers a playback-end event from the engine.
func (b *Bridge) EmitEnd() {
	b.mu.Lock()
	fn := b.onEnd
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EmitError delivers a playback-failure event from the engine.
func (b *Bridge) EmitError(err error) {
	b.mu.Lock()
	fn := b.onError
	b.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
