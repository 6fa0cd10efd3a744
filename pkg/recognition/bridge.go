package recognition

import "sync"

// Bridge is a Recognizer driven by an external event source, typically a
// browser relaying platform recognition events over a WebSocket. Control
// calls (Start/Stop/Abort) forward to pluggable command funcs so the
// gateway can relay them to the real capability; the event source pushes
// platform events back through the Emit methods.
//
// Bridge also serves as the in-process fake for tests.
type Bridge struct {
	// StartFunc is invoked when Start is called, after the live-session
	// check passes. A non-nil error aborts the start. Optional.
	StartFunc func() error

	// StopFunc is invoked on Stop while a session is live. Optional.
	StopFunc func()

	// AbortFunc is invoked on Abort while a session is live. Optional.
	AbortFunc func()

	mu      sync.Mutex
	started bool

	onStart  func()
	onResult func([]Result)
	onError  func(*Error)
	onEnd    func()
}

// NewBridge creates an event-fed recognizer.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Start begins a session. Returns ErrAlreadyStarted if one is live.
func (b *Bridge) Start() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	start := b.StartFunc
	b.mu.Unlock()

	if start != nil {
		if err := start(); err != nil {
			b.mu.Lock()
			b.started = false
			b.mu.Unlock()
			return err
		}
	}
	return nil
}

// Stop requests a graceful end. No-op without a live session.
func (b *Bridge) Stop() {
	b.mu.Lock()
	stop := b.StopFunc
	live := b.started
	b.mu.Unlock()

	if live && stop != nil {
		stop()
	}
}

// Abort cancels the session immediately. No-op without a live session.
func (b *Bridge) Abort() {
	b.mu.Lock()
	abort := b.AbortFunc
	live := b.started
	b.started = false
	b.mu.Unlock()

	if live && abort != nil {
		abort()
	}
}

// Started reports whether a session is currently live.
func (b *Bridge) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// OnStart sets the session-start callback.
func (b *Bridge) OnStart(fn func()) {
	b.mu.Lock()
	b.onStart = fn
	b.mu.Unlock()
}

// OnResult sets the result callback.
func (b *Bridge) OnResult(fn func([]Result)) {
	b.mu.Lock()
	b.onResult = fn
	b.mu.Unlock()
}

// OnError sets the error callback.
func (b *Bridge) OnError(fn func(*Error)) {
	b.mu.Lock()
	b.onError = fn
	b.mu.Unlock()
}

// OnEnd sets the session-end callback.
func (b *Bridge) OnEnd(fn func()) {
	b.mu.Lock()
	b.onEnd = fn
	b.mu.Unlock()
}

// EmitStart delivers a platform session-start event.
func (b *Bridge) EmitStart() {
	b.mu.Lock()
	fn := b.onStart
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EmitResults delivers a cumulative result list event.
func (b *Bridge) EmitResults(results []Result) {
	b.mu.Lock()
	fn := b.onResult
	b.mu.Unlock()
	if fn != nil {
		fn(results)
	}
}

// EmitError delivers a recognition failure event.
func (b *Bridge) EmitError(code ErrorCode, message string) {
	b.mu.Lock()
	fn := b.onError
	b.mu.Unlock()
	if fn != nil {
		fn(&Error{Code: code, Message: message})
	}
}

// EmitEnd delivers a session-end event and marks the session dead.
func (b *Bridge) EmitEnd() {
	b.mu.Lock()
	b.started = false
	fn := b.onEnd
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}
