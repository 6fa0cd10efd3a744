package recognition

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const dialTimeout = 10 * time.Second

// Remote is a Recognizer backed by a streaming speech-to-text service
// over WebSocket. Each Start dials a fresh connection; the service
// streams cumulative result frames until it ends the session or the
// client stops it.
//
// Wire frames are JSON. Client → service: {"type":"start"|"stop"},
// service → client: {"type":"started"|"results"|"error"|"ended"}.
type Remote struct {
	url    string
	locale string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	started bool

	onStart  func()
	onResult func([]Result)
	onError  func(*Error)
	onEnd    func()
}

// RemoteOption configures a Remote recognizer.
type RemoteOption func(*Remote)

// WithRemoteLocale sets the recognition locale (default "en-US").
func WithRemoteLocale(locale string) RemoteOption {
	return func(r *Remote) { r.locale = locale }
}

// WithRemoteLogger sets the logger.
func WithRemoteLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) { r.logger = logger }
}

// NewRemote creates a WebSocket-backed recognizer for the given endpoint.
func NewRemote(url string, opts ...RemoteOption) *Remote {
	r := &Remote{
		url:    url,
		locale: "en-US",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "recognition.remote")
	return r
}

// remoteFrame is the JSON envelope for both directions.
type remoteFrame struct {
	Type    string `json:"type"`
	Locale  string `json:"locale,omitempty"`
	Interim bool   `json:"interim,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Results []struct {
		Transcript string `json:"transcript"`
		Final      bool   `json:"final"`
	} `json:"results,omitempty"`
}

// Start dials the service and begins a recognition session.
// Dial failures surface as a network recognition error followed by an
// end event, matching how the platform capability reports them.
func (r *Remote) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(r.url, nil)
	if err != nil {
		r.logger.Warn("dial failed", "url", r.url, "error", err)
		r.emitError(&Error{Code: ErrCodeNetwork, Message: err.Error()})
		r.emitEnd(false)
		return nil
	}

	start := remoteFrame{Type: "start", Locale: r.locale, Interim: true}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		r.emitError(&Error{Code: ErrCodeNetwork, Message: err.Error()})
		r.emitEnd(false)
		return nil
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	go r.readLoop(conn)
	return nil
}

// Stop asks the service to finish the session gracefully.
func (r *Remote) Stop() {
	r.mu.Lock()
	conn := r.conn
	live := r.started
	r.mu.Unlock()

	if !live || conn == nil {
		return
	}
	if err := conn.WriteJSON(remoteFrame{Type: "stop"}); err != nil {
		r.logger.Warn("stop write failed", "error", err)
	}
}

// Abort drops the connection immediately.
func (r *Remote) Abort() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	live := r.started
	r.started = false
	r.mu.Unlock()

	if live && conn != nil {
		conn.Close()
	}
}

// OnStart sets the session-start callback.
func (r *Remote) OnStart(fn func()) {
	r.mu.Lock()
	r.onStart = fn
	r.mu.Unlock()
}

// OnResult sets the result callback.
func (r *Remote) OnResult(fn func([]Result)) {
	r.mu.Lock()
	r.onResult = fn
	r.mu.Unlock()
}

// OnError sets the error callback.
func (r *Remote) OnError(fn func(*Error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// OnEnd sets the session-end callback.
func (r *Remote) OnEnd(fn func()) {
	r.mu.Lock()
	r.onEnd = fn
	r.mu.Unlock()
}

// readLoop dispatches service frames until the connection dies or the
// service ends the session.
func (r *Remote) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			aborted := r.conn == nil
			r.mu.Unlock()
			if aborted {
				// Abort already tore the session down; end silently.
				r.emitEnd(true)
				return
			}
			r.logger.Warn("read failed", "error", err)
			r.emitError(&Error{Code: ErrCodeNetwork, Message: err.Error()})
			r.emitEnd(true)
			return
		}

		var frame remoteFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			r.logger.Warn("bad frame", "error", err)
			continue
		}

		switch frame.Type {
		case "started":
			r.mu.Lock()
			fn := r.onStart
			r.mu.Unlock()
			if fn != nil {
				fn()
			}
		case "results":
			results := make([]Result, 0, len(frame.Results))
			for _, res := range frame.Results {
				results = append(results, Result{
					Transcript: res.Transcript,
					IsFinal:    res.Final,
				})
			}
			r.mu.Lock()
			fn := r.onResult
			r.mu.Unlock()
			if fn != nil {
				fn(results)
			}
		case "error":
			r.emitError(&Error{Code: ErrorCode(frame.Code), Message: frame.Message})
		case "ended":
			r.emitEnd(true)
			return
		default:
			r.logger.Debug("unknown frame type", "type", frame.Type)
		}
	}
}

func (r *Remote) emitError(e *Error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

// emitEnd marks the session dead and fires the end callback.
// closeConn additionally releases the connection.
func (r *Remote) emitEnd(closeConn bool) {
	r.mu.Lock()
	if closeConn && r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	wasStarted := r.started
	r.started = false
	fn := r.onEnd
	r.mu.Unlock()

	if wasStarted && fn != nil {
		fn()
	}
}
