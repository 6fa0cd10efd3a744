package web

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/voiceloop/voiceloop/internal/log"
	"github.com/voiceloop/voiceloop/pkg/recognition"
	"github.com/voiceloop/voiceloop/pkg/synthesis"
)

// errNoBrowser is returned when a capability command has no connected
// browser to relay to.
var errNoBrowser = errors.New("web: no voice client connected")

// voiceFrame is the wire envelope on the duplex voice socket. Commands
// flow server to browser; capability events flow browser to server.
type voiceFrame struct {
	Type string `json:"type"`

	// Recognition events
	Results []voiceResult `json:"results,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`

	// Synthesis command and events
	Utterance *synthesis.Utterance `json:"utterance,omitempty"`
	Voices    []synthesis.Voice    `json:"voices,omitempty"`

	// Tab visibility
	Visible bool `json:"visible,omitempty"`
}

// voiceResult is one cumulative recognition result on the wire.
type voiceResult struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// Frame types, server to browser.
const (
	frameRecStart  = "recognition.start"
	frameRecStop   = "recognition.stop"
	frameRecAbort  = "recognition.abort"
	frameSynSpeak  = "synthesis.speak"
	frameSynCancel = "synthesis.cancel"
)

// Frame types, browser to server.
const (
	frameRecStarted = "recognition.started"
	frameRecResult  = "recognition.result"
	frameRecError   = "recognition.error"
	frameRecEnd     = "recognition.end"
	frameSynVoices  = "synthesis.voices"
	frameSynStarted = "synthesis.started"
	frameSynEnded   = "synthesis.ended"
	frameSynError   = "synthesis.error"
	frameVisibility = "visibility"
)

// VoiceLink relays capability traffic between the session's bridges and
// one connected browser. At most one browser drives the session at a
// time; a new connection displaces the old one.
type VoiceLink struct {
	rec    *recognition.Bridge
	synth  *synthesis.Bridge
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	onVisible func(bool)
}

// NewVoiceLink wires both bridges' command funcs to the link. The
// bridges must not have command funcs of their own. rec may be nil when
// recognition runs elsewhere (remote STT); the socket then carries
// synthesis and visibility traffic only.
func NewVoiceLink(rec *recognition.Bridge, synth *synthesis.Bridge) *VoiceLink {
	l := &VoiceLink{
		rec:    rec,
		synth:  synth,
		logger: log.Component("voicelink"),
	}

	if rec != nil {
		rec.StartFunc = func() error {
			return l.send(voiceFrame{Type: frameRecStart})
		}
		rec.StopFunc = func() {
			l.sendBestEffort(voiceFrame{Type: frameRecStop})
		}
		rec.AbortFunc = func() {
			l.sendBestEffort(voiceFrame{Type: frameRecAbort})
		}
	}

	synth.SpeakFunc = func(u synthesis.Utterance) error {
		return l.send(voiceFrame{Type: frameSynSpeak, Utterance: &u})
	}
	synth.CancelFunc = func() {
		l.sendBestEffort(voiceFrame{Type: frameSynCancel})
	}

	return l
}

// OnVisible sets the callback for tab visibility changes.
func (l *VoiceLink) OnVisible(fn func(bool)) {
	l.mu.Lock()
	l.onVisible = fn
	l.mu.Unlock()
}

// Connected reports whether a browser is attached.
func (l *VoiceLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// send writes a command frame to the attached browser.
func (l *VoiceLink) send(f voiceFrame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return errNoBrowser
	}
	return l.conn.WriteJSON(f)
}

func (l *VoiceLink) sendBestEffort(f voiceFrame) {
	if err := l.send(f); err != nil && !errors.Is(err, errNoBrowser) {
		l.logger.Warn("command send failed", "error", err)
	}
}

// attach makes conn the active browser, displacing any previous one.
func (l *VoiceLink) attach(conn *websocket.Conn) {
	l.mu.Lock()
	old := l.conn
	l.conn = conn
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// detach clears the connection if it is still the active one and ends
// any live recognition session so capture can settle.
func (l *VoiceLink) detach(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn != conn {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	l.mu.Unlock()

	if l.rec != nil && l.rec.Started() {
		l.rec.EmitEnd()
	}
}

// serve reads capability events from the browser until the connection
// drops, dispatching each into the matching bridge.
func (l *VoiceLink) serve(conn *websocket.Conn) {
	l.attach(conn)
	defer l.detach(conn)

	for {
		var f voiceFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		l.dispatch(f)
	}
}

func (l *VoiceLink) dispatch(f voiceFrame) {
	switch f.Type {
	case frameRecStarted, frameRecResult, frameRecError, frameRecEnd:
		l.dispatchRecognition(f)

	case frameSynVoices:
		l.synth.SetVoices(f.Voices)

	case frameSynStarted:
		l.synth.EmitStart()

	case frameSynEnded:
		l.synth.EmitEnd()

	case frameSynError:
		l.synth.EmitError(errors.New(f.Message))

	case frameVisibility:
		l.mu.Lock()
		fn := l.onVisible
		l.mu.Unlock()
		if fn != nil {
			fn(f.Visible)
		}

	default:
		l.logger.Debug("unknown frame", "type", f.Type)
	}
}

func (l *VoiceLink) dispatchRecognition(f voiceFrame) {
	if l.rec == nil {
		l.logger.Debug("recognition frame without bridge", "type", f.Type)
		return
	}

	switch f.Type {
	case frameRecStarted:
		l.rec.EmitStart()

	case frameRecResult:
		results := make([]recognition.Result, len(f.Results))
		for i, r := range f.Results {
			results[i] = recognition.Result{Transcript: r.Transcript, IsFinal: r.Final}
		}
		l.rec.EmitResults(results)

	case frameRecError:
		l.rec.EmitError(recognition.ErrorCode(f.Code), f.Message)

	case frameRecEnd:
		l.rec.EmitEnd()
	}
}

// handleVoiceWS hands the connection to the voice link.
func (s *Server) handleVoiceWS(c *websocket.Conn) {
	if s.link == nil {
		c.Close()
		return
	}
	s.link.serve(c)
}
