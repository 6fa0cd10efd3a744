package capture

import (
	"errors"
	"time"

	"github.com/voiceloop/voiceloop/pkg/recognition"
)

// ErrUnavailable is returned by Start when no recognition capability
// exists or a permission failure has permanently disabled it.
var ErrUnavailable = errors.New("capture: recognition capability unavailable")

// Severity splits recognition failures into two recovery classes.
type Severity int

const (
	// Soft errors are transient: they auto-clear and never disable the
	// capability.
	Soft Severity = iota

	// Hard errors permanently disable capture until an external
	// condition (microphone permission) changes.
	Hard
)

// String returns the severity name.
func (s Severity) String() string {
	if s == Hard {
		return "hard"
	}
	return "soft"
}

// Record is a classified recognition failure, ready for display.
type Record struct {
	// Kind is the recovery class.
	Kind Severity

	// Code is the platform error code that produced the record.
	Code recognition.ErrorCode

	// Message is the user-facing text. Empty for silent errors.
	Message string

	// OccurredAt is when the failure was observed.
	OccurredAt time.Time

	// Silent suppresses display entirely (user/system aborts).
	Silent bool

	// Sticky requests a longer display window than the standard
	// auto-clear (device failures, exhausted retries). Hard records are
	// always displayed without auto-clear regardless of this flag.
	Sticky bool
}

// User-facing messages per error class.
const (
	msgPermission    = "Microphone access denied. Check your browser permissions."
	msgNetwork       = "Network error during speech recognition."
	msgNetworkGaveUp = "Speech recognition keeps failing. Check your connection and try again."
	msgNoSpeech      = "No speech detected. Tap the microphone and try again."
	msgAudioCapture  = "No microphone found, or the device is busy."
	msgUnknown       = "Speech recognition error. Please try again."
)

// classify maps a platform error onto the design table: severity,
// message, and display flags. Retry policy is handled by the controller
// since it depends on session state.
func classify(err *recognition.Error, now time.Time) Record {
	rec := Record{Code: err.Code, OccurredAt: now}

	switch err.Code {
	case recognition.ErrCodeNotAllowed, recognition.ErrCodeServiceNotAllowed:
		rec.Kind = Hard
		rec.Message = msgPermission
	case recognition.ErrCodeNetwork:
		rec.Kind = Soft
		rec.Message = msgNetwork
	case recognition.ErrCodeNoSpeech:
		rec.Kind = Soft
		rec.Message = msgNoSpeech
	case recognition.ErrCodeAudioCapture:
		rec.Kind = Soft
		rec.Message = msgAudioCapture
		rec.Sticky = true
	case recognition.ErrCodeAborted:
		rec.Kind = Soft
		rec.Silent = true
	default:
		rec.Kind = Soft
		rec.Message = msgUnknown
	}
	return rec
}
