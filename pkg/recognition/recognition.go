// Package recognition abstracts a continuous speech-recognition capability.
//
// A Recognizer is an exclusively owned, single-instance resource: at most
// one session may be live at a time, and starting while one is live
// returns ErrAlreadyStarted. Callers that need idempotent starts guard
// the call themselves (pkg/capture does this).
//
// Result events always carry the cumulative result list for the session,
// interim results included. Consumers must rebuild their transcript from
// the full list on every event rather than appending, because the
// platform may re-deliver overlapping result sets.
package recognition

import "errors"

// ErrAlreadyStarted is returned by Start when a session is already live.
// This mirrors the platform behavior of rejecting duplicate starts.
var ErrAlreadyStarted = errors.New("recognition: session already started")

// Result is one speech-to-text segment of the current session.
type Result struct {
	// Transcript is the recognized text for this segment.
	Transcript string

	// IsFinal reports whether the segment is confirmed and will not change.
	// Non-final segments are provisional and replaced on later events.
	IsFinal bool
}

// ErrorCode classifies a recognition failure. The set mirrors the
// platform error codes the capability reports.
type ErrorCode string

const (
	// ErrCodeNotAllowed means microphone permission was denied.
	ErrCodeNotAllowed ErrorCode = "not-allowed"

	// ErrCodeServiceNotAllowed means the recognition service is blocked.
	ErrCodeServiceNotAllowed ErrorCode = "service-not-allowed"

	// ErrCodeNetwork means the recognition service could not be reached.
	ErrCodeNetwork ErrorCode = "network"

	// ErrCodeNoSpeech means the session ended without detecting speech.
	ErrCodeNoSpeech ErrorCode = "no-speech"

	// ErrCodeAudioCapture means the input device is busy or missing.
	ErrCodeAudioCapture ErrorCode = "audio-capture"

	// ErrCodeAborted means the session was cancelled by user or system.
	ErrCodeAborted ErrorCode = "aborted"
)

// Error is a recognition failure reported by the capability.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return "recognition: " + string(e.Code)
	}
	return "recognition: " + string(e.Code) + ": " + e.Message
}

// Recognizer is a continuous speech-recognition session handle.
//
// Stop requests a graceful end: buffered audio is still recognized and
// an end event follows. Abort tears the session down immediately with
// no further result events. Both are idempotent and safe to call with
// no live session.
type Recognizer interface {
	// Start begins a recognition session.
	// Returns ErrAlreadyStarted if a session is live.
	Start() error

	// Stop requests a graceful end of the current session.
	Stop()

	// Abort cancels the current session immediately.
	Abort()

	// OnStart sets the callback for session start.
	OnStart(fn func())

	// OnResult sets the callback for result events.
	// The slice is the cumulative result list for the session.
	OnResult(fn func(results []Result))

	// OnError sets the callback for recognition failures.
	OnError(fn func(err *Error))

	// OnEnd sets the callback for session end. It fires after every
	// session, including those ended by Stop, Abort, or an error.
	OnEnd(fn func())
}
