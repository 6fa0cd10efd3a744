// Package synthesis abstracts a speech-synthesis capability.
//
// A Synthesizer plays at most one utterance at a time; Speak replaces
// any utterance already playing. The available voice list may populate
// asynchronously on some platforms, so Voices can legitimately return an
// empty slice early in the process lifetime. Callers fall back through
// the selection ladder in voices.go rather than treating that as an
// error.
package synthesis

import "errors"

// Sentinel errors for speak preconditions.
var (
	// ErrUnavailable is returned when no synthesis capability exists.
	ErrUnavailable = errors.New("synthesis: capability unavailable")

	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("synthesis: empty text")
)

// Voice describes one available synthesis voice.
type Voice struct {
	// Name is the human-readable voice name.
	Name string `json:"name"`

	// ID is the platform voice identifier (voiceURI on browsers).
	ID string `json:"id"`

	// Lang is the BCP-47 language tag, e.g. "en-US".
	Lang string `json:"lang"`

	// Default marks the platform default voice.
	Default bool `json:"default"`
}

// Utterance is one unit of speech with its delivery parameters.
type Utterance struct {
	// Text is the content to speak.
	Text string `json:"text"`

	// Lang is the BCP-47 language tag for the utterance.
	Lang string `json:"lang"`

	// Rate is the speaking rate; 1.0 is the platform default.
	Rate float64 `json:"rate"`

	// Pitch is the voice pitch; 1.0 is the platform default.
	Pitch float64 `json:"pitch"`

	// Volume is the output volume in [0, 1].
	Volume float64 `json:"volume"`

	// Voice is the selected voice, or nil for the platform default.
	Voice *Voice `json:"voice,omitempty"`
}

// Synthesizer is a speech-synthesis capability handle.
//
// Cancel is idempotent and safe to call with nothing playing. Playback
// lifecycle is reported through the On* callbacks; an utterance that was
// cancelled still produces an end event.
type Synthesizer interface {
	// Voices returns the currently known voice list. May be empty while
	// the platform is still loading voices.
	Voices() []Voice

	// Speak starts playing the utterance, replacing any current one.
	Speak(u Utterance) error

	// Cancel stops the current utterance, if any.
	Cancel()

	// OnStart sets the callback for playback start.
	OnStart(fn func())

	// OnEnd sets the callback for playback end, including cancellation.
	OnEnd(fn func())

	// OnError sets the callback for playback failures.
	OnError(fn func(err error))
}
