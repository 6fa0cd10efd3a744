package session

// State is the single authoritative voice session state. Exactly one
// value is live at any time; controllers request transitions through
// the orchestrator, never set it themselves.
type State int

const (
	// StateIdle means no capture or playback is in progress.
	StateIdle State = iota

	// StateListening means a capture session is accumulating transcript.
	StateListening

	// StateProcessing means a submission is awaiting the agent's reply.
	StateProcessing

	// StateSpeaking means the reply is being played back.
	StateSpeaking
)

// String returns the state name used on the wire and in logs.
func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return "idle"
	}
}
