package capture

import (
	"strings"

	"github.com/voiceloop/voiceloop/pkg/recognition"
)

// Transcript accumulates recognition output for one listening session.
// It keeps confirmed segments apart from the provisional tail: finalized
// segments are stable for the session, the interim tail is fully
// replaced on every update. Segments checkpointed from earlier handle
// cycles sit in front of both.
type Transcript struct {
	prefix    []string
	finalized []string
	interim   string
}

// Apply rebuilds the current cycle from a cumulative result list.
//
// The platform re-delivers overlapping result sets, so the only safe way
// to consume an event is a full rescan; appending the new segments would
// duplicate text that was already recorded. The checkpointed prefix is
// untouched: a fresh handle's list covers its own cycle only.
func (t *Transcript) Apply(results []recognition.Result) {
	t.finalized = t.finalized[:0]
	var interim strings.Builder
	for _, r := range results {
		if r.IsFinal {
			t.finalized = append(t.finalized, r.Transcript)
		} else {
			interim.WriteString(r.Transcript)
		}
	}
	t.interim = interim.String()
}

// Checkpoint folds the current cycle's finalized segments into the
// persistent prefix before the underlying handle is restarted. The next
// handle reports a fresh cumulative list, so without the fold its first
// result would erase everything recognized before the restart. The
// interim tail is provisional and the old handle will never confirm it,
// so it is dropped.
func (t *Transcript) Checkpoint() {
	t.prefix = append(t.prefix, t.finalized...)
	t.finalized = t.finalized[:0]
	t.interim = ""
}

// String returns the displayed value: checkpointed segments, then the
// current cycle's finalized segments, then the interim tail.
func (t *Transcript) String() string {
	parts := make([]string, 0, len(t.prefix)+len(t.finalized)+1)
	for _, seg := range t.prefix {
		if s := strings.TrimSpace(seg); s != "" {
			parts = append(parts, s)
		}
	}
	for _, seg := range t.finalized {
		if s := strings.TrimSpace(seg); s != "" {
			parts = append(parts, s)
		}
	}
	if s := strings.TrimSpace(t.interim); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// Reset empties the transcript. Called at session start and after the
// accumulated text has been handed off for submission.
func (t *Transcript) Reset() {
	t.prefix = t.prefix[:0]
	t.finalized = t.finalized[:0]
	t.interim = ""
}
