package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voiceloop/voiceloop/pkg/agent"
	"github.com/voiceloop/voiceloop/pkg/capture"
	"github.com/voiceloop/voiceloop/pkg/playback"
	"github.com/voiceloop/voiceloop/pkg/recognition"
	"github.com/voiceloop/voiceloop/pkg/session"
	"github.com/voiceloop/voiceloop/pkg/synthesis"
)

// harness wires a full session over in-process capability bridges.
type harness struct {
	rec   *recognition.Bridge
	synth *synthesis.Bridge
	mock  *agent.Mock
	sess  *session.Orchestrator

	mu      sync.Mutex
	spoken  []string
	cancels int
}

func newHarness(t *testing.T, opts ...session.Option) *harness {
	t.Helper()

	h := &harness{
		rec:   recognition.NewBridge(),
		synth: synthesis.NewBridge(),
		mock:  agent.NewMock(),
	}

	// Playback speaks immediately, like a platform with a free channel.
	h.synth.SpeakFunc = func(u synthesis.Utterance) error {
		h.mu.Lock()
		h.spoken = append(h.spoken, u.Text)
		h.mu.Unlock()
		h.synth.EmitStart()
		return nil
	}
	h.synth.CancelFunc = func() {
		h.mu.Lock()
		h.cancels++
		h.mu.Unlock()
	}

	cap, err := capture.New(h.rec)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	play := playback.New(h.synth)

	h.sess = session.New(cap, play, h.mock, opts...)
	t.Cleanup(h.sess.Close)
	return h
}

func (h *harness) spokenTexts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.spoken))
	copy(out, h.spoken)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestVoiceSubmissionFlow(t *testing.T) {
	h := newHarness(t)

	if err := h.sess.StartListening(); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.rec.EmitStart()
	if got := h.sess.State(); got != session.StateListening {
		t.Fatalf("expected listening, got %v", got)
	}

	h.rec.EmitResults([]recognition.Result{{Transcript: "hello", IsFinal: true}})
	if got := h.sess.Snapshot().Transcript; got != "hello" {
		t.Fatalf("expected transcript %q, got %q", "hello", got)
	}

	h.sess.StopListening()
	waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
		"never reached speaking")

	msgs := h.sess.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != agent.RoleUser || msgs[0].Content != "hello" {
		t.Errorf("unexpected user message: %+v", msgs[0])
	}
	if msgs[1].Role != agent.RoleAssistant || msgs[1].Content != "You said: hello" {
		t.Errorf("unexpected assistant message: %+v", msgs[1])
	}
	if got := h.sess.Snapshot().Transcript; got != "" {
		t.Errorf("expected transcript cleared after submission, got %q", got)
	}
	if spoken := h.spokenTexts(); len(spoken) != 1 || spoken[0] != "You said: hello" {
		t.Errorf("unexpected spoken texts: %v", spoken)
	}

	h.synth.EmitEnd()
	waitFor(t, func() bool { return h.sess.State() == session.StateIdle },
		"never settled to idle")
}

func TestEmptyStopGoesIdle(t *testing.T) {
	h := newHarness(t)

	h.sess.StartListening()
	h.rec.EmitStart()
	h.sess.StopListening()

	waitFor(t, func() bool { return h.sess.State() == session.StateIdle },
		"never settled to idle")
	if calls := h.mock.Calls(); len(calls) != 0 {
		t.Errorf("expected no submission for an empty transcript, got %d", len(calls))
	}
}

func TestLatestTranscriptWins(t *testing.T) {
	h := newHarness(t)

	h.sess.StartListening()
	h.rec.EmitStart()
	h.rec.EmitResults([]recognition.Result{{Transcript: "hello", IsFinal: true}})
	h.rec.EmitResults([]recognition.Result{
		{Transcript: "hello", IsFinal: true},
		{Transcript: "wor", IsFinal: false},
	})
	h.rec.EmitResults([]recognition.Result{
		{Transcript: "hello", IsFinal: true},
		{Transcript: "world", IsFinal: true},
	})
	h.sess.StopListening()

	waitFor(t, func() bool { return len(h.mock.Calls()) == 1 }, "submission never happened")
	calls := h.mock.Calls()
	got := calls[0].Messages[len(calls[0].Messages)-1]
	if got.Content != "hello world" {
		t.Errorf("expected the latest transcript to be submitted, got %q", got.Content)
	}
}

func TestMutualExclusion(t *testing.T) {
	t.Run("starting capture cancels playback", func(t *testing.T) {
		h := newHarness(t)

		h.sess.Speak("announcement")
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"never started speaking")

		if err := h.sess.StartListening(); err != nil {
			t.Fatalf("start: %v", err)
		}
		if got := h.sess.State(); got != session.StateListening {
			t.Errorf("expected listening, got %v", got)
		}
		if h.sess.Snapshot().IsSpeaking {
			t.Error("expected playback to be cancelled")
		}
	})

	t.Run("speaking aborts capture without submitting", func(t *testing.T) {
		h := newHarness(t)

		h.sess.StartListening()
		h.rec.EmitStart()
		h.rec.EmitResults([]recognition.Result{{Transcript: "hello", IsFinal: true}})

		h.sess.Speak("announcement")
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"never started speaking")

		if calls := h.mock.Calls(); len(calls) != 0 {
			t.Errorf("expected the aborted transcript not to submit, got %d calls", len(calls))
		}
	})

	t.Run("start is ignored while processing", func(t *testing.T) {
		release := make(chan struct{})
		h := newHarness(t)
		h.mock.SubmitFunc = func(ctx context.Context, messages []agent.Message, sctx agent.SessionContext) (*agent.Reply, error) {
			<-release
			return &agent.Reply{Content: "done", Context: sctx}, nil
		}

		h.sess.SubmitText("hi")
		if got := h.sess.State(); got != session.StateProcessing {
			t.Fatalf("expected processing, got %v", got)
		}

		if err := h.sess.StartListening(); err != nil {
			t.Fatalf("start: %v", err)
		}
		if got := h.sess.State(); got != session.StateProcessing {
			t.Errorf("expected start to be ignored while processing, got %v", got)
		}

		close(release)
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"reply never played")
	})
}

func TestTypedInputWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t)
	h.mock.SubmitFunc = func(ctx context.Context, messages []agent.Message, sctx agent.SessionContext) (*agent.Reply, error) {
		<-release
		return &agent.Reply{Content: "done", Context: sctx}, nil
	}

	h.sess.SubmitText("first")
	if got := h.sess.State(); got != session.StateProcessing {
		t.Fatalf("expected processing, got %v", got)
	}
	waitFor(t, func() bool { return len(h.mock.Calls()) == 1 }, "first submission never reached the agent")

	// Typed input while a submission is in flight is dropped, so at most
	// one agent call is ever live.
	h.sess.SubmitText("second")
	if calls := h.mock.Calls(); len(calls) != 1 {
		t.Fatalf("expected 1 in-flight agent call, got %d", len(calls))
	}
	if msgs := h.sess.Messages(); len(msgs) != 1 || msgs[0].Content != "first" {
		t.Fatalf("unexpected conversation: %+v", msgs)
	}

	close(release)
	waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
		"reply never played")
	if calls := h.mock.Calls(); len(calls) != 1 {
		t.Errorf("expected the dropped input to stay dropped, got %d calls", len(calls))
	}
	if msgs := h.sess.Messages(); len(msgs) != 2 || msgs[1].Content != "done" {
		t.Errorf("unexpected conversation: %+v", msgs)
	}
}

func TestSubmissionFailure(t *testing.T) {
	h := newHarness(t)
	h.mock.SubmitFunc = func(ctx context.Context, messages []agent.Message, sctx agent.SessionContext) (*agent.Reply, error) {
		return nil, errors.New("agent down")
	}

	h.sess.SubmitText("hi")
	waitFor(t, func() bool { return h.sess.State() == session.StateIdle },
		"never settled to idle")

	snap := h.sess.Snapshot()
	if snap.ErrorMessage == "" {
		t.Error("expected a user-facing error message")
	}
	if msgs := h.sess.Messages(); len(msgs) != 1 {
		t.Errorf("expected only the user message to survive, got %d", len(msgs))
	}
	if spoken := h.spokenTexts(); len(spoken) != 0 {
		t.Errorf("expected nothing spoken, got %v", spoken)
	}
}

func TestVoiceLoop(t *testing.T) {
	t.Run("re-arms listening after the reply", func(t *testing.T) {
		h := newHarness(t, session.WithVoiceLoop())

		h.sess.StartListening()
		h.rec.EmitStart()
		h.rec.EmitResults([]recognition.Result{{Transcript: "hi", IsFinal: true}})
		h.sess.StopListening()
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"reply never played")

		h.synth.EmitEnd()
		waitFor(t, func() bool { return h.sess.State() == session.StateListening },
			"voice loop never re-armed")
	})

	t.Run("does not re-arm while the tab is hidden", func(t *testing.T) {
		h := newHarness(t, session.WithVoiceLoop())

		h.sess.StartListening()
		h.rec.EmitStart()
		h.rec.EmitResults([]recognition.Result{{Transcript: "hi", IsFinal: true}})
		h.sess.StopListening()
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"reply never played")

		h.sess.SetVisible(false)
		h.synth.EmitEnd()
		waitFor(t, func() bool { return h.sess.State() == session.StateIdle },
			"never settled to idle")

		time.Sleep(30 * time.Millisecond)
		if got := h.sess.State(); got != session.StateIdle {
			t.Errorf("expected to stay idle, got %v", got)
		}
	})

	t.Run("manual stop does not re-arm", func(t *testing.T) {
		h := newHarness(t, session.WithVoiceLoop())

		h.sess.Speak("announcement")
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"never started speaking")

		h.sess.StopSpeaking()
		if got := h.sess.State(); got != session.StateIdle {
			t.Fatalf("expected idle, got %v", got)
		}

		// A late platform end must not restart listening either.
		h.synth.EmitEnd()
		time.Sleep(30 * time.Millisecond)
		if got := h.sess.State(); got != session.StateIdle {
			t.Errorf("expected to stay idle, got %v", got)
		}
	})
}

func TestMute(t *testing.T) {
	t.Run("muting during speech settles to idle", func(t *testing.T) {
		h := newHarness(t)

		h.sess.Speak("announcement")
		waitFor(t, func() bool { return h.sess.State() == session.StateSpeaking },
			"never started speaking")

		if muted := h.sess.ToggleMute(); !muted {
			t.Fatal("expected mute to engage")
		}
		if got := h.sess.State(); got != session.StateIdle {
			t.Errorf("expected idle after mute, got %v", got)
		}
	})

	t.Run("muted replies still land in the conversation", func(t *testing.T) {
		h := newHarness(t)
		h.sess.ToggleMute()

		h.sess.SubmitText("hi")
		waitFor(t, func() bool { return len(h.sess.Messages()) == 2 },
			"reply never arrived")
		waitFor(t, func() bool { return h.sess.State() == session.StateIdle },
			"never settled to idle")

		if spoken := h.spokenTexts(); len(spoken) != 0 {
			t.Errorf("expected nothing spoken while muted, got %v", spoken)
		}
	})
}

func TestCaptureErrorSurfacing(t *testing.T) {
	h := newHarness(t, session.WithErrorTTL(20*time.Millisecond, 40*time.Millisecond))

	h.sess.StartListening()
	h.rec.EmitStart()
	h.rec.EmitError(recognition.ErrCodeNoSpeech, "")

	snap := h.sess.Snapshot()
	if snap.ErrorMessage == "" {
		t.Fatal("expected a user-facing error message")
	}
	if h.sess.State() != session.StateIdle {
		t.Errorf("expected idle after a capture error, got %v", h.sess.State())
	}

	waitFor(t, func() bool { return h.sess.Snapshot().ErrorMessage == "" },
		"error never auto-cleared")
}

func TestCustomerContext(t *testing.T) {
	h := newHarness(t)
	h.sess.SetCustomer("cust-42")

	h.sess.SubmitText("where is my order")
	waitFor(t, func() bool { return len(h.mock.Calls()) == 1 }, "submission never happened")

	calls := h.mock.Calls()
	if got := calls[0].Context.CustomerID; got != "cust-42" {
		t.Errorf("expected customer ID to thread through, got %q", got)
	}
}

func TestUpdateOrdering(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var states []string
	h.sess.OnUpdate(func(snap session.Snapshot) {
		mu.Lock()
		states = append(states, snap.VoiceState)
		mu.Unlock()
	})

	const rounds = 5
	for i := 0; i < rounds; i++ {
		h.sess.StartListening()
		h.rec.EmitStart()
		h.sess.StopListening()
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		idles := 0
		for _, s := range states {
			if s == "idle" {
				idles++
			}
		}
		return idles == rounds
	}, "idle snapshots never all arrived")

	// Subscribers see transitions in the order they happened: each round
	// delivers its listening snapshots strictly before its idle one, so
	// the collapsed sequence alternates and never replays a stale state.
	mu.Lock()
	defer mu.Unlock()
	var collapsed []string
	for _, s := range states {
		if len(collapsed) == 0 || collapsed[len(collapsed)-1] != s {
			collapsed = append(collapsed, s)
		}
	}
	if len(collapsed) != 2*rounds {
		t.Fatalf("expected %d alternating states, got %v", 2*rounds, collapsed)
	}
	for i, s := range collapsed {
		want := "listening"
		if i%2 == 1 {
			want = "idle"
		}
		if s != want {
			t.Fatalf("snapshots delivered out of order: %v", collapsed)
		}
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)

	snap := h.sess.Snapshot()
	if snap.SessionID == "" {
		t.Error("expected a session ID")
	}
	if snap.VoiceState != "idle" {
		t.Errorf("expected idle, got %q", snap.VoiceState)
	}
	if !snap.IsMicAvailable {
		t.Error("expected the microphone to be available")
	}
	if snap.IsListening || snap.IsSpeaking || snap.IsMuted {
		t.Errorf("unexpected initial flags: %+v", snap)
	}
}
