package recognition_test

import (
	"errors"
	"testing"

	"github.com/voiceloop/voiceloop/pkg/recognition"
)

func TestBridge(t *testing.T) {
	t.Run("double start is rejected", func(t *testing.T) {
		b := recognition.NewBridge()
		if err := b.Start(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := b.Start(); !errors.Is(err, recognition.ErrAlreadyStarted) {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	})

	t.Run("end event frees the session", func(t *testing.T) {
		b := recognition.NewBridge()
		b.Start()
		b.EmitEnd()
		if b.Started() {
			t.Error("expected session to be dead after end")
		}
		if err := b.Start(); err != nil {
			t.Errorf("expected restart after end, got %v", err)
		}
	})

	t.Run("failed command rolls the session back", func(t *testing.T) {
		b := recognition.NewBridge()
		b.StartFunc = func() error { return errors.New("relay down") }
		if err := b.Start(); err == nil {
			t.Fatal("expected the command error")
		}
		if b.Started() {
			t.Error("expected no live session after a failed start")
		}
	})

	t.Run("commands are suppressed without a session", func(t *testing.T) {
		b := recognition.NewBridge()
		called := false
		b.StopFunc = func() { called = true }
		b.AbortFunc = func() { called = true }

		b.Stop()
		b.Abort()
		if called {
			t.Error("expected no commands without a live session")
		}
	})
}
