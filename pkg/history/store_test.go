package history_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voiceloop/voiceloop/pkg/history"
)

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat", "history.json")

	store, err := history.NewJSONStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("append assigns identity", func(t *testing.T) {
		entry, err := store.Append("user", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.ID == "" {
			t.Error("expected an ID")
		}
		if entry.CreatedAt.IsZero() {
			t.Error("expected a timestamp")
		}
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		if _, err := store.Append("assistant", "hi there"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, err := store.List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Content != "hello" || entries[1].Content != "hi there" {
			t.Errorf("unexpected order: %q then %q", entries[0].Content, entries[1].Content)
		}
	})

	t.Run("entries survive a reload", func(t *testing.T) {
		reloaded, err := history.NewJSONStore(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entries, err := reloaded.List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected 2 entries after reload, got %d", len(entries))
		}
	})

	t.Run("clear empties the log on disk", func(t *testing.T) {
		if err := store.Clear(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reloaded, err := history.NewJSONStore(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entries, _ := reloaded.List()
		if len(entries) != 0 {
			t.Errorf("expected an empty log, got %d entries", len(entries))
		}
	})

	t.Run("no temp file is left behind", func(t *testing.T) {
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("expected temp file to be renamed away, stat err: %v", err)
		}
	})
}

func TestJSONStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	store, err := history.NewJSONStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected an empty store, got %d entries", len(entries))
	}
}
