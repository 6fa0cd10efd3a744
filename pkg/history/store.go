// Package history persists the chat conversation log.
//
// The voice session core treats persistence as a collaborator: it
// appends entries as submissions and replies happen and never reads
// them back on the hot path.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one persisted chat message.
type Entry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines conversation log operations.
type Store interface {
	// Append records a new entry and returns it with ID and timestamp set.
	Append(role, content string) (*Entry, error)

	// List returns all entries in insertion order.
	List() ([]*Entry, error)

	// Clear removes all entries.
	Clear() error
}

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path    string
	entries []*Entry
	mu      sync.Mutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Entries   []*Entry `json:"entries"`
}

const currentVersion = 1

// NewJSONStore creates a JSON-backed conversation log at the given path.
// If the file doesn't exist, it will be created on first append.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{path: path}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("history: load store: %w", err)
		}
	}
	return store, nil
}

// load reads the store from disk.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	s.entries = stored.Entries
	return nil
}

// save writes the store to disk. Caller holds the lock.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:   s.entries,
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	// Write through a temp file so a crash never truncates the log.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Append records a new entry.
func (s *JSONStore) Append(role, content string) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if err := s.save(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return nil, fmt.Errorf("history: save: %w", err)
	}
	return entry, nil
}

// List returns all entries in insertion order.
func (s *JSONStore) List() ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Clear removes all entries.
func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.save()
}
