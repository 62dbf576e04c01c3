package adminstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotSet is returned by Get before the admin has bootstrapped the bot
// with /start. Callers treat it as "skip", not as a failure.
var ErrNotSet = errors.New("admin chat not set")

type record struct {
	AdminChatID int64 `json:"adminChatId"`
}

// Store persists the admin's notification chat ID as a single JSON record
// on disk, so scheduled notifications survive restarts.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store bound to the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Get returns the stored admin chat ID. A missing, malformed or empty
// record yields ErrNotSet.
func (s *Store) Get() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, ErrNotSet
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, ErrNotSet
	}
	if rec.AdminChatID <= 0 {
		return 0, ErrNotSet
	}

	return rec.AdminChatID, nil
}

// Set stores the admin chat ID. The record is written to a temp file and
// renamed over the target, so a concurrent Get never sees a partial write.
func (s *Store) Set(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record{AdminChatID: chatID})
	if err != nil {
		return fmt.Errorf("marshal admin state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".admin_state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
