// Package store provides persistence for the theme preference and its
// change history.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/themed/internal/model"
)

// CurrentSchemaVersion is the current version of the state schema.
const CurrentSchemaVersion = 1

// StateDir returns the path to the themed state directory.
// Uses XDG_STATE_HOME or defaults to ~/.local/state/themed.
func StateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "themed"), nil
}

// StateFilePath returns the default path to the state file.
func StateFilePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// HistoryPathFor returns the history log path that sits next to a state file.
func HistoryPathFor(statePath string) string {
	return filepath.Join(filepath.Dir(statePath), "history.jsonl")
}

// State is the on-disk content of the state file.
type State struct {
	SchemaVersion  int               `json:"schema_version"`
	Values         map[string]string `json:"values"`
	LastTransition *model.Transition `json:"last_transition,omitempty"`
}

// DefaultState returns an empty state.
func DefaultState() *State {
	return &State{
		SchemaVersion: CurrentSchemaVersion,
		Values:        make(map[string]string),
	}
}

// FileStore is a key-value store backed by a JSON state file.
// Every write rewrites the file atomically via a temp file. Writes from
// several processes are serialized by a lock file next to the state file.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore creates a FileStore at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored value for key.
// An unreadable or corrupted file reads as empty.
func (s *FileStore) Get(key string) (string, bool) {
	state, err := s.Load()
	if err != nil {
		return "", false
	}
	v, ok := state.Values[key]
	return v, ok
}

// Set stores value under key.
func (s *FileStore) Set(key, value string) error {
	return s.update(func(state *State) {
		state.Values[key] = value
	})
}

// SetTransition records the last applied transition.
func (s *FileStore) SetTransition(t *model.Transition) error {
	return s.update(func(state *State) {
		state.LastTransition = t
	})
}

// Load reads the full state.
// If the file doesn't exist or is corrupted, returns a default state.
func (s *FileStore) Load() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked()
}

func (s *FileStore) readLocked() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultState(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	if state.Values == nil {
		state.Values = make(map[string]string)
	}

	return &state, nil
}

// update applies fn to the current state and writes it back.
// The read-modify-write holds the cross-process lock.
func (s *FileStore) update(fn func(*State)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := acquireLock(lockPathFor(s.path))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, lock.Release())
	}()

	state, err := s.readLocked()
	if err != nil {
		return err
	}
	fn(state)
	return s.writeLocked(state)
}

func (s *FileStore) writeLocked(state *State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(s.path, data)
}

// MemoryStore is an in-process key-value store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value for key.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
