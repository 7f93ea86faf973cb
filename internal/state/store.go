package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrStateCorrupt is returned when the persisted state file exists but
// cannot be parsed. The store never auto-repairs; the caller decides
// whether to surface the problem or reset.
var ErrStateCorrupt = errors.New("state file corrupt")

// Store manages persistence of the SystemState singleton.
type Store struct {
	Path string // Location of the state file
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// DefaultPath returns the default state file location
// (~/.rehydrate/state.json).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rehydrate/state.json"
	}
	return filepath.Join(home, ".rehydrate", "state.json")
}

// ResolvePath returns the state file path from env var or default.
func ResolvePath(environ []string) string {
	for _, env := range environ {
		if strings.HasPrefix(env, "REHYDRATE_STATE_FILE=") {
			return strings.TrimPrefix(env, "REHYDRATE_STATE_FILE=")
		}
	}
	return DefaultPath()
}

// Load reads the persisted state, returning the initial state when no
// file exists yet. Malformed data yields ErrStateCorrupt.
func (s *Store) Load() (SystemState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Initial(), nil
		}
		return SystemState{}, err
	}

	var st SystemState
	if err := json.Unmarshal(data, &st); err != nil {
		return SystemState{}, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, s.Path, err)
	}

	// Older files may omit the collections entirely.
	if st.ActiveEnvironments == nil {
		st.ActiveEnvironments = []string{}
	}
	if st.History == nil {
		st.History = []HistoryRecord{}
	}
	if st.SystemStatus == "" {
		st.SystemStatus = StatusUninitialized
	}

	return st, nil
}

// Save persists the state atomically: the encoding is written to a
// temporary file in the same directory, then renamed into place, so a
// crash mid-write never leaves a partially written state file.
func (s *Store) Save(st SystemState) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// Reset persists and returns the initial state.
func (s *Store) Reset() (SystemState, error) {
	st := Initial()
	if err := s.Save(st); err != nil {
		return SystemState{}, err
	}
	return st, nil
}
