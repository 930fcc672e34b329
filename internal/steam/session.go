package steam

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"rustactions/internal/fileutil"
)

// Session is the persisted login state. It never carries a password.
type Session struct {
	Username  string    `json:"username"`
	LoggedIn  bool      `json:"logged_in"`
	LastLogin time.Time `json:"last_login,omitzero"`
}

// SessionStore abstracts persistence for steam login state.
type SessionStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FileSessionStore writes session state to a JSON file on disk.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore builds a FileSessionStore rooted at the provided path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Load reads session state from disk. A missing file resolves to an empty state.
func (s *FileSessionStore) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read steam session: %w", err)
	}
	var state Session
	if err := json.Unmarshal(data, &state); err != nil {
		return Session{}, fmt.Errorf("decode steam session: %w", err)
	}
	return state, nil
}

// Save persists session state with owner-only permissions.
func (s *FileSessionStore) Save(state Session) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode steam session: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write steam session: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove steam session: %w", err)
	}
	return nil
}
