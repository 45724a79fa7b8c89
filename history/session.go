package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Session is the persisted form of a stack for one site.
type Session struct {
	Site    string  `json:"site"`
	Entries []Entry `json:"entries"`
	Index   int     `json:"index"`
}

// DefaultPath returns the session file path.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "sitenav", "session.json"), nil
}

// Snapshot captures the stack for the given site origin.
func (s *Stack) Snapshot(site string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Session{
		Site:    site,
		Entries: append([]Entry(nil), s.entries...),
		Index:   s.index,
	}
}

// Restore rebuilds a stack from a session.
func Restore(sess *Session) (*Stack, error) {
	if sess == nil || len(sess.Entries) == 0 {
		return nil, errors.New("empty session")
	}
	if sess.Index < 0 || sess.Index >= len(sess.Entries) {
		return nil, errors.New("session index out of range")
	}
	return &Stack{
		entries: append([]Entry(nil), sess.Entries...),
		index:   sess.Index,
	}, nil
}

// Load reads the session file at path. A missing file is reported with an
// error matching os.ErrNotExist.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", path, err)
	}
	return &sess, nil
}

// Save writes sess to path through a temporary file, so an interrupted save
// leaves the previous session intact.
func Save(path string, sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing a session that was never saved
// is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
