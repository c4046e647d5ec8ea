// Package session persists the session token between runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/nextory-downloader/internal/nextory"
)

// ErrNoSession is returned by Load when no token has been saved.
var ErrNoSession = errors.New("no saved session")

// Store keeps a single token in a file.
type Store struct {
	path string
}

// NewStore creates a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved session.
func (s *Store) Load() (*nextory.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil, ErrNoSession
	}
	return nextory.FromToken(token), nil
}

// Save writes the session token, readable by the owner only.
func (s *Store) Save(session *nextory.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token folder: %w", err)
	}
	return os.WriteFile(s.path, []byte(session.Token()), 0600)
}

// Clear removes the saved token. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
