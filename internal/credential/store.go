// Package credential persists the opaque access credential between runs.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Credential is an opaque access token. Callers only test its presence.
type Credential string

// Store holds at most one credential.
// A missing credential is reported by Get's bool, never as an error.
type Store interface {
	Get() (Credential, bool)
	Set(Credential) error
	Clear() error
}

// DefaultPath returns ~/.portcullis/token.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".portcullis", "token"), nil
}

// FileStore keeps the credential in a single file readable only by its owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored credential. Unreadable or empty files count as absent.
func (s *FileStore) Get() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", false
	}
	return Credential(tok), true
}

// Set writes c, creating the parent directory if needed.
func (s *FileStore) Set(c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credential.Set: create dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(c), 0o600); err != nil {
		return fmt.Errorf("credential.Set: %w", err)
	}
	return nil
}

// Clear removes the file. Clearing an absent credential is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credential.Clear: %w", err)
	}
	return nil
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	tok Credential
}

// NewMemoryStore returns a store seeded with c; pass "" for an empty store.
func NewMemoryStore(c Credential) *MemoryStore {
	return &MemoryStore{tok: c}
}

// Get returns the held credential, if any.
func (s *MemoryStore) Get() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, s.tok != ""
}

// Set replaces the held credential. It never fails.
func (s *MemoryStore) Set(c Credential) error {
	s.mu.Lock()
	s.tok = c
	s.mu.Unlock()
	return nil
}

// Clear forgets the held credential. It never fails.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.tok = ""
	s.mu.Unlock()
	return nil
}
