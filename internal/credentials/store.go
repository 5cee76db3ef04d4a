// AngelaMos | 2026
// store.go

package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Persistence selects which slot a token is written into. Exactly one
// slot holds the token at a time; writing one clears the other.
type Persistence int

const (
	// SessionScoped keeps the token in process memory only.
	SessionScoped Persistence = iota
	// Durable keeps the token on disk so it survives a restart.
	Durable
)

const tokenFileName = "token"

// Store is the single owner of the bearer token. Callers never touch
// the underlying slots directly.
type Store struct {
	mu     sync.Mutex
	path   string
	memory string
}

func NewStore(stateDir string) *Store {
	return &Store{
		path: filepath.Join(stateDir, tokenFileName),
	}
}

// Has reports whether a token exists in either slot.
func (s *Store) Has() bool {
	return s.Token() != ""
}

// Token returns the cached token, or "" when none exists. Unreadable
// durable state degrades to absence rather than an error.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memory != "" {
		return s.memory
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// Write stores the token into exactly one slot and clears the other.
func (s *Store) Write(token string, persistence Persistence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if persistence == SessionScoped {
		s.memory = token
		return s.removeFileLocked()
	}

	s.memory = ""

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}

	return nil
}

// Clear removes the token from both slots. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory = ""
	return s.removeFileLocked()
}

func (s *Store) removeFileLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
