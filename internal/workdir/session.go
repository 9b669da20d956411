// Package workdir lays out per-run working directories for chunk artifacts.
// Each session is flock-guarded so concurrent invocations can never share a
// directory, and cleanup is explicit so failed runs leave their artifacts
// behind for inspection.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Session is one run's working directory.
type Session struct {
	ID   string
	Root string
	lock *flock.Flock
}

// NewSession creates a uniquely named, locked working directory under base.
func NewSession(base string) (*Session, error) {
	id := uuid.NewString()
	root := filepath.Join(base, id)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	lock := flock.New(filepath.Join(root, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock session dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("session dir %s already locked", root)
	}

	return &Session{ID: id, Root: root, lock: lock}, nil
}

// ChunkDir returns the directory that holds chunk WAV artifacts.
func (s *Session) ChunkDir() string {
	return filepath.Join(s.Root, "chunks")
}

// Close releases the lock. The directory stays in place.
func (s *Session) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Cleanup releases the lock and removes the session directory.
func (s *Session) Cleanup() error {
	if err := s.Close(); err != nil {
		return err
	}
	return os.RemoveAll(s.Root)
}
