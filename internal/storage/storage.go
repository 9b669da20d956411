// Package storage is the narrow object-storage collaborator surface: read
// bytes, write bytes. The pipeline never needs bucket or credential
// concepts; callers hand it whatever backend implements the two calls.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes whole artifacts by path.
type Store interface {
	ReadBytes(path string) ([]byte, error)
	WriteBytes(path string, data []byte) error
}

// Filesystem implements Store on the local filesystem. A non-empty Root
// scopes all paths beneath it.
type Filesystem struct {
	Root string
}

func (f Filesystem) resolve(path string) string {
	if f.Root == "" {
		return path
	}
	return filepath.Join(f.Root, path)
}

func (f Filesystem) ReadBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(f.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (f Filesystem) WriteBytes(path string, data []byte) error {
	resolved := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("ensure directory for %s: %w", path, err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
