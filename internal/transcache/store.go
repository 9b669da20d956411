// Package transcache persists recognizer output keyed by the SHA-256 of the
// chunk's audio bytes, so reprocessing a track never re-uploads chunks whose
// audio was already transcribed.
package transcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    audio_hash TEXT PRIMARY KEY,
    srt_payload TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

// Store manages transcript persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HashFile returns the cache key for an audio artifact.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash audio: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Lookup returns the cached SRT payload for a hash. The boolean reports
// whether the hash was present.
func (s *Store) Lookup(ctx context.Context, audioHash string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT srt_payload FROM transcripts WHERE audio_hash = ?`, audioHash,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup transcript: %w", err)
	}
	return payload, true, nil
}

// Save stores the SRT payload for a hash, replacing any previous entry.
func (s *Store) Save(ctx context.Context, audioHash, srtPayload string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (audio_hash, srt_payload, created_at) VALUES (?, ?, ?)`,
		audioHash, srtPayload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}
