package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Imports are tracked per source under this key prefix.
const importHashPrefix = "import_hash:"

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO store_metadata (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata returns the value for key and when it was last written. A missing
// key yields "", the zero time and a nil error.
func (s *Store) GetMetadata(key string) (string, time.Time, error) {
	var (
		value string
		at    time.Time
	)
	err := s.db.QueryRow(`SELECT value, updated_at FROM store_metadata WHERE key = ?`, key).Scan(&value, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, at, nil
}

// GetImportedFileHash returns the SHA-256 recorded for the last import of source,
// or "" if it was never imported.
func (s *Store) GetImportedFileHash(source string) (string, error) {
	hash, at, err := s.GetMetadata(importHashPrefix + source)
	if err == nil && hash != "" {
		slog.Debug("previous import found", "source", source, "at", at)
	}
	return hash, err
}

// SetImportedFileHash records the SHA-256 of an imported source.
func (s *Store) SetImportedFileHash(source, hash string) error {
	return s.SetMetadata(importHashPrefix+source, hash)
}
