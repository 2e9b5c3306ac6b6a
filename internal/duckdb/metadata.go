package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
)

// MetaSource is the metadata key holding the service base URL the cached
// responses were fetched from.
const MetaSource = "source"

// Meta returns the metadata value for key, or "" if unset.
func (s *Store) Meta(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM cache_metadata WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read metadata %s: %w", key, err)
	}
	return v, nil
}

// SetMeta stores a metadata value, replacing any previous one.
func (s *Store) SetMeta(key, value string) error {
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO cache_metadata VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("write metadata %s: %w", key, err)
	}
	return nil
}

// EnsureSource ties the cache to one service base URL. Responses cached from a
// different source are cleared. It reports whether anything was cleared.
func (s *Store) EnsureSource(baseURL string) (bool, error) {
	prev, err := s.Meta(MetaSource)
	if err != nil {
		return false, err
	}
	if prev == baseURL {
		return false, nil
	}

	cleared := false
	if prev != "" {
		if err := s.ClearResponses(); err != nil {
			return false, err
		}
		cleared = true
	}
	return cleared, s.SetMeta(MetaSource, baseURL)
}
