// Package store persists application state as whole JSON documents in a
// key-value table backed by sqlite. There are no partial updates: every
// write replaces the entire document for its key.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/schoolgenius/schoolgenius/internal/model"

	_ "modernc.org/sqlite"
)

// Fixed document keys.
const (
	KeySettings = "settings"
	KeyResults  = "results"
)

type Store struct {
	db *sql.DB
}

// New opens (and if necessary creates) the database at dbPath.
// Use ":memory:" for an ephemeral store in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the raw JSON document stored under key.
// The second return value is false when the key is absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read document %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set upserts the whole document under key.
func (s *Store) Set(key string, doc []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, string(doc), string(doc),
	)
	if err != nil {
		return fmt.Errorf("write document %q: %w", key, err)
	}
	return nil
}

// Remove deletes the document under key. Removing an absent key is a no-op.
func (s *Store) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("remove document %q: %w", key, err)
	}
	return nil
}

// Settings loads the active test configuration. A missing document yields
// the defaults; documents written before the subject field existed are
// migrated to Mathematics on load.
func (s *Store) Settings() (model.TestSettings, error) {
	data, ok, err := s.Get(KeySettings)
	if err != nil {
		return model.TestSettings{}, err
	}
	if !ok {
		return model.DefaultSettings(), nil
	}
	var settings model.TestSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return model.TestSettings{}, fmt.Errorf("parse settings: %w", err)
	}
	if settings.Subject == "" {
		settings.Subject = model.SubjectMathematics
	}
	if settings.Questions == nil {
		settings.Questions = []model.Question{}
	}
	return settings, nil
}

// SaveSettings overwrites the entire settings document, replacing all
// prior questions.
func (s *Store) SaveSettings(settings model.TestSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.Set(KeySettings, data)
}

// Results returns the recorded history, newest first. A missing document
// yields an empty slice.
func (s *Store) Results() ([]model.StudentResult, error) {
	data, ok, err := s.Get(KeyResults)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.StudentResult{}, nil
	}
	var results []model.StudentResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return results, nil
}

// AppendResult prepends a result to the history and rewrites the whole
// document. Existing entries are never mutated or dropped.
func (s *Store) AppendResult(result model.StudentResult) error {
	current, err := s.Results()
	if err != nil {
		return err
	}
	updated := append([]model.StudentResult{result}, current...)
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return s.Set(KeyResults, data)
}

// ClearResults removes the entire result history.
func (s *Store) ClearResults() error {
	return s.Remove(KeyResults)
}
