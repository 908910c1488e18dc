// Package localstore keeps the terminal assistant's state in a local SQLite
// key-value table. Each key holds one JSON document that is rewritten whole.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	keyHistory   = "chatHistory"
	keyReminders = "reminders"
	keyTheme     = "theme"
	keySessionID = "sessionId"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// Reminder is a locally scheduled note. Time is the user's input as typed
// ("2006-01-02T15:04").
type Reminder struct {
	Message string `json:"message"`
	Time    string `json:"time"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}
	// One writer keeps SQLite from reporting "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("localstore: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localstore: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	raw, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("localstore: decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	return s.put(ctx, key, string(raw))
}

// LoadHistory returns the persisted transcript, oldest first.
func (s *Store) LoadHistory(ctx context.Context) ([]string, error) {
	var entries []string
	if err := s.getJSON(ctx, keyHistory, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) SaveHistory(ctx context.Context, entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	return s.putJSON(ctx, keyHistory, entries)
}

func (s *Store) ClearHistory(ctx context.Context) error {
	return s.delete(ctx, keyHistory)
}

func (s *Store) Reminders(ctx context.Context) ([]Reminder, error) {
	var rems []Reminder
	if err := s.getJSON(ctx, keyReminders, &rems); err != nil {
		return nil, err
	}
	return rems, nil
}

func (s *Store) SaveReminders(ctx context.Context, rems []Reminder) error {
	if rems == nil {
		rems = []Reminder{}
	}
	return s.putJSON(ctx, keyReminders, rems)
}

// Theme returns the saved theme name, or "" when none was chosen.
func (s *Store) Theme(ctx context.Context) (string, error) {
	name, _, err := s.get(ctx, keyTheme)
	return name, err
}

func (s *Store) SetTheme(ctx context.Context, name string) error {
	return s.put(ctx, keyTheme, name)
}

// SessionID returns the id sent with every command, creating it on first use.
func (s *Store) SessionID(ctx context.Context) (string, error) {
	id, ok, err := s.get(ctx, keySessionID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.put(ctx, keySessionID, id); err != nil {
		return "", err
	}
	return id, nil
}
