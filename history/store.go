// Package history persists past analyses in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"parlo/segment"
)

// StoreError wraps any persistence I/O failure so callers can tell it
// apart from inference failures.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store keeps one keyed collection of history items. The database is
// opened per operation and every read/modify/write runs in its own
// implicit transaction; there is no long-lived connection and no
// application-level locking.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Init establishes the collection. Idempotent; safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return &StoreError{Op: "init", Err: err}
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		date TEXT NOT NULL,
		analysis TEXT NOT NULL
	);
	`)
	if err != nil {
		return &StoreError{Op: "init", Err: err}
	}
	return nil
}

// Put upserts by id, overwriting any existing record.
func (s *Store) Put(ctx context.Context, item segment.HistoryItem) error {
	payload, err := json.Marshal(item.Analysis)
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}

	db, err := s.open()
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
	INSERT INTO history (id, filename, date, analysis)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		filename = excluded.filename,
		date = excluded.date,
		analysis = excluded.analysis;
	`, item.ID, item.Filename, item.Date, string(payload))
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	return nil
}

// List returns every item, most recent first. IDs are time-based, so
// descending numeric order yields newest-first.
func (s *Store) List(ctx context.Context) ([]segment.HistoryItem, error) {
	db, err := s.open()
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
	SELECT id, filename, date, analysis
	FROM history
	ORDER BY CAST(id AS INTEGER) DESC;
	`)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var items []segment.HistoryItem
	for rows.Next() {
		var item segment.HistoryItem
		var payload string
		if err := rows.Scan(&item.ID, &item.Filename, &item.Date, &payload); err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		if err := json.Unmarshal([]byte(payload), &item.Analysis); err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return items, nil
}

// Get fetches one item by id. The boolean reports presence.
func (s *Store) Get(ctx context.Context, id string) (segment.HistoryItem, bool, error) {
	db, err := s.open()
	if err != nil {
		return segment.HistoryItem{}, false, &StoreError{Op: "get", Err: err}
	}
	defer db.Close()

	var item segment.HistoryItem
	var payload string
	err = db.QueryRowContext(ctx, `
	SELECT id, filename, date, analysis FROM history WHERE id = ?;
	`, id).Scan(&item.ID, &item.Filename, &item.Date, &payload)
	if err == sql.ErrNoRows {
		return segment.HistoryItem{}, false, nil
	}
	if err != nil {
		return segment.HistoryItem{}, false, &StoreError{Op: "get", Err: err}
	}
	if err := json.Unmarshal([]byte(payload), &item.Analysis); err != nil {
		return segment.HistoryItem{}, false, &StoreError{Op: "get", Err: err}
	}
	return item, true, nil
}

// Delete removes the record if present. Deleting an absent id is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.open()
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `DELETE FROM history WHERE id = ?;`, id); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}
