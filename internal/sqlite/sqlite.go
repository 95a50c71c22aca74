package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mapworkbench/internal/model"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);`

// Open opens (creating if needed) the sqlite database at dbPath
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Store is a single-table key/value store holding the saved composition
// list and the active id, mirroring browser local storage
type Store struct {
	db *sql.DB
}

// NewStore applies the schema and returns a store over db
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `, key, value, time.Now().UnixMilli())
	return err
}

func (s *Store) delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// LoadCompositions reads the saved list; a missing row is an empty list
func (s *Store) LoadCompositions(ctx context.Context) ([]*model.Composition, error) {
	value, ok, err := s.get(ctx, model.SavedCompositionsKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", model.SavedCompositionsKey, err)
	}
	if !ok {
		return nil, nil
	}
	list, err := model.UnmarshalCompositions([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", model.SavedCompositionsKey, err)
	}
	return list, nil
}

// SaveCompositions overwrites the saved list
func (s *Store) SaveCompositions(ctx context.Context, list []*model.Composition) error {
	data, err := model.MarshalCompositions(list)
	if err != nil {
		return err
	}
	return s.set(ctx, model.SavedCompositionsKey, string(data))
}

// LoadActiveID returns the active composition id or ""
func (s *Store) LoadActiveID(ctx context.Context) (string, error) {
	value, _, err := s.get(ctx, model.ActiveCompositionKey)
	return value, err
}

// SaveActiveID stores the active id; "" removes it
func (s *Store) SaveActiveID(ctx context.Context, id string) error {
	if id == "" {
		return s.delete(ctx, model.ActiveCompositionKey)
	}
	return s.set(ctx, model.ActiveCompositionKey, id)
}
