// Package sqlite is the primary durable tier: the full application-state
// snapshot under a fixed key, the sync outbox, and scalar KV entries.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const stateKey = "app_state"

type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path. The database is
// configured with WAL mode, NORMAL synchronous, a 5-second busy timeout and
// a single-writer connection pool. Safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveState(ctx context.Context, state domain.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, stateKey, string(payload), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Store) LoadState(ctx context.Context) (*domain.AppState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM app_state WHERE key = ?`, stateKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var state domain.AppState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		// A corrupt snapshot is treated as absence; the caller falls back
		// to defaults rather than refusing to start.
		return nil, nil
	}
	return &state, nil
}

func (s *Store) AppendOperation(ctx context.Context, op domain.SyncOperation) error {
	payload := string(op.Payload)
	if payload == "" {
		payload = "null"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, type, payload, created_at) VALUES (?, ?, ?, ?)
	`, op.ID, op.Type, payload, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}
	return nil
}

func (s *Store) ListOperations(ctx context.Context) ([]domain.SyncOperation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, payload, created_at FROM outbox ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	ops := make([]domain.SyncOperation, 0, 16)
	for rows.Next() {
		var op domain.SyncOperation
		var payload string
		if err := rows.Scan(&op.ID, &op.Type, &payload, &op.CreatedAt); err != nil {
			return nil, err
		}
		op.Payload = json.RawMessage(payload)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func (s *Store) DeleteOperations(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete operations: %w", err)
	}
	return nil
}

func (s *Store) ClearOperations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox`); err != nil {
		return fmt.Errorf("clear operations: %w", err)
	}
	return nil
}

func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetValue(ctx context.Context, key string, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteValue(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
