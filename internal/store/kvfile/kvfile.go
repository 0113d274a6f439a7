// Package kvfile is the plain fallback tier: a single JSON document on disk,
// rewritten atomically on every change. It is attempted only when the
// structured primary tier is unavailable.
package kvfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

type document struct {
	State  json.RawMessage        `json:"state,omitempty"`
	Outbox []domain.SyncOperation `json:"outbox,omitempty"`
	KV     map[string]string      `json:"kv,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Close() error { return nil }

// read loads the current document; a missing or corrupt file yields an
// empty document so the fallback tier never refuses to operate.
func (s *Store) read() document {
	doc := document{KV: map[string]string{}}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{KV: map[string]string{}}
	}
	if doc.KV == nil {
		doc.KV = map[string]string{}
	}
	return doc
}

func (s *Store) write(doc document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode fallback document: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) SaveState(ctx context.Context, state domain.AppState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	doc.State = raw
	return s.write(doc)
}

func (s *Store) LoadState(ctx context.Context) (*domain.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	if len(doc.State) == 0 {
		return nil, nil
	}
	var state domain.AppState
	if err := json.Unmarshal(doc.State, &state); err != nil {
		return nil, nil
	}
	return &state, nil
}

func (s *Store) AppendOperation(ctx context.Context, op domain.SyncOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	doc.Outbox = append(doc.Outbox, op)
	return s.write(doc)
}

func (s *Store) ListOperations(ctx context.Context) ([]domain.SyncOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	ops := make([]domain.SyncOperation, len(doc.Outbox))
	copy(ops, doc.Outbox)
	return ops, nil
}

func (s *Store) DeleteOperations(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]domain.SyncOperation, 0, len(doc.Outbox))
	for _, op := range doc.Outbox {
		if !drop[op.ID] {
			kept = append(kept, op)
		}
	}
	if len(kept) == len(doc.Outbox) {
		return nil
	}
	doc.Outbox = kept
	return s.write(doc)
}

func (s *Store) ClearOperations(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	if len(doc.Outbox) == 0 {
		return nil
	}
	doc.Outbox = nil
	return s.write(doc)
}

func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	value, ok := doc.KV[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) SetValue(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	doc.KV[key] = value
	return s.write(doc)
}

func (s *Store) DeleteValue(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	if _, ok := doc.KV[key]; !ok {
		return nil
	}
	delete(doc.KV, key)
	return s.write(doc)
}

var _ store.Store = (*Store)(nil)
