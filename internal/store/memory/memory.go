// Package memory is an in-memory store for tests and headless contexts where
// no durable backend is available. State survives only for the process.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	state  *domain.AppState
	outbox []domain.SyncOperation
	kv     map[string]string

	// FailWrites simulates an unavailable backend so tests can assert the
	// best-effort failure paths without hidden exception suppression.
	FailWrites bool
}

func New() *Store {
	return &Store{kv: map[string]string{}}
}

func (s *Store) Close() error { return nil }

func (s *Store) SaveState(ctx context.Context, state domain.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return store.ErrUnavailable
	}
	cloned := cloneState(state)
	s.state = &cloned
	return nil
}

func (s *Store) LoadState(ctx context.Context) (*domain.AppState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, nil
	}
	cloned := cloneState(*s.state)
	return &cloned, nil
}

func (s *Store) AppendOperation(ctx context.Context, op domain.SyncOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return store.ErrUnavailable
	}
	s.outbox = append(s.outbox, op)
	return nil
}

func (s *Store) ListOperations(ctx context.Context) ([]domain.SyncOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ops := make([]domain.SyncOperation, len(s.outbox))
	copy(ops, s.outbox)
	return ops, nil
}

func (s *Store) DeleteOperations(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return store.ErrUnavailable
	}
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]domain.SyncOperation, 0, len(s.outbox))
	for _, op := range s.outbox {
		if !drop[op.ID] {
			kept = append(kept, op)
		}
	}
	s.outbox = kept
	return nil
}

func (s *Store) ClearOperations(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return store.ErrUnavailable
	}
	s.outbox = nil
	return nil
}

func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.kv[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) SetValue(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return store.ErrUnavailable
	}
	s.kv[key] = value
	return nil
}

func (s *Store) DeleteValue(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

// cloneState deep-copies through JSON; cheap enough for a test store and
// guarantees callers can never alias internal slices.
func cloneState(state domain.AppState) domain.AppState {
	raw, err := json.Marshal(state)
	if err != nil {
		return state
	}
	var out domain.AppState
	if err := json.Unmarshal(raw, &out); err != nil {
		return state
	}
	return out
}

var _ store.Store = (*Store)(nil)
