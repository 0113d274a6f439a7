package store

import (
	"context"
	"errors"

	"dukanpos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnavailable       = errors.New("storage unavailable")
)

// StateStore persists the full application-state snapshot under a fixed key.
// Load returns (nil, nil) when no snapshot has been saved yet.
type StateStore interface {
	SaveState(ctx context.Context, state domain.AppState) error
	LoadState(ctx context.Context) (*domain.AppState, error)
}

// OperationLog is the durable backing of the sync outbox. Operations are
// appended and read back in insertion order. DeleteOperations removes only
// the ids it is given, so entries appended concurrently stay queued.
type OperationLog interface {
	AppendOperation(ctx context.Context, op domain.SyncOperation) error
	ListOperations(ctx context.Context) ([]domain.SyncOperation, error)
	DeleteOperations(ctx context.Context, ids []string) error
	ClearOperations(ctx context.Context) error
}

// KV holds lightweight scalar values (device identity, license key,
// serialized account list). Get returns ErrNotFound for missing keys.
type KV interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key string, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// Store is the complete local durability surface.
type Store interface {
	StateStore
	OperationLog
	KV
	Close() error
}
