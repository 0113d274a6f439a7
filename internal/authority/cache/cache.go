package cache

import (
	"context"
	"time"

	"dukanpos/backend/internal/wire"
)

// SnapshotCache short-circuits snapshot assembly for the polling terminals.
// Entries are keyed per license so tenants never see each other's data.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*wire.Snapshot, bool, error)
	Set(ctx context.Context, key string, value *wire.Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context, _ string) (*wire.Snapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ string, _ *wire.Snapshot, _ time.Duration) error {
	return nil
}

func (NoopSnapshotCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
