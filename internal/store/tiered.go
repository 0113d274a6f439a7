package store

import (
	"context"
	"log"
	"sync"

	"dukanpos/backend/internal/domain"
)

// Tiered layers a primary structured store over a plain fallback store.
// Writes go to the primary and, only when the primary fails, to the fallback.
// Reads follow the same order so both tiers stay consistent with each other.
// A failure of both tiers degrades silently: persistence here is best-effort
// and must never block or corrupt the in-memory state.
type Tiered struct {
	primary  Store
	fallback Store

	warnOnce sync.Once
}

func NewTiered(primary, fallback Store) *Tiered {
	return &Tiered{primary: primary, fallback: fallback}
}

func (t *Tiered) warn(err error) {
	t.warnOnce.Do(func() {
		log.Printf("[store] WARN: primary tier unavailable, using fallback: %v", err)
	})
}

func (t *Tiered) SaveState(ctx context.Context, state domain.AppState) error {
	if err := t.primary.SaveState(ctx, state); err != nil {
		t.warn(err)
		return t.fallback.SaveState(ctx, state)
	}
	return nil
}

func (t *Tiered) LoadState(ctx context.Context) (*domain.AppState, error) {
	state, err := t.primary.LoadState(ctx)
	if err != nil {
		t.warn(err)
		return t.fallback.LoadState(ctx)
	}
	if state == nil {
		// Absent in the primary tier: a previous run may have written only
		// to the fallback (e.g. the primary was unavailable then).
		return t.fallback.LoadState(ctx)
	}
	return state, nil
}

func (t *Tiered) AppendOperation(ctx context.Context, op domain.SyncOperation) error {
	if err := t.primary.AppendOperation(ctx, op); err != nil {
		t.warn(err)
		return t.fallback.AppendOperation(ctx, op)
	}
	return nil
}

func (t *Tiered) ListOperations(ctx context.Context) ([]domain.SyncOperation, error) {
	ops, err := t.primary.ListOperations(ctx)
	if err != nil {
		t.warn(err)
		return t.fallback.ListOperations(ctx)
	}
	if len(ops) == 0 {
		return t.fallback.ListOperations(ctx)
	}
	return ops, nil
}

func (t *Tiered) DeleteOperations(ctx context.Context, ids []string) error {
	// The batch may span both tiers; delete the ids from each. Leftovers are
	// harmless (at-least-once delivery; the authority upserts by id).
	perr := t.primary.DeleteOperations(ctx, ids)
	if perr != nil {
		t.warn(perr)
	}
	ferr := t.fallback.DeleteOperations(ctx, ids)
	if perr != nil {
		return perr
	}
	return ferr
}

func (t *Tiered) ClearOperations(ctx context.Context) error {
	// Clear both tiers: queued operations may live in either. Leftovers are
	// harmless (at-least-once delivery; the authority upserts by id).
	perr := t.primary.ClearOperations(ctx)
	if perr != nil {
		t.warn(perr)
	}
	ferr := t.fallback.ClearOperations(ctx)
	if perr != nil {
		return perr
	}
	return ferr
}

func (t *Tiered) GetValue(ctx context.Context, key string) (string, error) {
	value, err := t.primary.GetValue(ctx, key)
	if err == nil {
		return value, nil
	}
	return t.fallback.GetValue(ctx, key)
}

func (t *Tiered) SetValue(ctx context.Context, key string, value string) error {
	if err := t.primary.SetValue(ctx, key, value); err != nil {
		t.warn(err)
		return t.fallback.SetValue(ctx, key, value)
	}
	return nil
}

func (t *Tiered) DeleteValue(ctx context.Context, key string) error {
	perr := t.primary.DeleteValue(ctx, key)
	ferr := t.fallback.DeleteValue(ctx, key)
	if perr != nil {
		return ferr
	}
	return nil
}

func (t *Tiered) Close() error {
	perr := t.primary.Close()
	ferr := t.fallback.Close()
	if perr != nil {
		return perr
	}
	return ferr
}
