package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pos.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	loaded, err := s.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil state before first save, got %+v", loaded)
	}

	state := domain.DefaultState()
	state.Products = []domain.Product{{ID: "p1", Name: "Coffee", Price: 5, Stock: 10}}
	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = s.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || len(loaded.Products) != 1 || loaded.Products[0].Name != "Coffee" {
		t.Fatalf("unexpected state after round trip: %+v", loaded)
	}

	// A second save replaces, not appends.
	state.Products[0].Stock = 3
	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, _ = s.LoadState(ctx)
	if loaded.Products[0].Stock != 3 {
		t.Fatalf("expected replaced snapshot, got stock %d", loaded.Products[0].Stock)
	}
}

func TestOutboxOrderSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i, id := range []string{"op-1", "op-2", "op-3"} {
		err := s.AppendOperation(ctx, domain.SyncOperation{
			ID:        id,
			Type:      domain.OpAddProduct,
			Payload:   []byte(`{"id":"p1"}`),
			CreatedAt: int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	ops, err := s.ListOperations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations after reopen, got %d", len(ops))
	}
	for i, id := range []string{"op-1", "op-2", "op-3"} {
		if ops[i].ID != id {
			t.Fatalf("expected %s at position %d, got %s", id, i, ops[i].ID)
		}
	}

	if err := s.ClearOperations(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ops, _ = s.ListOperations(ctx)
	if len(ops) != 0 {
		t.Fatalf("expected empty outbox after clear, got %d", len(ops))
	}
}

func TestDeleteOperations_RemovesOnlyGivenIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i, id := range []string{"op-1", "op-2", "op-3"} {
		err := s.AppendOperation(ctx, domain.SyncOperation{
			ID:        id,
			Type:      domain.OpAddProduct,
			Payload:   []byte(`{"id":"p1"}`),
			CreatedAt: int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := s.DeleteOperations(ctx, []string{"op-1", "op-2"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ops, err := s.ListOperations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 1 || ops[0].ID != "op-3" {
		t.Fatalf("expected only op-3 to remain, got %+v", ops)
	}
}

func TestAppendOperation_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	op := domain.SyncOperation{ID: "op-1", Type: domain.OpAddProduct, Payload: []byte(`{}`), CreatedAt: 1}
	if err := s.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendOperation(ctx, op); err == nil {
		t.Fatalf("expected unique constraint violation for duplicate id")
	}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.GetValue(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetValue(ctx, "pos_license_key", "LIC-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := s.GetValue(ctx, "pos_license_key")
	if err != nil || value != "LIC-1" {
		t.Fatalf("expected LIC-1, got %q (%v)", value, err)
	}

	if err := s.SetValue(ctx, "pos_license_key", "LIC-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, _ = s.GetValue(ctx, "pos_license_key")
	if value != "LIC-2" {
		t.Fatalf("expected overwrite to LIC-2, got %q", value)
	}

	if err := s.DeleteValue(ctx, "pos_license_key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetValue(ctx, "pos_license_key"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
