package kvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "pos-state.json"))

	loaded, err := s.LoadState(ctx)
	if err != nil || loaded != nil {
		t.Fatalf("expected nil state for missing file, got %+v (%v)", loaded, err)
	}

	state := domain.DefaultState()
	state.Config.StoreName = "Corner Shop"
	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = s.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || loaded.Config.StoreName != "Corner Shop" {
		t.Fatalf("unexpected state: %+v", loaded)
	}
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pos-state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := New(path)

	loaded, err := s.LoadState(ctx)
	if err != nil || loaded != nil {
		t.Fatalf("corrupt file must read as empty, got %+v (%v)", loaded, err)
	}

	// Writes must still succeed and replace the corrupt document.
	if err := s.SetValue(ctx, "k", "v"); err != nil {
		t.Fatalf("set after corruption: %v", err)
	}
	value, err := s.GetValue(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("expected v, got %q (%v)", value, err)
	}
}

func TestOutboxAndKVShareOneDocument(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "pos-state.json"))

	if err := s.SetValue(ctx, "pos_device_id", "dev-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	err := s.AppendOperation(ctx, domain.SyncOperation{
		ID: "op-1", Type: domain.OpAddProduct, Payload: []byte(`{"id":"p1"}`), CreatedAt: 1,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// Appending the operation must not have clobbered the KV entry.
	value, err := s.GetValue(ctx, "pos_device_id")
	if err != nil || value != "dev-1" {
		t.Fatalf("expected dev-1, got %q (%v)", value, err)
	}

	ops, err := s.ListOperations(ctx)
	if err != nil || len(ops) != 1 || ops[0].ID != "op-1" {
		t.Fatalf("unexpected outbox: %+v (%v)", ops, err)
	}

	if err := s.ClearOperations(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ops, _ = s.ListOperations(ctx)
	if len(ops) != 0 {
		t.Fatalf("expected cleared outbox, got %d", len(ops))
	}

	if err := s.DeleteValue(ctx, "pos_device_id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetValue(ctx, "pos_device_id"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
