package store_test

import (
	"context"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
	"dukanpos/backend/internal/store/memory"
)

func TestTiered_WritesPreferPrimary(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	fallback := memory.New()
	tiered := store.NewTiered(primary, fallback)

	state := domain.DefaultState()
	state.Config.StoreName = "Primary Shop"
	if err := tiered.SaveState(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, _ := primary.LoadState(ctx)
	if loaded == nil || loaded.Config.StoreName != "Primary Shop" {
		t.Fatalf("expected state in primary, got %+v", loaded)
	}
	if loaded, _ := fallback.LoadState(ctx); loaded != nil {
		t.Fatalf("fallback must stay untouched while primary works, got %+v", loaded)
	}
}

func TestTiered_FailedPrimaryFallsBack(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	primary.FailWrites = true
	fallback := memory.New()
	tiered := store.NewTiered(primary, fallback)

	state := domain.DefaultState()
	state.Config.StoreName = "Fallback Shop"
	if err := tiered.SaveState(ctx, state); err != nil {
		t.Fatalf("save should succeed via fallback: %v", err)
	}

	loaded, err := tiered.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || loaded.Config.StoreName != "Fallback Shop" {
		t.Fatalf("expected fallback state, got %+v", loaded)
	}
}

func TestTiered_LoadFallsThroughWhenPrimaryEmpty(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	fallback := memory.New()

	state := domain.DefaultState()
	state.Config.StoreName = "Old Run"
	if err := fallback.SaveState(ctx, state); err != nil {
		t.Fatalf("seed fallback: %v", err)
	}

	tiered := store.NewTiered(primary, fallback)
	loaded, err := tiered.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || loaded.Config.StoreName != "Old Run" {
		t.Fatalf("expected state recovered from fallback, got %+v", loaded)
	}
}

func TestTiered_ClearOperationsClearsBothTiers(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	fallback := memory.New()

	op := domain.SyncOperation{ID: "op-1", Type: domain.OpAddProduct, Payload: []byte(`{}`), CreatedAt: 1}
	if err := primary.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append primary: %v", err)
	}
	op.ID = "op-2"
	if err := fallback.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append fallback: %v", err)
	}

	tiered := store.NewTiered(primary, fallback)
	if err := tiered.ClearOperations(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if ops, _ := primary.ListOperations(ctx); len(ops) != 0 {
		t.Fatalf("primary outbox not cleared: %d", len(ops))
	}
	if ops, _ := fallback.ListOperations(ctx); len(ops) != 0 {
		t.Fatalf("fallback outbox not cleared: %d", len(ops))
	}
}

func TestTiered_DeleteOperationsSpansBothTiers(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	fallback := memory.New()

	op := domain.SyncOperation{ID: "op-1", Type: domain.OpAddProduct, Payload: []byte(`{}`), CreatedAt: 1}
	if err := primary.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append primary: %v", err)
	}
	op.ID = "op-2"
	if err := fallback.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append fallback: %v", err)
	}
	op.ID = "op-3"
	if err := primary.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append primary: %v", err)
	}

	tiered := store.NewTiered(primary, fallback)
	if err := tiered.DeleteOperations(ctx, []string{"op-1", "op-2"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ops, _ := primary.ListOperations(ctx); len(ops) != 1 || ops[0].ID != "op-3" {
		t.Fatalf("expected op-3 left in primary, got %+v", ops)
	}
	if ops, _ := fallback.ListOperations(ctx); len(ops) != 0 {
		t.Fatalf("expected op-2 deleted from fallback, got %+v", ops)
	}
}

func TestTiered_ListOperationsFallsBackWhenPrimaryEmpty(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	fallback := memory.New()

	op := domain.SyncOperation{ID: "op-1", Type: domain.OpAddProduct, Payload: []byte(`{}`), CreatedAt: 1}
	if err := fallback.AppendOperation(ctx, op); err != nil {
		t.Fatalf("append: %v", err)
	}

	tiered := store.NewTiered(primary, fallback)
	ops, err := tiered.ListOperations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 1 || ops[0].ID != "op-1" {
		t.Fatalf("expected fallback operations, got %+v", ops)
	}
}
