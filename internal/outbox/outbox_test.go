package outbox

import (
	"context"
	"errors"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store/memory"
)

func TestEnqueue_AssignsIdentityAndOrder(t *testing.T) {
	ctx := context.Background()
	queue := New(memory.New())

	for i := 0; i < 3; i++ {
		if err := queue.Enqueue(ctx, domain.OpAddProduct, map[string]any{"id": i}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ops, err := queue.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ops))
	}

	seen := make(map[string]bool)
	for i, op := range ops {
		if op.ID == "" {
			t.Fatalf("operation %d has no id", i)
		}
		if seen[op.ID] {
			t.Fatalf("duplicate operation id %q", op.ID)
		}
		seen[op.ID] = true
		if op.CreatedAt <= 0 {
			t.Fatalf("operation %d has no timestamp", i)
		}
		if string(op.Payload) != `{"id":`+string(rune('0'+i))+`}` {
			t.Fatalf("operation %d out of order: %s", i, op.Payload)
		}
	}
}

func TestFlush_ClearsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	queue := New(memory.New())
	for i := 0; i < 3; i++ {
		if err := queue.Enqueue(ctx, domain.OpAddProduct, map[string]string{"id": "p"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	sentinel := errors.New("backend down")
	err := queue.Flush(ctx, func(context.Context, []domain.SyncOperation) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}

	ops, _ := queue.ReadAll(ctx)
	if len(ops) != 3 {
		t.Fatalf("failed flush must keep the queue, got %d entries", len(ops))
	}

	var delivered int
	err = queue.Flush(ctx, func(_ context.Context, batch []domain.SyncOperation) error {
		delivered = len(batch)
		return nil
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if delivered != 3 {
		t.Fatalf("expected full batch of 3, got %d", delivered)
	}

	ops, _ = queue.ReadAll(ctx)
	if len(ops) != 0 {
		t.Fatalf("successful flush must clear the queue, got %d entries", len(ops))
	}
}

func TestFlush_RemovesOnlyTheFlushedBatch(t *testing.T) {
	ctx := context.Background()
	queue := New(memory.New())
	if err := queue.Enqueue(ctx, domain.OpAddProduct, map[string]string{"id": "p1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	err := queue.Flush(ctx, func(ctx context.Context, _ []domain.SyncOperation) error {
		// A mutation lands while the push is in flight.
		return queue.Enqueue(ctx, domain.OpAddCategory, map[string]string{"id": "c1"})
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	remaining, err := queue.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Type != domain.OpAddCategory {
		t.Fatalf("operation enqueued during the flush was lost, got %+v", remaining)
	}
}

func TestFlush_EmptyQueueSkipsHandler(t *testing.T) {
	ctx := context.Background()
	queue := New(memory.New())

	called := false
	err := queue.Flush(ctx, func(context.Context, []domain.SyncOperation) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if called {
		t.Fatalf("handler must not run for an empty queue")
	}
}

func TestEnqueue_SurfacesBackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	backend.FailWrites = true
	queue := New(backend)

	if err := queue.Enqueue(ctx, domain.OpAddProduct, map[string]string{"id": "p"}); err == nil {
		t.Fatalf("expected enqueue error when backend is unavailable")
	}
}
