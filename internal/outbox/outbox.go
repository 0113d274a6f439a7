// Package outbox is the durable, ordered queue of mutations not yet
// confirmed by the remote authority.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

type Outbox struct {
	log store.OperationLog
}

func New(log store.OperationLog) *Outbox {
	return &Outbox{log: log}
}

// Enqueue assigns a unique id and the current timestamp and appends the
// operation durably. The returned error exists so tests can assert failure
// paths; callers on the mutation path discard it. A write that fails to
// enqueue is lost from the sync perspective, but the local state still
// reflects it.
func (o *Outbox) Enqueue(ctx context.Context, opType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", opType, err)
	}
	return o.log.AppendOperation(ctx, domain.SyncOperation{
		ID:        uuid.NewString(),
		Type:      opType,
		Payload:   raw,
		CreatedAt: time.Now().UnixMilli(),
	})
}

// ReadAll returns all pending operations in insertion order.
func (o *Outbox) ReadAll(ctx context.Context) ([]domain.SyncOperation, error) {
	return o.log.ListOperations(ctx)
}

// Clear removes all entries. Call only after the remote authority confirmed
// the batch that was read by the same caller.
func (o *Outbox) Clear(ctx context.Context) error {
	return o.log.ClearOperations(ctx)
}

// Flush reads all pending operations and hands them to handler as one batch.
// Only the operations that were read are removed, and only when the handler
// returns nil; operations enqueued while the handler runs stay queued for the
// next flush. A handler error propagates and leaves every entry queued for
// retry.
func (o *Outbox) Flush(ctx context.Context, handler func(context.Context, []domain.SyncOperation) error) error {
	ops, err := o.ReadAll(ctx)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	if err := handler(ctx, ops); err != nil {
		return err
	}
	ids := make([]string, len(ops))
	for i, op := range ops {
		ids[i] = op.ID
	}
	return o.log.DeleteOperations(ctx, ids)
}
