// Package syncer drives the push-then-pull reconciliation cycle against the
// remote authority. Pushing happens strictly before pulling so that freshly
// queued local writes are not immediately shadowed by a stale snapshot.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/outbox"
	"dukanpos/backend/internal/wire"
)

// DefaultTimeout bounds each network leg; an exceeded deadline aborts the
// in-flight request and counts as a failure (queue preserved).
const DefaultTimeout = 15 * time.Second

var ErrPushFailed = errors.New("push rejected by remote authority")

// HeaderFunc injects credential headers into every sync request. The
// orchestrator never generates credentials itself.
type HeaderFunc func(ctx context.Context) map[string]string

type Syncer struct {
	baseURL string
	client  *http.Client
	queue   *outbox.Outbox
	headers HeaderFunc
	timeout time.Duration

	busy atomic.Bool
}

func New(baseURL string, queue *outbox.Outbox, headers HeaderFunc) *Syncer {
	if headers == nil {
		headers = func(context.Context) map[string]string { return nil }
	}
	return &Syncer{
		baseURL: baseURL,
		client:  &http.Client{},
		queue:   queue,
		headers: headers,
		timeout: DefaultTimeout,
	}
}

// Configured reports whether a remote authority base URL is set.
func (s *Syncer) Configured() bool { return s.baseURL != "" }

// SyncNow runs one full cycle: push the outbox as a single batch, then pull
// a fresh snapshot. Returns the pulled snapshot (nil when no backend is
// configured or the pull failed) and the first error encountered, which the
// caller surfaces as a "sync failed, will retry" signal. Overlapping calls
// coalesce: a cycle already in flight makes this call a no-op. The outbox
// is cleared only on confirmed success of this call's own push, so
// operations queued between a stale read and its failure are never lost.
func (s *Syncer) SyncNow(ctx context.Context) (*domain.Snapshot, error) {
	if !s.Configured() {
		return nil, nil
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer s.busy.Store(false)

	pushErr := s.pushOutbox(ctx)
	snapshot, pullErr := s.pullSnapshot(ctx)
	if pushErr != nil {
		return snapshot, pushErr
	}
	return snapshot, pullErr
}

// pushOutbox submits all pending operations as one batch. On any failure
// the queue is left untouched for retry; duplicate deliveries are tolerated
// upstream by idempotent upserts.
func (s *Syncer) pushOutbox(ctx context.Context) error {
	return s.queue.Flush(ctx, func(ctx context.Context, ops []domain.SyncOperation) error {
		translated := make([]wire.Operation, 0, len(ops))
		for _, op := range ops {
			out, err := translateOperation(op)
			if err != nil {
				return err
			}
			translated = append(translated, out)
		}

		body, err := json.Marshal(map[string]any{"ops": translated})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sync/apply", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		s.applyHeaders(ctx, req)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: HTTP %d", ErrPushFailed, resp.StatusCode)
		}

		var ack wire.ApplyResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ack); err != nil {
			return err
		}
		if !ack.OK {
			return fmt.Errorf("%w: %s", ErrPushFailed, ack.Error)
		}
		return nil
	})
}

// pullSnapshot requests the authority's full current state and translates
// the remote field naming into local entity shapes.
func (s *Syncer) pullSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/sync/snapshot", nil)
	if err != nil {
		return nil, err
	}
	s.applyHeaders(ctx, req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("snapshot pull: HTTP %d", resp.StatusCode)
	}

	var remote wire.Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snapshot := remote.ToDomain()
	return &snapshot, nil
}

func (s *Syncer) applyHeaders(ctx context.Context, req *http.Request) {
	for key, value := range s.headers(ctx) {
		req.Header.Set(key, value)
	}
}

// translateOperation converts a locally-shaped operation payload to the
// authority's wire shape. Unknown types pass through untranslated; the
// authority skips what it does not recognize.
func translateOperation(op domain.SyncOperation) (wire.Operation, error) {
	out := wire.Operation{ID: op.ID, Type: op.Type, CreatedAt: op.CreatedAt}

	switch op.Type {
	case domain.OpAddProduct, domain.OpUpdateProduct:
		var p domain.Product
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = wire.FromProduct(p)
	case domain.OpAddCategory, domain.OpUpdateCategory:
		var c domain.Category
		if err := json.Unmarshal(op.Payload, &c); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = wire.FromCategory(c)
	case domain.OpSellItems:
		var inv domain.SaleInvoice
		if err := json.Unmarshal(op.Payload, &inv); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = wire.FromSale(inv)
	case domain.OpAddPurchase:
		var inv domain.PurchaseInvoice
		if err := json.Unmarshal(op.Payload, &inv); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = wire.FromPurchase(inv)
	case domain.OpUpdateConfig:
		var cfg struct {
			StoreName    string  `json:"storeName"`
			Currency     string  `json:"currency"`
			ExchangeRate float64 `json:"exchangeRate"`
		}
		if err := json.Unmarshal(op.Payload, &cfg); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = wire.Config{ID: "singleton", StoreName: cfg.StoreName, Currency: cfg.Currency, ExchangeRate: cfg.ExchangeRate}
	case domain.OpAddAccount, domain.OpUpdateAccount:
		var a domain.Account
		if err := json.Unmarshal(op.Payload, &a); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = wire.FromAccount(a)
	case domain.OpDeleteProduct, domain.OpDeleteCategory, domain.OpDeleteAccount:
		var raw map[string]any
		if err := json.Unmarshal(op.Payload, &raw); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = raw
	default:
		var raw any
		if err := json.Unmarshal(op.Payload, &raw); err != nil {
			return out, fmt.Errorf("decode %s payload: %w", op.Type, err)
		}
		out.Payload = raw
	}
	return out, nil
}
