package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/outbox"
	"dukanpos/backend/internal/store/memory"
)

func seedQueue(t *testing.T, queue *outbox.Outbox) {
	t.Helper()
	ctx := context.Background()
	err := queue.Enqueue(ctx, domain.OpAddProduct, domain.Product{
		ID: "p1", Name: "Coffee", Price: 5, Stock: 10, CategoryID: "c1",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestSyncNow_UnconfiguredIsNoop(t *testing.T) {
	queue := outbox.New(memory.New())
	s := New("", queue, nil)

	snapshot, err := s.SyncNow(context.Background())
	if snapshot != nil || err != nil {
		t.Fatalf("expected noop, got %v / %v", snapshot, err)
	}
}

func TestSyncNow_PushBeforePullAndClearOnSuccess(t *testing.T) {
	ctx := context.Background()
	queue := outbox.New(memory.New())
	seedQueue(t, queue)

	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/sync/apply":
			var req struct {
				Ops []map[string]any `json:"ops"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode apply body: %v", err)
			}
			if len(req.Ops) != 1 {
				t.Errorf("expected 1 op, got %d", len(req.Ops))
			} else {
				payload, _ := req.Ops[0]["payload"].(map[string]any)
				// The wire shape uses snake_case field names.
				if payload["category_id"] != "c1" {
					t.Errorf("expected snake_case payload, got %v", payload)
				}
				if _, ok := payload["categoryId"]; ok {
					t.Errorf("local field naming leaked to the wire: %v", payload)
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		case "/sync/snapshot":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"config": map[string]any{
					"id": "singleton", "store_name": "HQ", "currency": "$", "exchange_rate": 42,
				},
				"products": []map[string]any{
					{"id": "p1", "name": "Coffee", "price": 6, "stock": 99},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := New(server.URL, queue, nil)
	snapshot, err := s.SyncNow(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if len(calls) != 2 || calls[0] != "POST /sync/apply" || calls[1] != "GET /sync/snapshot" {
		t.Fatalf("expected push then pull, got %v", calls)
	}
	if snapshot == nil || snapshot.Config == nil || snapshot.Config.StoreName != "HQ" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if len(snapshot.Products) != 1 || snapshot.Products[0].Price != 6 {
		t.Fatalf("unexpected products: %+v", snapshot.Products)
	}

	ops, _ := queue.ReadAll(ctx)
	if len(ops) != 0 {
		t.Fatalf("expected cleared outbox after confirmed push, got %d", len(ops))
	}
}

func TestSyncNow_FailedPushKeepsQueueButStillPulls(t *testing.T) {
	ctx := context.Background()
	queue := outbox.New(memory.New())
	seedQueue(t, queue)

	pulled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sync/apply":
			w.WriteHeader(http.StatusInternalServerError)
		case "/sync/snapshot":
			pulled = true
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}
	}))
	defer server.Close()

	s := New(server.URL, queue, nil)
	snapshot, err := s.SyncNow(ctx)
	if err == nil {
		t.Fatalf("expected push failure to surface")
	}
	if !pulled {
		t.Fatalf("pull must proceed even when push fails")
	}
	if snapshot == nil {
		t.Fatalf("expected snapshot from the independent pull")
	}

	ops, _ := queue.ReadAll(ctx)
	if len(ops) != 1 {
		t.Fatalf("failed push must keep the queue, got %d entries", len(ops))
	}
}

func TestSyncNow_RejectedAckKeepsQueue(t *testing.T) {
	ctx := context.Background()
	queue := outbox.New(memory.New())
	seedQueue(t, queue)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sync/apply":
			// HTTP success but a business-level rejection.
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "bad batch"})
		case "/sync/snapshot":
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}
	}))
	defer server.Close()

	s := New(server.URL, queue, nil)
	if _, err := s.SyncNow(ctx); err == nil {
		t.Fatalf("expected rejected ack to surface as error")
	}

	ops, _ := queue.ReadAll(ctx)
	if len(ops) != 1 {
		t.Fatalf("rejected batch must keep the queue, got %d entries", len(ops))
	}
}

func TestSyncNow_SendsCredentialHeaders(t *testing.T) {
	ctx := context.Background()
	queue := outbox.New(memory.New())

	var gotKey, gotDevice string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-License-Key")
		gotDevice = r.Header.Get("X-Device-Id")
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	headers := func(context.Context) map[string]string {
		return map[string]string{"X-License-Key": "LIC-1", "X-Device-Id": "dev-1"}
	}
	s := New(server.URL, queue, headers)
	if _, err := s.SyncNow(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if gotKey != "LIC-1" || gotDevice != "dev-1" {
		t.Fatalf("expected credential headers, got %q / %q", gotKey, gotDevice)
	}
}
