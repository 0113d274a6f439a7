package authority_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dukanpos/backend/internal/authority"
	"dukanpos/backend/internal/authority/memory"
	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/wire"
)

func newTestAPI(t *testing.T) (*memory.Store, http.Handler) {
	t.Helper()
	store := memory.New()
	seedLicense(t, store, domain.License{
		LicenseKey: "LIC-1",
		Status:     domain.LicenseStatusActive,
		MaxDevices: 3,
	})
	return store, authority.NewAPI(store, nil, "*", 0).Handler()
}

func licensedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-License-Key", "LIC-1")
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("X-Register-Device", "1")
	return req
}

func TestSnapshot_RequiresLicense(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/snapshot", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sync/snapshot", nil)
	req.Header.Set("X-License-Key", "LIC-wrong")
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("X-Register-Device", "1")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown license, got %d", rec.Code)
	}
}

func TestApplyThenSnapshot(t *testing.T) {
	_, handler := newTestAPI(t)

	body := `{"ops":[
		{"id":"op-1","type":"ADD_CATEGORY","payload":{"id":"c1","name":"Drinks"},"created_at":1},
		{"id":"op-2","type":"ADD_PRODUCT","payload":{"id":"p1","name":"Coffee","price":5,"stock":10,"category_id":"c1"},"created_at":2}
	]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/apply", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var ack wire.ApplyResponse
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil || !ack.OK {
		t.Fatalf("expected ok ack, got %+v (%v)", ack, err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodGet, "/sync/snapshot", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: expected 200, got %d", rec.Code)
	}
	var snapshot wire.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Products) != 1 || snapshot.Products[0].Name != "Coffee" {
		t.Fatalf("unexpected products: %+v", snapshot.Products)
	}
	if len(snapshot.Categories) != 1 || snapshot.Categories[0].ID != "c1" {
		t.Fatalf("unexpected categories: %+v", snapshot.Categories)
	}
	if snapshot.License == nil {
		t.Fatalf("expected license in snapshot")
	}
	if snapshot.License.SignatureSecret != "" {
		t.Fatalf("signature secret must never leave the authority")
	}
	if len(snapshot.License.Devices) != 1 || snapshot.License.Devices[0].Signature == "" {
		t.Fatalf("expected the registered device with its signature, got %+v", snapshot.License.Devices)
	}
}

func TestApply_IsIdempotent(t *testing.T) {
	store, handler := newTestAPI(t)

	body := `{"ops":[{"id":"op-1","type":"ADD_PRODUCT","payload":{"id":"p1","name":"Coffee","price":5,"stock":10},"created_at":1}]}`
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/apply", body))
		if rec.Code != http.StatusOK {
			t.Fatalf("apply attempt %d: got %d", i+1, rec.Code)
		}
	}

	products, _ := store.ListProducts(context.Background())
	if len(products) != 1 {
		t.Fatalf("replayed batch must upsert, got %d products", len(products))
	}
}

func TestApply_FirstFailureAbortsBatch(t *testing.T) {
	store, handler := newTestAPI(t)

	// The delete payload is missing its id, so the batch fails before the
	// second operation runs.
	body := `{"ops":[
		{"id":"op-1","type":"DELETE_PRODUCT","payload":{},"created_at":1},
		{"id":"op-2","type":"ADD_PRODUCT","payload":{"id":"p1","name":"Coffee"},"created_at":2}
	]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/apply", body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var ack wire.ApplyResponse
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil || ack.OK || ack.Error == "" {
		t.Fatalf("expected error ack, got %+v (%v)", ack, err)
	}

	products, _ := store.ListProducts(context.Background())
	if len(products) != 0 {
		t.Fatalf("operations after the failure must not apply, got %+v", products)
	}
}

func TestApply_SkipsUnknownOperationTypes(t *testing.T) {
	store, handler := newTestAPI(t)

	body := `{"ops":[
		{"id":"op-1","type":"FUTURE_OP","payload":{"anything":true},"created_at":1},
		{"id":"op-2","type":"ADD_PRODUCT","payload":{"id":"p1","name":"Coffee"},"created_at":2}
	]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/apply", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown types must not fail the batch, got %d: %s", rec.Code, rec.Body.String())
	}

	products, _ := store.ListProducts(context.Background())
	if len(products) != 1 {
		t.Fatalf("known operations around the unknown one must apply, got %+v", products)
	}
}

func TestApply_DeleteAccount(t *testing.T) {
	store, handler := newTestAPI(t)
	ctx := context.Background()
	if err := store.UpsertAccount(ctx, domain.Account{Username: "Maria", Password: "x", Role: domain.RoleEmployee}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	body := `{"ops":[{"id":"op-1","type":"DELETE_ACCOUNT","payload":{"username":"maria"},"created_at":1}]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/apply", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	accounts, _ := store.ListAccounts(ctx)
	if len(accounts) != 0 {
		t.Fatalf("expected account removed, got %+v", accounts)
	}
}

func TestDeviceRemove(t *testing.T) {
	store, handler := newTestAPI(t)

	// Register dev-1 via an authenticated call, then a second device.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodGet, "/sync/snapshot", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("register dev-1: got %d", rec.Code)
	}
	req := licensedRequest(http.MethodGet, "/sync/snapshot", "")
	req.Header.Set("X-Device-Id", "dev-2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("register dev-2: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/device-remove", `{"device_id":"dev-2"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	lic, _ := store.GetLicense(context.Background(), "LIC-1")
	if len(lic.Devices) != 1 || lic.Devices[0].ID != "dev-1" {
		t.Fatalf("unexpected devices after removal: %+v", lic.Devices)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, licensedRequest(http.MethodPost, "/sync/device-remove", `{"device_id":"dev-404"}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown device, got %d", rec.Code)
	}
}
