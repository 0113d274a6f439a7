package authority

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"dukanpos/backend/internal/authority/cache"
	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/wire"
)

type API struct {
	store         Store
	cache         cache.SnapshotCache
	allowedOrigin string
	snapshotTTL   time.Duration
}

func NewAPI(store Store, snapshotCache cache.SnapshotCache, allowedOrigin string, snapshotTTL time.Duration) *API {
	if snapshotCache == nil {
		snapshotCache = cache.NoopSnapshotCache{}
	}
	if snapshotTTL <= 0 {
		snapshotTTL = 5 * time.Second
	}
	return &API{
		store:         store,
		cache:         snapshotCache,
		allowedOrigin: allowedOrigin,
		snapshotTTL:   snapshotTTL,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/sync/snapshot", a.handleSnapshot)
	mux.HandleFunc("/sync/apply", a.handleApply)
	mux.HandleFunc("/sync/device-remove", a.handleDeviceRemove)

	return a.withMiddleware(mux)
}

func identityFromRequest(r *http.Request) DeviceIdentity {
	return DeviceIdentity{
		LicenseKey: strings.TrimSpace(r.Header.Get("X-License-Key")),
		DeviceID:   strings.TrimSpace(r.Header.Get("X-Device-Id")),
		DeviceName: strings.TrimSpace(r.Header.Get("X-Device-Name")),
		DeviceType: strings.TrimSpace(r.Header.Get("X-Device-Type")),
		Signature:  strings.TrimSpace(r.Header.Get("X-Device-Signature")),
		Register:   r.Header.Get("X-Register-Device") == "1",
	}
}

// assertLicense maps license failures to their HTTP status and writes the
// error response itself; callers bail out when it returns nil.
func (a *API) assertLicense(w http.ResponseWriter, r *http.Request) *domain.License {
	lic, err := AssertLicense(r.Context(), a.store, identityFromRequest(r))
	if err == nil {
		return lic
	}
	switch {
	case errors.Is(err, ErrLicenseRequired):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, ErrLicenseInvalid), errors.Is(err, ErrLicenseBlocked),
		errors.Is(err, ErrDeviceRejected), errors.Is(err, ErrDeviceLimit):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
	return nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	lic := a.assertLicense(w, r)
	if lic == nil {
		return
	}

	ctx := r.Context()
	cacheKey := snapshotCacheKey(lic.LicenseKey)
	if cached, ok, err := a.cache.Get(ctx, cacheKey); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	snapshot, err := a.buildSnapshot(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	snapshot.License = licenseForWire(lic)

	if err := a.cache.Set(ctx, cacheKey, snapshot, a.snapshotTTL); err != nil {
		log.Printf("[authority] WARN: snapshot cache write failed: %v", err)
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) buildSnapshot(r *http.Request) (*wire.Snapshot, error) {
	ctx := r.Context()
	snapshot := &wire.Snapshot{
		Products:   []wire.Product{},
		Categories: []wire.Category{},
		Sales:      []wire.Sale{},
		Purchases:  []wire.Purchase{},
		Accounts:   []wire.Account{},
	}

	if config, err := a.store.GetConfig(ctx); err == nil {
		converted := wire.FromConfig(*config)
		snapshot.Config = &converted
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	products, err := a.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		snapshot.Products = append(snapshot.Products, wire.FromProduct(p))
	}

	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		snapshot.Categories = append(snapshot.Categories, wire.FromCategory(c))
	}

	sales, err := a.store.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sales {
		snapshot.Sales = append(snapshot.Sales, wire.FromSale(s))
	}

	purchases, err := a.store.ListPurchases(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range purchases {
		snapshot.Purchases = append(snapshot.Purchases, wire.FromPurchase(p))
	}

	accounts, err := a.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		snapshot.Accounts = append(snapshot.Accounts, wire.FromAccount(account))
	}

	return snapshot, nil
}

// licenseForWire strips the signature secret before the license leaves the
// authority; device signatures stay so each terminal can pick up its own.
func licenseForWire(lic *domain.License) *wire.License {
	converted := wire.FromLicense(*lic)
	converted.SignatureSecret = ""
	return &converted
}

func (a *API) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	lic := a.assertLicense(w, r)
	if lic == nil {
		return
	}

	var req wire.ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, wire.ApplyResponse{Error: err.Error()})
		return
	}

	// Operations apply in batch order; the first failure aborts the batch so
	// the terminal retries the whole thing. Upserts make the retry harmless.
	for _, op := range req.Ops {
		if err := a.applyOperation(r, op); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, wire.ApplyResponse{
				Error: fmt.Sprintf("apply %s %s: %v", op.Type, op.ID, err),
			})
			return
		}
	}

	if err := a.cache.Invalidate(r.Context(), snapshotCacheKey(lic.LicenseKey)); err != nil {
		log.Printf("[authority] WARN: snapshot cache invalidation failed: %v", err)
	}
	writeJSON(w, http.StatusOK, wire.ApplyResponse{OK: true})
}

func (a *API) applyOperation(r *http.Request, op wire.RawOperation) error {
	ctx := r.Context()

	switch op.Type {
	case domain.OpAddProduct, domain.OpUpdateProduct:
		var p wire.Product
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return err
		}
		return a.store.UpsertProduct(ctx, p.ToDomain())

	case domain.OpDeleteProduct:
		id, err := deleteID(op.Payload)
		if err != nil {
			return err
		}
		return a.store.DeleteProduct(ctx, id)

	case domain.OpAddCategory, domain.OpUpdateCategory:
		var c wire.Category
		if err := json.Unmarshal(op.Payload, &c); err != nil {
			return err
		}
		return a.store.UpsertCategory(ctx, c.ToDomain())

	case domain.OpDeleteCategory:
		id, err := deleteID(op.Payload)
		if err != nil {
			return err
		}
		return a.store.DeleteCategory(ctx, id)

	case domain.OpSellItems:
		var s wire.Sale
		if err := json.Unmarshal(op.Payload, &s); err != nil {
			return err
		}
		return a.store.UpsertSale(ctx, s.ToDomain())

	case domain.OpAddPurchase:
		var p wire.Purchase
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return err
		}
		return a.store.UpsertPurchase(ctx, p.ToDomain())

	case domain.OpUpdateConfig:
		var c wire.Config
		if err := json.Unmarshal(op.Payload, &c); err != nil {
			return err
		}
		return a.store.UpsertConfig(ctx, c.ToDomain())

	case domain.OpAddAccount, domain.OpUpdateAccount:
		var account wire.Account
		if err := json.Unmarshal(op.Payload, &account); err != nil {
			return err
		}
		return a.store.UpsertAccount(ctx, account.ToDomain())

	case domain.OpDeleteAccount:
		var payload struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return err
		}
		if payload.Username == "" {
			return errors.New("username required")
		}
		return a.store.DeleteAccount(ctx, payload.Username)
	}

	// Unknown types are skipped rather than failing the batch, so older
	// authorities tolerate newer terminals.
	log.Printf("[authority] skipping unknown operation type %q", op.Type)
	return nil
}

func deleteID(payload json.RawMessage) (string, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", err
	}
	if body.ID == "" {
		return "", errors.New("id required")
	}
	return body.ID, nil
}

func (a *API) handleDeviceRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	lic := a.assertLicense(w, r)
	if lic == nil {
		return
	}

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		writeError(w, http.StatusBadRequest, errors.New("device_id required"))
		return
	}

	if err := RemoveDevice(r.Context(), a.store, lic, req.DeviceID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "devices": lic.Devices})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-License-Key, X-Device-Id, X-Device-Name, X-Device-Type, X-Device-Signature, X-Register-Device")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 8<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func snapshotCacheKey(licenseKey string) string {
	return "snapshot:" + licenseKey
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
