// Package httpapi is the terminal's local HTTP surface. Handlers validate
// requests against the current state before dispatching; the reducer itself
// stays permissive so replayed remote operations never fail validation.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dukanpos/backend/internal/accounts"
	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/license"
	"dukanpos/backend/internal/pos"
	"dukanpos/backend/internal/state"
	"dukanpos/backend/internal/store"
	"dukanpos/backend/internal/syncer"
)

type API struct {
	pos           *pos.Store
	accounts      *accounts.Registry
	license       *license.Manager
	scheduler     *syncer.Scheduler
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(posStore *pos.Store, registry *accounts.Registry, lic *license.Manager, scheduler *syncer.Scheduler, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		pos:           posStore,
		accounts:      registry,
		license:       lic,
		scheduler:     scheduler,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

type actorContextKey struct{}

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/state", a.requireAuth(a.handleState, domain.RoleEmployee, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/config", a.requireAuth(a.handleConfig, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleEmployee, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, domain.RoleEmployee, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/categories/", a.requireAuth(a.handleCategoryActions, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, domain.RoleEmployee, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/purchases", a.requireAuth(a.handlePurchases, domain.RoleEmployee, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/sync/now", a.requireAuth(a.handleSyncNow, domain.RoleEmployee, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sync/status", a.requireAuth(a.handleSyncStatus, domain.RoleEmployee, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/accounts", a.requireAuth(a.handleAccounts, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/accounts/", a.requireAuth(a.handleAccountActions, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/license", a.requireAuth(a.handleLicense, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(withActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
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

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.pos.State())
}

func (a *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current := a.pos.State()
		writeJSON(w, http.StatusOK, map[string]any{
			"config":            current.Config,
			"secondaryCurrency": current.SecondaryCurrency,
		})
	case http.MethodPatch:
		var req domain.ConfigUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx := r.Context()
		if req.Currency != nil && strings.TrimSpace(*req.Currency) != "" {
			a.pos.Dispatch(ctx, state.SetCurrency{Currency: strings.TrimSpace(*req.Currency)})
		}
		if req.SecondaryCurrency != nil {
			a.pos.Dispatch(ctx, state.SetSecondaryCurrency{Currency: strings.TrimSpace(*req.SecondaryCurrency)})
		}
		if req.ExchangeRate != nil {
			if *req.ExchangeRate <= 0 {
				writeError(w, http.StatusBadRequest, errors.New("exchange rate must be positive"))
				return
			}
			a.pos.Dispatch(ctx, state.SetExchangeRate{Rate: *req.ExchangeRate})
		}
		if req.StoreName != nil && strings.TrimSpace(*req.StoreName) != "" {
			a.pos.Dispatch(ctx, state.SetStoreName{Name: strings.TrimSpace(*req.StoreName)})
		}

		current := a.pos.State()
		writeJSON(w, http.StatusOK, map[string]any{
			"config":            current.Config,
			"secondaryCurrency": current.SecondaryCurrency,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current := a.pos.State()
		visible := make([]domain.Product, 0, len(current.Products))
		for _, p := range current.Products {
			if p.Deleted {
				continue
			}
			visible = append(visible, p)
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": visible})
	case http.MethodPost:
		actor, ok := actorFromContext(r.Context())
		if !ok || actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		var product domain.Product
		if err := decodeJSON(r, &product); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(product.Name) == "" {
			writeError(w, http.StatusBadRequest, errors.New("product name required"))
			return
		}
		if product.Price < 0 || product.Stock < 0 {
			writeError(w, http.StatusBadRequest, errors.New("price and stock must not be negative"))
			return
		}
		if product.ID == "" {
			product.ID = uuid.NewString()
		}
		product.Deleted = false

		a.pos.Dispatch(r.Context(), state.AddProduct{Product: product})
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/products/"
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}

	current := a.pos.State()
	existing, found := findProduct(current.Products, id)
	if !found {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.Product
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.ID = id
		if strings.TrimSpace(req.Name) == "" {
			req.Name = existing.Name
		}
		if req.Price < 0 || req.Stock < 0 {
			writeError(w, http.StatusBadRequest, errors.New("price and stock must not be negative"))
			return
		}
		a.pos.Dispatch(r.Context(), state.UpdateProduct{Product: req})
		writeJSON(w, http.StatusOK, map[string]any{"product": req})
	case http.MethodDelete:
		a.pos.Dispatch(r.Context(), state.DeleteProduct{ProductID: id})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"categories": a.pos.State().Categories})
	case http.MethodPost:
		actor, ok := actorFromContext(r.Context())
		if !ok || actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		var category domain.Category
		if err := decodeJSON(r, &category); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(category.Name) == "" {
			writeError(w, http.StatusBadRequest, errors.New("category name required"))
			return
		}
		if category.ID == "" {
			category.ID = uuid.NewString()
		}

		a.pos.Dispatch(r.Context(), state.AddCategory{Category: category})
		writeJSON(w, http.StatusCreated, map[string]any{"category": category})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategoryActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/categories/"
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("category id required"))
		return
	}

	if !categoryExists(a.pos.State().Categories, id) {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var category domain.Category
		if err := decodeJSON(r, &category); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category.ID = id
		if strings.TrimSpace(category.Name) == "" {
			writeError(w, http.StatusBadRequest, errors.New("category name required"))
			return
		}
		a.pos.Dispatch(r.Context(), state.UpdateCategory{Category: category})
		writeJSON(w, http.StatusOK, map[string]any{"category": category})
	case http.MethodDelete:
		a.pos.Dispatch(r.Context(), state.DeleteCategory{CategoryID: id})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"sales": a.pos.State().Sales})
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, errors.New("sale requires at least one item"))
			return
		}
		if !domain.IsValidPaymentMethod(req.PaymentMethod) {
			writeError(w, http.StatusBadRequest, errors.New("invalid payment method"))
			return
		}

		current := a.pos.State()
		lines := make([]state.SaleLine, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity < 1 {
				writeError(w, http.StatusBadRequest, errors.New("item quantity must be at least 1"))
				return
			}
			product, found := findProduct(current.Products, item.ProductID)
			if !found || product.Deleted {
				writeError(w, http.StatusNotFound, store.ErrNotFound)
				return
			}
			if product.Stock < item.Quantity {
				writeError(w, http.StatusConflict, store.ErrInsufficientStock)
				return
			}
			lines = append(lines, state.SaleLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		actor, _ := actorFromContext(r.Context())
		ops := a.pos.Dispatch(r.Context(), state.SellItems{
			Items:         lines,
			Cashier:       actor.Username,
			PaymentMethod: req.PaymentMethod,
			ExchangeRate:  req.ExchangeRate,
		})

		// Resolve the invoice from this dispatch's own operations; the
		// state's sale list may already contain a concurrent request's.
		invoice, ok := saleInvoiceFromOps(ops)
		if !ok {
			writeError(w, http.StatusInternalServerError, errors.New("sale was not recorded"))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"invoice": invoice})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"purchases": a.pos.State().Purchases})
	case http.MethodPost:
		var req domain.PurchaseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, errors.New("purchase requires at least one item"))
			return
		}

		current := a.pos.State()
		lines := make([]state.PurchaseLine, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity < 1 {
				writeError(w, http.StatusBadRequest, errors.New("item quantity must be at least 1"))
				return
			}
			if item.Price < 0 {
				writeError(w, http.StatusBadRequest, errors.New("item price must not be negative"))
				return
			}
			// Unknown product ids are allowed (the purchase creates the
			// product), but soft-deleted ones are gone from pickers and
			// must not be restocked through a stale id.
			if product, found := findProduct(current.Products, item.ProductID); found && product.Deleted {
				writeError(w, http.StatusNotFound, store.ErrNotFound)
				return
			}
			lines = append(lines, state.PurchaseLine{
				ProductID:   item.ProductID,
				Name:        item.Name,
				Price:       item.Price,
				Quantity:    item.Quantity,
				Description: item.Description,
			})
		}

		actor, _ := actorFromContext(r.Context())
		ops := a.pos.Dispatch(r.Context(), state.AddPurchase{
			Supplier:      strings.TrimSpace(req.Supplier),
			Items:         lines,
			InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
			CreatedBy:     actor.Username,
			ExchangeRate:  req.ExchangeRate,
		})

		invoice, ok := purchaseInvoiceFromOps(ops)
		if !ok {
			writeError(w, http.StatusInternalServerError, errors.New("purchase was not recorded"))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"invoice": invoice})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if a.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("sync is not configured"))
		return
	}

	a.scheduler.RunOnce(r.Context())
	pending, err := a.pos.Outbox().ReadAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"pending": len(pending),
	})
}

func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	pending, err := a.pos.Outbox().ReadAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": a.scheduler != nil,
		"pending":    len(pending),
	})
}

func (a *API) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listed := a.accounts.List(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"accounts": redactAccounts(listed)})
	case http.MethodPost:
		var req domain.AccountCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		actor, _ := actorFromContext(r.Context())
		updated, err := a.accounts.Add(r.Context(), domain.Account{
			Username:  req.Username,
			Password:  req.Password,
			Role:      req.Role,
			CreatedBy: actor.Username,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"accounts": redactAccounts(updated)})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAccountActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/accounts/"
	username := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if username == "" {
		writeError(w, http.StatusBadRequest, errors.New("username required"))
		return
	}

	actor, _ := actorFromContext(r.Context())
	if strings.EqualFold(actor.Username, username) {
		writeError(w, http.StatusBadRequest, errors.New("cannot delete your own account"))
		return
	}

	updated := a.accounts.Delete(r.Context(), username)
	writeJSON(w, http.StatusOK, map[string]any{"accounts": redactAccounts(updated)})
}

func (a *API) handleLicense(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ctx := r.Context()
		writeJSON(w, http.StatusOK, map[string]any{
			"licenseKey": a.license.LicenseKey(ctx),
			"deviceId":   a.license.DeviceID(ctx),
			"deviceName": a.license.DeviceName(ctx),
			"deviceType": a.license.DeviceType(ctx),
		})
	case http.MethodPost:
		var req domain.LicenseSetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx := r.Context()
		a.license.SetLicenseKey(ctx, req.LicenseKey)
		if req.DeviceID != "" {
			a.license.SetCustomDeviceID(ctx, req.DeviceID)
		}
		if req.DeviceName != "" {
			a.license.SetDeviceName(ctx, req.DeviceName)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
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

func saleInvoiceFromOps(ops []state.Operation) (domain.SaleInvoice, bool) {
	for _, op := range ops {
		if op.Type != domain.OpSellItems {
			continue
		}
		if invoice, ok := op.Payload.(domain.SaleInvoice); ok {
			return invoice, true
		}
	}
	return domain.SaleInvoice{}, false
}

func purchaseInvoiceFromOps(ops []state.Operation) (domain.PurchaseInvoice, bool) {
	for _, op := range ops {
		if op.Type != domain.OpAddPurchase {
			continue
		}
		if invoice, ok := op.Payload.(domain.PurchaseInvoice); ok {
			return invoice, true
		}
	}
	return domain.PurchaseInvoice{}, false
}

func findProduct(products []domain.Product, id string) (domain.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func categoryExists(categories []domain.Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// redactAccounts strips password hashes before they leave the process.
func redactAccounts(list []domain.Account) []domain.Account {
	out := make([]domain.Account, len(list))
	for i, account := range list {
		account.Password = ""
		out[i] = account
	}
	return out
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message so internal details never leak;
	// 4xx responses are user-facing and keep the original error text.
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
