// Package accounts manages local cashier/admin accounts. Usernames are
// case-insensitive identities; passwords are stored as bcrypt hashes only.
// Account changes queue sync operations like any other syncable entity.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/outbox"
	"dukanpos/backend/internal/store"
)

const accountsKey = "pos_accounts"

var ErrInvalidCredentials = errors.New("invalid credentials")

type Registry struct {
	mu    sync.Mutex
	kv    store.KV
	queue *outbox.Outbox

	seedOnce sync.Once
	seeded   []domain.Account
}

func NewRegistry(kv store.KV, queue *outbox.Outbox) *Registry {
	return &Registry{kv: kv, queue: queue}
}

// defaults builds the seeded accounts. Credentials come from
// SEED_ADMIN_PASSWORD and SEED_WORKER_PASSWORD; hardcoded dev defaults are
// used with a warning when unset.
func (r *Registry) defaults() []domain.Account {
	r.seedOnce.Do(func() {
		adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin425")
		workerPwd := envOr("SEED_WORKER_PASSWORD", "1234")
		if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_WORKER_PASSWORD") == "" {
			log.Println("[accounts] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_WORKER_PASSWORD to override.")
		}
		r.seeded = []domain.Account{
			{Username: "Admin", Password: HashPassword(adminPwd), Role: domain.RoleAdmin, CreatedBy: "system"},
			{Username: "Worker", Password: HashPassword(workerPwd), Role: domain.RoleEmployee, CreatedBy: "system"},
		}
	})
	return r.seeded
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// List returns all accounts, always including the seeded defaults.
func (r *Registry) List(ctx context.Context) []domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Registry) load(ctx context.Context) []domain.Account {
	var stored []domain.Account
	if raw, err := r.kv.GetValue(ctx, accountsKey); err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			stored = nil
		}
	}
	return mergeWithDefaults(stored, r.defaults())
}

func (r *Registry) save(ctx context.Context, accounts []domain.Account) {
	raw, err := json.Marshal(mergeWithDefaults(accounts, r.defaults()))
	if err != nil {
		return
	}
	if err := r.kv.SetValue(ctx, accountsKey, string(raw)); err != nil {
		log.Printf("[accounts] WARN: failed to persist accounts: %v", err)
	}
}

// Add upserts an account by its case-insensitive username, hashing the
// password if it is not already a hash, and queues the sync operation.
func (r *Registry) Add(ctx context.Context, account domain.Account) ([]domain.Account, error) {
	account.Username = strings.TrimSpace(account.Username)
	if account.Username == "" || strings.TrimSpace(account.Password) == "" {
		return nil, store.ErrInvalidRequest
	}
	if account.Role != domain.RoleAdmin && account.Role != domain.RoleEmployee {
		return nil, store.ErrInvalidRequest
	}
	account.Password = HashPassword(account.Password)
	if account.CreatedBy == "" {
		account.CreatedBy = "system"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.load(ctx)
	next := make([]domain.Account, 0, len(existing)+1)
	replaced := false
	for _, a := range existing {
		if strings.EqualFold(a.Username, account.Username) {
			next = append(next, account)
			replaced = true
			continue
		}
		next = append(next, a)
	}
	if !replaced {
		next = append(next, account)
	}
	r.save(ctx, next)
	if err := r.queue.Enqueue(ctx, domain.OpAddAccount, account); err != nil {
		log.Printf("[accounts] WARN: failed to enqueue account op: %v", err)
	}
	return next, nil
}

// Delete removes an account by case-insensitive username and queues the
// sync operation. Seeded defaults reappear on the next load by design.
func (r *Registry) Delete(ctx context.Context, username string) []domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.load(ctx)
	next := make([]domain.Account, 0, len(existing))
	for _, a := range existing {
		if strings.EqualFold(a.Username, username) {
			continue
		}
		next = append(next, a)
	}
	r.save(ctx, next)
	if err := r.queue.Enqueue(ctx, domain.OpDeleteAccount, map[string]string{"username": username}); err != nil {
		log.Printf("[accounts] WARN: failed to enqueue account op: %v", err)
	}
	return next
}

// ApplySnapshot replaces the stored accounts with the authority's copy.
func (r *Registry) ApplySnapshot(ctx context.Context, accounts []domain.Account) {
	if len(accounts) == 0 {
		return
	}
	for i := range accounts {
		accounts[i].Password = HashPassword(accounts[i].Password)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.save(ctx, accounts)
}

// Verify checks a username/password pair against the stored hash.
func (r *Registry) Verify(ctx context.Context, username, password string) (domain.Account, error) {
	if strings.TrimSpace(password) == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	r.mu.Lock()
	accounts := r.load(ctx)
	r.mu.Unlock()
	for _, a := range accounts {
		if !strings.EqualFold(a.Username, strings.TrimSpace(username)) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil {
			return a, nil
		}
		return domain.Account{}, ErrInvalidCredentials
	}
	return domain.Account{}, ErrInvalidCredentials
}

// HashPassword bcrypt-hashes plain text; values that are already bcrypt
// hashes pass through unchanged.
func HashPassword(password string) string {
	if password == "" || IsHash(password) {
		return password
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return password
	}
	return string(hashed)
}

func IsHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

// mergeWithDefaults overlays stored accounts onto the seeded defaults,
// keyed by lowercase username; stored entries win.
func mergeWithDefaults(accounts, defaults []domain.Account) []domain.Account {
	merged := make([]domain.Account, 0, len(accounts)+len(defaults))
	seen := make(map[string]bool, len(accounts)+len(defaults))
	for _, a := range accounts {
		key := strings.ToLower(a.Username)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, a)
	}
	for _, a := range defaults {
		key := strings.ToLower(a.Username)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, a)
	}
	return merged
}
