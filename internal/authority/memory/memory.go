// Package memory is the authority's in-memory store, used for tests and for
// running without a DATABASE_URL. State does not survive restarts.
package memory

import (
	"context"
	"strings"
	"sync"

	"dukanpos/backend/internal/authority"
	"dukanpos/backend/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	config     *domain.AppConfig
	products   map[string]domain.Product
	categories map[string]domain.Category
	sales      map[string]domain.SaleInvoice
	purchases  map[string]domain.PurchaseInvoice
	accounts   map[string]domain.Account
	licenses   map[string]domain.License

	productOrder  []string
	categoryOrder []string
	saleOrder     []string
	purchaseOrder []string
	accountOrder  []string
}

func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		categories: make(map[string]domain.Category),
		sales:      make(map[string]domain.SaleInvoice),
		purchases:  make(map[string]domain.PurchaseInvoice),
		accounts:   make(map[string]domain.Account),
		licenses:   make(map[string]domain.License),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) GetConfig(_ context.Context) (*domain.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, authority.ErrNotFound
	}
	config := *s.config
	return &config, nil
}

func (s *Store) UpsertConfig(_ context.Context, config domain.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &config
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id])
	}
	return out, nil
}

func (s *Store) UpsertProduct(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[product.ID]; !exists {
		s.productOrder = append(s.productOrder, product.ID)
	}
	s.products[product.ID] = product
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[id]; !exists {
		return nil
	}
	delete(s.products, id)
	s.productOrder = removeID(s.productOrder, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categoryOrder))
	for _, id := range s.categoryOrder {
		out = append(out, s.categories[id])
	}
	return out, nil
}

func (s *Store) UpsertCategory(_ context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categories[category.ID]; !exists {
		s.categoryOrder = append(s.categoryOrder, category.ID)
	}
	s.categories[category.ID] = category
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categories[id]; !exists {
		return nil
	}
	delete(s.categories, id)
	s.categoryOrder = removeID(s.categoryOrder, id)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.SaleInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SaleInvoice, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		out = append(out, s.sales[id])
	}
	return out, nil
}

func (s *Store) UpsertSale(_ context.Context, invoice domain.SaleInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sales[invoice.ID]; !exists {
		s.saleOrder = append(s.saleOrder, invoice.ID)
	}
	s.sales[invoice.ID] = invoice
	return nil
}

func (s *Store) ListPurchases(_ context.Context) ([]domain.PurchaseInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PurchaseInvoice, 0, len(s.purchaseOrder))
	for _, id := range s.purchaseOrder {
		out = append(out, s.purchases[id])
	}
	return out, nil
}

func (s *Store) UpsertPurchase(_ context.Context, invoice domain.PurchaseInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.purchases[invoice.ID]; !exists {
		s.purchaseOrder = append(s.purchaseOrder, invoice.ID)
	}
	s.purchases[invoice.ID] = invoice
	return nil
}

func (s *Store) ListAccounts(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accountOrder))
	for _, key := range s.accountOrder {
		out = append(out, s.accounts[key])
	}
	return out, nil
}

func (s *Store) UpsertAccount(_ context.Context, account domain.Account) error {
	key := strings.ToLower(account.Username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[key]; !exists {
		s.accountOrder = append(s.accountOrder, key)
	}
	s.accounts[key] = account
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, username string) error {
	key := strings.ToLower(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[key]; !exists {
		return nil
	}
	delete(s.accounts, key)
	s.accountOrder = removeID(s.accountOrder, key)
	return nil
}

func (s *Store) GetLicense(_ context.Context, key string) (*domain.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	license, ok := s.licenses[key]
	if !ok {
		return nil, authority.ErrNotFound
	}
	license.Devices = append([]domain.Device(nil), license.Devices...)
	return &license, nil
}

func (s *Store) SaveLicense(_ context.Context, license domain.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	license.Devices = append([]domain.Device(nil), license.Devices...)
	s.licenses[license.LicenseKey] = license
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing == id {
			continue
		}
		out = append(out, existing)
	}
	return out
}

var _ authority.Store = (*Store)(nil)
