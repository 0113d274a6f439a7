// Package authority is the central sync backend shared by all terminals. It
// accepts operation batches, serves full snapshots, and enforces license and
// device registration on every call.
package authority

import (
	"context"
	"errors"

	"dukanpos/backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrLicenseRequired = errors.New("license key and device id required")
	ErrLicenseInvalid  = errors.New("invalid license")
	ErrLicenseBlocked  = errors.New("license is blocked")
	ErrDeviceRejected  = errors.New("device not registered for this license")
	ErrDeviceLimit     = errors.New("device limit reached")
)

// Store is the authority's durable state. Upserts are idempotent: replaying
// the same operation batch leaves the same rows behind.
type Store interface {
	GetConfig(ctx context.Context) (*domain.AppConfig, error)
	UpsertConfig(ctx context.Context, config domain.AppConfig) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpsertCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.SaleInvoice, error)
	UpsertSale(ctx context.Context, invoice domain.SaleInvoice) error

	ListPurchases(ctx context.Context) ([]domain.PurchaseInvoice, error)
	UpsertPurchase(ctx context.Context, invoice domain.PurchaseInvoice) error

	ListAccounts(ctx context.Context) ([]domain.Account, error)
	UpsertAccount(ctx context.Context, account domain.Account) error
	DeleteAccount(ctx context.Context, username string) error

	GetLicense(ctx context.Context, key string) (*domain.License, error)
	SaveLicense(ctx context.Context, license domain.License) error

	Close() error
}
