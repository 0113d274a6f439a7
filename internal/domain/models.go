package domain

import "encoding/json"

// AppConfig is a singleton replaced wholesale; it has no identity of its own.
type AppConfig struct {
	StoreName    string  `json:"storeName"`
	Currency     string  `json:"currency"`
	ExchangeRate float64 `json:"exchangeRate"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Stock      int     `json:"stock"`
	Barcode    string  `json:"barcode,omitempty"`
	CategoryID string  `json:"categoryId,omitempty"`
	Image      string  `json:"image,omitempty"`
	// Deleted marks a product removed from pickers but retained so
	// historical invoices can still render its line items.
	Deleted bool `json:"deleted,omitempty"`
}

type SaleItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// SaleInvoice is append-only: invoices are never edited after creation.
// Unit prices and ExchangeRate are captured at sale time and never recomputed.
type SaleInvoice struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Date          string     `json:"date"` // YYYY-MM-DD
	Time          string     `json:"time"` // HH:MM
	Items         []SaleItem `json:"items"`
	Total         float64    `json:"total"`
	Cashier       string     `json:"cashier"`
	PaymentMethod string     `json:"paymentMethod"`
	ExchangeRate  float64    `json:"exchangeRate,omitempty"`
}

type PurchaseItem struct {
	ProductID   string  `json:"productId,omitempty"`
	Name        string  `json:"name,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
}

type PurchaseInvoice struct {
	ID            string         `json:"id"`
	InvoiceNumber string         `json:"invoiceNumber"`
	Supplier      string         `json:"supplier"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	Items         []PurchaseItem `json:"items"`
	Total         float64        `json:"total"`
	ExchangeRate  float64        `json:"exchangeRate,omitempty"`
	CreatedBy     string         `json:"createdBy,omitempty"`
}

// Account identity is the username, compared case-insensitively.
// Password always holds a bcrypt hash, never plain text.
type Account struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// SyncOperation is one not-yet-acknowledged local mutation awaiting
// transmission to the remote authority.
type SyncOperation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"createdAt"` // unix milliseconds
}

// AppState is the aggregate root persisted as a single durable snapshot.
type AppState struct {
	Config            AppConfig         `json:"config"`
	SecondaryCurrency string            `json:"secondaryCurrency"`
	Products          []Product         `json:"products"`
	Categories        []Category        `json:"categories"`
	Sales             []SaleInvoice     `json:"sales"`
	Purchases         []PurchaseInvoice `json:"purchases"`
}

// Snapshot is a full point-in-time copy of the remote authority's state.
// Nil/empty fields mean "not included in this pull", not "empty upstream".
type Snapshot struct {
	Config            *AppConfig        `json:"config,omitempty"`
	SecondaryCurrency string            `json:"secondaryCurrency,omitempty"`
	Products          []Product         `json:"products,omitempty"`
	Categories        []Category        `json:"categories,omitempty"`
	Sales             []SaleInvoice     `json:"sales,omitempty"`
	Purchases         []PurchaseInvoice `json:"purchases,omitempty"`
	Accounts          []Account         `json:"accounts,omitempty"`
	License           *License          `json:"license,omitempty"`
}

type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type License struct {
	LicenseKey      string   `json:"licenseKey"`
	Status          string   `json:"status,omitempty"`
	MaxDevices      int      `json:"maxDevices"`
	Devices         []Device `json:"devices"`
	SignatureSecret string   `json:"signatureSecret,omitempty"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ConfigUpdateRequest struct {
	StoreName         *string  `json:"storeName,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	SecondaryCurrency *string  `json:"secondaryCurrency,omitempty"`
	ExchangeRate      *float64 `json:"exchangeRate,omitempty"`
}

type SaleLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SaleCreateRequest struct {
	Items         []SaleLineRequest `json:"items"`
	PaymentMethod string            `json:"paymentMethod"`
	ExchangeRate  *float64          `json:"exchangeRate,omitempty"`
}

type PurchaseItemRequest struct {
	ProductID   string  `json:"productId,omitempty"`
	Name        string  `json:"name,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
}

type PurchaseCreateRequest struct {
	Supplier      string                `json:"supplier"`
	InvoiceNumber string                `json:"invoiceNumber,omitempty"`
	Items         []PurchaseItemRequest `json:"items"`
	ExchangeRate  *float64              `json:"exchangeRate,omitempty"`
}

type AccountCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LicenseSetRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

func (c Category) EntityID() string        { return c.ID }
func (p Product) EntityID() string         { return p.ID }
func (s SaleInvoice) EntityID() string     { return s.ID }
func (p PurchaseInvoice) EntityID() string { return p.ID }

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

// Operation type tags shared with the remote authority's apply contract.
const (
	OpAddProduct     = "ADD_PRODUCT"
	OpUpdateProduct  = "UPDATE_PRODUCT"
	OpDeleteProduct  = "DELETE_PRODUCT"
	OpAddCategory    = "ADD_CATEGORY"
	OpUpdateCategory = "UPDATE_CATEGORY"
	OpDeleteCategory = "DELETE_CATEGORY"
	OpSellItems      = "SELL_ITEMS"
	OpAddPurchase    = "ADD_PURCHASE"
	OpUpdateConfig   = "UPDATE_CONFIG"
	OpAddAccount     = "ADD_ACCOUNT"
	OpUpdateAccount  = "UPDATE_ACCOUNT"
	OpDeleteAccount  = "DELETE_ACCOUNT"
)

const (
	LicenseStatusActive  = "active"
	LicenseStatusBlocked = "blocked"
)

// DefaultState is the bootstrap state used on first run or when the durable
// store is empty or unreadable.
func DefaultState() AppState {
	return AppState{
		Config:            AppConfig{StoreName: "Main Store", Currency: "$", ExchangeRate: 40},
		SecondaryCurrency: "Bs",
		Products:          []Product{},
		Categories:        []Category{},
		Sales:             []SaleInvoice{},
		Purchases:         []PurchaseInvoice{},
	}
}

// IsValidPaymentMethod reports whether m is one of the accepted payment kinds.
func IsValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentTransfer
}
