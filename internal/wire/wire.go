// Package wire defines the remote authority's field-naming convention
// (snake_case) and the translation to and from local entity shapes. The
// merge engine is naming-agnostic; every remote payload passes through this
// boundary adapter first.
package wire

import (
	"encoding/json"

	"dukanpos/backend/internal/domain"
)

type Config struct {
	ID           string  `json:"id"`
	StoreName    string  `json:"store_name"`
	Currency     string  `json:"currency"`
	ExchangeRate float64 `json:"exchange_rate"`
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
	CategoryID string  `json:"category_id,omitempty"`
	Image      string  `json:"image,omitempty"`
	Deleted    bool    `json:"deleted,omitempty"`
}

type SaleItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Sale struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	Items         []SaleItem `json:"items"`
	Total         float64    `json:"total"`
	Cashier       string     `json:"cashier"`
	PaymentMethod string     `json:"payment_method"`
	ExchangeRate  float64    `json:"exchange_rate,omitempty"`
}

type PurchaseItem struct {
	ProductID   string  `json:"product_id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
}

type Purchase struct {
	ID            string         `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	Supplier      string         `json:"supplier"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	Items         []PurchaseItem `json:"items"`
	Total         float64        `json:"total"`
	ExchangeRate  float64        `json:"exchange_rate,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
}

type Account struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CreatedBy string `json:"created_by,omitempty"`
}

type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type License struct {
	LicenseKey      string   `json:"license_key"`
	Status          string   `json:"status,omitempty"`
	MaxDevices      int      `json:"max_devices"`
	Devices         []Device `json:"devices"`
	SignatureSecret string   `json:"signature_secret,omitempty"`
}

type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	CreatedAt int64  `json:"created_at"`
}

// ApplyRequest is the batch body of POST /sync/apply.
type ApplyRequest struct {
	Ops []RawOperation `json:"ops"`
}

// RawOperation keeps the payload undecoded so the authority can pick the
// concrete shape per operation type.
type RawOperation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

type ApplyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Snapshot struct {
	Config            *Config    `json:"config"`
	SecondaryCurrency string     `json:"secondary_currency,omitempty"`
	Products          []Product  `json:"products"`
	Categories        []Category `json:"categories"`
	Sales             []Sale     `json:"sales"`
	Purchases         []Purchase `json:"purchases"`
	Accounts          []Account  `json:"accounts"`
	License           *License   `json:"license,omitempty"`
}

func FromConfig(c domain.AppConfig) Config {
	return Config{ID: "singleton", StoreName: c.StoreName, Currency: c.Currency, ExchangeRate: c.ExchangeRate}
}

func (c Config) ToDomain() domain.AppConfig {
	return domain.AppConfig{StoreName: c.StoreName, Currency: c.Currency, ExchangeRate: c.ExchangeRate}
}

func FromCategory(c domain.Category) Category {
	return Category(c)
}

func (c Category) ToDomain() domain.Category {
	return domain.Category(c)
}

func FromProduct(p domain.Product) Product {
	return Product{
		ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock,
		Barcode: p.Barcode, CategoryID: p.CategoryID, Image: p.Image, Deleted: p.Deleted,
	}
}

func (p Product) ToDomain() domain.Product {
	return domain.Product{
		ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock,
		Barcode: p.Barcode, CategoryID: p.CategoryID, Image: p.Image, Deleted: p.Deleted,
	}
}

func FromSale(s domain.SaleInvoice) Sale {
	items := make([]SaleItem, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItem(item)
	}
	return Sale{
		ID: s.ID, InvoiceNumber: s.InvoiceNumber, Date: s.Date, Time: s.Time,
		Items: items, Total: s.Total, Cashier: s.Cashier,
		PaymentMethod: s.PaymentMethod, ExchangeRate: s.ExchangeRate,
	}
}

func (s Sale) ToDomain() domain.SaleInvoice {
	items := make([]domain.SaleItem, len(s.Items))
	for i, item := range s.Items {
		items[i] = domain.SaleItem(item)
	}
	return domain.SaleInvoice{
		ID: s.ID, InvoiceNumber: s.InvoiceNumber, Date: s.Date, Time: s.Time,
		Items: items, Total: s.Total, Cashier: s.Cashier,
		PaymentMethod: s.PaymentMethod, ExchangeRate: s.ExchangeRate,
	}
}

func FromPurchase(p domain.PurchaseInvoice) Purchase {
	items := make([]PurchaseItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = PurchaseItem(item)
	}
	return Purchase{
		ID: p.ID, InvoiceNumber: p.InvoiceNumber, Supplier: p.Supplier,
		Date: p.Date, Time: p.Time, Items: items, Total: p.Total,
		ExchangeRate: p.ExchangeRate, CreatedBy: p.CreatedBy,
	}
}

func (p Purchase) ToDomain() domain.PurchaseInvoice {
	items := make([]domain.PurchaseItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = domain.PurchaseItem(item)
	}
	return domain.PurchaseInvoice{
		ID: p.ID, InvoiceNumber: p.InvoiceNumber, Supplier: p.Supplier,
		Date: p.Date, Time: p.Time, Items: items, Total: p.Total,
		ExchangeRate: p.ExchangeRate, CreatedBy: p.CreatedBy,
	}
}

func FromAccount(a domain.Account) Account {
	return Account(a)
}

func (a Account) ToDomain() domain.Account {
	return domain.Account(a)
}

func FromLicense(l domain.License) License {
	devices := make([]Device, len(l.Devices))
	for i, d := range l.Devices {
		devices[i] = Device(d)
	}
	return License{
		LicenseKey: l.LicenseKey, Status: l.Status, MaxDevices: l.MaxDevices,
		Devices: devices, SignatureSecret: l.SignatureSecret,
	}
}

func (l License) ToDomain() domain.License {
	devices := make([]domain.Device, len(l.Devices))
	for i, d := range l.Devices {
		devices[i] = domain.Device(d)
	}
	return domain.License{
		LicenseKey: l.LicenseKey, Status: l.Status, MaxDevices: l.MaxDevices,
		Devices: devices, SignatureSecret: l.SignatureSecret,
	}
}

func (s Snapshot) ToDomain() domain.Snapshot {
	out := domain.Snapshot{SecondaryCurrency: s.SecondaryCurrency}
	if s.Config != nil {
		cfg := s.Config.ToDomain()
		out.Config = &cfg
	}
	for _, p := range s.Products {
		out.Products = append(out.Products, p.ToDomain())
	}
	for _, c := range s.Categories {
		out.Categories = append(out.Categories, c.ToDomain())
	}
	for _, sale := range s.Sales {
		out.Sales = append(out.Sales, sale.ToDomain())
	}
	for _, p := range s.Purchases {
		out.Purchases = append(out.Purchases, p.ToDomain())
	}
	for _, a := range s.Accounts {
		out.Accounts = append(out.Accounts, a.ToDomain())
	}
	if s.License != nil {
		lic := s.License.ToDomain()
		out.License = &lic
	}
	return out
}
