package state

import "dukanpos/backend/internal/domain"

// Action is the closed set of state transitions. Every mutating variant is
// reduced deterministically; validation (stock availability, required
// fields) belongs to the pre-dispatch guard layer, not the reducer.
type Action interface {
	isAction()
}

type SetStoreName struct {
	Name string
}

type SetCurrency struct {
	Currency string
}

type SetSecondaryCurrency struct {
	Currency string
}

type SetExchangeRate struct {
	Rate float64
}

type AddProduct struct {
	Product domain.Product
}

type UpdateProduct struct {
	Product domain.Product
}

type DeleteProduct struct {
	ProductID string
}

type UpdateProductPrice struct {
	ProductID string
	Price     float64
}

type AddCategory struct {
	Category domain.Category
}

type UpdateCategory struct {
	Category domain.Category
}

type DeleteCategory struct {
	CategoryID string
}

type SaleLine struct {
	ProductID string
	Quantity  int
}

type SellItems struct {
	Items         []SaleLine
	Cashier       string
	PaymentMethod string
	// ExchangeRate overrides the config rate captured on the invoice.
	ExchangeRate *float64
}

type PurchaseLine struct {
	ProductID   string
	Name        string
	Price       float64
	Quantity    int
	Description string
}

type AddPurchase struct {
	Supplier      string
	Items         []PurchaseLine
	InvoiceNumber string
	Date          string
	Time          string
	CreatedBy     string
	ExchangeRate  *float64
}

// LoadState replaces the whole state; used only for local bootstrap.
type LoadState struct {
	State domain.AppState
}

// ApplySnapshot merges a remote snapshot into the current state.
type ApplySnapshot struct {
	Snapshot domain.Snapshot
}

func (SetStoreName) isAction()         {}
func (SetCurrency) isAction()          {}
func (SetSecondaryCurrency) isAction() {}
func (SetExchangeRate) isAction()      {}
func (AddProduct) isAction()           {}
func (UpdateProduct) isAction()        {}
func (DeleteProduct) isAction()        {}
func (UpdateProductPrice) isAction()   {}
func (AddCategory) isAction()          {}
func (UpdateCategory) isAction()       {}
func (DeleteCategory) isAction()       {}
func (SellItems) isAction()            {}
func (AddPurchase) isAction()          {}
func (LoadState) isAction()            {}
func (ApplySnapshot) isAction()        {}

// Operation is a reducer-produced outbox entry, not yet assigned an id or
// timestamp. The payload is shaped for the remote apply contract.
type Operation struct {
	Type    string
	Payload any
}

// ConfigPayload is the UPDATE_CONFIG operation payload; the config row is a
// singleton upstream.
type ConfigPayload struct {
	ID           string  `json:"id"`
	StoreName    string  `json:"storeName"`
	Currency     string  `json:"currency"`
	ExchangeRate float64 `json:"exchangeRate"`
}

// DeletePayload identifies the record removed by a DELETE_* operation.
type DeletePayload struct {
	ID string `json:"id"`
}
