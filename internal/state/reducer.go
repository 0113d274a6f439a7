// Package state holds the pure transition function at the heart of the
// offline core: (state, action) -> (state', outbox operations). The reducer
// performs no I/O; the owning store enqueues the returned operations and
// persists the new state.
package state

import (
	"time"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/merge"
	"dukanpos/backend/internal/xid"
)

const fallbackProductName = "Unnamed product"

// Reduce applies action to state at the current wall-clock time.
func Reduce(state domain.AppState, action Action) (domain.AppState, []Operation) {
	return ReduceAt(state, action, time.Now().UTC())
}

// ReduceAt is Reduce with an explicit clock. It is total: every action
// yields a next state, never an error. Oversold quantities floor the
// resulting stock at zero instead of being rejected; availability checks
// belong to the caller's guard layer.
func ReduceAt(state domain.AppState, action Action, now time.Time) (domain.AppState, []Operation) {
	switch a := action.(type) {
	case SetStoreName:
		state.Config.StoreName = a.Name
		return state, []Operation{configOperation(state.Config)}

	case SetCurrency:
		state.Config.Currency = a.Currency
		return state, []Operation{configOperation(state.Config)}

	case SetSecondaryCurrency:
		state.SecondaryCurrency = a.Currency
		return state, nil

	case SetExchangeRate:
		state.Config.ExchangeRate = a.Rate
		return state, []Operation{configOperation(state.Config)}

	case AddProduct:
		state.Products = append(copyProducts(state.Products), a.Product)
		return state, []Operation{{Type: domain.OpAddProduct, Payload: a.Product}}

	case UpdateProduct:
		products := copyProducts(state.Products)
		for i := range products {
			if products[i].ID == a.Product.ID {
				products[i] = a.Product
			}
		}
		state.Products = products
		return state, []Operation{{Type: domain.OpUpdateProduct, Payload: a.Product}}

	case DeleteProduct:
		return reduceDeleteProduct(state, a.ProductID)

	case UpdateProductPrice:
		products := copyProducts(state.Products)
		var ops []Operation
		for i := range products {
			if products[i].ID == a.ProductID {
				products[i].Price = a.Price
				ops = append(ops, Operation{Type: domain.OpUpdateProduct, Payload: products[i]})
			}
		}
		state.Products = products
		return state, ops

	case AddCategory:
		state.Categories = append(copyCategories(state.Categories), a.Category)
		return state, []Operation{{Type: domain.OpAddCategory, Payload: a.Category}}

	case UpdateCategory:
		categories := copyCategories(state.Categories)
		for i := range categories {
			if categories[i].ID == a.Category.ID {
				categories[i] = a.Category
			}
		}
		state.Categories = categories
		return state, []Operation{{Type: domain.OpUpdateCategory, Payload: a.Category}}

	case DeleteCategory:
		return reduceDeleteCategory(state, a.CategoryID)

	case SellItems:
		return reduceSellItems(state, a, now)

	case AddPurchase:
		return reduceAddPurchase(state, a, now)

	case LoadState:
		next := a.State
		if next.SecondaryCurrency == "" {
			next.SecondaryCurrency = state.SecondaryCurrency
		}
		return next, nil

	case ApplySnapshot:
		return reduceApplySnapshot(state, a.Snapshot), nil
	}
	return state, nil
}

func configOperation(config domain.AppConfig) Operation {
	return Operation{Type: domain.OpUpdateConfig, Payload: ConfigPayload{
		ID:           "singleton",
		StoreName:    config.StoreName,
		Currency:     config.Currency,
		ExchangeRate: config.ExchangeRate,
	}}
}

// reduceDeleteProduct hard-removes a product unless a historical invoice
// references it, in which case it is soft-deleted so invoice rendering
// keeps working.
func reduceDeleteProduct(state domain.AppState, productID string) (domain.AppState, []Operation) {
	if referencedByInvoice(state, productID) {
		products := copyProducts(state.Products)
		var ops []Operation
		for i := range products {
			if products[i].ID == productID {
				products[i].Deleted = true
				ops = append(ops, Operation{Type: domain.OpUpdateProduct, Payload: products[i]})
			}
		}
		state.Products = products
		return state, ops
	}

	products := make([]domain.Product, 0, len(state.Products))
	removed := false
	for _, p := range state.Products {
		if p.ID == productID {
			removed = true
			continue
		}
		products = append(products, p)
	}
	state.Products = products
	if !removed {
		return state, nil
	}
	return state, []Operation{{Type: domain.OpDeleteProduct, Payload: DeletePayload{ID: productID}}}
}

func referencedByInvoice(state domain.AppState, productID string) bool {
	for _, inv := range state.Sales {
		for _, item := range inv.Items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	for _, inv := range state.Purchases {
		for _, item := range inv.Items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	return false
}

// reduceDeleteCategory removes the category and clears categoryId on any
// product that referenced it. Products themselves are never deleted here.
func reduceDeleteCategory(state domain.AppState, categoryID string) (domain.AppState, []Operation) {
	categories := make([]domain.Category, 0, len(state.Categories))
	for _, c := range state.Categories {
		if c.ID == categoryID {
			continue
		}
		categories = append(categories, c)
	}
	products := copyProducts(state.Products)
	for i := range products {
		if products[i].CategoryID == categoryID {
			products[i].CategoryID = ""
		}
	}
	state.Categories = categories
	state.Products = products
	return state, []Operation{{Type: domain.OpDeleteCategory, Payload: DeletePayload{ID: categoryID}}}
}

// reduceSellItems synthesizes a sale invoice from the products' current
// prices (never a caller-supplied price) and decrements stock, flooring at
// zero. The invoice freezes unit prices and the exchange rate permanently.
func reduceSellItems(state domain.AppState, a SellItems, now time.Time) (domain.AppState, []Operation) {
	byID := make(map[string]int, len(state.Products))
	for i, p := range state.Products {
		byID[p.ID] = i
	}

	products := copyProducts(state.Products)
	for _, line := range a.Items {
		i, ok := byID[line.ProductID]
		if !ok {
			continue
		}
		products[i].Stock -= line.Quantity
		if products[i].Stock < 0 {
			products[i].Stock = 0
		}
	}

	id := xid.New(now)
	items := make([]domain.SaleItem, 0, len(a.Items))
	for _, line := range a.Items {
		item := domain.SaleItem{ProductID: line.ProductID, Name: fallbackProductName, Quantity: line.Quantity}
		if i, ok := byID[line.ProductID]; ok {
			// Resolve against the pre-sale state: price capture happens at
			// reduction time, last write wins if a concurrent update raced.
			item.Name = state.Products[i].Name
			item.Price = state.Products[i].Price
		}
		items = append(items, item)
	}

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	rate := state.Config.ExchangeRate
	if a.ExchangeRate != nil {
		rate = *a.ExchangeRate
	}

	invoice := domain.SaleInvoice{
		ID:            id,
		InvoiceNumber: "S-" + id,
		Date:          now.Format("2006-01-02"),
		Time:          now.Format("15:04"),
		Items:         items,
		Total:         total,
		Cashier:       a.Cashier,
		PaymentMethod: a.PaymentMethod,
		ExchangeRate:  rate,
	}

	ops := []Operation{{Type: domain.OpSellItems, Payload: invoice}}
	for _, line := range a.Items {
		if i, ok := byID[line.ProductID]; ok {
			ops = append(ops, Operation{Type: domain.OpUpdateProduct, Payload: products[i]})
		}
	}

	state.Products = products
	state.Sales = append(copySales(state.Sales), invoice)
	return state, ops
}

// reduceAddPurchase increments stock for known products without touching
// their sale price (purchase price is informational), refreshes names when
// given, and synthesizes new products for unknown ids using the line price
// as the initial sale price.
func reduceAddPurchase(state domain.AppState, a AddPurchase, now time.Time) (domain.AppState, []Operation) {
	byID := make(map[string]int, len(state.Products))
	for i, p := range state.Products {
		byID[p.ID] = i
	}

	products := copyProducts(state.Products)
	affected := make([]string, 0, len(a.Items))
	for _, line := range a.Items {
		if line.ProductID == "" {
			// Purchase lines without a selected product stay invoice-only.
			continue
		}
		if i, ok := byID[line.ProductID]; ok {
			products[i].Stock += line.Quantity
			if line.Name != "" {
				products[i].Name = line.Name
			}
		} else {
			name := line.Name
			if name == "" {
				name = fallbackProductName
			}
			byID[line.ProductID] = len(products)
			products = append(products, domain.Product{
				ID:    line.ProductID,
				Name:  name,
				Price: line.Price,
				Stock: line.Quantity,
			})
		}
		affected = append(affected, line.ProductID)
	}

	items := make([]domain.PurchaseItem, 0, len(a.Items))
	var total float64
	for _, line := range a.Items {
		items = append(items, domain.PurchaseItem{
			ProductID:   line.ProductID,
			Name:        line.Name,
			Price:       line.Price,
			Quantity:    line.Quantity,
			Description: line.Description,
		})
		total += line.Price * float64(line.Quantity)
	}

	id := xid.New(now)
	invoiceNumber := a.InvoiceNumber
	if invoiceNumber == "" {
		invoiceNumber = "P-" + id
	}
	date := a.Date
	if date == "" {
		date = now.Format("2006-01-02")
	}
	timeOfDay := a.Time
	if timeOfDay == "" {
		timeOfDay = now.Format("15:04")
	}
	rate := state.Config.ExchangeRate
	if a.ExchangeRate != nil {
		rate = *a.ExchangeRate
	}

	invoice := domain.PurchaseInvoice{
		ID:            id,
		InvoiceNumber: invoiceNumber,
		Supplier:      a.Supplier,
		Date:          date,
		Time:          timeOfDay,
		Items:         items,
		Total:         total,
		ExchangeRate:  rate,
		CreatedBy:     a.CreatedBy,
	}

	ops := []Operation{{Type: domain.OpAddPurchase, Payload: invoice}}
	for _, productID := range affected {
		ops = append(ops, Operation{Type: domain.OpUpdateProduct, Payload: products[byID[productID]]})
	}

	state.Products = products
	state.Purchases = append(copyPurchases(state.Purchases), invoice)
	return state, ops
}

// reduceApplySnapshot folds remote collections into local state: union by
// id with remote winning on collisions; config and the secondary currency
// are replaced wholesale when present. Nothing local is ever removed.
func reduceApplySnapshot(state domain.AppState, snap domain.Snapshot) domain.AppState {
	if snap.Config != nil {
		state.Config = *snap.Config
	}
	if snap.SecondaryCurrency != "" {
		state.SecondaryCurrency = snap.SecondaryCurrency
	}
	state.Categories = merge.ByID(state.Categories, snap.Categories)
	state.Products = merge.ByID(state.Products, snap.Products)
	state.Sales = merge.ByID(state.Sales, snap.Sales)
	state.Purchases = merge.ByID(state.Purchases, snap.Purchases)
	return state
}

func copyProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}

func copyCategories(in []domain.Category) []domain.Category {
	out := make([]domain.Category, len(in))
	copy(out, in)
	return out
}

func copySales(in []domain.SaleInvoice) []domain.SaleInvoice {
	out := make([]domain.SaleInvoice, len(in))
	copy(out, in)
	return out
}

func copyPurchases(in []domain.PurchaseInvoice) []domain.PurchaseInvoice {
	out := make([]domain.PurchaseInvoice, len(in))
	copy(out, in)
	return out
}
