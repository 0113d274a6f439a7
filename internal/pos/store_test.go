package pos

import (
	"context"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/outbox"
	"dukanpos/backend/internal/state"
	"dukanpos/backend/internal/store/memory"
)

func newTestStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	backend := memory.New()
	queue := outbox.New(backend)
	return New(context.Background(), backend, queue), backend
}

func TestDispatch_PersistsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	posStore, backend := newTestStore(t)

	posStore.Dispatch(ctx, state.AddProduct{Product: domain.Product{ID: "p1", Name: "Coffee", Price: 5, Stock: 10}})

	if got := posStore.State().Products; len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("unexpected products: %+v", got)
	}

	persisted, err := backend.LoadState(ctx)
	if err != nil || persisted == nil {
		t.Fatalf("expected persisted state, got %v (%v)", persisted, err)
	}
	if len(persisted.Products) != 1 {
		t.Fatalf("persisted snapshot missing product: %+v", persisted)
	}

	ops, _ := backend.ListOperations(ctx)
	if len(ops) != 1 || ops[0].Type != domain.OpAddProduct {
		t.Fatalf("expected one ADD_PRODUCT in outbox, got %+v", ops)
	}
}

func TestDispatch_ReturnsProducedOperations(t *testing.T) {
	ctx := context.Background()
	posStore, _ := newTestStore(t)
	posStore.Dispatch(ctx, state.AddProduct{Product: domain.Product{ID: "p1", Name: "Coffee", Price: 5, Stock: 10}})

	ops := posStore.Dispatch(ctx, state.SellItems{
		Items:         []state.SaleLine{{ProductID: "p1", Quantity: 2}},
		Cashier:       "Admin",
		PaymentMethod: domain.PaymentCash,
	})

	if len(ops) == 0 || ops[0].Type != domain.OpSellItems {
		t.Fatalf("expected the sale operations back from dispatch, got %+v", ops)
	}
	invoice, ok := ops[0].Payload.(domain.SaleInvoice)
	if !ok {
		t.Fatalf("expected a sale invoice payload, got %T", ops[0].Payload)
	}
	if invoice.Total != 10 || len(invoice.Items) != 1 || invoice.Items[0].ProductID != "p1" {
		t.Fatalf("unexpected invoice payload: %+v", invoice)
	}

	if ops = posStore.Dispatch(ctx, state.ApplySnapshot{Snapshot: domain.Snapshot{}}); len(ops) != 0 {
		t.Fatalf("snapshot application must produce no operations, got %+v", ops)
	}
}

func TestDispatch_SignalsEventOnlyWhenOperationsProduced(t *testing.T) {
	ctx := context.Background()
	posStore, _ := newTestStore(t)

	posStore.Dispatch(ctx, state.AddProduct{Product: domain.Product{ID: "p1", Name: "Coffee"}})
	select {
	case <-posStore.Events():
	default:
		t.Fatalf("expected mutation event after a syncable action")
	}

	// Applying a snapshot queues nothing and therefore must not re-arm the
	// sync scheduler.
	posStore.Dispatch(ctx, state.ApplySnapshot{Snapshot: domain.Snapshot{
		Products: []domain.Product{{ID: "p2", Name: "Tea"}},
	}})
	select {
	case <-posStore.Events():
		t.Fatalf("snapshot application must not signal a mutation event")
	default:
	}
}

func TestDispatch_SurvivesUnavailableBackend(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	queue := outbox.New(backend)
	posStore := New(ctx, backend, queue)
	backend.FailWrites = true

	posStore.Dispatch(ctx, state.AddProduct{Product: domain.Product{ID: "p1", Name: "Coffee"}})

	// The in-memory state still reflects the mutation.
	if got := posStore.State().Products; len(got) != 1 {
		t.Fatalf("mutation lost when backend failed: %+v", got)
	}
}

func TestNew_LoadsPersistedState(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	seeded := domain.DefaultState()
	seeded.Products = []domain.Product{{ID: "p1", Name: "Coffee", Price: 5, Stock: 2}}
	if err := backend.SaveState(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	posStore := New(ctx, backend, outbox.New(backend))
	if got := posStore.State().Products; len(got) != 1 || got[0].Name != "Coffee" {
		t.Fatalf("expected seeded state, got %+v", got)
	}
}

func TestNew_DropsUnreferencedPlaceholderProducts(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	seeded := domain.DefaultState()
	seeded.Products = []domain.Product{
		{ID: "p1", Name: "Product Name"},
		{ID: "p2", Name: "Nombre del producto"},
		{ID: "p3", Name: "Real Product"},
	}
	seeded.Sales = []domain.SaleInvoice{{
		ID:    "s1",
		Items: []domain.SaleItem{{ProductID: "p2", Quantity: 1}},
	}}
	if err := backend.SaveState(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	posStore := New(ctx, backend, outbox.New(backend))
	products := posStore.State().Products
	if len(products) != 2 {
		t.Fatalf("expected 2 products after sanitize, got %+v", products)
	}
	// p2 is placeholder-named but referenced by an invoice, so it stays.
	if products[0].ID != "p2" || products[1].ID != "p3" {
		t.Fatalf("unexpected survivors: %+v", products)
	}
}

func TestState_ReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	posStore, _ := newTestStore(t)
	posStore.Dispatch(ctx, state.AddProduct{Product: domain.Product{ID: "p1", Name: "Coffee"}})

	snapshot := posStore.State()
	snapshot.Products[0].Name = "mutated"

	if got := posStore.State().Products[0].Name; got != "Coffee" {
		t.Fatalf("caller mutation leaked into store: %q", got)
	}
}
