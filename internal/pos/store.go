// Package pos owns the single in-memory AppState and the outbox handle. All
// mutations flow through Dispatch; no external writer bypasses the reducer
// or the outbox API. The store is explicitly constructed and passed to its
// consumers; there is no ambient singleton.
package pos

import (
	"context"
	"log"
	"sync"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/outbox"
	"dukanpos/backend/internal/state"
	"dukanpos/backend/internal/store"
)

// placeholderNames are junk product names produced by abandoned form
// drafts; unreferenced placeholder products are dropped at load time.
var placeholderNames = map[string]bool{
	"Product Name":        true,
	"Nombre del producto": true,
}

type Store struct {
	mu      sync.Mutex
	current domain.AppState

	durable store.Store
	queue   *outbox.Outbox

	// events receives one signal per committed mutation; the sync
	// scheduler debounces and reacts. Buffered so dispatch never blocks.
	events chan struct{}
}

// New loads the persisted snapshot (or defaults when absent or unreadable)
// and returns the owning store.
func New(ctx context.Context, durable store.Store, queue *outbox.Outbox) *Store {
	s := &Store{
		durable: durable,
		queue:   queue,
		events:  make(chan struct{}, 1),
	}

	loaded, err := durable.LoadState(ctx)
	if err != nil || loaded == nil {
		if err != nil {
			log.Printf("[pos] WARN: failed to load state, starting from defaults: %v", err)
		}
		s.current = domain.DefaultState()
		return s
	}
	loaded.Products = sanitizeProducts(loaded.Products, loaded.Sales, loaded.Purchases)
	next, _ := state.Reduce(domain.DefaultState(), state.LoadState{State: *loaded})
	s.current = next
	return s
}

// Dispatch applies one action: reduce, enqueue the produced operations,
// persist the new state, then signal the mutation event channel. Actions
// dispatched in sequence are reduced in that same sequence. Persistence and
// enqueueing are best-effort; their failure never fails the mutation.
//
// The produced operations are returned so callers can identify exactly what
// their own action created; concurrent dispatchers must not read it off the
// tail of the shared state.
//
// The event fires only when the action produced sync operations. Applying a
// pulled snapshot produces none, so a sync cycle never schedules another one.
func (s *Store) Dispatch(ctx context.Context, action state.Action) []state.Operation {
	s.mu.Lock()
	next, ops := state.Reduce(s.current, action)
	for _, op := range ops {
		if err := s.queue.Enqueue(ctx, op.Type, op.Payload); err != nil {
			log.Printf("[pos] WARN: failed to enqueue %s: %v", op.Type, err)
		}
	}
	s.current = next
	if err := s.durable.SaveState(ctx, next); err != nil {
		log.Printf("[pos] WARN: failed to persist state: %v", err)
	}
	s.mu.Unlock()

	if len(ops) == 0 {
		return ops
	}
	select {
	case s.events <- struct{}{}:
	default:
	}
	return ops
}

// State returns a snapshot of the current application state. Slices are
// copied so callers can never alias the store's internal state.
func (s *Store) State() domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.current
	snapshot.Products = append([]domain.Product(nil), s.current.Products...)
	snapshot.Categories = append([]domain.Category(nil), s.current.Categories...)
	snapshot.Sales = append([]domain.SaleInvoice(nil), s.current.Sales...)
	snapshot.Purchases = append([]domain.PurchaseInvoice(nil), s.current.Purchases...)
	return snapshot
}

// Events exposes the mutation signal channel for the sync scheduler.
func (s *Store) Events() <-chan struct{} {
	return s.events
}

// Outbox exposes the operation queue shared with the sync orchestrator.
func (s *Store) Outbox() *outbox.Outbox {
	return s.queue
}

// sanitizeProducts drops placeholder-named products that no invoice ever
// referenced; they are leftovers of unfinished product forms.
func sanitizeProducts(products []domain.Product, sales []domain.SaleInvoice, purchases []domain.PurchaseInvoice) []domain.Product {
	if len(products) == 0 {
		return products
	}
	referenced := make(map[string]bool)
	for _, inv := range sales {
		for _, item := range inv.Items {
			if item.ProductID != "" {
				referenced[item.ProductID] = true
			}
		}
	}
	for _, inv := range purchases {
		for _, item := range inv.Items {
			if item.ProductID != "" {
				referenced[item.ProductID] = true
			}
		}
	}

	kept := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if placeholderNames[p.Name] && !referenced[p.ID] {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
