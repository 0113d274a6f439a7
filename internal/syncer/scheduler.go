package syncer

import (
	"context"
	"log"
	"time"

	"dukanpos/backend/internal/accounts"
	"dukanpos/backend/internal/license"
	"dukanpos/backend/internal/pos"
	"dukanpos/backend/internal/state"
)

// DefaultDebounce is how long the scheduler waits after the last mutation
// event before starting a cycle, so bursts of writes collapse into one sync.
const DefaultDebounce = 400 * time.Millisecond

// Scheduler listens for mutation events and runs debounced sync cycles,
// routing the pulled snapshot back into the local stores.
type Scheduler struct {
	store    *pos.Store
	accounts *accounts.Registry
	license  *license.Manager
	syncer   *Syncer
	debounce time.Duration
}

func NewScheduler(store *pos.Store, registry *accounts.Registry, lic *license.Manager, s *Syncer) *Scheduler {
	return &Scheduler{
		store:    store,
		accounts: registry,
		license:  lic,
		syncer:   s,
		debounce: DefaultDebounce,
	}
}

// Run blocks until ctx is cancelled. Each mutation event arms (or re-arms)
// the debounce timer; when it fires, one sync cycle runs.
func (sc *Scheduler) Run(ctx context.Context) {
	if !sc.syncer.Configured() {
		log.Println("[sync] no remote base URL configured, running offline only")
		return
	}

	// One initial cycle picks up anything queued before this process started.
	sc.RunOnce(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-sc.store.Events():
			if timer == nil {
				timer = time.NewTimer(sc.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(sc.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			sc.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single push-then-pull cycle and applies the result. A
// failed push leaves the outbox intact; the next mutation retries it.
func (sc *Scheduler) RunOnce(ctx context.Context) {
	snapshot, err := sc.syncer.SyncNow(ctx)
	if err != nil {
		log.Printf("[sync] cycle failed, will retry: %v", err)
	}
	if snapshot == nil {
		return
	}

	sc.store.Dispatch(ctx, state.ApplySnapshot{Snapshot: *snapshot})
	sc.accounts.ApplySnapshot(ctx, snapshot.Accounts)
	sc.license.UpdateFromLicense(ctx, snapshot.License)
}
