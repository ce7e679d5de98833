package taskstore

import (
	"context"
	"time"
)

// Reconciler is satisfied by any Store implementation that can return
// orphaned processing rows to pending. Optional: a Store that does not
// implement it simply never gets swept.
type Reconciler interface {
	ReconcileOrphaned(ctx context.Context, kind Kind, vehicleID int) (int, error)
}

// OfflineVehicles is implemented by the component that tracks vehicle
// liveness (the ScheduleExec façade); the sweeper asks it, each tick,
// which vehicle ids have gone Offline since the previous sweep.
type OfflineVehicles interface {
	NewlyOfflineVehicleIDs() []int
}

// Sweeper resolves spec.md §9's open question: a vehicle forced Offline
// by the timeout watcher orphans its in-flight task, which would
// otherwise sit 'processing' forever. The sweeper periodically returns
// those rows to 'pending' for every kind, once their owning vehicle has
// been observed Offline.
type Sweeper struct {
	store    Reconciler
	vehicles OfflineVehicles
	interval time.Duration
}

// NewSweeper constructs a sweeper that runs on interval.
func NewSweeper(store Reconciler, vehicles OfflineVehicles, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, vehicles: vehicles, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping on each tick.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.store == nil || s.vehicles == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	for _, vid := range s.vehicles.NewlyOfflineVehicleIDs() {
		for _, kind := range []Kind{KindItem, KindFluid, KindUseTool} {
			// Errors are swept-tick transient: the sweeper retries on its
			// next interval rather than surfacing anything to a caller.
			_, _ = s.store.ReconcileOrphaned(ctx, kind, vid)
		}
	}
}
