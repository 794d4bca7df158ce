/*
scheduler.go - Automated horizon top-up scheduler

PURPOSE:
  Periodically re-materializes visit plans for every representative so the
  rolling planning horizon stays filled as days pass. Without it, new dates
  would only enter the horizon when someone edits a route.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Re-runs materialization for each rep's active assignments
  - Inserts are idempotent on (rep, customer, date), so repeated runs
    converge instead of duplicating plans

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewHorizonScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - route/controller.go: Materialize (the top-up operation)
  - route/generator.go: Plan generation
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fieldops/route-engine/route"
	"github.com/fieldops/route-engine/store/sqlite"
)

// HorizonScheduler keeps every rep's planning horizon topped up.
type HorizonScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewHorizonScheduler creates a new scheduler.
func NewHorizonScheduler(store *sqlite.Store, handler *Handler) *HorizonScheduler {
	return &HorizonScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (hs *HorizonScheduler) Start() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	hs.ticker = time.NewTicker(hs.CheckInterval)
	hs.wg.Add(1)

	go hs.run()

	log.Printf("[Scheduler] Started with check interval: %v", hs.CheckInterval)
}

// Stop stops the scheduler.
func (hs *HorizonScheduler) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.ticker != nil {
		hs.ticker.Stop()
		close(hs.stop)
		hs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (hs *HorizonScheduler) run() {
	defer hs.wg.Done()

	// Run immediately on start
	hs.topUp()

	for {
		select {
		case <-hs.ticker.C:
			hs.topUp()
		case <-hs.stop:
			return
		}
	}
}

func (hs *HorizonScheduler) topUp() {
	ctx := context.Background()
	now := route.Today()

	log.Printf("[Scheduler] Topping up horizons as of %s", now)

	reps, err := hs.Store.ListRepresentatives(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing representatives: %v", err)
		return
	}

	created := 0
	skipped := 0

	for _, rep := range reps {
		result, err := hs.Handler.Controller.Materialize(ctx, route.RepID(rep.ID), now)
		if err != nil {
			log.Printf("[Scheduler] Error materializing for %s: %v", rep.ID, err)
			continue
		}
		created += result.Created
		skipped += result.Skipped
		for _, opErr := range result.Errors {
			log.Printf("[Scheduler] Materialization error for %s (%s): %s", rep.ID, opErr.Context, opErr.Reason)
		}
	}

	if created > 0 {
		log.Printf("[Scheduler] Completed: %d plans created, %d already present", created, skipped)
	}
}

// RunNow triggers an immediate top-up (for testing/admin).
func (hs *HorizonScheduler) RunNow() {
	hs.topUp()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (hs *HorizonScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(hs.CheckInterval)
}
