/*
refresher.go - Background pool re-sync

PURPOSE:
  Periodically re-syncs the cached license item pools from the store.
  The pools are optimistic caches; other writers (or a rejected
  confirmation mid-flight) can leave them stale, and the refresher
  brings them back to the authoritative state.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Refreshes only pools that are already cached (reads create them)
  - Counts runs for admin visibility

CONFIGURATION:
  - Interval: How often to re-sync (default: 30 seconds)
  - Enabled: Whether the refresher is active (default: true)

USAGE:
  refresher := NewPoolRefresher(handler)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: RefreshPools, per-allotment pool cache
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// PoolRefresher keeps the cached pools in sync with the store.
type PoolRefresher struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	runs    int
	lastRun time.Time
}

// NewPoolRefresher creates a new refresher.
func NewPoolRefresher(handler *Handler) *PoolRefresher {
	return &PoolRefresher{
		Handler:  handler,
		Interval: 30 * time.Second,
		Enabled:  true,
		stop:     make(chan bool),
	}
}

// Start begins the refresher.
func (pr *PoolRefresher) Start() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if !pr.Enabled {
		log.Println("[Refresher] Disabled, not starting")
		return
	}

	pr.ticker = time.NewTicker(pr.Interval)
	pr.wg.Add(1)

	go pr.run()

	log.Printf("[Refresher] Started with interval: %v", pr.Interval)
}

// Stop stops the refresher.
func (pr *PoolRefresher) Stop() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.ticker != nil {
		pr.ticker.Stop()
		close(pr.stop)
		pr.wg.Wait()
		log.Println("[Refresher] Stopped")
	}
}

func (pr *PoolRefresher) run() {
	defer pr.wg.Done()

	for {
		select {
		case <-pr.ticker.C:
			pr.refresh()
		case <-pr.stop:
			return
		}
	}
}

func (pr *PoolRefresher) refresh() {
	ctx := context.Background()
	if err := pr.Handler.RefreshPools(ctx); err != nil {
		log.Printf("[Refresher] Error refreshing pools: %v", err)
		return
	}

	pr.mu.Lock()
	pr.runs++
	pr.lastRun = time.Now()
	pr.mu.Unlock()
}

// RunNow triggers an immediate re-sync (for testing/admin).
func (pr *PoolRefresher) RunNow() {
	pr.refresh()
}

// Runs reports how many re-syncs have completed and when the last one
// ran.
func (pr *PoolRefresher) Runs() (int, time.Time) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.runs, pr.lastRun
}
