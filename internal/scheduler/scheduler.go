// Package scheduler drives periodic reconciliation passes.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finsync/internal/domain/simplefin"
)

var (
	syncDuration metric.Float64Histogram
	syncTotal    metric.Int64Counter
)

// The otel API hands back a usable no-op instrument alongside any error,
// so a failure here degrades metrics without disabling the scheduler.
func init() {
	meter := otel.Meter("finsync/scheduler")

	var err error
	syncDuration, err = meter.Float64Histogram("sync.pass.duration",
		metric.WithDescription("Sync pass duration in seconds"), metric.WithUnit("s"))
	if err != nil {
		log.Printf("Scheduler: failed to create sync.pass.duration histogram: %v", err)
	}

	syncTotal, err = meter.Int64Counter("sync.pass.total",
		metric.WithDescription("Total sync passes by status"))
	if err != nil {
		log.Printf("Scheduler: failed to create sync.pass.total counter: %v", err)
	}
}

// How long one pass may run before its context is cancelled. Generous:
// the client's own request timeout is much shorter, the rest is local
// storage work.
const passTimeout = 5 * time.Minute

// SyncRunner is the single operation the scheduler drives.
type SyncRunner interface {
	SyncAll(ctx context.Context) (*simplefin.Stats, error)
}

// Scheduler owns the repeating sync timer. It is an explicit object with a
// start and shutdown; no package-level state. A failed pass is logged and
// swallowed, never retried early, and never stops the ticker.
type Scheduler struct {
	syncService  SyncRunner
	interval     time.Duration
	runOnStartup bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Orders TriggerNow against Shutdown: once cancel ran, no new pass
	// goroutine may be added to the WaitGroup.
	triggerMu sync.Mutex
}

// New creates a scheduler that runs a pass every interval. When
// runOnStartup is set, Start also kicks off an immediate initial pass.
func New(syncService SyncRunner, interval time.Duration, runOnStartup bool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		syncService:  syncService,
		interval:     interval,
		runOnStartup: runOnStartup,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the scheduling loop in a background goroutine.
func (s *Scheduler) Start() {
	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runInitialSync()
		}()
	}

	s.wg.Add(1)
	go s.loop()

	log.Printf("Background sync scheduler started with interval of %v", s.interval)
}

// loop ticks once per interval until shutdown.
func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("Scheduler: context cancelled, shutting down")
			return

		case <-ticker.C:
			log.Println("Starting scheduled SimpleFin sync...")
			s.runSync()
		}
	}
}

// runSync executes one pass and records the outcome. Errors stay inside
// the loop: the next tick retries regardless.
func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(s.ctx, passTimeout)
	defer cancel()

	start := time.Now()
	stats, err := s.syncService.SyncAll(ctx)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		log.Printf("Scheduled sync failed: %v", err)
	} else {
		log.Printf("Scheduled sync completed: %d accounts created, %d accounts updated, %d transactions created",
			stats.AccountsCreated, stats.AccountsUpdated, stats.TransactionsCreated)
	}

	syncDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
	syncTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// runInitialSync performs the startup pass. A failure here is logged and
// swallowed; the regular ticker will retry, so startup never fails on it.
func (s *Scheduler) runInitialSync() {
	log.Println("Performing initial SimpleFin sync...")

	ctx, cancel := context.WithTimeout(s.ctx, passTimeout)
	defer cancel()

	stats, err := s.syncService.SyncAll(ctx)
	if err != nil {
		log.Printf("Initial sync failed, but server will continue: %v", err)
		return
	}

	log.Printf("Initial sync completed: %d accounts created, %d accounts updated, %d transactions created in %dms",
		stats.AccountsCreated, stats.AccountsUpdated, stats.TransactionsCreated, stats.SyncDurationMS)
}

// TriggerNow fires an immediate pass without waiting for the next tick.
// A trigger arriving after Shutdown is ignored.
func (s *Scheduler) TriggerNow() {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	if s.ctx.Err() != nil {
		log.Println("Scheduler: manual trigger ignored, scheduler stopped")
		return
	}

	log.Println("Scheduler: manual trigger")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSync()
	}()
}

// Shutdown stops the loop and waits up to timeout for in-flight work.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.triggerMu.Lock()
	s.cancel()
	s.triggerMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Scheduler: stopped gracefully")
	case <-time.After(timeout):
		log.Println("Scheduler: timeout waiting for loop to stop")
	}
}
