package coordinator

import (
	"context"
	"sync"
	"time"

	"spendcycle/internal/ledger"

	"go.uber.org/zap"
)

// PassRunner runs a pass for one owner at the current time.
type PassRunner interface {
	RunPassNow(ctx context.Context, owner string) (*PassReport, error)
}

// Scheduler periodically runs a pass for every owner with due templates.
type Scheduler struct {
	runner   PassRunner
	store    ledger.Store
	now      func() time.Time
	interval time.Duration
	workers  int
	log      *zap.SugaredLogger
}

// NewScheduler creates a Scheduler that sweeps every interval with at most
// workers owners in flight.
func NewScheduler(c *Coordinator, interval time.Duration, workers int, log *zap.SugaredLogger) *Scheduler {
	return newScheduler(c, c.store, c.clock.Now, interval, workers, log)
}

func newScheduler(runner PassRunner, store ledger.Store, now func() time.Time, interval time.Duration, workers int, log *zap.SugaredLogger) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		runner:   runner,
		store:    store,
		now:      now,
		interval: interval,
		workers:  workers,
		log:      log,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("recurring scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs a pass for every owner with due templates and waits for all
// of them. It returns the number of passes that completed without aborting.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	owners, err := s.store.ListOwnersWithDueTemplates(ctx, s.now())
	if err != nil {
		s.log.Errorw("failed to list owners with due templates", "error", err)
		return 0
	}
	if len(owners) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	sem := make(chan struct{}, s.workers)

	for _, owner := range owners {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return completed
		}

		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.runner.RunPassNow(ctx, owner); err != nil {
				s.log.Warnw("scheduled pass failed", "owner", owner, "error", err)
				return
			}
			mu.Lock()
			completed++
			mu.Unlock()
		}(owner)
	}

	wg.Wait()
	s.log.Infow("recurring sweep finished", "owners", len(owners), "completed", completed)
	return completed
}
