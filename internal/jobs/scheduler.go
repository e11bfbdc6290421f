// Package jobs runs the periodic background work of the server.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// RateRefresher reloads the exchange-rate table.
type RateRefresher interface {
	Refresh(ctx context.Context) error
}

// Reconciler performs one reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context) error
}

type Schedules struct {
	RatesRefresh time.Duration
	Reconcile    string
	// JobTimeout bounds a single run of any job.
	JobTimeout time.Duration
}

// InitializeScheduler registers the rate refresh and reconciliation jobs and
// starts the scheduler. Callers stop it with Stop on shutdown.
func InitializeScheduler(rates RateRefresher, reconciler Reconciler, s Schedules) (*cron.Cron, error) {
	log.Println("[SCHEDULER] Initializing background jobs...")

	if s.JobTimeout <= 0 {
		s.JobTimeout = 45 * time.Second
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	if rates != nil && s.RatesRefresh > 0 {
		every := fmt.Sprintf("@every %s", s.RatesRefresh)
		if _, err := c.AddFunc(every, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
			defer cancel()
			RefreshRates(ctx, rates)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule rate refresh: %w", err)
		}
		log.Printf("[RATES] Refresh scheduled %s", every)
	}

	if reconciler != nil && s.Reconcile != "" {
		if _, err := c.AddFunc(s.Reconcile, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
			defer cancel()
			Reconcile(ctx, reconciler)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule reconciliation %q: %w", s.Reconcile, err)
		}
		log.Printf("[RECONCILER] Reconciliation scheduled %s", s.Reconcile)
	}

	c.Start()
	log.Println("[SCHEDULER] Background jobs started")
	return c, nil
}

// RefreshRates runs one rate refresh. Refresh logs its own failures and
// keeps the previous table.
func RefreshRates(ctx context.Context, rates RateRefresher) {
	_ = rates.Refresh(ctx)
}

func Reconcile(ctx context.Context, reconciler Reconciler) {
	if err := reconciler.Run(ctx); err != nil {
		log.Printf("[RECONCILER] Run failed: %v", err)
	}
}

// Stop halts the scheduler and waits up to timeout for running jobs.
func Stop(c *cron.Cron, timeout time.Duration) {
	if c == nil {
		return
	}
	ctx := c.Stop()
	select {
	case <-ctx.Done():
		log.Println("[SCHEDULER] Background jobs stopped")
	case <-time.After(timeout):
		log.Println("[SCHEDULER] Timed out waiting for running jobs")
	}
}
