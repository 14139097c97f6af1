// Package jobs runs the periodic maintenance work: failing abandoned
// pending orders and expiring lapsed subscriptions.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run so a stuck database cannot pile up runs.
const jobTimeout = 5 * time.Minute

type OrderReconciler interface {
	ReconcileStalePending(ctx context.Context, now time.Time) (int, error)
}

type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Schedules holds cron specs; an empty spec disables that job.
type Schedules struct {
	Reconcile    string
	Subscription string
}

// Scheduler wraps a cron instance with the academy jobs registered.
type Scheduler struct {
	cron    *cron.Cron
	orders  OrderReconciler
	subs    SubscriptionExpirer
	nowFunc func() time.Time

	// base is cancelled by Stop so running jobs give up.
	base   context.Context
	cancel context.CancelFunc
}

// New registers the jobs. It fails on an unparsable schedule.
func New(orders OrderReconciler, subs SubscriptionExpirer, schedules Schedules) (*Scheduler, error) {
	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		orders:  orders,
		subs:    subs,
		nowFunc: time.Now,
		base:    base,
		cancel:  cancel,
	}

	if schedules.Reconcile != "" {
		if _, err := s.cron.AddFunc(schedules.Reconcile, func() { s.ReconcileOrders(s.base) }); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedules.Reconcile, err)
		}
	}
	if schedules.Subscription != "" {
		if _, err := s.cron.AddFunc(schedules.Subscription, func() { s.ExpireSubscriptions(s.base) }); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid subscription schedule %q: %w", schedules.Subscription, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
// Jobs still running at that point have their context cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	defer s.cancel()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("job scheduler stop timed out, cancelling running jobs")
	}
}

// ReconcileOrders fails pending orders older than the configured TTL.
func (s *Scheduler) ReconcileOrders(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := s.orders.ReconcileStalePending(ctx, s.nowFunc())
	if err != nil {
		slog.Error("order reconciliation failed", "error", err)
		return n
	}
	slog.Debug("order reconciliation finished", "failed", n)
	return n
}

// ExpireSubscriptions closes subscriptions past their period end.
func (s *Scheduler) ExpireSubscriptions(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := s.subs.ExpireDue(ctx, s.nowFunc())
	if err != nil {
		slog.Error("subscription expiry failed", "error", err)
		return n
	}
	slog.Debug("subscription expiry finished", "expired", n)
	return n
}
