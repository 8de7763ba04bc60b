// Package schedule drives periodic evaluation across all active users and
// sweeps overdue interventions into expired.
package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/pipeline"
	"github.com/Arpita31/alfred/internal/userpref"
)

// #region notifier

// Notifier hands a fresh intervention to a delivery channel.
type Notifier interface {
	Channel() string
	Deliver(ctx context.Context, user userpref.User, rec intervention.Record) error
}

// #endregion notifier

// #region runner

// Runner owns the periodic sweep. Each sweep expires overdue interventions,
// then evaluates every active user with bounded parallelism; per-user
// ordering is already enforced inside the evaluator.
type Runner struct {
	users         *userpref.Store
	interventions *intervention.Store
	evaluator     *pipeline.Evaluator
	notifier      Notifier // nil disables delivery

	interval    time.Duration
	parallelism int
	now         func() time.Time

	mu   sync.Mutex // guards stop
	stop chan struct{}
}

// NewRunner creates a sweep runner. parallelism bounds concurrent user
// evaluations; values below 1 collapse to serial. now is the sweep clock and
// defaults to time.Now when nil.
func NewRunner(users *userpref.Store, interventions *intervention.Store,
	evaluator *pipeline.Evaluator, notifier Notifier, interval time.Duration,
	parallelism int, now func() time.Time) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Runner{
		users:         users,
		interventions: interventions,
		evaluator:     evaluator,
		notifier:      notifier,
		interval:      interval,
		parallelism:   parallelism,
		now:           now,
	}
}

// Start begins the periodic sweep loop in a goroutine. Safe to call from any
// goroutine; a second Start while running is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	stop := make(chan struct{})
	r.stop = stop

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		r.RunOnce(ctx, r.now())
		for {
			select {
			case <-ticker.C:
				r.RunOnce(ctx, r.now())
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop. Safe to call from any goroutine and idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
}

// #endregion runner

// #region run-once

// RunOnce performs a single sweep. External triggers (cron, admin tooling)
// may call it directly.
func (r *Runner) RunOnce(ctx context.Context, t time.Time) {
	expired, err := r.interventions.ExpireOverdue(t)
	if err != nil {
		log.Printf("[SCHED] expiry sweep failed: %v", err)
	} else if expired > 0 {
		log.Printf("[SCHED] expired %d overdue interventions", expired)
	}

	users, err := r.users.ListActive()
	if err != nil {
		log.Printf("[SCHED] list users failed: %v", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, user := range users {
		g.Go(func() error {
			r.evaluateUser(gctx, user)
			return nil
		})
	}
	_ = g.Wait()
}

// evaluateUser runs one user's evaluation and, when something was created,
// attempts delivery.
func (r *Runner) evaluateUser(ctx context.Context, user userpref.User) {
	outcome, err := r.evaluator.Evaluate(ctx, user.ID)
	if err != nil {
		log.Printf("[SCHED] user=%s evaluation error: %v", user.ID, err)
		return
	}
	if outcome.Status != pipeline.OutcomeCreated || outcome.Intervention == nil {
		return
	}

	if r.notifier == nil || user.TelegramChatID == "" {
		return
	}
	rec := *outcome.Intervention
	if err := r.notifier.Deliver(ctx, user, rec); err != nil {
		log.Printf("[SCHED] user=%s delivery failed: %v", user.ID, err)
		return
	}
	if _, err := r.interventions.MarkDelivered(rec.ID, r.notifier.Channel(), r.now()); err != nil {
		log.Printf("[SCHED] user=%s mark delivered failed: %v", user.ID, err)
	}
}

// #endregion run-once
