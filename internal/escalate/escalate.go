// Package escalate upgrades repeated unresolved critical runs into a
// cooldown-gated reboot, the engine's last resort when the fault cannot be
// fixed in place.
package escalate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/routermedic/routermedic/internal/state"
)

// RebootGrace is how long the scheduled reboot waits before firing,
// leaving time for the final notification and a clean process exit.
const RebootGrace = 60 * time.Second

// RebootNotifier is the last-words channel fired just before a reboot is
// scheduled. It bypasses the per-run notification budget.
type RebootNotifier interface {
	NotifyRebootScheduled(ctx context.Context, consecutive int, grace time.Duration) error
}

// Decision summarizes what the controller did at the end of a run.
type Decision struct {
	// Consecutive is the persisted consecutive-critical counter after
	// this run.
	Consecutive int

	// RebootScheduled is true when this run scheduled the reboot.
	RebootScheduled bool
}

// Controller is the state machine over consecutiveCriticalRuns.
type Controller struct {
	store     state.Store
	threshold int
	enabled   bool
	cooldown  time.Duration
	sched     Scheduler
	notifier  RebootNotifier
	log       *slog.Logger

	now func() time.Time
}

// NewController wires the controller to persisted state and the reboot
// scheduler. notifier may be nil when notifications are disabled.
func NewController(store state.Store, threshold int, enabled bool, cooldown time.Duration,
	sched Scheduler, notifier RebootNotifier, log *slog.Logger) *Controller {
	return &Controller{
		store:     store,
		threshold: threshold,
		enabled:   enabled,
		cooldown:  cooldown,
		sched:     sched,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// Evaluate runs once at the end of a run. A run with zero critical
// outcomes resets the counter; otherwise the counter is incremented and,
// once it reaches the threshold with the reboot cooldown elapsed, exactly
// one reboot is scheduled and the counter resets.
func (c *Controller) Evaluate(ctx context.Context, criticalFound int) Decision {
	if criticalFound == 0 {
		c.persistCounter(0)
		return Decision{Consecutive: 0}
	}

	consecutive := c.loadCounter() + 1
	c.persistCounter(consecutive)
	c.log.Info("critical run recorded", "consecutive", consecutive, "threshold", c.threshold)

	if consecutive < c.threshold || !c.enabled {
		return Decision{Consecutive: consecutive}
	}

	last, err := c.store.GetTime(state.KeyLastReboot)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		c.log.Warn("reading reboot cooldown state", "err", err)
	}
	if !last.IsZero() && c.now().Sub(last) < c.cooldown {
		c.log.Info("reboot suppressed by cooldown", "last_reboot", last, "cooldown", c.cooldown)
		return Decision{Consecutive: consecutive}
	}

	// Commit the state transition before acting so an overlapping
	// invocation cannot schedule a second reboot.
	c.persistCounter(0)
	if err := c.store.SetTime(state.KeyLastReboot, c.now()); err != nil {
		c.log.Warn("persisting reboot timestamp", "err", err)
	}

	if c.notifier != nil {
		if err := c.notifier.NotifyRebootScheduled(ctx, consecutive, RebootGrace); err != nil {
			c.log.Warn("final reboot notification failed", "err", err)
		}
	}

	if err := c.sched.Schedule(RebootGrace, "reboot"); err != nil {
		c.log.Warn("scheduling reboot", "err", err)
		return Decision{Consecutive: 0}
	}
	c.log.Info("reboot scheduled", "grace", RebootGrace, "after_consecutive", consecutive)
	return Decision{Consecutive: 0, RebootScheduled: true}
}

func (c *Controller) loadCounter() int {
	v, err := c.store.GetInt64(state.KeyConsecutiveCriticalRuns)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			c.log.Warn("reading consecutive critical counter", "err", err)
		}
		return 0
	}
	return int(v)
}

// persistCounter writes best-effort: on failure the in-memory value still
// governs the rest of this run.
func (c *Controller) persistCounter(v int) {
	if err := c.store.SetInt64(state.KeyConsecutiveCriticalRuns, int64(v)); err != nil {
		c.log.Warn("persisting consecutive critical counter", "err", err)
	}
}
