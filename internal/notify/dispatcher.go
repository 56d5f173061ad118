package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/state"
)

// Pusher is the transport the dispatcher delivers through.
type Pusher interface {
	Push(ctx context.Context, m Message) error
}

// Dispatcher routes outcomes to two independent channels: an immediate
// per-outcome channel (budgeted by the recorder) and an aggregate critical
// channel gated by a persisted cross-run cooldown.
type Dispatcher struct {
	pusher            Pusher
	store             state.Store
	cooldown          time.Duration
	criticalThreshold int
	log               *slog.Logger

	now func() time.Time
}

// NewDispatcher wires the dispatcher to the push transport and the
// persisted state store.
func NewDispatcher(pusher Pusher, store state.Store, cooldown time.Duration, criticalThreshold int, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pusher:            pusher,
		store:             store,
		cooldown:          cooldown,
		criticalThreshold: criticalThreshold,
		log:               log,
		now:               time.Now,
	}
}

// NotifyOutcome fires the per-outcome channel for one outcome.
func (d *Dispatcher) NotifyOutcome(ctx context.Context, o outcome.Outcome) error {
	return d.pusher.Push(ctx, Message{
		Title:    fmt.Sprintf("routermedic: %s", o.Kind),
		Body:     fmt.Sprintf("%s — %s", o.Subject, o.Remedy),
		Priority: PriorityFor(o.Kind),
		Sound:    SoundFor(o.Kind),
	})
}

// NotifyCriticalSummary fires the aggregate critical channel when the run
// breached the critical threshold and the persisted cooldown has elapsed.
// Returns true when a notification was actually sent.
func (d *Dispatcher) NotifyCriticalSummary(ctx context.Context, criticalFound int, summary string) (bool, error) {
	if criticalFound < d.criticalThreshold {
		return false, nil
	}

	last, err := d.store.GetTime(state.KeyLastCriticalNotification)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		d.log.Warn("reading notification cooldown state", "err", err)
	}
	if !last.IsZero() && d.now().Sub(last) < d.cooldown {
		d.log.Debug("aggregate critical notification suppressed by cooldown",
			"last", last, "cooldown", d.cooldown)
		return false, nil
	}

	err = d.pusher.Push(ctx, Message{
		Title:    "routermedic: CRITICAL",
		Body:     summary,
		Priority: PriorityEmergency,
		Sound:    SoundFor(outcome.Critical),
	})
	if err != nil {
		return false, err
	}

	if err := d.store.SetTime(state.KeyLastCriticalNotification, d.now()); err != nil {
		// Best-effort durability: the send already happened.
		d.log.Warn("persisting notification cooldown", "err", err)
	}
	return true, nil
}

// NotifyRebootScheduled is the escalation controller's last-words channel.
// It bypasses the per-run budget: when the engine is about to reboot the
// device this is the only signal the operator gets.
func (d *Dispatcher) NotifyRebootScheduled(ctx context.Context, consecutive int, grace time.Duration) error {
	return d.pusher.Push(ctx, Message{
		Title: "routermedic: REBOOTING",
		Body: fmt.Sprintf("%d consecutive critical runs; rebooting in %s as last resort",
			consecutive, grace),
		Priority: PriorityEmergency,
		Sound:    SoundFor(outcome.Critical),
	})
}
