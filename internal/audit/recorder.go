// Package audit records maintenance outcomes: an append-only log line per
// outcome, per-run counters, and budgeted forwarding to the notification
// dispatcher. Every non-Observed outcome is durably logged before any
// notification attempt for it.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/routermedic/routermedic/internal/config"
	"github.com/routermedic/routermedic/internal/outcome"
)

// OutcomeNotifier is the per-outcome notification channel.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, o outcome.Outcome) error
}

// Sink receives audit entries in addition to the flat log file. The
// sqlite state backend implements this so entries are queryable on the
// device; the file backend does not.
type Sink interface {
	AppendAudit(runID string, at time.Time, kind, subject, remedy string) error
}

// Recorder is the single write path for outcomes during a run.
type Recorder struct {
	runID    string
	path     string
	flags    config.NotifyConfig
	notifier OutcomeNotifier
	sink     Sink
	log      *slog.Logger

	counters outcome.Counters
	sent     int
}

// NewRecorder creates a recorder for one run. notifier may be nil when
// notifications are disabled; sink may be nil.
func NewRecorder(auditPath string, flags config.NotifyConfig, notifier OutcomeNotifier, sink Sink, log *slog.Logger) *Recorder {
	return &Recorder{
		runID:    uuid.NewString()[:8],
		path:     auditPath,
		flags:    flags,
		notifier: notifier,
		sink:     sink,
		log:      log,
	}
}

// RunID identifies this run in audit entries and the report.
func (r *Recorder) RunID() string { return r.runID }

// Record logs the outcome, updates the run counters, and forwards it to
// the notifier if it is notifiable and the per-run budget allows.
// Notification failures are downgraded to warnings, never raised.
func (r *Recorder) Record(ctx context.Context, o outcome.Outcome) {
	if o.Kind == outcome.Observed {
		r.log.Debug("check passed", "subject", o.Subject)
		return
	}

	if err := r.append(o); err != nil {
		r.log.Warn("appending audit entry", "err", err)
	}
	if r.sink != nil {
		if err := r.sink.AppendAudit(r.runID, o.At, o.Kind.String(), o.Subject, o.Remedy); err != nil {
			r.log.Warn("appending audit entry to state store", "err", err)
		}
	}

	r.counters.Count(o.Kind)
	r.log.Info("outcome recorded",
		"kind", o.Kind.String(), "subject", o.Subject, "remedy", o.Remedy)

	if !r.notifiable(o) {
		return
	}
	if r.sent >= r.flags.MaxPerRun {
		r.log.Debug("notification budget exhausted", "max_per_run", r.flags.MaxPerRun)
		return
	}
	if err := r.notifier.NotifyOutcome(ctx, o); err != nil {
		r.log.Warn("notification delivery failed", "kind", o.Kind.String(), "err", err)
	}
	// A failed delivery still consumes budget: the transport was engaged.
	r.sent++
}

// notifiable applies the per-kind flags plus the significance tag set by
// the check. Trivial fixes (removed 0 files, unverified cache drops)
// never notify even when the Fixed flag is on.
func (r *Recorder) notifiable(o outcome.Outcome) bool {
	if r.notifier == nil || !r.flags.Enabled {
		return false
	}
	if !o.Significant {
		return false
	}
	return r.flags.Wants(o.Kind.String())
}

// append writes one line to the append-only audit log.
func (r *Recorder) append(o outcome.Outcome) error {
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s [%s] %s — %s\n",
		o.At.Format(time.RFC3339), o.Kind, r.runID, o.Subject, o.Remedy)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

// Counters returns the run counters accumulated so far.
func (r *Recorder) Counters() outcome.Counters { return r.counters }

// Sent returns how many per-outcome notifications were dispatched.
func (r *Recorder) Sent() int { return r.sent }
