// Package engine sequences one maintenance run: checks, cooldown,
// escalation, reporting and exit status.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/routermedic/routermedic/internal/audit"
	"github.com/routermedic/routermedic/internal/checks"
	"github.com/routermedic/routermedic/internal/config"
	"github.com/routermedic/routermedic/internal/escalate"
	"github.com/routermedic/routermedic/internal/outcome"
)

// Exit codes surfaced to the external scheduler.
const (
	ExitOK       = 0
	ExitCritical = 2
)

// CriticalNotifier is the aggregate critical channel evaluated once per
// run after escalation.
type CriticalNotifier interface {
	NotifyCriticalSummary(ctx context.Context, criticalFound int, summary string) (bool, error)
}

// Engine drives a single run to completion. Nothing in it survives the
// process; cross-run coordination lives entirely in the state store.
type Engine struct {
	Mode       config.Mode
	Policy     *config.Policy
	Recorder   *audit.Recorder
	Checks     []checks.Check
	Env        *checks.Env
	Escalation *escalate.Controller
	Critical   CriticalNotifier // nil when notifications are disabled
	ReportPath string
	Out        io.Writer
	Log        *slog.Logger

	// Sleep is replaceable in tests.
	Sleep func(time.Duration)
}

// Run executes the full sequence and returns the process exit code:
// ExitOK when no critical outcome remains, ExitCritical otherwise.
func (e *Engine) Run(ctx context.Context) int {
	if e.Sleep == nil {
		e.Sleep = time.Sleep
	}
	started := e.Env.Now()
	e.Log.Info("maintenance run starting", "run_id", e.Recorder.RunID(), "mode", string(e.Mode))

	var recorded []outcome.Outcome
	for _, check := range e.Checks {
		for _, o := range e.runCheck(ctx, check) {
			e.Recorder.Record(ctx, o)
			if o.Kind != outcome.Observed {
				recorded = append(recorded, o)
			}
		}
	}
	counters := e.Recorder.Counters()

	// Let restarted services settle before judging the run critical.
	if counters.Fixed > 0 && e.Policy.FixCooldown() > 0 {
		e.Log.Debug("fixes applied, settling", "cooldown", e.Policy.FixCooldown())
		e.Sleep(e.Policy.FixCooldown())
	}

	decision := e.Escalation.Evaluate(ctx, counters.Critical)

	if e.Critical != nil {
		summary := fmt.Sprintf("%d critical issues in run %s (found=%d fixed=%d failed=%d)",
			counters.Critical, e.Recorder.RunID(), counters.Found, counters.Fixed, counters.Failed)
		if _, err := e.Critical.NotifyCriticalSummary(ctx, counters.Critical, summary); err != nil {
			e.Log.Warn("aggregate critical notification failed", "err", err)
		}
	}

	report := &Report{
		RunID:           e.Recorder.RunID(),
		Mode:            e.Mode,
		Started:         started,
		Finished:        e.Env.Now(),
		Counters:        counters,
		Sent:            e.Recorder.Sent(),
		Outcomes:        recorded,
		Consecutive:     decision.Consecutive,
		RebootScheduled: decision.RebootScheduled,
	}
	if err := report.WriteFile(e.ReportPath); err != nil {
		e.Log.Warn("writing run report", "path", e.ReportPath, "err", err)
	}
	if e.Out != nil {
		report.Render(e.Out)
	}

	e.Log.Info("maintenance run finished",
		"run_id", e.Recorder.RunID(),
		"found", counters.Found, "fixed", counters.Fixed,
		"failed", counters.Failed, "critical", counters.Critical,
		"reboot_scheduled", decision.RebootScheduled)

	if counters.Critical > 0 {
		return ExitCritical
	}
	return ExitOK
}

// runCheck isolates one check: a crash inside it becomes a Failed outcome
// for that check only and never aborts the run.
func (e *Engine) runCheck(ctx context.Context, c checks.Check) (out []outcome.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Error("check crashed", "check", c.Name(), "panic", r)
			out = []outcome.Outcome{outcome.New(outcome.Failed, c.Name(), fmt.Sprintf("check crashed: %v", r))}
		}
	}()
	e.Log.Debug("running check", "check", c.Name())
	return c.Run(ctx, e.Env)
}
