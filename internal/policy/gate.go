// Package policy implements the single authorization point consulted
// before any state-mutating remediation.
package policy

import "github.com/routermedic/routermedic/internal/config"

// Category maps a remediation to its policy toggle.
type Category string

const (
	// CategoryFilesystem covers directory creation, log truncation, temp
	// sweeps and disk cleanup.
	CategoryFilesystem Category = "filesystem"

	// CategoryService covers starting and restarting services.
	CategoryService Category = "service"

	// CategoryDatabase covers resetting corrupted local stores.
	CategoryDatabase Category = "database"

	// CategoryMemory covers the cache-drop remediation.
	CategoryMemory Category = "memory"
)

// Gate bounds total system mutation for one run. Every check must call
// MayFix before acting and RecordFixAttempt immediately after acting,
// success or not.
type Gate struct {
	mode           config.Mode
	autoFix        bool
	serviceRestart bool
	databaseFix    bool
	maxFixes       int
	attempts       int
}

// NewGate binds the policy to one run. In fix mode the auto_fix master
// toggle is treated as on; check and report modes deny everything.
func NewGate(p *config.Policy, mode config.Mode) *Gate {
	return &Gate{
		mode:           mode,
		autoFix:        p.AutoFix || mode == config.ModeFix,
		serviceRestart: p.ServiceRestart,
		databaseFix:    p.DatabaseFix,
		maxFixes:       p.MaxFixesPerRun,
	}
}

// MayFix reports whether a remediation in the given category may run now.
// Denial converts a would-be Fixed into Found-only; the caller must not
// mutate anything.
func (g *Gate) MayFix(cat Category) bool {
	if g.mode == config.ModeCheck || g.mode == config.ModeReport {
		return false
	}
	if g.attempts >= g.maxFixes {
		return false
	}
	if !g.autoFix {
		return false
	}
	switch cat {
	case CategoryService:
		return g.serviceRestart
	case CategoryDatabase:
		return g.databaseFix
	}
	return true
}

// RecordFixAttempt consumes one slot of the per-run fix budget. Callers
// invoke it after every attempted mutation, whether or not it succeeded,
// so the budget reflects actions taken rather than actions that worked.
func (g *Gate) RecordFixAttempt() {
	g.attempts++
}

// Attempts returns how many gated fixes were attempted this run.
func (g *Gate) Attempts() int {
	return g.attempts
}
