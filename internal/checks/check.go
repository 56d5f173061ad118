// Package checks implements the fixed catalogue of inspection units. Each
// check produces zero or more classified outcomes and, only when the
// policy gate grants it, applies a bounded remediation. Checks run in a
// fixed order for reproducible logs but are logically independent.
package checks

import (
	"context"
	"log/slog"
	"time"

	"github.com/routermedic/routermedic/internal/config"
	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
	"github.com/routermedic/routermedic/internal/system"
)

// FixGate is the authorization point consulted before any mutation.
// Callers must invoke RecordFixAttempt immediately after acting, success
// or not.
type FixGate interface {
	MayFix(cat policy.Category) bool
	RecordFixAttempt()
}

// Env gives a check read access to system state and the gate for
// remediation. Checks never reach outside it.
type Env struct {
	Gate       FixGate
	Services   system.ServiceManager
	Signatures system.SignatureCounter
	Telemetry  system.Telemetry
	Now        func() time.Time
	Log        *slog.Logger
}

// Check is one independent inspection-and-optional-remediation unit.
type Check interface {
	Name() string
	Run(ctx context.Context, env *Env) []outcome.Outcome
}

// Catalogue returns the full check set in execution order. The set is
// compiled in; only tunables come from the policy.
func Catalogue(p *config.Policy) []Check {
	c := p.Checks
	return []Check{
		&RuntimeDirs{Dirs: c.RequiredDirs},
		&DiskSpace{
			Mounts:       c.DiskMounts,
			WarnPercent:  c.DiskWarnPercent,
			CritPercent:  c.DiskCritPercent,
			CleanupGlobs: c.DiskCleanupGlobs,
		},
		&LogGrowth{
			Files:     c.LogFiles,
			MaxSize:   c.LogMaxSizeBytes,
			KeepLines: c.LogKeepLines,
		},
		&StaleTmp{
			Dir:       c.TmpDir,
			Retention: p.TmpRetention(),
		},
		&MemoryPressure{WarnPercent: c.MemoryWarnPercent},
		&StoreRepair{
			Pattern:       c.StorePattern,
			Window:        c.StoreWindow,
			TripCount:     c.StoreTripCount,
			RecoveryCount: c.StoreRecoveryCount,
			StoreDir:      c.StoreDir,
			MaxSize:       c.StoreMaxSizeBytes,
			MaxAge:        time.Duration(c.StoreMaxAgeSeconds) * time.Second,
			Services:      c.StoreServices,
			IPCService:    c.StoreIPCService,
		},
		&ServiceLiveness{Services: c.Services},
		&LinkQuality{
			RSRPWarn:      c.RSRPWarnDBm,
			RSRPCrit:      c.RSRPCritDBm,
			MinSatellites: c.MinSatellites,
		},
	}
}
