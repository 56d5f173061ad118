package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
)

// StoreRepair detects a corruption error loop in the recent log window and
// repairs it by stopping dependent services, resetting only the stores a
// size-or-age heuristic judges corrupt, and restarting the IPC bus and
// services. It never blindly wipes the whole store directory.
type StoreRepair struct {
	Pattern       string
	Window        int
	TripCount     int
	RecoveryCount int

	StoreDir string
	MaxSize  int64
	MaxAge   time.Duration

	Services   []string
	IPCService string
}

// Name implements Check.
func (c *StoreRepair) Name() string { return "store-repair" }

// Run implements Check.
func (c *StoreRepair) Run(ctx context.Context, env *Env) []outcome.Outcome {
	if c.Pattern == "" {
		return []outcome.Outcome{outcome.New(outcome.Observed, "store", "no signature configured")}
	}

	count, err := env.Signatures.Count(ctx, c.Pattern, c.Window)
	if err != nil {
		return []outcome.Outcome{outcome.New(outcome.Failed, "store", fmt.Sprintf("sampling log window: %v", err))}
	}
	if count < c.TripCount {
		return []outcome.Outcome{outcome.New(outcome.Observed, "store", fmt.Sprintf("signature count %d below watermark %d", count, c.TripCount))}
	}

	out := []outcome.Outcome{outcome.New(outcome.Found, "store",
		fmt.Sprintf("error signature repeated %d times in last %d lines", count, c.Window))}

	if !env.Gate.MayFix(policy.CategoryDatabase) {
		return out
	}
	env.Gate.RecordFixAttempt()

	for _, svc := range c.Services {
		if err := env.Services.Stop(ctx, svc); err != nil {
			env.Log.Warn("stopping dependent service", "service", svc, "err", err)
		}
	}

	reset := c.resetCorrupted(env)

	if c.IPCService != "" {
		if err := env.Services.Restart(ctx, c.IPCService); err != nil {
			env.Log.Warn("restarting ipc service", "service", c.IPCService, "err", err)
		}
	}
	for _, svc := range c.Services {
		if err := env.Services.Start(ctx, svc); err != nil {
			env.Log.Warn("restarting dependent service", "service", svc, "err", err)
		}
	}

	after, err := env.Signatures.Count(ctx, c.Pattern, c.Window)
	if err != nil {
		return append(out, outcome.New(outcome.Critical, "store",
			fmt.Sprintf("reset %d stores but could not re-sample log window: %v", reset, err)))
	}
	if after < c.RecoveryCount {
		return append(out, outcome.New(outcome.Fixed, "store",
			fmt.Sprintf("reset %d stores, signature count %d → %d", reset, count, after)))
	}
	return append(out, outcome.New(outcome.Critical, "store",
		fmt.Sprintf("reset %d stores but signature count is still %d (recovery <%d)", reset, after, c.RecoveryCount)))
}

// resetCorrupted removes store files the heuristic flags: empty or
// oversized files, and files untouched for longer than MaxAge. Healthy
// stores are left alone.
func (c *StoreRepair) resetCorrupted(env *Env) int {
	entries, err := os.ReadDir(c.StoreDir)
	if err != nil {
		env.Log.Warn("reading store directory", "dir", c.StoreDir, "err", err)
		return 0
	}

	reset := 0
	now := env.Now()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		corrupt := info.Size() == 0 ||
			(c.MaxSize > 0 && info.Size() > c.MaxSize) ||
			(c.MaxAge > 0 && now.Sub(info.ModTime()) > c.MaxAge)
		if !corrupt {
			continue
		}
		path := filepath.Join(c.StoreDir, e.Name())
		if err := os.Remove(path); err != nil {
			env.Log.Warn("resetting store", "path", path, "err", err)
			continue
		}
		env.Log.Info("reset corrupted store", "path", path, "size", info.Size())
		reset++
	}
	return reset
}
