package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
)

// DiskSpace watches filesystem usage on the configured mounts and, when a
// threshold is breached, removes cleanup-eligible files. It only claims
// Fixed when usage measurably dropped.
type DiskSpace struct {
	Mounts       []string
	WarnPercent  int
	CritPercent  int
	CleanupGlobs []string

	// Usage is replaceable in tests; defaults to statfs.
	Usage func(path string) (float64, error)
}

// Name implements Check.
func (c *DiskSpace) Name() string { return "disk-space" }

// Run implements Check.
func (c *DiskSpace) Run(ctx context.Context, env *Env) []outcome.Outcome {
	usage := c.Usage
	if usage == nil {
		usage = statfsUsage
	}

	var out []outcome.Outcome
	for _, mount := range c.Mounts {
		pct, err := usage(mount)
		if err != nil {
			out = append(out, outcome.New(outcome.Failed, mount, fmt.Sprintf("usage query failed: %v", err)))
			continue
		}

		switch {
		case pct >= float64(c.CritPercent):
			out = append(out, outcome.New(outcome.Critical, mount, fmt.Sprintf("%.0f%% used (critical ≥%d%%)", pct, c.CritPercent)))
		case pct >= float64(c.WarnPercent):
			out = append(out, outcome.New(outcome.Found, mount, fmt.Sprintf("%.0f%% used (warn ≥%d%%)", pct, c.WarnPercent)))
		default:
			out = append(out, outcome.New(outcome.Observed, mount, fmt.Sprintf("%.0f%% used", pct)))
			continue
		}

		if len(c.CleanupGlobs) == 0 || !env.Gate.MayFix(policy.CategoryFilesystem) {
			continue
		}

		removed := c.cleanup(env)
		env.Gate.RecordFixAttempt()

		after, err := usage(mount)
		if err != nil {
			env.Log.Warn("re-measuring disk usage after cleanup", "mount", mount, "err", err)
			continue
		}
		// Fixed only on a measurable reduction; otherwise the Found or
		// Critical outcome above stands on its own.
		if after < pct {
			out = append(out, outcome.New(outcome.Fixed, mount,
				fmt.Sprintf("cleanup removed %d files, usage %.0f%% → %.0f%%", removed, pct, after)))
		}
	}
	return out
}

func (c *DiskSpace) cleanup(env *Env) int {
	removed := 0
	for _, glob := range c.CleanupGlobs {
		matches, err := filepath.Glob(glob)
		if err != nil {
			env.Log.Warn("bad cleanup glob", "glob", glob, "err", err)
			continue
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				env.Log.Warn("removing cleanup candidate", "path", path, "err", err)
				continue
			}
			removed++
		}
	}
	return removed
}

func statfsUsage(path string) (float64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	if st.Blocks == 0 {
		return 0, nil
	}
	used := st.Blocks - st.Bavail
	return float64(used) / float64(st.Blocks) * 100, nil
}
