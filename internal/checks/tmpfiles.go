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

// StaleTmp sweeps the spool directory for files past their retention age.
// It never claims success on a no-op: Fixed is only emitted when the
// stale-file count strictly decreased.
type StaleTmp struct {
	Dir       string
	Retention time.Duration
}

// Name implements Check.
func (c *StaleTmp) Name() string { return "stale-tmp" }

// Run implements Check.
func (c *StaleTmp) Run(ctx context.Context, env *Env) []outcome.Outcome {
	stale, err := c.staleFiles(env.Now())
	if err != nil {
		if os.IsNotExist(err) {
			return []outcome.Outcome{outcome.New(outcome.Observed, c.Dir, "absent")}
		}
		return []outcome.Outcome{outcome.New(outcome.Failed, c.Dir, fmt.Sprintf("scan failed: %v", err))}
	}
	if len(stale) == 0 {
		return []outcome.Outcome{outcome.New(outcome.Observed, c.Dir, "no stale files")}
	}

	out := []outcome.Outcome{outcome.New(outcome.Found, c.Dir,
		fmt.Sprintf("%d files older than %s", len(stale), c.Retention))}

	if !env.Gate.MayFix(policy.CategoryFilesystem) {
		return out
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			env.Log.Warn("removing stale file", "path", path, "err", err)
		}
	}
	env.Gate.RecordFixAttempt()

	remaining, err := c.staleFiles(env.Now())
	if err != nil {
		env.Log.Warn("re-scanning spool directory", "dir", c.Dir, "err", err)
		return out
	}
	removed := len(stale) - len(remaining)
	if removed > 0 {
		out = append(out, outcome.New(outcome.Fixed, c.Dir, fmt.Sprintf("removed %d files", removed)))
	}
	// removed == 0 (e.g. permission denied on every file): the Found
	// outcome stands alone.
	return out
}

func (c *StaleTmp) staleFiles(now time.Time) ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > c.Retention {
			stale = append(stale, filepath.Join(c.Dir, e.Name()))
		}
	}
	return stale, nil
}
