package checks

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
)

// LogGrowth truncates runaway log files to their most recent lines. The
// engine's own audit log belongs in Files so the engine is never its own
// disk-fault source.
type LogGrowth struct {
	Files     []string
	MaxSize   int64
	KeepLines int
}

// Name implements Check.
func (c *LogGrowth) Name() string { return "log-growth" }

// Run implements Check.
func (c *LogGrowth) Run(ctx context.Context, env *Env) []outcome.Outcome {
	var out []outcome.Outcome

	for _, path := range c.Files {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue // nothing has logged yet; not a fault
		}
		if err != nil {
			out = append(out, outcome.New(outcome.Failed, path, fmt.Sprintf("stat failed: %v", err)))
			continue
		}
		if info.Size() <= c.MaxSize {
			out = append(out, outcome.New(outcome.Observed, path, fmt.Sprintf("%d bytes", info.Size())))
			continue
		}

		out = append(out, outcome.New(outcome.Found, path,
			fmt.Sprintf("%d bytes exceeds limit of %d", info.Size(), c.MaxSize)))

		if !env.Gate.MayFix(policy.CategoryFilesystem) {
			continue
		}
		trErr := truncateToTail(path, c.KeepLines)
		env.Gate.RecordFixAttempt()
		if trErr != nil {
			out = append(out, outcome.New(outcome.Failed, path, fmt.Sprintf("truncation failed: %v", trErr)))
			continue
		}
		out = append(out, outcome.New(outcome.Fixed, path,
			fmt.Sprintf("truncated to last %d lines (was %d bytes)", c.KeepLines, info.Size())))
	}
	return out
}

// truncateToTail rewrites the file keeping only its newest n lines,
// through a temp file and rename so a crash never loses the whole log.
func truncateToTail(path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
