package checks

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
)

// MemoryPressure watches overall memory usage and drops the page cache
// when it climbs past the threshold. The fix is recorded as trivial: a
// cache drop's effect on the underlying pressure is unverified.
type MemoryPressure struct {
	WarnPercent int

	// MeminfoPath and DropCachesPath are replaceable in tests.
	MeminfoPath    string
	DropCachesPath string
}

// Name implements Check.
func (c *MemoryPressure) Name() string { return "memory" }

// Run implements Check.
func (c *MemoryPressure) Run(ctx context.Context, env *Env) []outcome.Outcome {
	meminfo := c.MeminfoPath
	if meminfo == "" {
		meminfo = "/proc/meminfo"
	}
	dropPath := c.DropCachesPath
	if dropPath == "" {
		dropPath = "/proc/sys/vm/drop_caches"
	}

	pct, err := usedPercent(meminfo)
	if err != nil {
		return []outcome.Outcome{outcome.New(outcome.Failed, "memory", fmt.Sprintf("reading meminfo: %v", err))}
	}
	if pct < float64(c.WarnPercent) {
		return []outcome.Outcome{outcome.New(outcome.Observed, "memory", fmt.Sprintf("%.0f%% used", pct))}
	}

	out := []outcome.Outcome{outcome.New(outcome.Found, "memory",
		fmt.Sprintf("%.0f%% used (warn ≥%d%%)", pct, c.WarnPercent))}

	if !env.Gate.MayFix(policy.CategoryMemory) {
		return out
	}
	wrErr := os.WriteFile(dropPath, []byte("3\n"), 0200)
	env.Gate.RecordFixAttempt()
	if wrErr != nil {
		return append(out, outcome.New(outcome.Failed, "memory", fmt.Sprintf("cache drop failed: %v", wrErr)))
	}
	return append(out, outcome.NewTrivial(outcome.Fixed, "memory", "dropped caches (resolution unverified)"))
}

func usedPercent(meminfoPath string) (float64, error) {
	f, err := os.Open(meminfoPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var totalKB, availKB int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB = v
		case "MemAvailable:":
			availKB = v
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if totalKB == 0 {
		return 0, fmt.Errorf("MemTotal missing from %s", meminfoPath)
	}
	return float64(totalKB-availKB) / float64(totalKB) * 100, nil
}
