package checks

import (
	"context"
	"fmt"
	"os"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
)

// dirMode is the permission mode applied to recreated runtime directories.
const dirMode = 0755

// RuntimeDirs verifies that required runtime directories exist and
// recreates missing ones.
type RuntimeDirs struct {
	Dirs []string
}

// Name implements Check.
func (c *RuntimeDirs) Name() string { return "runtime-dirs" }

// Run implements Check.
func (c *RuntimeDirs) Run(ctx context.Context, env *Env) []outcome.Outcome {
	var out []outcome.Outcome

	for _, dir := range c.Dirs {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			out = append(out, outcome.New(outcome.Observed, dir, "present"))
			continue
		case err == nil:
			out = append(out, outcome.New(outcome.Found, dir, "exists but is not a directory"))
			continue
		case !os.IsNotExist(err):
			out = append(out, outcome.New(outcome.Failed, dir, fmt.Sprintf("stat failed: %v", err)))
			continue
		}

		out = append(out, outcome.New(outcome.Found, dir, "missing"))

		if !env.Gate.MayFix(policy.CategoryFilesystem) {
			continue
		}
		mkErr := os.MkdirAll(dir, dirMode)
		env.Gate.RecordFixAttempt()
		if mkErr != nil {
			out = append(out, outcome.New(outcome.Failed, dir, fmt.Sprintf("create failed: %v", mkErr)))
			continue
		}
		out = append(out, outcome.New(outcome.Fixed, dir, fmt.Sprintf("created with mode %04o", dirMode)))
	}
	return out
}
