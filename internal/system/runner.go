// Package system wraps the router's inspection and remediation surfaces:
// init-style services, the syslog ring buffer, and the modem/GPS telemetry
// CLI. Production implementations shell out with hard timeouts; every
// surface is an interface so checks can be tested against fakes.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds every external command. No remote query or
// service command is ever awaited indefinitely.
const DefaultCommandTimeout = 15 * time.Second

// Runner executes one external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec with a per-command deadline.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns a runner with the default command timeout.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Timeout: DefaultCommandTimeout}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}
