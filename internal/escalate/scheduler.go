package escalate

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Scheduler starts a delayed action designed to outlive this process.
// Tests substitute an implementation that records intent instead of
// executing it.
type Scheduler interface {
	Schedule(delay time.Duration, name string, args ...string) error
}

// ShellScheduler detaches a sleep-then-exec shell in its own session.
// The action is fire and forget: the engine terminates normally while the
// countdown runs.
type ShellScheduler struct{}

// Schedule implements Scheduler.
func (ShellScheduler) Schedule(delay time.Duration, name string, args ...string) error {
	script := fmt.Sprintf("sleep %d; exec %s", int(delay.Seconds()),
		strings.Join(append([]string{name}, args...), " "))

	cmd := exec.Command("sh", "-c", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	// Release, never wait: the child must survive our exit.
	return cmd.Process.Release()
}
