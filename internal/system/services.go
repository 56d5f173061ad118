package system

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ServiceManager is the init-style start/stop/status/restart surface.
// The service manager's internals are outside this engine's scope.
type ServiceManager interface {
	Running(ctx context.Context, name string) (bool, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// InitServices drives /etc/init.d scripts and checks liveness by process
// name, which is how BusyBox-era routers expose services.
type InitServices struct {
	runner  Runner
	initDir string
}

// NewInitServices returns a manager over the given init script directory
// (normally /etc/init.d).
func NewInitServices(runner Runner, initDir string) *InitServices {
	if initDir == "" {
		initDir = "/etc/init.d"
	}
	return &InitServices{runner: runner, initDir: initDir}
}

// Running reports process liveness by name. pidof exits non-zero when no
// process matches, which is a clean "not running", not an error.
func (s *InitServices) Running(ctx context.Context, name string) (bool, error) {
	out, err := s.runner.Run(ctx, "pidof", name)
	if err != nil {
		if strings.TrimSpace(out) == "" {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (s *InitServices) script(name string) string {
	return filepath.Join(s.initDir, name)
}

// Start implements ServiceManager.
func (s *InitServices) Start(ctx context.Context, name string) error {
	if out, err := s.runner.Run(ctx, s.script(name), "start"); err != nil {
		return fmt.Errorf("starting %s: %w (output: %s)", name, err, strings.TrimSpace(out))
	}
	return nil
}

// Stop implements ServiceManager.
func (s *InitServices) Stop(ctx context.Context, name string) error {
	if out, err := s.runner.Run(ctx, s.script(name), "stop"); err != nil {
		return fmt.Errorf("stopping %s: %w (output: %s)", name, err, strings.TrimSpace(out))
	}
	return nil
}

// Restart implements ServiceManager.
func (s *InitServices) Restart(ctx context.Context, name string) error {
	if out, err := s.runner.Run(ctx, s.script(name), "restart"); err != nil {
		return fmt.Errorf("restarting %s: %w (output: %s)", name, err, strings.TrimSpace(out))
	}
	return nil
}
