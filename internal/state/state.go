// Package state persists the small set of scalar values that coordinate
// behavior across runs. Reads of absent keys return the zero value with
// ErrNotFound; writes replace the whole value atomically.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/routermedic/routermedic/internal/config"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("state: key not found")

// Well-known keys. Checks and controllers share the store, so the full key
// set lives here.
const (
	// KeyConsecutiveCriticalRuns counts runs in a row that ended with at
	// least one critical outcome.
	KeyConsecutiveCriticalRuns = "consecutive_critical_runs"

	// KeyLastCriticalNotification is when the aggregate critical
	// notification last fired.
	KeyLastCriticalNotification = "last_critical_notification_at"

	// KeyLastReboot is when the escalation controller last scheduled a
	// reboot.
	KeyLastReboot = "last_reboot_at"
)

// Store is a typed key-value store with atomic whole-value replacement.
// Implementations must tolerate concurrent readers from overlapping
// invocations; write exclusion is the external scheduler's job.
type Store interface {
	GetInt64(key string) (int64, error)
	SetInt64(key string, v int64) error
	GetTime(key string) (time.Time, error)
	SetTime(key string, t time.Time) error
	Delete(key string) error
	Close() error
}

// Open creates the store selected by the policy's state backend.
func Open(cfg config.StateConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("state: unknown backend %q", cfg.Backend)
	}
}
