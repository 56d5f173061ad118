// Package config loads the maintenance policy from YAML. The policy is
// read once at process start and is immutable for the run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how much the engine is allowed to do in one run.
type Mode string

const (
	// ModeAuto runs all checks and applies fixes under the policy gate.
	ModeAuto Mode = "auto"

	// ModeCheck runs all checks but never mutates anything.
	ModeCheck Mode = "check"

	// ModeFix behaves like auto but forces fixes on even when the
	// auto_fix toggle is off.
	ModeFix Mode = "fix"

	// ModeReport prints the last run report without running checks.
	ModeReport Mode = "report"
)

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeAuto, ModeCheck, ModeFix, ModeReport:
		return true
	}
	return false
}

// Default values applied when fields are absent from the policy file.
const (
	DefaultRebootThreshold     = 3
	DefaultMaxFixesPerRun      = 10
	DefaultMaxNotifyPerRun     = 5
	DefaultNotifyCooldownSecs  = 3600
	DefaultCriticalThreshold   = 2
	DefaultRebootCooldownSecs  = 3600
	DefaultFixCooldownSecs     = 10
	DefaultDiskWarnPercent     = 80
	DefaultDiskCritPercent     = 90
	DefaultLogMaxSizeBytes     = 1 << 20 // 1 MiB
	DefaultLogKeepLines        = 500
	DefaultTmpRetentionSecs    = 86400
	DefaultMemoryWarnPercent   = 90
	DefaultSignatureWindow     = 200
	DefaultSignatureTripCount  = 5
	DefaultSignatureRecovery   = 2
	DefaultRSRPWarnDBm         = -110
	DefaultRSRPCritDBm         = -118
	DefaultMinSatellites       = 4
)

// Policy is the complete run policy. Fields map 1:1 to the YAML file.
type Policy struct {
	// Mode, when set, overrides the mode given on the command line.
	Mode Mode `yaml:"mode"`

	// AutoFix is the master toggle for any remediation in auto mode.
	AutoFix bool `yaml:"auto_fix"`

	// AutoReboot allows the escalation controller to schedule a reboot.
	AutoReboot bool `yaml:"auto_reboot"`

	// ServiceRestart allows checks to start or restart services.
	ServiceRestart bool `yaml:"service_restart"`

	// DatabaseFix allows the store-repair check to reset corrupted stores.
	DatabaseFix bool `yaml:"database_fix"`

	// RebootThreshold is the number of consecutive critical runs that
	// triggers a reboot.
	RebootThreshold int `yaml:"reboot_threshold"`

	// MaxFixesPerRun bounds total gated fix attempts in one run.
	MaxFixesPerRun int `yaml:"max_fixes_per_run"`

	// CriticalThreshold is the minimum criticalFound for the aggregate
	// critical notification.
	CriticalThreshold int `yaml:"critical_threshold"`

	// NotificationCooldownSeconds is the minimum spacing between
	// aggregate critical notifications across runs.
	NotificationCooldownSeconds int `yaml:"notification_cooldown_seconds"`

	// RebootCooldownSeconds is the minimum spacing between escalation
	// reboots across runs.
	RebootCooldownSeconds int `yaml:"reboot_cooldown_seconds"`

	// FixCooldownSeconds is slept after a run that applied any fix, so
	// restarted services settle before escalation is evaluated.
	FixCooldownSeconds int `yaml:"fix_cooldown_seconds"`

	Notify NotifyConfig `yaml:"notify"`
	State  StateConfig  `yaml:"state"`
	Checks ChecksConfig `yaml:"checks"`
}

// NotifyConfig configures the push notification transport and which
// outcome kinds are forwarded to it.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	API     string `yaml:"api"`
	Token   string `yaml:"token"`
	User    string `yaml:"user"`

	// MaxPerRun caps per-outcome notifications in one run.
	MaxPerRun int `yaml:"max_per_run"`

	// Per-outcome notify flags.
	OnFound    bool `yaml:"on_found"`
	OnFixed    bool `yaml:"on_fixed"`
	OnFailed   bool `yaml:"on_failed"`
	OnCritical bool `yaml:"on_critical"`
}

// Wants reports whether the per-kind flag for s is enabled.
// The kind label is the audit-log label (FOUND, FIXED, ...).
func (n NotifyConfig) Wants(kindLabel string) bool {
	switch kindLabel {
	case "FOUND":
		return n.OnFound
	case "FIXED":
		return n.OnFixed
	case "FAILED":
		return n.OnFailed
	case "CRITICAL":
		return n.OnCritical
	}
	return false
}

// StateConfig selects where persisted scalars and the audit log live.
type StateConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend"`

	// Dir is the runtime directory for state files, the audit log and
	// the run report.
	Dir string `yaml:"dir"`
}

// ChecksConfig holds per-check tunables for the fixed catalogue.
type ChecksConfig struct {
	// RequiredDirs must exist; missing ones are created 0755.
	RequiredDirs []string `yaml:"required_dirs"`

	// DiskMounts are mount points inspected for usage.
	DiskMounts       []string `yaml:"disk_mounts"`
	DiskWarnPercent  int      `yaml:"disk_warn_percent"`
	DiskCritPercent  int      `yaml:"disk_crit_percent"`
	DiskCleanupGlobs []string `yaml:"disk_cleanup_globs"`

	// LogFiles are truncated to LogKeepLines once over LogMaxSizeBytes.
	LogFiles        []string `yaml:"log_files"`
	LogMaxSizeBytes int64    `yaml:"log_max_size_bytes"`
	LogKeepLines    int      `yaml:"log_keep_lines"`

	// TmpDir is swept for files older than TmpRetentionSeconds.
	TmpDir              string `yaml:"tmp_dir"`
	TmpRetentionSeconds int    `yaml:"tmp_retention_seconds"`

	// MemoryWarnPercent triggers the cache-drop remediation.
	MemoryWarnPercent int `yaml:"memory_warn_percent"`

	// Services are critical service names checked for liveness.
	Services []string `yaml:"services"`

	// Store-repair tunables.
	StorePattern       string   `yaml:"store_pattern"`
	StoreWindow        int      `yaml:"store_window"`
	StoreTripCount     int      `yaml:"store_trip_count"`
	StoreRecoveryCount int      `yaml:"store_recovery_count"`
	StoreDir           string   `yaml:"store_dir"`
	StoreMaxSizeBytes  int64    `yaml:"store_max_size_bytes"`
	StoreMaxAgeSeconds int      `yaml:"store_max_age_seconds"`
	StoreServices      []string `yaml:"store_services"`
	StoreIPCService    string   `yaml:"store_ipc_service"`

	// Link-quality floors.
	RSRPWarnDBm   float64 `yaml:"rsrp_warn_dbm"`
	RSRPCritDBm   float64 `yaml:"rsrp_crit_dbm"`
	MinSatellites int     `yaml:"min_satellites"`
}

// Default returns a policy with every field at its documented default.
func Default() *Policy {
	return &Policy{
		AutoFix:                     true,
		AutoReboot:                  true,
		ServiceRestart:              true,
		DatabaseFix:                 true,
		RebootThreshold:             DefaultRebootThreshold,
		MaxFixesPerRun:              DefaultMaxFixesPerRun,
		CriticalThreshold:           DefaultCriticalThreshold,
		NotificationCooldownSeconds: DefaultNotifyCooldownSecs,
		RebootCooldownSeconds:       DefaultRebootCooldownSecs,
		FixCooldownSeconds:          DefaultFixCooldownSecs,
		Notify: NotifyConfig{
			API:        "https://api.pushover.net/1/messages.json",
			MaxPerRun:  DefaultMaxNotifyPerRun,
			OnFixed:    true,
			OnFailed:   true,
			OnCritical: true,
		},
		State: StateConfig{
			Backend: "file",
			Dir:     "/var/run/routermedic",
		},
		Checks: ChecksConfig{
			RequiredDirs:        []string{"/var/lock", "/var/run"},
			DiskMounts:          []string{"/overlay", "/tmp"},
			DiskWarnPercent:     DefaultDiskWarnPercent,
			DiskCritPercent:     DefaultDiskCritPercent,
			LogMaxSizeBytes:     DefaultLogMaxSizeBytes,
			LogKeepLines:        DefaultLogKeepLines,
			TmpDir:              "/tmp/routermedic",
			TmpRetentionSeconds: DefaultTmpRetentionSecs,
			MemoryWarnPercent:   DefaultMemoryWarnPercent,
			StoreWindow:         DefaultSignatureWindow,
			StoreTripCount:      DefaultSignatureTripCount,
			StoreRecoveryCount:  DefaultSignatureRecovery,
			StoreMaxSizeBytes:   8 << 20,
			StoreMaxAgeSeconds:  30 * 86400,
			StoreIPCService:     "ubus",
			RSRPWarnDBm:         DefaultRSRPWarnDBm,
			RSRPCritDBm:         DefaultRSRPCritDBm,
			MinSatellites:       DefaultMinSatellites,
		},
	}
}

// Load reads the policy file at path. A missing file is not an error: the
// defaults apply. Fields absent from the file keep their defaults.
func Load(path string) (*Policy, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	if p.Mode != "" && !p.Mode.Valid() {
		return nil, fmt.Errorf("policy file: unknown mode %q", p.Mode)
	}
	if p.State.Backend != "file" && p.State.Backend != "sqlite" {
		return nil, fmt.Errorf("policy file: unknown state backend %q", p.State.Backend)
	}
	return p, nil
}

// EffectiveMode resolves the run mode. A mode set in the policy file takes
// precedence over the command-line argument.
func (p *Policy) EffectiveMode(cli Mode) Mode {
	if p.Mode != "" {
		return p.Mode
	}
	if cli != "" {
		return cli
	}
	return ModeAuto
}

// NotificationCooldown returns the aggregate-critical cooldown as a duration.
func (p *Policy) NotificationCooldown() time.Duration {
	return time.Duration(p.NotificationCooldownSeconds) * time.Second
}

// RebootCooldown returns the escalation reboot cooldown as a duration.
func (p *Policy) RebootCooldown() time.Duration {
	return time.Duration(p.RebootCooldownSeconds) * time.Second
}

// FixCooldown returns the post-fix settle sleep as a duration.
func (p *Policy) FixCooldown() time.Duration {
	return time.Duration(p.FixCooldownSeconds) * time.Second
}

// TmpRetention returns the stale temp file retention as a duration.
func (p *Policy) TmpRetention() time.Duration {
	return time.Duration(p.Checks.TmpRetentionSeconds) * time.Second
}
