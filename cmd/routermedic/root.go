package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/routermedic/routermedic/internal/audit"
	"github.com/routermedic/routermedic/internal/checks"
	"github.com/routermedic/routermedic/internal/config"
	"github.com/routermedic/routermedic/internal/engine"
	"github.com/routermedic/routermedic/internal/escalate"
	"github.com/routermedic/routermedic/internal/notify"
	"github.com/routermedic/routermedic/internal/policy"
	"github.com/routermedic/routermedic/internal/state"
	"github.com/routermedic/routermedic/internal/system"
)

var (
	configPath string
	stateDir   string
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "routermedic [auto|check|fix|report]",
	Short: "Automated system-health maintenance for embedded routers",
	Long: `routermedic runs one maintenance pass: it inspects the router for
operational faults (missing directories, runaway logs, stuck daemons,
corrupted local stores, filesystem exhaustion, dead services, degraded
link quality), repairs what policy allows, and escalates what it cannot
repair.

Modes:
  auto    run checks and apply fixes under the policy gate (default)
  check   run checks only; never mutate anything
  fix     like auto, but force the auto_fix toggle on
  report  print the last run report without running checks

A mode set in the policy file overrides the command-line mode.

Exit codes:
  0 - no unresolved critical issues
  1 - setup error (unreadable policy file, state store failure)
  2 - one or more critical issues remain`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"auto", "check", "fix", "report"},
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(run(args))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/routermedic.yaml", "policy file path")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "override the runtime state directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func run(args []string) int {
	var cliMode config.Mode
	if len(args) == 1 {
		cliMode = config.Mode(args[0])
		if !cliMode.Valid() {
			fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", args[0])
			return 1
		}
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if stateDir != "" {
		cfg.State.Dir = stateDir
	}
	mode := cfg.EffectiveMode(cliMode)

	if mode == config.ModeReport {
		return showReport(cfg)
	}

	store, err := state.Open(cfg.State)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening state store: %v\n", err)
		return 1
	}
	defer store.Close()

	runner := system.NewExecRunner()
	logs := system.NewSyslogReader(runner)

	var dispatcher *notify.Dispatcher
	var outcomeNotifier audit.OutcomeNotifier
	var rebootNotifier escalate.RebootNotifier
	if cfg.Notify.Enabled && cfg.Notify.Token != "" && cfg.Notify.User != "" {
		client := notify.NewClient(cfg.Notify.API, cfg.Notify.Token, cfg.Notify.User)
		dispatcher = notify.NewDispatcher(client, store,
			cfg.NotificationCooldown(), cfg.CriticalThreshold, log)
		outcomeNotifier = dispatcher
		rebootNotifier = dispatcher
	}

	// The sqlite backend doubles as a queryable audit sink.
	var sink audit.Sink
	if s, ok := store.(*state.SQLiteStore); ok {
		sink = s
	}
	recorder := audit.NewRecorder(
		filepath.Join(cfg.State.Dir, "maintenance.log"),
		cfg.Notify, outcomeNotifier, sink, log)

	env := &checks.Env{
		Gate:       policy.NewGate(cfg, mode),
		Services:   system.NewInitServices(runner, ""),
		Signatures: system.NewLineCounter(logs),
		Telemetry:  system.NewVendorTelemetry(runner),
		Now:        time.Now,
		Log:        log,
	}

	eng := &engine.Engine{
		Mode:     mode,
		Policy:   cfg,
		Recorder: recorder,
		Checks:   catalogueWithAuditLog(cfg),
		Env:      env,
		Escalation: escalate.NewController(store, cfg.RebootThreshold,
			cfg.AutoReboot, cfg.RebootCooldown(), escalate.ShellScheduler{}, rebootNotifier, log),
		ReportPath: filepath.Join(cfg.State.Dir, "report.txt"),
		Out:        os.Stdout,
		Log:        log,
	}
	if dispatcher != nil {
		eng.Critical = dispatcher
	}
	return eng.Run(context.Background())
}

// catalogueWithAuditLog builds the check set with the engine's own audit
// log included in the log-growth file list, so the engine cannot become
// its own disk-fault source. The loaded policy is immutable for the run,
// so the addition happens on a copy.
func catalogueWithAuditLog(cfg *config.Policy) []checks.Check {
	auditLog := filepath.Join(cfg.State.Dir, "maintenance.log")
	for _, f := range cfg.Checks.LogFiles {
		if f == auditLog {
			return checks.Catalogue(cfg)
		}
	}
	withAudit := *cfg
	withAudit.Checks.LogFiles = append(append([]string(nil), cfg.Checks.LogFiles...), auditLog)
	return checks.Catalogue(&withAudit)
}

func showReport(cfg *config.Policy) int {
	path := filepath.Join(cfg.State.Dir, "report.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no run report yet")
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: reading report: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}
