package engine

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/routermedic/routermedic/internal/config"
	"github.com/routermedic/routermedic/internal/outcome"
)

// Report is the human-readable summary of one run. The report file is the
// authoritative record; the exit code is the only machine-readable signal.
type Report struct {
	RunID    string
	Mode     config.Mode
	Started  time.Time
	Finished time.Time
	Counters outcome.Counters
	Sent     int
	Outcomes []outcome.Outcome

	Consecutive     int
	RebootScheduled bool
}

// WriteFile overwrites the report at path, keeping the previous report as
// path.prev.
func (r *Report) WriteFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".prev"); err != nil {
			return fmt.Errorf("rotating previous report: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "routermedic run %s (%s mode)\n", r.RunID, r.Mode)
	fmt.Fprintf(&b, "started  %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "finished %s\n", r.Finished.Format(time.RFC3339))
	fmt.Fprintf(&b, "found=%d fixed=%d failed=%d critical=%d notified=%d\n",
		r.Counters.Found, r.Counters.Fixed, r.Counters.Failed, r.Counters.Critical, r.Sent)
	b.WriteString("\n")

	if len(r.Outcomes) == 0 {
		b.WriteString("no issues\n")
	}
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "%-8s %s — %s\n", o.Kind, o.Subject, o.Remedy)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "consecutive critical runs: %d\n", r.Consecutive)
	if r.RebootScheduled {
		b.WriteString("REBOOT SCHEDULED\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Render prints the doctor-style console summary.
func (r *Report) Render(w io.Writer) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "%s run %s (%s mode)\n\n", cyan("routermedic"), r.RunID, r.Mode)

	for _, o := range r.Outcomes {
		switch o.Kind {
		case outcome.Fixed:
			fmt.Fprintf(w, "  %s %s — %s\n", green("✓"), o.Subject, o.Remedy)
		case outcome.Found:
			fmt.Fprintf(w, "  %s %s — %s\n", yellow("⚠"), o.Subject, o.Remedy)
		default:
			fmt.Fprintf(w, "  %s %s — %s\n", red("✗"), o.Subject, o.Remedy)
		}
	}
	if len(r.Outcomes) == 0 {
		fmt.Fprintf(w, "  %s all checks passed\n", green("✓"))
	}

	fmt.Fprintf(w, "\nfound=%d fixed=%d failed=%d critical=%d\n",
		r.Counters.Found, r.Counters.Fixed, r.Counters.Failed, r.Counters.Critical)
	if r.RebootScheduled {
		fmt.Fprintf(w, "%s reboot scheduled\n", red("✗"))
	}
}
