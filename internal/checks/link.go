package checks

import (
	"context"
	"fmt"

	"github.com/routermedic/routermedic/internal/outcome"
)

// LinkQuality watches modem registration, signal strength and GPS fix.
// Observation only: the link hardware is outside this engine's control,
// so there is no remediation and the gate is never consulted.
type LinkQuality struct {
	RSRPWarn      float64
	RSRPCrit      float64
	MinSatellites int
}

// Name implements Check.
func (c *LinkQuality) Name() string { return "link-quality" }

// Run implements Check.
func (c *LinkQuality) Run(ctx context.Context, env *Env) []outcome.Outcome {
	s, err := env.Telemetry.Sample(ctx)
	if err != nil {
		return []outcome.Outcome{outcome.New(outcome.Critical, "modem", fmt.Sprintf("unresponsive: %v", err))}
	}

	var out []outcome.Outcome

	if !s.Registered {
		out = append(out, outcome.New(outcome.Found, "modem", "no network registration"))
	}

	switch {
	case s.RSRP == 0:
		// No reading; registration state already tells the story.
	case s.RSRP <= c.RSRPCrit:
		out = append(out, outcome.New(outcome.Critical, "signal",
			fmt.Sprintf("RSRP %.0f dBm at or below critical floor %.0f", s.RSRP, c.RSRPCrit)))
	case s.RSRP <= c.RSRPWarn:
		out = append(out, outcome.New(outcome.Found, "signal",
			fmt.Sprintf("RSRP %.0f dBm at or below warn floor %.0f", s.RSRP, c.RSRPWarn)))
	default:
		out = append(out, outcome.New(outcome.Observed, "signal", fmt.Sprintf("RSRP %.0f dBm", s.RSRP)))
	}

	if !s.GPSFix && s.Satellites < c.MinSatellites {
		out = append(out, outcome.New(outcome.Found, "gps",
			fmt.Sprintf("no fix with %d satellites (minimum %d)", s.Satellites, c.MinSatellites)))
	} else {
		out = append(out, outcome.New(outcome.Observed, "gps",
			fmt.Sprintf("fix=%v satellites=%d", s.GPSFix, s.Satellites)))
	}
	return out
}
