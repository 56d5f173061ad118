package system

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Sample is one reading from the external telemetry source. The source is
// opaque: the engine only consumes these fields.
type Sample struct {
	// Registered is true when the modem has network registration.
	Registered bool

	// RSRP is the reference signal received power in dBm (negative;
	// closer to zero is better).
	RSRP float64

	// GPSFix is true when the GPS has a valid fix.
	GPSFix bool

	// Satellites is the number of satellites in view.
	Satellites int

	// UptimeSeconds comes along for the report.
	UptimeSeconds int64
}

// Telemetry provides link-quality and GPS readings.
type Telemetry interface {
	Sample(ctx context.Context) (Sample, error)
}

// VendorTelemetry shells out to the vendor modem/GPS CLI (gsmctl/gpsctl
// on the target platform). Each query carries the runner's hard timeout.
type VendorTelemetry struct {
	runner Runner
}

// NewVendorTelemetry returns a telemetry source over the vendor CLI.
func NewVendorTelemetry(runner Runner) *VendorTelemetry {
	return &VendorTelemetry{runner: runner}
}

// Sample implements Telemetry. A modem that does not answer at all is an
// error; individual fields degrade to zero values when a query fails.
func (t *VendorTelemetry) Sample(ctx context.Context) (Sample, error) {
	var s Sample

	reg, err := t.runner.Run(ctx, "gsmctl", "-g")
	if err != nil {
		return s, fmt.Errorf("querying registration: %w", err)
	}
	s.Registered = strings.Contains(strings.ToLower(reg), "registered")

	if out, err := t.runner.Run(ctx, "gsmctl", "-W"); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(out), 64); perr == nil {
			s.RSRP = v
		}
	}
	if out, err := t.runner.Run(ctx, "gpsctl", "-f"); err == nil {
		s.GPSFix = strings.TrimSpace(out) == "1"
	}
	if out, err := t.runner.Run(ctx, "gpsctl", "-p"); err == nil {
		if v, perr := strconv.ParseInt(strings.TrimSpace(out), 10, 64); perr == nil {
			s.Satellites = int(v)
		}
	}
	if out, err := t.runner.Run(ctx, "cat", "/proc/uptime"); err == nil {
		fields := strings.Fields(out)
		if len(fields) > 0 {
			if v, perr := strconv.ParseFloat(fields[0], 64); perr == nil {
				s.UptimeSeconds = int64(v)
			}
		}
	}
	return s, nil
}
