package checks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routermedic/routermedic/internal/outcome"
)

func TestDiskSpaceThresholds(t *testing.T) {
	tests := []struct {
		name     string
		pct      float64
		expected outcome.Kind
	}{
		{"below warn", 50, outcome.Observed},
		{"at warn", 80, outcome.Found},
		{"between", 85, outcome.Found},
		{"at critical", 90, outcome.Critical},
		{"above critical", 97, outcome.Critical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := &DiskSpace{
				Mounts:      []string{"/overlay"},
				WarnPercent: 80,
				CritPercent: 90,
				Usage:       func(string) (float64, error) { return tt.pct, nil },
			}
			out := check.Run(context.Background(), testEnv(&openGate{}))
			require.NotEmpty(t, out)
			assert.Equal(t, tt.expected, out[0].Kind)
		})
	}
}

func TestDiskSpaceCleanupFixedOnlyWhenUsageDrops(t *testing.T) {
	dir := t.TempDir()
	victim := filepath.Join(dir, "old.log.gz")
	require.NoError(t, os.WriteFile(victim, []byte("x"), 0644))

	readings := []float64{92, 70}
	check := &DiskSpace{
		Mounts:       []string{"/overlay"},
		WarnPercent:  80,
		CritPercent:  90,
		CleanupGlobs: []string{filepath.Join(dir, "*.gz")},
		Usage: func(string) (float64, error) {
			v := readings[0]
			if len(readings) > 1 {
				readings = readings[1:]
			}
			return v, nil
		},
	}
	gate := &openGate{}

	out := check.Run(context.Background(), testEnv(gate))

	require.Equal(t, []outcome.Kind{outcome.Critical, outcome.Fixed}, kinds(out))
	assert.Equal(t, 1, gate.attempts)
	_, err := os.Stat(victim)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskSpaceCleanupNoReductionNoFixed(t *testing.T) {
	check := &DiskSpace{
		Mounts:       []string{"/overlay"},
		WarnPercent:  80,
		CritPercent:  90,
		CleanupGlobs: []string{filepath.Join(t.TempDir(), "*.gz")}, // nothing matches
		Usage:        func(string) (float64, error) { return 85, nil },
	}
	gate := &openGate{}

	out := check.Run(context.Background(), testEnv(gate))

	// Found stands on its own; no Fixed claimed.
	require.Equal(t, []outcome.Kind{outcome.Found}, kinds(out))
	assert.Equal(t, 1, gate.attempts)
}

func TestDiskSpaceDeniedGateSkipsCleanup(t *testing.T) {
	check := &DiskSpace{
		Mounts:       []string{"/overlay"},
		WarnPercent:  80,
		CritPercent:  90,
		CleanupGlobs: []string{"/nonexistent/*.gz"},
		Usage:        func(string) (float64, error) { return 85, nil },
	}

	out := check.Run(context.Background(), testEnv(&closedGate{t: t}))
	require.Equal(t, []outcome.Kind{outcome.Found}, kinds(out))
}

func TestDiskSpaceUsageError(t *testing.T) {
	check := &DiskSpace{
		Mounts: []string{"/overlay"},
		Usage:  func(string) (float64, error) { return 0, errBoom },
	}

	out := check.Run(context.Background(), testEnv(&openGate{}))
	require.Equal(t, []outcome.Kind{outcome.Failed}, kinds(out))
}
