package checks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routermedic/routermedic/internal/outcome"
)

func storeRepairCheck(dir string) *StoreRepair {
	return &StoreRepair{
		Pattern:       "Failed to parse message data",
		Window:        200,
		TripCount:     5,
		RecoveryCount: 2,
		StoreDir:      dir,
		MaxSize:       1024,
		MaxAge:        30 * 24 * time.Hour,
		Services:      []string{"collector", "uploader"},
		IPCService:    "ubus",
	}
}

func repairEnv(gate FixGate, sig *fakeSignatures) (*Env, *fakeServices) {
	env := testEnv(gate)
	svcs := newFakeServices()
	svcs.running["collector"] = true
	svcs.running["uploader"] = true
	env.Services = svcs
	env.Signatures = sig
	return env, svcs
}

func TestStoreRepairBelowWatermark(t *testing.T) {
	env, _ := repairEnv(&openGate{}, &fakeSignatures{counts: []int{2}})
	out := storeRepairCheck(t.TempDir()).Run(context.Background(), env)

	require.Equal(t, []outcome.Kind{outcome.Observed}, kinds(out))
}

func TestStoreRepairSelectiveResetAndRecovery(t *testing.T) {
	dir := t.TempDir()

	// Corrupt by emptiness, corrupt by size, and one healthy store.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.db"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bloated.db"), make([]byte, 2048), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "healthy.db"), []byte("data"), 0644))

	gate := &openGate{}
	// Tripped before remediation, recovered after.
	env, svcs := repairEnv(gate, &fakeSignatures{counts: []int{8, 0}})

	out := storeRepairCheck(dir).Run(context.Background(), env)

	require.Equal(t, []outcome.Kind{outcome.Found, outcome.Fixed}, kinds(out))
	assert.Contains(t, out[1].Remedy, "reset 2 stores")
	assert.Equal(t, 1, gate.attempts)

	// Only the corrupted stores were wiped.
	_, err := os.Stat(filepath.Join(dir, "healthy.db"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "empty.db"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "bloated.db"))
	assert.True(t, os.IsNotExist(err))

	// Services stopped before the reset, IPC restarted, services started.
	assert.Equal(t, []string{
		"stop collector", "stop uploader",
		"restart ubus",
		"start collector", "start uploader",
	}, svcs.history)
}

func TestStoreRepairStillLoopingIsCritical(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.db"), nil, 0644))

	env, _ := repairEnv(&openGate{}, &fakeSignatures{counts: []int{8, 7}})
	out := storeRepairCheck(dir).Run(context.Background(), env)

	require.Equal(t, []outcome.Kind{outcome.Found, outcome.Critical}, kinds(out))
}

func TestStoreRepairDeniedGateObservesOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.db"), nil, 0644))

	env, svcs := repairEnv(&closedGate{t: t}, &fakeSignatures{counts: []int{8}})
	out := storeRepairCheck(dir).Run(context.Background(), env)

	require.Equal(t, []outcome.Kind{outcome.Found}, kinds(out))
	assert.Empty(t, svcs.history)
	_, err := os.Stat(filepath.Join(dir, "empty.db"))
	assert.NoError(t, err)
}

func TestStoreRepairSamplingFailure(t *testing.T) {
	env, _ := repairEnv(&openGate{}, &fakeSignatures{err: errBoom})
	out := storeRepairCheck(t.TempDir()).Run(context.Background(), env)

	require.Equal(t, []outcome.Kind{outcome.Failed}, kinds(out))
}

func TestStoreRepairAgeHeuristic(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "ancient.db")
	require.NoError(t, os.WriteFile(stale, []byte("data"), 0644))
	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	env, _ := repairEnv(&openGate{}, &fakeSignatures{counts: []int{8, 0}})
	out := storeRepairCheck(dir).Run(context.Background(), env)

	require.Equal(t, []outcome.Kind{outcome.Found, outcome.Fixed}, kinds(out))
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
