package escalate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routermedic/routermedic/internal/state"
)

type recordingScheduler struct {
	scheduled []string
	delays    []time.Duration
}

func (s *recordingScheduler) Schedule(delay time.Duration, name string, args ...string) error {
	s.scheduled = append(s.scheduled, name)
	s.delays = append(s.delays, delay)
	return nil
}

type recordingNotifier struct{ calls int }

func (n *recordingNotifier) NotifyRebootScheduled(context.Context, int, time.Duration) error {
	n.calls++
	return nil
}

func newController(t *testing.T, threshold int, enabled bool) (*Controller, state.Store, *recordingScheduler, *recordingNotifier) {
	t.Helper()
	store, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)

	sched := &recordingScheduler{}
	notifier := &recordingNotifier{}
	c := NewController(store, threshold, enabled, time.Hour, sched, notifier, slog.Default())
	return c, store, sched, notifier
}

func counter(t *testing.T, store state.Store) int64 {
	t.Helper()
	v, err := store.GetInt64(state.KeyConsecutiveCriticalRuns)
	if err != nil {
		require.ErrorIs(t, err, state.ErrNotFound)
		return 0
	}
	return v
}

func TestCleanRunResetsCounter(t *testing.T) {
	c, store, _, _ := newController(t, 3, true)

	require.NoError(t, store.SetInt64(state.KeyConsecutiveCriticalRuns, 2))

	d := c.Evaluate(context.Background(), 0)
	assert.Equal(t, 0, d.Consecutive)
	assert.False(t, d.RebootScheduled)
	assert.Equal(t, int64(0), counter(t, store))
}

func TestThresholdSchedulesExactlyOneReboot(t *testing.T) {
	c, store, sched, notifier := newController(t, 3, true)
	ctx := context.Background()

	// Three consecutive critical runs.
	d := c.Evaluate(ctx, 1)
	assert.Equal(t, 1, d.Consecutive)
	d = c.Evaluate(ctx, 2)
	assert.Equal(t, 2, d.Consecutive)
	d = c.Evaluate(ctx, 1)

	assert.True(t, d.RebootScheduled)
	assert.Equal(t, 0, d.Consecutive)
	require.Equal(t, []string{"reboot"}, sched.scheduled)
	assert.Equal(t, RebootGrace, sched.delays[0])
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, int64(0), counter(t, store))

	// The following clean run leaves the counter at 0.
	d = c.Evaluate(ctx, 0)
	assert.Equal(t, 0, d.Consecutive)
	assert.Equal(t, int64(0), counter(t, store))
}

func TestRebootCooldownSuppressesSecondReboot(t *testing.T) {
	c, store, sched, _ := newController(t, 1, true)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	d := c.Evaluate(ctx, 1)
	assert.True(t, d.RebootScheduled)

	// Still critical 10 minutes later: threshold reached again but the
	// cooldown blocks the reboot, counter keeps climbing.
	now = now.Add(10 * time.Minute)
	d = c.Evaluate(ctx, 1)
	assert.False(t, d.RebootScheduled)
	assert.Equal(t, 1, d.Consecutive)

	// Past the cooldown it fires again.
	now = now.Add(time.Hour)
	d = c.Evaluate(ctx, 1)
	assert.True(t, d.RebootScheduled)
	assert.Equal(t, []string{"reboot", "reboot"}, sched.scheduled)

	last, err := store.GetTime(state.KeyLastReboot)
	require.NoError(t, err)
	assert.True(t, last.Equal(now))
}

func TestAutoRebootDisabled(t *testing.T) {
	c, _, sched, notifier := newController(t, 1, false)

	d := c.Evaluate(context.Background(), 5)
	assert.False(t, d.RebootScheduled)
	assert.Equal(t, 1, d.Consecutive)
	assert.Empty(t, sched.scheduled)
	assert.Equal(t, 0, notifier.calls)
}

func TestCounterSurvivesAcrossControllers(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewFileStore(dir)
	require.NoError(t, err)
	sched := &recordingScheduler{}

	// Separate controller per run, same backing store: the counter is
	// genuinely persisted, not in-process state.
	for i := 1; i <= 2; i++ {
		c := NewController(store, 5, true, time.Hour, sched, nil, slog.Default())
		d := c.Evaluate(context.Background(), 1)
		assert.Equal(t, i, d.Consecutive)
	}
}
