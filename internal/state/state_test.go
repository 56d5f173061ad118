package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routermedic/routermedic/internal/config"
)

// both backends must satisfy the same contract
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{"file": file, "sqlite": sqlite}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetInt64(KeyConsecutiveCriticalRuns)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SetInt64(KeyConsecutiveCriticalRuns, 3))
			v, err := s.GetInt64(KeyConsecutiveCriticalRuns)
			require.NoError(t, err)
			assert.Equal(t, int64(3), v)

			// Whole-value overwrite.
			require.NoError(t, s.SetInt64(KeyConsecutiveCriticalRuns, 0))
			v, err = s.GetInt64(KeyConsecutiveCriticalRuns)
			require.NoError(t, err)
			assert.Equal(t, int64(0), v)
		})
	}
}

func TestStoreTime(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetTime(KeyLastReboot)
			assert.ErrorIs(t, err, ErrNotFound)

			now := time.Now().Truncate(time.Second)
			require.NoError(t, s.SetTime(KeyLastReboot, now))

			got, err := s.GetTime(KeyLastReboot)
			require.NoError(t, err)
			assert.True(t, got.Equal(now), "got %v want %v", got, now)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetInt64("k", 1))
			require.NoError(t, s.Delete("k"))
			_, err := s.GetInt64("k")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting an absent key is fine.
			assert.NoError(t, s.Delete("never-written"))
		})
	}
}

func TestFileStoreCorruptValue(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), []byte("not-a-number\n"), 0644))
	_, err = s.GetInt64("bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStoreNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.SetInt64("k", 42))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k", entries[0].Name())
}

func TestSQLiteAppendAudit(t *testing.T) {
	s, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AppendAudit("run-1", time.Now(), "FOUND", "/var/lock", "missing"))
	require.NoError(t, s.AppendAudit("run-1", time.Now(), "FIXED", "/var/lock", "created"))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM audit WHERE run_id = ?", "run-1").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open(config.StateConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(config.StateConfig{Backend: "sqlite", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(config.StateConfig{Backend: "redis", Dir: t.TempDir()})
	assert.Error(t, err)
}
