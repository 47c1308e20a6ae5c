package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"duoconv/core/settings"
)

func openManager(t *testing.T, path string) *Manager {
	t.Helper()
	m, err := NewManager(path, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestRecordAndListRuns(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "nested", "history.db"))
	defer m.Close()

	for i := 1; i <= 3; i++ {
		id, err := m.RecordRun(RunRecord{
			StartedAt:      time.Now(),
			Settings:       settings.Default().Raw(),
			TotalAttempted: i,
		}, []FileRecord{{Path: "a.mp4", Status: "success", Formats: []string{"OGG"}}})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id)
	}

	runs, err := m.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, uint64(3), runs[0].ID)
	assert.Equal(t, 3, runs[0].TotalAttempted)
	assert.Equal(t, uint64(2), runs[1].ID)

	all, err := m.RecentRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	files, err := m.RunFiles(1)
	require.NoError(t, err)
	assert.Equal(t, []FileRecord{{Path: "a.mp4", Status: "success", Formats: []string{"OGG"}}}, files)

	_, err = m.RunFiles(42)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestUnfinishedRunDetectedOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	m := openManager(t, path)
	require.NoError(t, m.BeginRun(5))
	info, err := m.GetState()
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, info.Current)
	assert.Equal(t, StateIdle, info.Previous)
	require.NoError(t, m.Close())

	reopened := openManager(t, path)
	defer reopened.Close()
	require.NotNil(t, reopened.Unfinished())
	assert.Equal(t, "converting 5 file(s)", reopened.Unfinished().Message)

	info, err = reopened.GetState()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, info.Current)
}

func TestRecordRunReturnsToIdle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	m := openManager(t, path)
	require.NoError(t, m.BeginRun(1))
	_, err := m.RecordRun(RunRecord{StartedAt: time.Now()}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	reopened := openManager(t, path)
	defer reopened.Close()
	assert.Nil(t, reopened.Unfinished())
}
