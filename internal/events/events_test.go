package events

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordEventAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "events.log")
	log := New(path)

	orig := nowFunc
	defer func() { nowFunc = orig }()
	nowFunc = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, log.RecordEvent("c1", "state", StateData{Status: "created", PID: 42}))
	require.NoError(t, log.RecordEvent("c1", "kill", SignalData{Signal: 9}))

	recs, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "state", recs[0].Type)
	require.Equal(t, "c1", recs[0].ID)
	require.Equal(t, "2026-01-02T03:04:05.000Z", recs[0].Timestamp)
	require.Equal(t, "kill", recs[1].Type)
}

func TestReadAllMissingFileIsEmptyNotError(t *testing.T) {
	recs, err := ReadAll(filepath.Join(t.TempDir(), "missing.log"))
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestReadAllPreservesFileOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")
	log := New(path)

	for i := 0; i < 5; i++ {
		require.NoError(t, log.RecordEvent("c1", "tick", nil))
	}

	recs, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, recs, 5)
}
