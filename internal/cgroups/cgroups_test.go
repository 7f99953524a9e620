package cgroups

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

func TestSharesToWeightDefaults(t *testing.T) {
	require.Equal(t, int64(100), SharesToWeight(0))
	require.Equal(t, int64(100), SharesToWeight(-5))
}

func TestSharesToWeightClampsToRange(t *testing.T) {
	require.GreaterOrEqual(t, SharesToWeight(1), int64(1))
	require.LessOrEqual(t, SharesToWeight(262144), int64(10000))
	require.Equal(t, int64(10000), SharesToWeight(262144))
}

func TestSharesToWeightMonotonic(t *testing.T) {
	prev := SharesToWeight(2)
	for _, shares := range []int64{100, 1000, 10000, 100000, 200000, 262144} {
		w := SharesToWeight(shares)
		require.GreaterOrEqual(t, w, prev)
		prev = w
	}
}

func TestNewSelectsControllerWithoutSystemd(t *testing.T) {
	ctrl, err := New("test/path", false)
	require.NoError(t, err)
	require.Equal(t, "test/path", ctrl.Path())
}

func TestNewWrapsSystemdController(t *testing.T) {
	ctrl, err := New("test/path", true)
	require.NoError(t, err)
	require.IsType(t, &systemdController{}, ctrl)
}

func TestWriteIntWritesDecimalString(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeInt(dir, "cpu.weight", 250))

	data, err := os.ReadFile(filepath.Join(dir, "cpu.weight"))
	require.NoError(t, err)
	require.Equal(t, "250", string(data))
}

func TestWriteFileWrapsFailureAsCgroupFail(t *testing.T) {
	err := writeFile(filepath.Join(t.TempDir(), "missing-dir"), "cpu.weight", "100")
	require.Error(t, err)
	require.Equal(t, runtimeerr.CgroupFail, runtimeerr.KindOf(err))
}

func TestRemoveAllBenignIgnoresMissingPath(t *testing.T) {
	require.NoError(t, removeAllBenign(filepath.Join(t.TempDir(), "never-existed")))
}

func TestRemoveAllBenignRemovesExistingTree(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.NoError(t, removeAllBenign(sub))
	_, err := os.Stat(sub)
	require.True(t, os.IsNotExist(err))
}
