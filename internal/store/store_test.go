package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	st := NewState("c1", "1.0.2", "/bundles/c1")
	st.PID = 123
	st.SetAnnotation("runway.cgroupPath", "my_runtime/c1")

	require.NoError(t, s.Save(st))

	loaded, err := s.Load("c1")
	require.NoError(t, err)
	require.Equal(t, st.ID, loaded.ID)
	require.Equal(t, st.PID, loaded.PID)
	require.Equal(t, StatusCreating, loaded.Status)
	v, ok := loaded.Annotation("runway.cgroupPath")
	require.True(t, ok)
	require.Equal(t, "my_runtime/c1", v)
}

func TestLoadMissingContainerIsNotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Load("nope")
	require.Error(t, err)
	require.Equal(t, runtimeerr.NotFound, runtimeerr.KindOf(err))
}

func TestLoadCorruptStateIsIOFail(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	require.NoError(t, s.EnsureDir("c1"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c1", "state.json"), []byte("{not json"), 0o644))

	_, err := s.Load("c1")
	require.Error(t, err)
	require.Equal(t, runtimeerr.IOFail, runtimeerr.KindOf(err))
}

func TestLoadAcceptsLegacyBundlePathAlias(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	require.NoError(t, s.EnsureDir("c1"))
	legacy := `{"version":1,"ociVersion":"1.0.2","id":"c1","pid":7,"status":"created","bundle_path":"/old/path"}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "c1", "state.json"), []byte(legacy), 0o644))

	st, err := s.Load("c1")
	require.NoError(t, err)
	require.Equal(t, "/old/path", st.BundlePath)
}

func TestRemoveIsBenignOnMissingFiles(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Remove("never-created"))
}

func TestRemoveDeletesContainerState(t *testing.T) {
	s := New(t.TempDir())
	st := NewState("c1", "1.0.2", "/bundles/c1")
	require.NoError(t, s.Save(st))

	require.NoError(t, s.Remove("c1"))
	_, err := s.Load("c1")
	require.Error(t, err)
}

func TestListIDsOnEmptyRootIsEmptyNotError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist-yet"))
	ids, err := s.ListIDs()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestListIDsReturnsEveryContainerDir(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Save(NewState("a", "1.0.2", "/b/a")))
	require.NoError(t, s.Save(NewState("b", "1.0.2", "/b/b")))

	ids, err := s.ListIDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pidfile")
	require.NoError(t, WritePIDFile(path, 4242))

	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	require.Equal(t, 4242, pid)
}

func TestWritePIDFileEmptyPathIsNoop(t *testing.T) {
	require.NoError(t, WritePIDFile("", 1))
}

func TestHookDoneKey(t *testing.T) {
	require.Equal(t, "hooks.prestart", HookDoneKey("prestart"))
}
