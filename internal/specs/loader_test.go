package specs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

func writeBundle(t *testing.T, cfg map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644))
	return dir
}

func minimalConfig() map[string]any {
	return map[string]any{
		"ociVersion": "1.0.2",
		"root":       map[string]any{"path": "rootfs"},
		"process":    map[string]any{"args": []string{"sh"}, "cwd": "/"},
	}
}

func TestLoadMinimalBundle(t *testing.T) {
	dir := writeBundle(t, minimalConfig())

	s, err := Load(dir, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"sh"}, s.Process.Args)
	require.Equal(t, filepath.Join(DefaultCgroupsPathPrefix, "c1"), s.Linux.CgroupsPath)
}

func TestLoadMissingBundleIsConfigInvalid(t *testing.T) {
	_, err := Load(t.TempDir(), "c1")
	require.Error(t, err)
	require.Equal(t, runtimeerr.ConfigInvalid, runtimeerr.KindOf(err))
}

func TestLoadMalformedJSONIsConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o644))

	_, err := Load(dir, "c1")
	require.Error(t, err)
	require.Equal(t, runtimeerr.ConfigInvalid, runtimeerr.KindOf(err))
}

func TestLoadRejectsEmptyProcessArgs(t *testing.T) {
	cfg := minimalConfig()
	cfg["process"] = map[string]any{"args": []string{}, "cwd": "/"}
	dir := writeBundle(t, cfg)

	_, err := Load(dir, "c1")
	require.Error(t, err)
	require.Equal(t, runtimeerr.ConfigInvalid, runtimeerr.KindOf(err))
}

func TestLoadRejectsDuplicateNamespace(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{
		"namespaces": []map[string]any{
			{"type": "pid"},
			{"type": "pid"},
		},
	}
	dir := writeBundle(t, cfg)

	_, err := Load(dir, "c1")
	require.Error(t, err)
}

func TestLoadRejectsUnknownNamespaceType(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{
		"namespaces": []map[string]any{
			{"type": "bogus"},
		},
	}
	dir := writeBundle(t, cfg)

	_, err := Load(dir, "c1")
	require.Error(t, err)
}

func TestLoadDefaultsCgroupsPathWhenAbsent(t *testing.T) {
	dir := writeBundle(t, minimalConfig())

	s, err := Load(dir, "my-container")
	require.NoError(t, err)
	require.Equal(t, "my_runtime/my-container", s.Linux.CgroupsPath)
}

func TestLoadTrimsExplicitCgroupsPathSlashes(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{"cgroupsPath": "/custom/path/"}
	dir := writeBundle(t, cfg)

	s, err := Load(dir, "c1")
	require.NoError(t, err)
	require.Equal(t, "custom/path", s.Linux.CgroupsPath)
}

func TestLoadParsesHumanMemoryLimit(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{"resources": map[string]any{"memoryLimitHuman": "256m"}}
	dir := writeBundle(t, cfg)

	s, err := Load(dir, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(256*1024*1024), s.Linux.Resources.MemoryLimit)
}

func TestLoadExplicitMemoryLimitWinsOverHuman(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{"resources": map[string]any{
		"memoryLimit":      int64(1024),
		"memoryLimitHuman": "256m",
	}}
	dir := writeBundle(t, cfg)

	s, err := Load(dir, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(1024), s.Linux.Resources.MemoryLimit)
}

func TestLoadDefaultsUserNamespaceMappingsToCurrentIDs(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{
		"namespaces": []map[string]any{{"type": "user"}},
	}
	dir := writeBundle(t, cfg)

	s, err := Load(dir, "c1")
	require.NoError(t, err)
	require.Len(t, s.Linux.UIDMappings, 1)
	require.Len(t, s.Linux.GIDMappings, 1)
	require.Equal(t, uint32(os.Getuid()), s.Linux.UIDMappings[0].HostID)
	require.Equal(t, uint32(os.Getgid()), s.Linux.GIDMappings[0].HostID)
}

func TestLoadPreservesExplicitUserNamespaceMappings(t *testing.T) {
	cfg := minimalConfig()
	cfg["linux"] = map[string]any{
		"namespaces": []map[string]any{{"type": "user"}},
		"uidMappings": []map[string]any{
			{"containerID": 0, "hostID": 100000, "size": 65536},
		},
	}
	dir := writeBundle(t, cfg)

	s, err := Load(dir, "c1")
	require.NoError(t, err)
	require.Equal(t, uint32(100000), s.Linux.UIDMappings[0].HostID)
}

func TestHasNamespaceReportsJoinPath(t *testing.T) {
	l := Linux{Namespaces: []Namespace{{Type: NetNamespace, Path: "/proc/123/ns/net"}}}

	ns, ok := l.HasNamespace(NetNamespace)
	require.True(t, ok)
	require.Equal(t, "/proc/123/ns/net", ns.Path)

	_, ok = l.HasNamespace(PIDNamespace)
	require.False(t, ok)
}

func TestHooksPhaseReturnsNilForUnknownPhase(t *testing.T) {
	h := Hooks{Prestart: []Hook{{Path: "/bin/true"}}}
	require.Nil(t, h.Phase(HookPhase("bogus")))
	require.Len(t, h.Phase(Prestart), 1)
}
