package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nelmo-ux/container-runway/internal/specs"
)

func TestWriteIDMapFormatsOneLinePerMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uid_map")
	mappings := []specs.IDMapping{
		{ContainerID: 0, HostID: 100000, Size: 65536},
		{ContainerID: 1000, HostID: 1000, Size: 1},
	}

	require.NoError(t, writeIDMap(path, mappings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0 100000 65536\n1000 1000 1\n", string(data))
}

func TestWriteIDMapEmptyMappingsIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "uid_map")
	require.NoError(t, writeIDMap(path, nil))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestWriteUserNamespaceMapsSkippedWithoutUserNamespace(t *testing.T) {
	l := specs.Linux{Namespaces: []specs.Namespace{{Type: specs.PIDNamespace}}}
	require.NoError(t, writeUserNamespaceMaps(1<<30, l))
}
