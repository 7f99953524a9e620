package isolation

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func restoreEnviron(t *testing.T, saved []string) {
	t.Helper()
	os.Clearenv()
	for _, kv := range saved {
		if k, v, ok := strings.Cut(kv, "="); ok {
			os.Setenv(k, v)
		}
	}
}

func TestRebuildEnvironmentReplacesInheritedVars(t *testing.T) {
	saved := os.Environ()
	t.Cleanup(func() { restoreEnviron(t, saved) })

	require.NoError(t, os.Setenv("RUNWAY_TEST_STALE", "stale"))

	rebuildEnvironment([]string{"HOME=/container", "PATH=/bin"})

	_, ok := os.LookupEnv("RUNWAY_TEST_STALE")
	require.False(t, ok)
	require.Equal(t, "/container", os.Getenv("HOME"))
	require.Equal(t, "/bin", os.Getenv("PATH"))
}

func TestRebuildEnvironmentSkipsEntriesWithEmptyKey(t *testing.T) {
	saved := os.Environ()
	t.Cleanup(func() { restoreEnviron(t, saved) })

	rebuildEnvironment([]string{"=noname", "OK=1"})
	require.Equal(t, "1", os.Getenv("OK"))
}
