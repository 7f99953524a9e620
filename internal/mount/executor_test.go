package mount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestClassifyKind(t *testing.T) {
	require.Equal(t, KindBind, ClassifyKind("", ParseOptions([]string{"bind"})))
	require.Equal(t, KindRemount, ClassifyKind("", ParseOptions([]string{"remount"})))
	require.Equal(t, KindProc, ClassifyKind("proc", ParsedOptions{}))
	require.Equal(t, KindTmpfs, ClassifyKind("tmpfs", ParsedOptions{}))
	require.Equal(t, KindGeneric, ClassifyKind("ext4", ParsedOptions{}))
}

func TestPrepareTargetDirectoryForNonFileSource(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "mnt")

	require.NoError(t, PrepareTarget("", target))

	st, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, st.IsDir())
}

func TestPrepareTargetFileForRegularSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source-file")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	target := filepath.Join(dir, "target-file")
	require.NoError(t, PrepareTarget(source, target))

	st, err := os.Stat(target)
	require.NoError(t, err)
	require.False(t, st.IsDir())
}

func TestMaskPathMissingIsNoop(t *testing.T) {
	err := MaskPath(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
}

func TestApplyPropagationPropagatesMountError(t *testing.T) {
	err := ApplyPropagation("/this/path/does/not/exist", unix.MS_PRIVATE)
	require.Error(t, err)
}
