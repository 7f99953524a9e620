package mount

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestParseOptionsFlagsAreUnionOfTokens(t *testing.T) {
	p := ParseOptions([]string{"ro", "nosuid", "nodev", "noexec"})
	require.Equal(t, uintptr(unix.MS_RDONLY|unix.MS_NOSUID|unix.MS_NODEV|unix.MS_NOEXEC), p.Flags)
	require.Empty(t, p.Data)
}

func TestParseOptionsBindReadonlyRequiresBothTokens(t *testing.T) {
	p := ParseOptions([]string{"bind", "ro"})
	require.True(t, p.BindReadonly)

	p = ParseOptions([]string{"bind"})
	require.False(t, p.BindReadonly)

	p = ParseOptions([]string{"ro"})
	require.False(t, p.BindReadonly)
}

func TestParseOptionsRbindImpliesRecursive(t *testing.T) {
	p := ParseOptions([]string{"rbind"})
	require.Equal(t, uintptr(unix.MS_BIND|unix.MS_REC), p.Flags)
	require.True(t, p.BindReadonly == false)
}

func TestParseOptionsPropagationSeparateFromFlags(t *testing.T) {
	p := ParseOptions([]string{"bind", "rprivate"})
	require.True(t, p.HasPropagation)
	require.Equal(t, uintptr(unix.MS_PRIVATE|unix.MS_REC), p.Propagation)
	require.Equal(t, uintptr(unix.MS_BIND), p.Flags)
}

func TestParseOptionsNoPropagationToken(t *testing.T) {
	p := ParseOptions([]string{"bind"})
	require.False(t, p.HasPropagation)
	require.Zero(t, p.Propagation)
}

func TestParseOptionsUnrecognizedTokensBecomeData(t *testing.T) {
	p := ParseOptions([]string{"size=64m", "mode=1777", "ro"})
	require.Equal(t, "size=64m,mode=1777", p.Data)
	require.Equal(t, uintptr(unix.MS_RDONLY), p.Flags)
}

func TestParseOptionsEmpty(t *testing.T) {
	p := ParseOptions(nil)
	require.Zero(t, p.Flags)
	require.Zero(t, p.Propagation)
	require.False(t, p.HasPropagation)
	require.False(t, p.BindReadonly)
	require.Empty(t, p.Data)
}

func TestParseOptionsRwIsZeroFlagNotData(t *testing.T) {
	p := ParseOptions([]string{"rw"})
	require.Zero(t, p.Flags)
	require.Empty(t, p.Data)
}
