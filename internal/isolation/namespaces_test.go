package isolation

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/specs"
)

func TestUnshareFlagsOnlyCountsNamespacesWithoutPath(t *testing.T) {
	l := specs.Linux{Namespaces: []specs.Namespace{
		{Type: specs.PIDNamespace},
		{Type: specs.NetNamespace, Path: "/proc/1/ns/net"},
		{Type: specs.UTSNamespace},
	}}

	flags := UnshareFlags(l)
	require.Equal(t, uintptr(unix.CLONE_NEWPID|unix.CLONE_NEWUTS), flags)
}

func TestUnshareFlagsEmptyForAllJoins(t *testing.T) {
	l := specs.Linux{Namespaces: []specs.Namespace{
		{Type: specs.PIDNamespace, Path: "/proc/1/ns/pid"},
	}}
	require.Equal(t, uintptr(0), UnshareFlags(l))
}

func TestJoinOrderAndTypesPreservesDeclarationOrder(t *testing.T) {
	l := specs.Linux{Namespaces: []specs.Namespace{
		{Type: specs.NetNamespace, Path: "/proc/1/ns/net"},
		{Type: specs.PIDNamespace},
		{Type: specs.UTSNamespace, Path: "/proc/1/ns/uts"},
	}}

	order := JoinOrderAndTypes(l)
	require.Equal(t, []specs.NamespaceType{specs.NetNamespace, specs.UTSNamespace}, order)
}

func TestJoinOrderAndTypesEmptyWhenNoPaths(t *testing.T) {
	l := specs.Linux{Namespaces: []specs.Namespace{{Type: specs.PIDNamespace}}}
	require.Empty(t, JoinOrderAndTypes(l))
}

func TestJoinNamespacesRejectsMismatchedLengths(t *testing.T) {
	err := joinNamespaces([]specs.NamespaceType{specs.PIDNamespace}, nil)
	require.Error(t, err)
}

func TestUnshareNamespacesNoopOnZeroFlags(t *testing.T) {
	require.NoError(t, unshareNamespaces(0))
}
