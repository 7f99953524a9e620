package orchestrator

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectProcessTreeAlwaysIncludesRoot(t *testing.T) {
	self := os.Getpid()
	tree := CollectProcessTree(self)
	require.Contains(t, tree, self)
}

func TestCollectProcessTreeNoChildrenForUnknownPID(t *testing.T) {
	tree := CollectProcessTree(1 << 30)
	require.Equal(t, []int{1 << 30}, tree)
}

func TestProcessCommUnknownPIDReturnsPlaceholder(t *testing.T) {
	require.Equal(t, "?", ProcessComm(1<<30))
}

func TestProcessCommSelf(t *testing.T) {
	comm := ProcessComm(os.Getpid())
	require.NotEmpty(t, comm)
	require.NotEqual(t, "?", comm)
}
