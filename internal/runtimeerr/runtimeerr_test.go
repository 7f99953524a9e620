package runtimeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsNilForNilCause(t *testing.T) {
	require.NoError(t, New(IOFail, "phase", nil))
}

func TestNewFormatsPhaseAndKind(t *testing.T) {
	err := New(MountFail, "apply-propagation", errors.New("boom"))
	require.EqualError(t, err, "MountFail: apply-propagation: boom")
}

func TestErrorFormatsWithoutPhase(t *testing.T) {
	e := &Error{Kind: NotFound, Err: errors.New("gone")}
	require.EqualError(t, e, "NotFound: gone")
}

func TestUnwrapExposesUnderlyingCause(t *testing.T) {
	cause := errors.New("root cause")
	err := New(HookFail, "run", cause)
	require.ErrorIs(t, err, cause)
}

func TestKindOfExtractsKindThroughWrapping(t *testing.T) {
	inner := New(CgroupFail, "apply", errors.New("nope"))
	wrapped := fmt.Errorf("outer context: %w", inner)

	require.Equal(t, CgroupFail, KindOf(wrapped))
}

func TestKindOfEmptyForPlainError(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestKindOfEmptyForNil(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(nil))
}
