package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nelmo-ux/container-runway/internal/specs"
	"github.com/nelmo-ux/container-runway/internal/store"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunPassesStateOnStdin(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "captured")
	script := writeScript(t, dir, "hook.sh", "cat > "+outPath+"\n")

	h := specs.Hook{Path: script}
	err := Run(context.Background(), h, EnvFields{Type: "prestart", ID: "c1"}, []byte(`{"id":"c1"}`))
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, `{"id":"c1"}`, string(data))
}

func TestRunNonZeroExitIsHookFail(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fail.sh", "exit 3\n")

	h := specs.Hook{Path: script}
	err := Run(context.Background(), h, EnvFields{}, nil)
	require.Error(t, err)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "slow.sh", "sleep 5\n")

	h := specs.Hook{Path: script, TimeoutSec: 1}
	err := Run(context.Background(), h, EnvFields{}, nil)
	require.Error(t, err)
}

func TestRunPhaseSkipsWhenAlreadyDone(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "hook.sh", "exit 0\n")

	st := store.NewState("c1", "1.0.2", dir)
	st.SetAnnotation(store.HookDoneKey("prestart"), "already-ran")

	ran, err := RunPhase(context.Background(), specs.Prestart, []specs.Hook{{Path: script}}, st)
	require.NoError(t, err)
	require.False(t, ran)
}

func TestRunPhaseMarksDoneAfterSuccess(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "hook.sh", "exit 0\n")

	st := store.NewState("c1", "1.0.2", dir)
	ran, err := RunPhase(context.Background(), specs.Prestart, []specs.Hook{{Path: script}}, st)
	require.NoError(t, err)
	require.True(t, ran)

	_, done := st.Annotation(store.HookDoneKey(string(specs.Prestart)))
	require.True(t, done)
}

func TestRunPhaseEmptyListStillMarksDone(t *testing.T) {
	st := store.NewState("c1", "1.0.2", "/bundles/c1")
	ran, err := RunPhase(context.Background(), specs.Poststop, nil, st)
	require.NoError(t, err)
	require.False(t, ran)

	_, done := st.Annotation(store.HookDoneKey(string(specs.Poststop)))
	require.True(t, done)
}
