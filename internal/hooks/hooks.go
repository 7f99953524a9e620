// Package hooks is the Hook Runner: fork/exec of hook programs
// with stdin state JSON, a timeout, and at-most-once bookkeeping.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// EnvFields are the fixed environment additions every hook receives ahead
// of its own env entries, computed once per phase invocation.
type EnvFields struct {
	Type     string
	ID       string
	Bundle   string
	PID      int
	Status   string
}

func (f EnvFields) vars() []string {
	return []string{
		"OCI_HOOK_TYPE=" + f.Type,
		"OCI_CONTAINER_ID=" + f.ID,
		"OCI_CONTAINER_BUNDLE=" + f.Bundle,
		fmt.Sprintf("OCI_CONTAINER_PID=%d", f.PID),
		"OCI_CONTAINER_STATUS=" + f.Status,
	}
}

// Run executes one hook, writing stateJSON to its stdin and exec'ing
// path/args with the parent's env plus EnvFields plus the hook's own env.
// timeout<=0 means wait indefinitely; on timeout the process is killed
// and reaped. Any non-zero exit or signal death is a HookFail.
func Run(ctx context.Context, h specs.Hook, fields EnvFields, stateJSON []byte) error {
	args := h.Args
	if len(args) == 0 {
		args = []string{h.Path}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if h.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(h.TimeoutSec)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, h.Path, args[1:]...)
	cmd.Args[0] = args[0]
	cmd.Env = append(cmd.Environ(), fields.vars()...)
	cmd.Env = append(cmd.Env, h.Env...)
	cmd.Stdin = bytes.NewReader(stateJSON)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return runtimeerr.New(runtimeerr.HookFail, "hook-timeout", fmt.Errorf("%s timed out after %ds", h.Path, h.TimeoutSec))
	}
	if err != nil {
		return runtimeerr.New(runtimeerr.HookFail, "hook-exec", fmt.Errorf("%s: %w: %s", h.Path, err, stderr.String()))
	}
	return nil
}

// RunPhase runs every hook of one phase in order, building the state JSON
// once. At-most-once: if HookDoneKey(phase) is already set on st, the
// phase is skipped and reported as already-done without re-running.
func RunPhase(ctx context.Context, phase specs.HookPhase, list []specs.Hook, st *store.State) (ran bool, err error) {
	if _, done := st.Annotation(store.HookDoneKey(string(phase))); done {
		return false, nil
	}
	if len(list) == 0 {
		st.SetAnnotation(store.HookDoneKey(string(phase)), time.Now().UTC().Format(time.RFC3339))
		return false, nil
	}

	stateJSON, err := json.Marshal(st)
	if err != nil {
		return false, runtimeerr.New(runtimeerr.HookFail, "marshal-state", err)
	}

	fields := EnvFields{
		Type:   string(phase),
		ID:     st.ID,
		Bundle: st.BundlePath,
		PID:    st.PID,
		Status: string(st.Status),
	}

	for _, h := range list {
		if err := Run(ctx, h, fields, stateJSON); err != nil {
			return true, err
		}
	}

	st.SetAnnotation(store.HookDoneKey(string(phase)), time.Now().UTC().Format(time.RFC3339))
	return true, nil
}
