// Package orchestrator is the Lifecycle Orchestrator: the
// create/start/exec/pause/resume/kill/delete state machine and the
// parent-side half of the sync FIFO protocol.
package orchestrator

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/cgroups"
	"github.com/nelmo-ux/container-runway/internal/console"
	"github.com/nelmo-ux/container-runway/internal/events"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// RuntimeVersion is recorded in every container's annotations so `state`
// output can report which engine created it.
const RuntimeVersion = "1.0.0"

// Orchestrator holds the dependencies every lifecycle command needs. It
// carries no mutable state of its own beyond what's in the state store —
// each CLI invocation constructs one, does one thing, and exits.
type Orchestrator struct {
	StateRoot     string
	Store         *store.Store
	Log           logrus.FieldLogger
	SystemdCgroup bool
}

// New builds an Orchestrator rooted at stateRoot.
func New(stateRoot string, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		StateRoot: stateRoot,
		Store:     store.New(stateRoot),
		Log:       log,
	}
}

func (o *Orchestrator) eventLog(id string) *events.Log {
	return events.New(o.Store.EventsPath(id))
}

// emitState persists st and appends a "state" event for it.
func (o *Orchestrator) emitState(st *store.State) error {
	if err := o.Store.Save(st); err != nil {
		return err
	}
	return o.eventLog(st.ID).RecordEvent(st.ID, "state", events.StateData{Status: string(st.Status), PID: st.PID})
}

// emitError appends an {phase, message} error event. It deliberately
// swallows its own write failure (best-effort) so a logging problem
// never masks the original error being reported.
func (o *Orchestrator) emitError(id, phase string, cause error) {
	_ = o.eventLog(id).RecordEvent(id, "error", events.ErrorData{Phase: phase, Message: cause.Error()})
}

// requireStatus returns an error if st.Status is not one of want.
func requireStatus(st *store.State, want ...store.Status) error {
	for _, w := range want {
		if st.Status == w {
			return nil
		}
	}
	return fmt.Errorf("container %q is %q, expected one of %v", st.ID, st.Status, want)
}

// cgroupController builds the resources controller for st's annotated (or
// freshly normalized) cgroup path.
func (o *Orchestrator) cgroupController(relPath string) (cgroups.Controller, error) {
	return cgroups.New(relPath, o.SystemdCgroup)
}

// processAlive reports whether pid refers to a live process, tolerating
// ESRCH as "not alive" rather than surfacing it as an error — ESRCH is
// benign everywhere in the orchestrator.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

// consoleForTerminal allocates a console pair and transfers it to
// socketPath. Returns (nil, nil) when the process doesn't request a
// terminal, and an error when it does but socketPath is empty.
func consoleForTerminal(wantsTerminal bool, socketPath string) (*console.Pair, error) {
	if !wantsTerminal {
		return nil, nil
	}
	if socketPath == "" {
		return nil, fmt.Errorf("process.terminal is set but --console-socket was not provided")
	}
	pair, err := console.Allocate()
	if err != nil {
		return nil, err
	}
	if err := console.Send(pair, socketPath); err != nil {
		pair.Close()
		return nil, err
	}
	return pair, nil
}
