package orchestrator

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/events"
	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// Kill sends sig to the container's init process, or to its entire
// process tree when all is true (--all flag).
// Killing a stopped container is a no-op error; killing any other state
// is permitted (matching runc's own leniency here).
func (o *Orchestrator) Kill(id string, sig int, all bool) error {
	st, err := o.Store.Load(id)
	if err != nil {
		return err
	}
	if st.Status == store.StatusStopped {
		return runtimeerr.New(runtimeerr.WrongState, "kill", fmt.Errorf("container %q is stopped", id))
	}

	targets := []int{st.PID}
	if all {
		targets = CollectProcessTree(st.PID)
	}

	var killErr error
	for _, pid := range targets {
		if err := unix.Kill(pid, unix.Signal(sig)); err != nil && err != unix.ESRCH {
			killErr = runtimeerr.New(runtimeerr.IOFail, "kill", err)
		}
	}
	if killErr != nil {
		o.emitError(id, "kill", killErr)
		return killErr
	}

	_ = o.eventLog(id).RecordEvent(id, "kill", events.SignalData{Signal: sig})

	if sig == int(unix.SIGTERM) || sig == int(unix.SIGKILL) {
		st.Status = store.StatusStopped
		_ = o.emitState(st)
	}
	return nil
}
