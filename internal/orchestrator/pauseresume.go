package orchestrator

import (
	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// Pause freezes a running container by walking its process tree and
// sending SIGSTOP to every pid, ESRCH tolerated as benign.
func (o *Orchestrator) Pause(id string) error {
	st, err := o.Store.Load(id)
	if err != nil {
		return err
	}
	if err := requireStatus(st, store.StatusRunning); err != nil {
		return runtimeerr.New(runtimeerr.WrongState, "pause", err)
	}

	if err := signalProcessTree(st.PID, unix.SIGSTOP); err != nil {
		o.emitError(id, "pause", err)
		return err
	}

	st.Status = store.StatusPaused
	return o.emitState(st)
}

// Resume thaws a paused container by sending SIGCONT to every pid in its
// process tree.
func (o *Orchestrator) Resume(id string) error {
	st, err := o.Store.Load(id)
	if err != nil {
		return err
	}
	if err := requireStatus(st, store.StatusPaused); err != nil {
		return runtimeerr.New(runtimeerr.WrongState, "resume", err)
	}

	if err := signalProcessTree(st.PID, unix.SIGCONT); err != nil {
		o.emitError(id, "resume", err)
		return err
	}

	st.Status = store.StatusRunning
	return o.emitState(st)
}

// signalProcessTree collects root's process tree and delivers sig to
// every pid in it, ignoring ESRCH.
func signalProcessTree(root int, sig unix.Signal) error {
	var sendErr error
	for _, pid := range CollectProcessTree(root) {
		if err := unix.Kill(pid, sig); err != nil && err != unix.ESRCH {
			sendErr = runtimeerr.New(runtimeerr.IOFail, "signal-process-tree", err)
		}
	}
	return sendErr
}
