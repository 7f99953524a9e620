package orchestrator

import (
	"context"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/hooks"
	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// Start implements the start operation: runs the prestart and
// startContainer hooks, then releases the container init from its sync
// FIFO wait so it execs the user's process. A container may only be
// started once; start is a no-op error for anything but "created". When
// attach is set, it then polls kill(pid,0) every 100ms until the process
// exits, marking the container stopped.
func (o *Orchestrator) Start(id string, attach bool) error {
	st, err := o.Store.Load(id)
	if err != nil {
		return err
	}
	if err := requireStatus(st, store.StatusCreated); err != nil {
		return runtimeerr.New(runtimeerr.WrongState, "start", err)
	}

	spec, err := specs.Load(st.BundlePath, id)
	if err != nil {
		return err
	}

	if _, err := hooks.RunPhase(context.Background(), specs.Prestart, spec.Hooks.Prestart, st); err != nil {
		o.emitError(id, "start", err)
		return err
	}
	if _, err := hooks.RunPhase(context.Background(), specs.StartContainer, spec.Hooks.StartContainer, st); err != nil {
		o.emitError(id, "start", err)
		return err
	}

	fifo, err := os.OpenFile(o.Store.FifoPath(id), os.O_WRONLY, 0)
	if err != nil {
		err = runtimeerr.New(runtimeerr.IOFail, "open-fifo", err)
		o.emitError(id, "start", err)
		return err
	}
	if _, err := fifo.Write([]byte{0}); err != nil {
		fifo.Close()
		err = runtimeerr.New(runtimeerr.IOFail, "signal-fifo", err)
		o.emitError(id, "start", err)
		return err
	}
	fifo.Close()

	st.Status = store.StatusRunning
	if err := o.emitState(st); err != nil {
		return err
	}

	if _, err := hooks.RunPhase(context.Background(), specs.Poststart, spec.Hooks.Poststart, st); err != nil {
		o.emitError(id, "poststart", err)
		if killErr := signalProcessTree(st.PID, unix.SIGKILL); killErr != nil {
			o.emitError(id, "poststart", killErr)
		}
		st.Status = store.StatusStopped
		return o.emitState(st)
	}
	if err := o.Store.Save(st); err != nil {
		return err
	}

	if attach {
		for processAlive(st.PID) {
			time.Sleep(100 * time.Millisecond)
		}
		st.Status = store.StatusStopped
		return o.emitState(st)
	}
	return nil
}
