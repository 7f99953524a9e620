package orchestrator

import (
	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/store"
)

// Run implements the run operation: create, start, then block until
// the container's init process exits, returning its exit code. Unlike
// create+start, the caller here owns the init process's whole lifetime
// and reaps it directly, since it never returns control to a shim in
// between.
func (o *Orchestrator) Run(id, bundleDir string, opts CreateOptions) (int, error) {
	if err := o.Create(id, bundleDir, opts); err != nil {
		return 0, err
	}
	if err := o.Start(id, false); err != nil {
		return 0, err
	}

	st, err := o.Store.Load(id)
	if err != nil {
		return 0, err
	}

	var wstatus unix.WaitStatus
	_, err = unix.Wait4(st.PID, &wstatus, 0, nil)
	if err != nil && err != unix.ECHILD {
		return 0, err
	}

	exitCode := 0
	switch {
	case wstatus.Exited():
		exitCode = wstatus.ExitStatus()
	case wstatus.Signaled():
		exitCode = 128 + int(wstatus.Signal())
	}

	st.Status = store.StatusStopped
	_ = o.emitState(st)
	_ = o.Store.Remove(id)

	return exitCode, nil
}
