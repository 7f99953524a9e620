package orchestrator

import (
	"context"
	"fmt"

	"github.com/nelmo-ux/container-runway/internal/hooks"
	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// Delete implements the delete operation: removes a stopped container's
// on-disk state, cgroup, and FIFO, running poststop hooks first. force
// bypasses the running-process check and kills first (--force flag).
func (o *Orchestrator) Delete(id string, force bool) error {
	st, err := o.Store.Load(id)
	if err != nil {
		return err
	}

	if st.Status != store.StatusStopped {
		if !force {
			return runtimeerr.New(runtimeerr.WrongState, "delete", fmt.Errorf("container %q is %q, not stopped", id, st.Status))
		}
		if err := o.Kill(id, 9, true); err != nil {
			o.Log.WithError(err).Warn("delete --force: kill failed, proceeding anyway")
		}
	}

	if spec, err := specs.Load(st.BundlePath, id); err == nil {
		if _, err := hooks.RunPhase(context.Background(), specs.Poststop, spec.Hooks.Poststop, st); err != nil {
			o.emitError(id, "poststop", err)
		}
	}

	if relPath, ok := st.Annotation("runway.cgroupPath"); ok {
		if ctrl, err := o.cgroupController(relPath); err == nil {
			if err := ctrl.Cleanup(); err != nil {
				o.Log.WithError(err).Warn("delete: cgroup cleanup failed")
			}
		}
	}

	return o.Store.Remove(id)
}
