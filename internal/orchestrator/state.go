package orchestrator

import "github.com/nelmo-ux/container-runway/internal/store"

// StateView is the `state` command's output shape.
type StateView struct {
	OCIVersion  string            `json:"ociVersion"`
	ID          string            `json:"id"`
	PID         int               `json:"pid"`
	Status      string            `json:"status"`
	Bundle      string            `json:"bundle"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// State loads a container's persisted state, lazily downgrading a
// "running" container to "stopped" if its init process is no longer
// alive: reads never block on reaping, they just notice the corpse. The
// downgrade is persisted so subsequent reads don't redo the /proc check.
func (o *Orchestrator) State(id string) (*StateView, error) {
	st, err := o.Store.Load(id)
	if err != nil {
		return nil, err
	}

	if st.Status == store.StatusRunning && !processAlive(st.PID) {
		st.Status = store.StatusStopped
		_ = o.emitState(st)
	}

	return &StateView{
		OCIVersion:  st.OCIVersion,
		ID:          st.ID,
		PID:         st.PID,
		Status:      string(st.Status),
		Bundle:      st.BundlePath,
		Annotations: st.Annotations,
	}, nil
}

// List returns every container's StateView for `list`/`ps`-adjacent
// reporting, sourced straight from the state store's on-disk directories.
func (o *Orchestrator) List() ([]*StateView, error) {
	ids, err := o.Store.ListIDs()
	if err != nil {
		return nil, err
	}
	views := make([]*StateView, 0, len(ids))
	for _, id := range ids {
		v, err := o.State(id)
		if err != nil {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}
