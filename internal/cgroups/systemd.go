package cgroups

import (
	"context"
	"fmt"

	systemdDbus "github.com/coreos/go-systemd/v22/dbus"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
)

// systemdController is the --systemd-cgroup variant: it registers a
// transient scope unit in machine.slice holding pid over dbus, then
// delegates limit writing and attachment to the fs-direct controller
// underneath, which creates relPath under the cgroup mount itself and
// moves pid into it. The limits are not written to the scope's own cgroup.
type systemdController struct {
	delegate Controller
	relPath  string
	unit     string
}

func scopeUnitName(relPath string) string {
	return "runway-" + sanitizeUnitName(relPath) + ".scope"
}

func sanitizeUnitName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func (c *systemdController) Path() string { return c.delegate.Path() }

func (c *systemdController) Apply(pid int, res specs.Resources) error {
	conn, err := systemdDbus.NewSystemConnectionContext(context.Background())
	if err != nil {
		return runtimeerr.New(runtimeerr.CgroupFail, "systemd-connect", err)
	}
	defer conn.Close()

	c.unit = scopeUnitName(c.relPath)
	props := []systemdDbus.Property{
		systemdDbus.PropDescription(fmt.Sprintf("container-runway scope for %s", c.relPath)),
		systemdDbus.PropPids(uint32(pid)),
		systemdDbus.PropSlice("machine.slice"),
	}

	ch := make(chan string, 1)
	if _, err := conn.StartTransientUnitContext(context.Background(), c.unit, "replace", props, ch); err != nil {
		return runtimeerr.New(runtimeerr.CgroupFail, "systemd-start-scope", err)
	}
	<-ch

	// The fs-direct controller creates its own relPath cgroup, writes the
	// resource limits there and moves pid into it, out of the scope's
	// cgroup.
	return c.delegate.Apply(pid, res)
}

func (c *systemdController) Cleanup() error {
	if c.unit != "" {
		if conn, err := systemdDbus.NewSystemConnectionContext(context.Background()); err == nil {
			ch := make(chan string, 1)
			_, _ = conn.StopUnitContext(context.Background(), c.unit, "replace", ch)
			<-ch
			conn.Close()
		}
	}
	return c.delegate.Cleanup()
}
