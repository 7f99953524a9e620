package cgroups

import (
	"os"
	"path/filepath"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
)

const legacyMount = "/sys/fs/cgroup"

// legacyController implements the v1 fallback: one directory per
// subsystem, the classic memory/<relative> + cpu/<relative> layout.
type legacyController struct {
	relPath      string
	usedSubsysts []string
}

func (c *legacyController) Path() string { return c.relPath }

func (c *legacyController) subsystemDir(subsystem string) string {
	return filepath.Join(legacyMount, subsystem, c.relPath)
}

func (c *legacyController) Apply(pid int, res specs.Resources) error {
	if res.MemoryLimit > 0 {
		dir := c.subsystemDir("memory")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return runtimeerr.New(runtimeerr.CgroupFail, "mkdir", err)
		}
		if err := writeInt(dir, "memory.limit_in_bytes", res.MemoryLimit); err != nil {
			return err
		}
		if err := writeInt(dir, "cgroup.procs", int64(pid)); err != nil {
			return err
		}
		c.usedSubsysts = append(c.usedSubsysts, "memory")
	}

	{
		dir := c.subsystemDir("cpu")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return runtimeerr.New(runtimeerr.CgroupFail, "mkdir", err)
		}
		shares := res.CPUShares
		if shares <= 0 {
			shares = 1024
		}
		if err := writeInt(dir, "cpu.shares", shares); err != nil {
			return err
		}
		if err := writeInt(dir, "cgroup.procs", int64(pid)); err != nil {
			return err
		}
		c.usedSubsysts = append(c.usedSubsysts, "cpu")
	}
	return nil
}

func (c *legacyController) Cleanup() error {
	for _, subsystem := range c.usedSubsysts {
		if err := removeAllBenign(c.subsystemDir(subsystem)); err != nil {
			return err
		}
	}
	return nil
}
