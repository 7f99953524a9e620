package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
)

// unifiedController implements the v2 (cgroup2) path.
type unifiedController struct {
	relPath string
}

func (c *unifiedController) Path() string { return c.relPath }

func (c *unifiedController) Apply(pid int, res specs.Resources) error {
	available, err := readControllers(filepath.Join(unifiedMount, "cgroup.controllers"))
	if err != nil {
		return runtimeerr.New(runtimeerr.CgroupFail, "read-controllers", err)
	}

	needed := []string{}
	if res.MemoryLimit > 0 {
		needed = append(needed, "memory")
	}
	needed = append(needed, "cpu") // cpu.weight always applies, default 100

	for _, ctrl := range needed {
		if !available[ctrl] {
			return runtimeerr.New(runtimeerr.CgroupFail, "check-controller", fmt.Errorf("controller %q not available", ctrl))
		}
	}

	if err := enableSubtreeControl(unifiedMount, needed); err != nil {
		return err
	}

	dir := filepath.Join(unifiedMount, c.relPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return runtimeerr.New(runtimeerr.CgroupFail, "mkdir", err)
	}

	if res.MemoryLimit > 0 {
		if err := writeInt(dir, "memory.max", res.MemoryLimit); err != nil {
			return err
		}
	}
	weight := SharesToWeight(res.CPUShares)
	if err := writeInt(dir, "cpu.weight", weight); err != nil {
		return err
	}

	return c.attach(pid)
}

func (c *unifiedController) attach(pid int) error {
	dir := filepath.Join(unifiedMount, c.relPath)
	return writeInt(dir, "cgroup.procs", int64(pid))
}

func (c *unifiedController) Cleanup() error {
	return removeAllBenign(filepath.Join(unifiedMount, c.relPath))
}

// readControllers parses the space-separated controller list of
// cgroup.controllers into a set.
func readControllers(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	for _, c := range strings.Fields(string(data)) {
		set[c] = true
	}
	return set, nil
}

// enableSubtreeControl writes "+<ctrl>" to cgroup.subtree_control of root
// for each controller not already enabled.
func enableSubtreeControl(root string, controllers []string) error {
	enabled, err := readControllers(filepath.Join(root, "cgroup.subtree_control"))
	if err != nil {
		return runtimeerr.New(runtimeerr.CgroupFail, "read-subtree-control", err)
	}
	for _, ctrl := range controllers {
		if enabled[ctrl] {
			continue
		}
		f, err := os.OpenFile(filepath.Join(root, "cgroup.subtree_control"), os.O_WRONLY, 0)
		if err != nil {
			return runtimeerr.New(runtimeerr.CgroupFail, "enable-subtree-control", err)
		}
		_, werr := f.WriteString("+" + ctrl)
		f.Close()
		if werr != nil {
			return runtimeerr.New(runtimeerr.CgroupFail, "enable-subtree-control", fmt.Errorf("+%s: %w", ctrl, werr))
		}
	}
	return nil
}
