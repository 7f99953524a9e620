// Package cgroups is the Cgroup Controller: v1/v2 detection, controller
// delegation, limit writing, process attachment, and cleanup. The
// subsystem file layout and Join/Path idiom follow classic libcontainer
// cgroup handling, generalized to also speak the v2 unified hierarchy.
package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
)

const unifiedMount = "/sys/fs/cgroup"

// IsUnified reports whether the host runs the cgroup v2 unified
// hierarchy, detected by the presence of cgroup.controllers at the
// mount root.
func IsUnified() bool {
	_, err := os.Stat(filepath.Join(unifiedMount, "cgroup.controllers"))
	return err == nil
}

// Controller applies and later tears down resource limits for one
// container's cgroup subtree.
type Controller interface {
	// Apply enables the controllers the resources need, creates the
	// container's cgroup, writes the limits, and attaches pid.
	Apply(pid int, res specs.Resources) error
	// Cleanup removes the cgroup(s) this controller created. NotFound is
	// benign and returns nil.
	Cleanup() error
	// Path is the relative cgroup path this controller manages.
	Path() string
}

// New selects the v2 or v1 controller for relativePath, or the
// systemd-driver variant of either when useSystemd is set (--systemd-cgroup).
func New(relativePath string, useSystemd bool) (Controller, error) {
	relativePath = strings.Trim(relativePath, "/")
	if IsUnified() {
		ctrl := &unifiedController{relPath: relativePath}
		if useSystemd {
			return &systemdController{delegate: ctrl, relPath: relativePath}, nil
		}
		return ctrl, nil
	}
	ctrl := &legacyController{relPath: relativePath}
	if useSystemd {
		return &systemdController{delegate: ctrl, relPath: relativePath}, nil
	}
	return ctrl, nil
}

// SharesToWeight converts a v1 cpu.shares value into its v2 cpu.weight
// equivalent: weight = 1 + ((shares-2) * 9999) / 262142, clamped to
// [1, 10000], default 100 when shares <= 0. Monotonic non-decreasing
// across the valid shares range.
func SharesToWeight(shares int64) int64 {
	if shares <= 0 {
		return 100
	}
	w := 1 + ((shares-2)*9999)/262142
	if w < 1 {
		w = 1
	}
	if w > 10000 {
		w = 10000
	}
	return w
}

func writeFile(dir, file, data string) error {
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return runtimeerr.New(runtimeerr.CgroupFail, "write-"+file, fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

func writeInt(dir, file string, v int64) error {
	return writeFile(dir, file, strconv.FormatInt(v, 10))
}

func removeAllBenign(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return runtimeerr.New(runtimeerr.CgroupFail, "cleanup", err)
	}
	return nil
}
