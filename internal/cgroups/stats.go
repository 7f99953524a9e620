package cgroups

import (
	"github.com/containerd/cgroups/v3/cgroup1"
	"github.com/containerd/cgroups/v3/cgroup2"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// Snapshot is the small slice of a container's cgroup stats the events
// command's --stats sampling needs (this engine), read through
// containerd/cgroups/v3 rather than re-parsing cgroupfs files by hand a
// second time.
type Snapshot struct {
	CPUUsageNS  uint64
	MemoryRSS   uint64
	PidsCurrent uint64
}

// ReadStats reads a point-in-time snapshot for the cgroup at relPath,
// dispatching to the v2 or v1 containerd/cgroups/v3 client depending on
// which hierarchy the host runs.
func ReadStats(relPath string) (Snapshot, error) {
	if IsUnified() {
		return readUnifiedStats(relPath)
	}
	return readLegacyStats(relPath)
}

func readUnifiedStats(relPath string) (Snapshot, error) {
	m, err := cgroup2.Load("/" + relPath)
	if err != nil {
		return Snapshot{}, runtimeerr.New(runtimeerr.CgroupFail, "load-stats", err)
	}
	metrics, err := m.Stat()
	if err != nil {
		return Snapshot{}, runtimeerr.New(runtimeerr.CgroupFail, "read-stats", err)
	}

	var snap Snapshot
	if metrics.GetCPU() != nil {
		snap.CPUUsageNS = metrics.GetCPU().GetUsageUsec() * 1000
	}
	if metrics.GetMemory() != nil {
		snap.MemoryRSS = metrics.GetMemory().GetUsage()
	}
	if metrics.GetPids() != nil {
		snap.PidsCurrent = metrics.GetPids().GetCurrent()
	}
	return snap, nil
}

func readLegacyStats(relPath string) (Snapshot, error) {
	control, err := cgroup1.Load(cgroup1.StaticPath(relPath))
	if err != nil {
		return Snapshot{}, runtimeerr.New(runtimeerr.CgroupFail, "load-stats", err)
	}
	metrics, err := control.Stat()
	if err != nil {
		return Snapshot{}, runtimeerr.New(runtimeerr.CgroupFail, "read-stats", err)
	}

	var snap Snapshot
	if metrics.GetCPU() != nil && metrics.GetCPU().GetUsage() != nil {
		snap.CPUUsageNS = metrics.GetCPU().GetUsage().GetTotal()
	}
	if metrics.GetMemory() != nil && metrics.GetMemory().GetUsage() != nil {
		snap.MemoryRSS = metrics.GetMemory().GetUsage().GetUsage()
	}
	if metrics.GetPids() != nil {
		snap.PidsCurrent = metrics.GetPids().GetCurrent()
	}
	return snap, nil
}
