package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
)

// writeUserNamespaceMaps writes a newly created user namespace's id maps:
// /proc/<pid>/setgroups (deny, when gid mappings are present) then
// uid_map and gid_map in "containerID hostID size\n" per-line format.
// Must complete before the child is released from the FIFO wait.
func writeUserNamespaceMaps(pid int, l specs.Linux) error {
	if _, hasUserNS := l.HasNamespace(specs.UserNamespace); !hasUserNS {
		return nil
	}

	base := filepath.Join("/proc", strconv.Itoa(pid))

	if len(l.GIDMappings) > 0 {
		if err := os.WriteFile(filepath.Join(base, "setgroups"), []byte("deny"), 0o644); err != nil {
			return runtimeerr.New(runtimeerr.NamespaceFail, "write-setgroups", err)
		}
	}
	if err := writeIDMap(filepath.Join(base, "uid_map"), l.UIDMappings); err != nil {
		return runtimeerr.New(runtimeerr.NamespaceFail, "write-uid-map", err)
	}
	if err := writeIDMap(filepath.Join(base, "gid_map"), l.GIDMappings); err != nil {
		return runtimeerr.New(runtimeerr.NamespaceFail, "write-gid-map", err)
	}
	return nil
}

func writeIDMap(path string, mappings []specs.IDMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	var out string
	for _, m := range mappings {
		out += fmt.Sprintf("%d %d %d\n", m.ContainerID, m.HostID, m.Size)
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
