package specs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// DefaultCgroupsPathPrefix is prefixed onto a container id when the
// bundle doesn't specify linux.cgroupsPath.
const DefaultCgroupsPathPrefix = "my_runtime"

// Load reads <bundle>/config.json and returns the typed Spec, applying
// defaulting and normalization, then validating the result. root.path
// existing on disk is not re-validated here — that's the Isolation
// Engine's problem, not the loader's.
func Load(bundleDir, containerID string) (*Spec, error) {
	path := filepath.Join(bundleDir, "config.json")
	f, err := os.Open(path)
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.ConfigInvalid, "load-bundle", err)
	}
	defer f.Close()

	var s Spec
	dec := json.NewDecoder(f)
	if err := dec.Decode(&s); err != nil {
		return nil, runtimeerr.New(runtimeerr.ConfigInvalid, "load-bundle", fmt.Errorf("parse %s: %w", path, err))
	}

	if err := normalize(&s, containerID); err != nil {
		return nil, err
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func normalize(s *Spec, containerID string) error {
	if s.Linux.Resources.MemoryLimitHuman != "" && s.Linux.Resources.MemoryLimit == 0 {
		n, err := units.RAMInBytes(s.Linux.Resources.MemoryLimitHuman)
		if err != nil {
			return runtimeerr.New(runtimeerr.ConfigInvalid, "load-bundle",
				fmt.Errorf("parse memoryLimitHuman %q: %w", s.Linux.Resources.MemoryLimitHuman, err))
		}
		s.Linux.Resources.MemoryLimit = n
	}

	s.Linux.CgroupsPath = normalizeCgroupsPath(s.Linux.CgroupsPath, containerID)

	if _, hasUserNS := s.Linux.HasNamespace(UserNamespace); hasUserNS {
		if len(s.Linux.UIDMappings) == 0 {
			s.Linux.UIDMappings = []IDMapping{{ContainerID: 0, HostID: uint32(os.Getuid()), Size: 1}}
		}
		if len(s.Linux.GIDMappings) == 0 {
			s.Linux.GIDMappings = []IDMapping{{ContainerID: 0, HostID: uint32(os.Getgid()), Size: 1}}
		}
	}
	return nil
}

// normalizeCgroupsPath strips leading/trailing slashes and defaults to
// "my_runtime/<id>".
func normalizeCgroupsPath(p, containerID string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return filepath.Join(DefaultCgroupsPathPrefix, containerID)
	}
	return p
}

// Validate enforces the invariants that must hold before any lifecycle
// command proceeds.
func Validate(s *Spec) error {
	if len(s.Process.Args) == 0 {
		return runtimeerr.New(runtimeerr.ConfigInvalid, "validate", fmt.Errorf("process.args must be non-empty"))
	}
	seen := map[NamespaceType]bool{}
	for _, ns := range s.Linux.Namespaces {
		switch ns.Type {
		case PIDNamespace, UTSNamespace, IPCNamespace, NetNamespace, MountNamespace, UserNamespace, CgroupNamespace:
		default:
			return runtimeerr.New(runtimeerr.ConfigInvalid, "validate", fmt.Errorf("unknown namespace type %q", ns.Type))
		}
		if seen[ns.Type] {
			return runtimeerr.New(runtimeerr.ConfigInvalid, "validate", fmt.Errorf("duplicate namespace type %q", ns.Type))
		}
		seen[ns.Type] = true
	}
	return nil
}
