// Package specs is the Spec Model: the typed, read-only in-memory
// configuration produced from a bundle's config.json. JSON decoding itself
// is treated as an opaque deserializer (out of scope per the runtime's own
// contract) — this package's job is the typed shape and its invariants,
// not the parser.
package specs

import (
	specsgo "github.com/opencontainers/runtime-spec/specs-go"
)

// NamespaceType is one of the seven namespace kinds the runtime knows how
// to join or create. These are the short tokens the bundle format uses,
// not the longer strings the upstream OCI runtime-spec type carries
// (e.g. "net" here vs. "network" there), which is why this package
// defines its own type instead of reusing specsgo.LinuxNamespaceType
// verbatim.
type NamespaceType string

const (
	PIDNamespace    NamespaceType = "pid"
	UTSNamespace    NamespaceType = "uts"
	IPCNamespace    NamespaceType = "ipc"
	NetNamespace    NamespaceType = "net"
	MountNamespace  NamespaceType = "mnt"
	UserNamespace   NamespaceType = "user"
	CgroupNamespace NamespaceType = "cgroup"
)

// AllNamespaceTypes enumerates the valid namespace tokens, in the order
// the Isolation Engine joins them.
var AllNamespaceTypes = []NamespaceType{
	UserNamespace, MountNamespace, PIDNamespace,
	IPCNamespace, UTSNamespace, NetNamespace, CgroupNamespace,
}

// Namespace is one entry of linux.namespaces[]. Path is empty for "create
// a new namespace of this type"; non-empty to join an existing namespace
// at that /proc/<pid>/ns/<type> (or bind-mounted) path.
type Namespace struct {
	Type NamespaceType `json:"type"`
	Path string        `json:"path,omitempty"`
}

// IDMapping is one line of a uid_map/gid_map: containerID hostID size.
type IDMapping struct {
	ContainerID uint32 `json:"containerID"`
	HostID      uint32 `json:"hostID"`
	Size        uint32 `json:"size"`
}

// Resources carries the small set of limits this runtime actually applies.
type Resources struct {
	// MemoryLimit is in bytes. MemoryLimitHuman, when set, is a
	// docker/go-units-style size string ("256m") parsed into MemoryLimit
	// at load time — see Load in loader.go.
	MemoryLimit      int64  `json:"memoryLimit,omitempty"`
	MemoryLimitHuman string `json:"memoryLimitHuman,omitempty"`
	CPUShares        int64  `json:"cpuShares,omitempty"`
}

// Linux carries the Linux-specific configuration.
type Linux struct {
	Namespaces        []Namespace `json:"namespaces,omitempty"`
	Resources         Resources   `json:"resources,omitempty"`
	UIDMappings       []IDMapping `json:"uidMappings,omitempty"`
	GIDMappings       []IDMapping `json:"gidMappings,omitempty"`
	MaskedPaths       []string    `json:"maskedPaths,omitempty"`
	ReadonlyPaths     []string    `json:"readonlyPaths,omitempty"`
	RootfsPropagation string      `json:"rootfsPropagation,omitempty"`
	CgroupsPath       string      `json:"cgroupsPath,omitempty"`
}

// HasNamespace reports whether a namespace of the given type is listed,
// and whether it joins an existing one (non-empty path).
func (l Linux) HasNamespace(t NamespaceType) (ns Namespace, ok bool) {
	for _, n := range l.Namespaces {
		if n.Type == t {
			return n, true
		}
	}
	return Namespace{}, false
}

// Root describes the container's root filesystem, reusing the upstream
// OCI field names directly since they match verbatim.
type Root struct {
	Path     string `json:"path"`
	Readonly bool   `json:"readonly,omitempty"`
}

// Hook is a single hook invocation descriptor. It has the same four
// fields as specsgo.Hook, but is defined locally so the timeout is a plain
// TimeoutSec int under the timeoutSec key the bundle config uses, rather
// than upstream's optional Timeout pointer.
type Hook struct {
	Path       string   `json:"path"`
	Args       []string `json:"args,omitempty"`
	Env        []string `json:"env,omitempty"`
	TimeoutSec int      `json:"timeoutSec,omitempty"`
}

// HookPhase names one of the six lifecycle points hooks can attach to, in
// the order they execute across lifecycle commands.
type HookPhase string

const (
	CreateRuntime  HookPhase = "createRuntime"
	CreateContainer HookPhase = "createContainer"
	Prestart       HookPhase = "prestart"
	StartContainer HookPhase = "startContainer"
	Poststart      HookPhase = "poststart"
	Poststop       HookPhase = "poststop"
)

// Hooks groups the per-phase hook lists.
type Hooks struct {
	CreateRuntime   []Hook `json:"createRuntime,omitempty"`
	CreateContainer []Hook `json:"createContainer,omitempty"`
	Prestart        []Hook `json:"prestart,omitempty"`
	StartContainer  []Hook `json:"startContainer,omitempty"`
	Poststart       []Hook `json:"poststart,omitempty"`
	Poststop        []Hook `json:"poststop,omitempty"`
}

// Phase returns the hook list for the named phase.
func (h Hooks) Phase(p HookPhase) []Hook {
	switch p {
	case CreateRuntime:
		return h.CreateRuntime
	case CreateContainer:
		return h.CreateContainer
	case Prestart:
		return h.Prestart
	case StartContainer:
		return h.StartContainer
	case Poststart:
		return h.Poststart
	case Poststop:
		return h.Poststop
	default:
		return nil
	}
}

// Process mirrors process block. Terminal/Args/Env/Cwd/Uid/Gid and
// AdditionalGids are the fields the Isolation Engine consumes directly;
// the upstream specsgo.Process carries a great deal more (capabilities,
// rlimits, apparmor, ...) that is explicitly out of scope here.
type Process struct {
	Terminal       bool     `json:"terminal,omitempty"`
	Args           []string `json:"args"`
	Env            []string `json:"env,omitempty"`
	Cwd            string   `json:"cwd"`
	UID            uint32   `json:"uid"`
	GID            uint32   `json:"gid"`
	AdditionalGids []uint32 `json:"additionalGids,omitempty"`
}

// Mount reuses the upstream OCI type verbatim: Destination/Type/Source/
// Options is exactly the mounts[] entry shape.
type Mount = specsgo.Mount

// Spec is the fully typed bundle configuration: the in-memory result of
// deserializing config.json.
type Spec struct {
	OCIVersion  string            `json:"ociVersion"`
	Hostname    string            `json:"hostname,omitempty"`
	Root        Root              `json:"root"`
	Process     Process           `json:"process"`
	Mounts      []Mount           `json:"mounts,omitempty"`
	Linux       Linux             `json:"linux,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Hooks       Hooks             `json:"hooks,omitempty"`
}
