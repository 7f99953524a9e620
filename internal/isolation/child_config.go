// Package isolation is the Isolation Engine: the child side of the
// create protocol that builds a brand-new process identity inside nested
// namespaces, assembles the filesystem view, and finally execs the
// container's payload.
//
// The engine never calls the Go runtime's fork(); every "fork" step is a
// genuine re-exec of the runway binary's own hidden "init" subcommand,
// the standard nsinit/runc re-exec pattern, which sidesteps the
// fork-after-thread-start hazard raw syscall.ForkExec would carry in a Go
// process with a running scheduler.
package isolation

import (
	"encoding/json"
	"io"

	"github.com/nelmo-ux/container-runway/internal/specs"
)

// InitArg is the hidden argv[1] the orchestrator re-execs itself with.
// Never invoke this outside of the orchestrator's own fork step.
const InitArg = "__runway_init"

// Stage2Arg is the hidden argv[2] used for the second re-exec that
// becomes pid 1 inside a freshly unshared PID namespace.
const Stage2Arg = "stage2"

// ExecArg is the hidden argv[2] used for the exec operation: join
// a running container's namespaces and exec a new process into them,
// without replaying rootfs assembly or the sync FIFO handshake.
const ExecArg = "exec"

// ChildConfig is the entire state the orchestrator hands to the init
// process, marshaled as one JSON document written to the config pipe
// (fd 3 in the child's ExtraFiles slice).
type ChildConfig struct {
	ContainerID string `json:"containerID"`

	// Spec fields the engine needs; the full bundle spec is intentionally
	// not forwarded whole so the child's trust boundary is explicit.
	Rootfs            string          `json:"rootfs"`
	RootReadonly      bool            `json:"rootReadonly"`
	Hostname          string          `json:"hostname"`
	Mounts            []specs.Mount   `json:"mounts"`
	MaskedPaths       []string        `json:"maskedPaths"`
	ReadonlyPaths     []string        `json:"readonlyPaths"`
	RootfsPropagation string          `json:"rootfsPropagation"`
	Process           specs.Process   `json:"process"`

	FifoPath string `json:"fifoPath"`
	NoPivot  bool   `json:"noPivot"`

	// JoinOrder lists the namespace types being joined via setns, in the
	// exact order their fds appear in ExtraFiles, right after the config
	// pipe (index 0) and, when HasConsole, the console slave (index 1).
	JoinOrder []specs.NamespaceType `json:"joinOrder"`

	// UnshareFlags is the bitwise-or of CLONE_NEW* for namespaces being
	// freshly created (no path). HasPIDNamespace is broken out because it
	// drives the stage-2 re-exec/reap decision.
	UnshareFlags    uintptr `json:"unshareFlags"`
	HasPIDNamespace bool    `json:"hasPidNamespace"`
	HasUTSNamespace bool    `json:"hasUtsNamespace"`

	HasConsole bool `json:"hasConsole"`

	// PreserveFDCount is the number of additional inherited fds (3..3+n-1
	// in the orchestrator's own fd space) the payload should receive
	// untouched, per --preserve-fds.
	PreserveFDCount int `json:"preserveFdCount"`
}

// Encode writes cfg as one JSON document to w.
func Encode(w io.Writer, cfg *ChildConfig) error {
	return json.NewEncoder(w).Encode(cfg)
}

// Decode reads one JSON document from r into a ChildConfig.
func Decode(r io.Reader) (*ChildConfig, error) {
	var cfg ChildConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
