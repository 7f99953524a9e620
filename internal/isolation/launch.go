package isolation

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// LaunchRequest is everything the orchestrator needs to start the init
// process (fork the container init).
type LaunchRequest struct {
	Config      ChildConfig
	JoinFDs     []*os.File // one per entry in Config.JoinOrder, already open
	ConsoleFD   *os.File   // nil if Config.HasConsole is false
	PreserveFDs []*os.File // inherited fds beyond the above, per --preserve-fds
	Stdin       *os.File   // only consulted by LaunchExec
	Stdout      *os.File
	Stderr      *os.File
}

// Launched is the running init process plus the bookkeeping the
// orchestrator needs to finish the create protocol.
type Launched struct {
	Cmd *exec.Cmd
	PID int
}

// Launch execs the runway binary's own hidden init entrypoint, wiring the
// config pipe and the join/console/preserved fds into the child's
// ExtraFiles in the fixed order the child expects to find them.
func Launch(req *LaunchRequest) (*Launched, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.NamespaceFail, "resolve-self", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.IOFail, "config-pipe", err)
	}
	defer pr.Close()

	cmd := exec.Command(self, InitArg)
	cmd.Stdin = nil
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr
	cmd.Env = os.Environ()

	extra := []*os.File{pr}
	if req.Config.HasConsole {
		if req.ConsoleFD == nil {
			return nil, runtimeerr.New(runtimeerr.ConfigInvalid, "launch", fmt.Errorf("console requested but no console fd supplied"))
		}
		extra = append(extra, req.ConsoleFD)
	}
	extra = append(extra, req.JoinFDs...)
	extra = append(extra, req.PreserveFDs...)
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, runtimeerr.New(runtimeerr.NamespaceFail, "start-init", err)
	}

	if err := Encode(pw, &req.Config); err != nil {
		pw.Close()
		return nil, runtimeerr.New(runtimeerr.IOFail, "write-child-config", err)
	}
	pw.Close()

	return &Launched{Cmd: cmd, PID: cmd.Process.Pid}, nil
}

// LaunchExec re-execs the runway binary as "__runway_init exec", joining
// the namespaces already open in req.JoinFDs (one per req.Config.JoinOrder
// entry) and then exec'ing req.Config.Process.Args inside them. Used by
// the exec operation against an already-running container.
func LaunchExec(req *LaunchRequest) (*Launched, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.NamespaceFail, "resolve-self", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.IOFail, "config-pipe", err)
	}
	defer pr.Close()

	cmd := exec.Command(self, InitArg, ExecArg)
	cmd.Stdin = req.Stdin
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr
	cmd.Env = os.Environ()

	extra := []*os.File{pr}
	if req.Config.HasConsole {
		if req.ConsoleFD == nil {
			return nil, runtimeerr.New(runtimeerr.ConfigInvalid, "launch-exec", fmt.Errorf("console requested but no console fd supplied"))
		}
		extra = append(extra, req.ConsoleFD)
	}
	extra = append(extra, req.JoinFDs...)
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, runtimeerr.New(runtimeerr.NamespaceFail, "start-exec", err)
	}

	if err := Encode(pw, &req.Config); err != nil {
		pw.Close()
		return nil, runtimeerr.New(runtimeerr.IOFail, "write-child-config", err)
	}
	pw.Close()

	return &Launched{Cmd: cmd, PID: cmd.Process.Pid}, nil
}
