package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nelmo-ux/container-runway/internal/console"
	"github.com/nelmo-ux/container-runway/internal/events"
	"github.com/nelmo-ux/container-runway/internal/isolation"
	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// ExecOptions describes a new process to run inside an already-running
// container.
type ExecOptions struct {
	Args           []string
	Env            []string
	Cwd            string
	UID            uint32
	GID            uint32
	AdditionalGids []uint32
	Terminal       bool
	ConsoleSocket  string
	Detach         bool
}

// Exec joins a running container's namespaces and execs opts.Args inside
// them, returning the new process's pid. Only containers in "running" (or
// "created", for the degenerate case of exec before start) accept exec.
func (o *Orchestrator) Exec(id string, opts ExecOptions) (int, error) {
	st, err := o.Store.Load(id)
	if err != nil {
		return 0, err
	}
	if err := requireStatus(st, store.StatusRunning, store.StatusCreated); err != nil {
		return 0, runtimeerr.New(runtimeerr.WrongState, "exec", err)
	}
	if st.PID <= 0 || !processAlive(st.PID) {
		return 0, runtimeerr.New(runtimeerr.NotFound, "exec", fmt.Errorf("container %q has no live process to join", id))
	}

	pair, err := consoleAllocateOnly(opts.Terminal, opts.ConsoleSocket)
	if err != nil {
		return 0, err
	}
	if pair != nil {
		defer pair.Close()
	}

	joinOrder, joinFiles, err := openProcessNamespaceFiles(st.PID, specs.AllNamespaceTypes)
	if err != nil {
		return 0, err
	}
	defer closeAll(joinFiles)

	cfg := isolation.ChildConfig{
		ContainerID: id,
		Process: specs.Process{
			Terminal:       opts.Terminal,
			Args:           opts.Args,
			Env:            opts.Env,
			Cwd:            opts.Cwd,
			UID:            opts.UID,
			GID:            opts.GID,
			AdditionalGids: opts.AdditionalGids,
		},
		JoinOrder:  joinOrder,
		HasConsole: pair != nil,
	}

	req := &isolation.LaunchRequest{
		Config:  cfg,
		JoinFDs: joinFiles,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	if pair != nil {
		req.ConsoleFD = pair.Slave
	}

	launched, err := isolation.LaunchExec(req)
	if err != nil {
		return 0, err
	}

	if pair != nil {
		if err := console.Send(pair, opts.ConsoleSocket); err != nil {
			_ = launched.Cmd.Process.Kill()
			return 0, err
		}
	}

	_ = o.eventLog(id).RecordEvent(id, "exec", events.ExecData{PID: launched.PID, Type: "start"})

	if opts.Detach {
		go o.reapExec(id, launched)
		return launched.PID, nil
	}

	state, waitErr := launched.Cmd.Process.Wait()
	exitCode := 0
	if state != nil {
		exitCode = state.ExitCode()
	}
	_ = o.eventLog(id).RecordEvent(id, "execExit", events.ExecData{PID: launched.PID, Type: "exit", Status: exitCode})
	if waitErr != nil {
		return launched.PID, runtimeerr.New(runtimeerr.IOFail, "wait-exec", waitErr)
	}
	return launched.PID, nil
}

func (o *Orchestrator) reapExec(id string, launched *isolation.Launched) {
	state, err := launched.Cmd.Process.Wait()
	exitCode := 0
	if state != nil {
		exitCode = state.ExitCode()
	}
	_ = err
	_ = o.eventLog(id).RecordEvent(id, "execExit", events.ExecData{PID: launched.PID, Type: "exit", Status: exitCode})
}

// openProcessNamespaceFiles opens /proc/<pid>/ns/<type> for every
// namespace type, in join order, skipping any that aren't present (a
// namespace kind the kernel or the container never instantiated). The
// returned type slice is filtered to match the returned files 1:1, since
// joinNamespaces requires equal-length type and fd lists.
func openProcessNamespaceFiles(pid int, types []specs.NamespaceType) ([]specs.NamespaceType, []*os.File, error) {
	var usedTypes []specs.NamespaceType
	var files []*os.File
	for _, t := range types {
		path := filepath.Join("/proc", fmt.Sprintf("%d", pid), "ns", string(t))
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			closeAll(files)
			return nil, nil, runtimeerr.New(runtimeerr.NamespaceFail, "open-container-namespace", fmt.Errorf("%s: %w", path, err))
		}
		usedTypes = append(usedTypes, t)
		files = append(files, f)
	}
	return usedTypes, files, nil
}
