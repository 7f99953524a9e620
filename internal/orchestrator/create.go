package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/console"
	"github.com/nelmo-ux/container-runway/internal/hooks"
	"github.com/nelmo-ux/container-runway/internal/isolation"
	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
	"github.com/nelmo-ux/container-runway/internal/specs"
	"github.com/nelmo-ux/container-runway/internal/store"
)

// CreateOptions bundles the create-time CLI flags.
type CreateOptions struct {
	PidFile       string
	ConsoleSocket string
	NoPivot       bool
	PreserveFDs   int
}

// Create implements the create operation end to end.
func (o *Orchestrator) Create(id, bundleDir string, opts CreateOptions) (retErr error) {
	bundleDir, err := filepath.Abs(bundleDir)
	if err != nil {
		return runtimeerr.New(runtimeerr.ConfigInvalid, "create", err)
	}

	// Step 1: load and validate.
	spec, err := specs.Load(bundleDir, id)
	if err != nil {
		return err
	}

	// Step 2-3: initial state + state dir + initial event.
	st := store.NewState(id, spec.OCIVersion, bundleDir)
	st.SetAnnotation("runway.version", RuntimeVersion)
	if err := o.Store.EnsureDir(id); err != nil {
		return err
	}
	if err := o.emitState(st); err != nil {
		return err
	}

	defer func() {
		if retErr != nil {
			o.rollbackCreate(id, st, retErr)
		}
	}()

	// Step 4: createRuntime hooks.
	if _, err := hooks.RunPhase(context.Background(), specs.CreateRuntime, spec.Hooks.CreateRuntime, st); err != nil {
		return err
	}

	// Step 5: sync FIFO.
	fifoPath := o.Store.FifoPath(id)
	if err := unix.Mkfifo(fifoPath, 0o666); err != nil && err != unix.EEXIST {
		return runtimeerr.New(runtimeerr.IOFail, "create-fifo", err)
	}

	// Step 6: console allocation (terminal fd must exist before fork so
	// its slave can be handed to the child as an ExtraFile).
	pair, err := consoleAllocateOnly(spec.Process.Terminal, opts.ConsoleSocket)
	if err != nil {
		return err
	}
	if pair != nil {
		defer pair.Close()
	}

	// Step 7: namespace plan.
	joinTypes := isolation.JoinOrderAndTypes(spec.Linux)
	joinFiles, err := openJoinNamespaceFiles(spec.Linux)
	if err != nil {
		return err
	}
	defer closeAll(joinFiles)

	unshareFlags := isolation.UnshareFlags(spec.Linux)
	_, hasPIDNS := spec.Linux.HasNamespace(specs.PIDNamespace)
	_, hasUTSNS := spec.Linux.HasNamespace(specs.UTSNamespace)

	cfg := isolation.ChildConfig{
		ContainerID:       id,
		Rootfs:            resolveRootfs(bundleDir, spec.Root.Path),
		RootReadonly:      spec.Root.Readonly,
		Hostname:          spec.Hostname,
		Mounts:            spec.Mounts,
		MaskedPaths:       spec.Linux.MaskedPaths,
		ReadonlyPaths:     spec.Linux.ReadonlyPaths,
		RootfsPropagation: spec.Linux.RootfsPropagation,
		Process:           spec.Process,
		FifoPath:          fifoPath,
		NoPivot:           opts.NoPivot,
		JoinOrder:         joinTypes,
		UnshareFlags:      unshareFlags,
		HasPIDNamespace:   hasPIDNS,
		HasUTSNamespace:   hasUTSNS,
		HasConsole:        pair != nil,
		PreserveFDCount:   opts.PreserveFDs,
	}

	req := &isolation.LaunchRequest{
		Config:      cfg,
		JoinFDs:     joinFiles,
		PreserveFDs: preserveFDFiles(opts.PreserveFDs),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
	if pair != nil {
		req.ConsoleFD = pair.Slave
	}

	// Step 8: fork the container init.
	launched, err := isolation.Launch(req)
	if err != nil {
		return err
	}
	st.PID = launched.PID

	// Steps 9 (child side) happen inside the init process itself, up to
	// its own FIFO wait; nothing further for the parent to do there.

	// Step 10: write user-namespace id maps before the child can pass the
	// FIFO wait (it never consults them until after that point, but they
	// must exist by the time start() releases it).
	if err := writeUserNamespaceMaps(launched.PID, spec.Linux); err != nil {
		return err
	}

	// Step 11: transfer the PTY master to the caller's console socket.
	if pair != nil {
		if err := console.Send(pair, opts.ConsoleSocket); err != nil {
			return err
		}
	}

	// Step 12: cgroup limits + attach.
	ctrl, err := o.cgroupController(spec.Linux.CgroupsPath)
	if err != nil {
		return err
	}
	if err := ctrl.Apply(launched.PID, spec.Linux.Resources); err != nil {
		return err
	}

	// Step 13: update state.
	st.PID = launched.PID
	st.Status = store.StatusCreated
	st.SetAnnotation("runway.cgroupPath", ctrl.Path())

	// Step 14: createContainer hooks.
	if _, err := hooks.RunPhase(context.Background(), specs.CreateContainer, spec.Hooks.CreateContainer, st); err != nil {
		return err
	}

	// Step 15: persist, pid file, event.
	if err := store.WritePIDFile(opts.PidFile, launched.PID); err != nil {
		return err
	}
	if err := o.emitState(st); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) rollbackCreate(id string, st *store.State, cause error) {
	o.Log.WithError(cause).WithField("id", id).Warn("create failed, rolling back")
	if st.PID > 0 && processAlive(st.PID) {
		_ = unix.Kill(st.PID, unix.SIGKILL)
	}
	if cgroupPath, ok := st.Annotation("runway.cgroupPath"); ok {
		if ctrl, err := o.cgroupController(cgroupPath); err == nil {
			_ = ctrl.Cleanup()
		}
	}
	_ = o.Store.Remove(id)
	o.emitError(id, "create", cause)
}

func resolveRootfs(bundleDir, rootPath string) string {
	if filepath.IsAbs(rootPath) {
		return rootPath
	}
	return filepath.Join(bundleDir, rootPath)
}

func openJoinNamespaceFiles(l specs.Linux) ([]*os.File, error) {
	var files []*os.File
	for _, ns := range l.Namespaces {
		if ns.Path == "" {
			continue
		}
		f, err := os.Open(ns.Path)
		if err != nil {
			closeAll(files)
			return nil, runtimeerr.New(runtimeerr.NamespaceFail, "open-namespace-path", fmt.Errorf("%s: %w", ns.Path, err))
		}
		files = append(files, f)
	}
	return files, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

func preserveFDFiles(n int) []*os.File {
	files := make([]*os.File, n)
	for i := 0; i < n; i++ {
		files[i] = os.NewFile(uintptr(3+i), fmt.Sprintf("preserved-%d", i))
	}
	return files
}

// consoleAllocateOnly allocates a console pair without sending it,
// splitting allocate+send so the slave fd exists before fork while the
// actual send still happens after id-map writing.
func consoleAllocateOnly(wantsTerminal bool, socketPath string) (*console.Pair, error) {
	if !wantsTerminal {
		return nil, nil
	}
	if socketPath == "" {
		return nil, runtimeerr.New(runtimeerr.ConsoleFail, "allocate-console", fmt.Errorf("process.terminal is set but --console-socket was not provided"))
	}
	return console.Allocate()
}
