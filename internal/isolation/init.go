package isolation

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"golang.org/x/sys/unix"
)

// init pins this process to a single OS thread before any other package
// code runs (runtime.GOMAXPROCS(1) + LockOSThread) — setns/unshare/
// pivot_root all require the calling thread to stay fixed, which the Go
// scheduler won't guarantee otherwise.
func init() {
	if len(os.Args) > 1 && os.Args[1] == InitArg {
		runtime.GOMAXPROCS(1)
		runtime.LockOSThread()
	}
}

const configFD = 3

// RunInit is the entire body of the hidden "runway __runway_init"
// subcommand. It must never be invoked directly; the orchestrator is the
// only caller, via Launch. Any failure before the final execve exits the
// process with status 1.
func RunInit() {
	if err := runInit(); err != nil {
		fmt.Fprintln(os.Stderr, "runway: init:", err)
		os.Exit(1)
	}
	// unreachable: runInit only returns on success by exec'ing the
	// payload, which replaces this process image entirely.
}

func runInit() error {
	cfg, err := Decode(os.NewFile(configFD, "config"))
	if err != nil {
		return fmt.Errorf("decode child config: %w", err)
	}

	nextFD := configFD + 1
	var console *os.File
	if cfg.HasConsole {
		console = os.NewFile(uintptr(nextFD), "console-slave")
		nextFD++
	}

	isStage2 := len(os.Args) > 2 && os.Args[2] == Stage2Arg
	if isStage2 {
		preserve := collectPreserveFDs(nextFD, cfg.PreserveFDCount)
		return runPayload(cfg, console, preserve)
	}

	isExec := len(os.Args) > 2 && os.Args[2] == ExecArg
	if isExec {
		joinFDs := make([]int, len(cfg.JoinOrder))
		for i := range joinFDs {
			joinFDs[i] = nextFD
			nextFD++
		}
		if err := joinNamespaces(cfg.JoinOrder, joinFDs); err != nil {
			return fmt.Errorf("join namespaces: %w", err)
		}
		return runExecPayload(cfg, console)
	}

	joinFDs := make([]int, len(cfg.JoinOrder))
	for i := range joinFDs {
		joinFDs[i] = nextFD
		nextFD++
	}
	preserve := collectPreserveFDs(nextFD, cfg.PreserveFDCount)

	// Step 1: join existing namespaces, in declaration order, closing fds.
	if err := joinNamespaces(cfg.JoinOrder, joinFDs); err != nil {
		return fmt.Errorf("join namespaces: %w", err)
	}

	// Step 2: unshare the requested new namespaces in one call.
	if err := unshareNamespaces(cfg.UnshareFlags); err != nil {
		return fmt.Errorf("unshare namespaces: %w", err)
	}

	// Step 3: if a PID namespace was unshared, this process is the
	// waiter; only a freshly re-exec'd child becomes pid 1 inside it.
	if cfg.HasPIDNamespace {
		return runAsWaiter(cfg, console, preserve)
	}

	return runPayload(cfg, console, preserve)
}

func collectPreserveFDs(start, count int) []*os.File {
	files := make([]*os.File, count)
	for i := 0; i < count; i++ {
		files[i] = os.NewFile(uintptr(start+i), fmt.Sprintf("preserved-%d", i))
	}
	return files
}

// runAsWaiter re-execs the runway binary as the stage-2 init (which lands
// as pid 1 in the new PID namespace purely by being the first child
// created after unshare(CLONE_NEWPID)), then reaps it and propagates its
// exit status. A PID namespace's init can't outlive the namespace, so
// this process must stick around solely to wait() for it.
func runAsWaiter(cfg *ChildConfig, console *os.File, preserve []*os.File) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve self: %w", err)
	}

	stage2Cfg := *cfg
	stage2Cfg.JoinOrder = nil
	stage2Cfg.UnshareFlags = 0

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("stage2 config pipe: %w", err)
	}
	defer pr.Close()

	cmd := exec.Command(self, InitArg, Stage2Arg)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	extra := []*os.File{pr}
	if console != nil {
		extra = append(extra, console)
	}
	extra = append(extra, preserve...)
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("start stage2: %w", err)
	}
	if err := Encode(pw, &stage2Cfg); err != nil {
		pw.Close()
		return fmt.Errorf("write stage2 config: %w", err)
	}
	pw.Close()

	state, waitErr := cmd.Process.Wait()
	if waitErr != nil {
		return fmt.Errorf("wait stage2: %w", waitErr)
	}
	os.Exit(state.ExitCode())
	return nil
}

// runPayload performs 4-21: the filesystem assembly, device
// creation, credential drop, and final execve of the container's process.
func runPayload(cfg *ChildConfig, console *os.File, preserve []*os.File) error {
	_ = preserve // inherited untouched by the child's own fd table; nothing to do

	if err := waitForStart(cfg.FifoPath); err != nil {
		return err
	}

	if err := setHostname(cfg.Hostname, cfg.HasUTSNamespace); err != nil {
		return fmt.Errorf("sethostname: %w", err)
	}

	if err := bindRootfsOntoItself(cfg.Rootfs); err != nil {
		return fmt.Errorf("bind rootfs: %w", err)
	}
	if err := applyRootfsPropagation(cfg.Rootfs, cfg.RootfsPropagation); err != nil {
		return fmt.Errorf("rootfs propagation: %w", err)
	}
	if err := unix.Chdir(cfg.Rootfs); err != nil {
		return fmt.Errorf("chdir rootfs: %w", err)
	}

	if err := applyConfigMounts(cfg.Rootfs, cfg.Mounts); err != nil {
		return fmt.Errorf("apply mounts: %w", err)
	}
	applyReadonlyPaths(cfg.Rootfs, cfg.ReadonlyPaths)

	if err := pivot(cfg.Rootfs, cfg.NoPivot); err != nil {
		return fmt.Errorf("pivot root: %w", err)
	}

	if err := applyRootfsPropagation("/", cfg.RootfsPropagation); err != nil {
		return fmt.Errorf("rootfs propagation (post-pivot): %w", err)
	}

	if cfg.Process.Cwd != "" {
		if err := unix.Chdir(cfg.Process.Cwd); err != nil {
			return fmt.Errorf("chdir %s: %w", cfg.Process.Cwd, err)
		}
	}

	if err := mountProc(); err != nil {
		return fmt.Errorf("mount proc: %w", err)
	}

	applyMaskedPaths(cfg.MaskedPaths)

	if cfg.RootReadonly {
		if err := remountRootReadonly(); err != nil {
			return fmt.Errorf("remount rootfs readonly: %w", err)
		}
	}

	if cfg.Process.Terminal {
		if console == nil {
			return fmt.Errorf("terminal requested but no console fd available")
		}
		if err := setControllingTerminal(console); err != nil {
			return fmt.Errorf("set controlling terminal: %w", err)
		}
	}

	rebuildEnvironment(cfg.Process.Env)

	if err := createEssentialDevices(); err != nil {
		return fmt.Errorf("create device nodes: %w", err)
	}

	if err := dropCredentials(cfg.Process.UID, cfg.Process.GID, cfg.Process.AdditionalGids); err != nil {
		return fmt.Errorf("drop credentials: %w", err)
	}

	args := cfg.Process.Args
	if err := unix.Exec(args[0], args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", args[0], err)
	}
	return nil
}

// runExecPayload implements the exec operation's child side: the
// namespaces are already joined by the caller, so this skips rootfs
// assembly, device creation, and the sync FIFO entirely and goes
// straight to cwd/terminal/env/credentials/execve against the already
// running container's mount namespace.
func runExecPayload(cfg *ChildConfig, console *os.File) error {
	if cfg.Process.Cwd != "" {
		if err := unix.Chdir(cfg.Process.Cwd); err != nil {
			return fmt.Errorf("chdir %s: %w", cfg.Process.Cwd, err)
		}
	}

	if cfg.Process.Terminal {
		if console == nil {
			return fmt.Errorf("terminal requested but no console fd available")
		}
		if err := setControllingTerminal(console); err != nil {
			return fmt.Errorf("set controlling terminal: %w", err)
		}
	}

	rebuildEnvironment(cfg.Process.Env)

	if err := dropCredentials(cfg.Process.UID, cfg.Process.GID, cfg.Process.AdditionalGids); err != nil {
		return fmt.Errorf("drop credentials: %w", err)
	}

	args := cfg.Process.Args
	if err := unix.Exec(args[0], args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", args[0], err)
	}
	return nil
}
