// Command runway is a runc-compatible OCI container runtime CLI: the
// cobra-driven entrypoint for every lifecycle command, plus the hidden
// re-exec'd init subcommand the Isolation Engine uses to build a
// container's process identity.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nelmo-ux/container-runway/internal/cgroups"
	"github.com/nelmo-ux/container-runway/internal/events"
	"github.com/nelmo-ux/container-runway/internal/isolation"
	"github.com/nelmo-ux/container-runway/internal/orchestrator"
	"github.com/nelmo-ux/container-runway/internal/stateroot"
)

var runtimeVersion = orchestrator.RuntimeVersion

type globalOptions struct {
	debug         bool
	logPath       string
	logFormat     string
	root          string
	systemdCgroup bool
}

func main() {
	// The init subcommand is never reached through cobra: it must run
	// before any flag parsing touches os.Args, the same reexec-before-cobra
	// gate long-lived Go container daemons use to let a re-exec'd child
	// dispatch before any command-line framework sees argv.
	if len(os.Args) > 1 && os.Args[1] == isolation.InitArg {
		isolation.RunInit()
		return
	}

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "runway",
		Short:         "An OCI-compatible container runtime",
		Version:       runtimeVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "enable debug-level logging")
	flags.StringVar(&opts.logPath, "log", "", "write logs to this file instead of stderr")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log output format: text or json")
	flags.StringVar(&opts.root, "root", "", "persistent state root (overrides the default resolution order)")
	flags.BoolVar(&opts.systemdCgroup, "systemd-cgroup", false, "drive cgroups through systemd transient scopes")

	root.AddCommand(
		newCreateCommand(opts),
		newStartCommand(opts),
		newRunCommand(opts),
		newStateCommand(opts),
		newFeaturesCommand(opts),
		newExecCommand(opts),
		newPauseCommand(opts),
		newResumeCommand(opts),
		newPsCommand(opts),
		newEventsCommand(opts),
		newKillCommand(opts),
		newDeleteCommand(opts),
	)
	return root
}

func newLogger(opts *globalOptions) (*logrus.Logger, error) {
	log := logrus.New()
	if opts.debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if opts.logFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{})
	}
	if opts.logPath != "" {
		f, err := os.OpenFile(opts.logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open --log %s: %w", opts.logPath, err)
		}
		log.SetOutput(f)
	}
	return log, nil
}

func newOrchestrator(opts *globalOptions) (*orchestrator.Orchestrator, error) {
	log, err := newLogger(opts)
	if err != nil {
		return nil, err
	}
	root, err := stateroot.Resolve(opts.root, log)
	if err != nil {
		return nil, err
	}
	o := orchestrator.New(root, log)
	o.SystemdCgroup = opts.systemdCgroup
	return o, nil
}

func newCreateCommand(g *globalOptions) *cobra.Command {
	var bundle, pidFile, consoleSocket string
	var noPivot bool
	var preserveFDs int

	cmd := &cobra.Command{
		Use:   "create <container-id>",
		Short: "Create a container from a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			if bundle == "" {
				bundle = "."
			}
			return o.Create(args[0], bundle, orchestrator.CreateOptions{
				PidFile:       pidFile,
				ConsoleSocket: consoleSocket,
				NoPivot:       noPivot,
				PreserveFDs:   preserveFDs,
			})
		},
	}
	cmd.Flags().StringVarP(&bundle, "bundle", "b", "", "path to the bundle directory (default: current directory)")
	cmd.Flags().StringVar(&pidFile, "pid-file", "", "write the container's pid to this file")
	cmd.Flags().StringVar(&consoleSocket, "console-socket", "", "unix socket to receive the console's PTY master fd")
	cmd.Flags().BoolVar(&noPivot, "no-pivot", false, "use chroot instead of pivot_root")
	cmd.Flags().IntVar(&preserveFDs, "preserve-fds", 0, "number of additional fds (starting at 3) to inherit into the container")
	return cmd
}

func newStartCommand(g *globalOptions) *cobra.Command {
	var attach bool
	cmd := &cobra.Command{
		Use:   "start <container-id>",
		Short: "Start a created container's process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			return o.Start(args[0], attach)
		},
	}
	cmd.Flags().BoolVarP(&attach, "attach", "a", false, "block until the container's process exits")
	return cmd
}

func newRunCommand(g *globalOptions) *cobra.Command {
	var bundle, pidFile, consoleSocket string
	var noPivot bool
	var preserveFDs int

	cmd := &cobra.Command{
		Use:   "run <container-id>",
		Short: "Create, start, and wait for a container in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			if bundle == "" {
				bundle = "."
			}
			code, err := o.Run(args[0], bundle, orchestrator.CreateOptions{
				PidFile:       pidFile,
				ConsoleSocket: consoleSocket,
				NoPivot:       noPivot,
				PreserveFDs:   preserveFDs,
			})
			if err != nil {
				return err
			}
			os.Exit(code)
			return nil
		},
	}
	cmd.Flags().StringVarP(&bundle, "bundle", "b", "", "path to the bundle directory (default: current directory)")
	cmd.Flags().StringVar(&pidFile, "pid-file", "", "write the container's pid to this file")
	cmd.Flags().StringVar(&consoleSocket, "console-socket", "", "unix socket to receive the console's PTY master fd")
	cmd.Flags().BoolVar(&noPivot, "no-pivot", false, "use chroot instead of pivot_root")
	cmd.Flags().IntVar(&preserveFDs, "preserve-fds", 0, "number of additional fds (starting at 3) to inherit into the container")
	return cmd
}

func newStateCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state <container-id>",
		Short: "Print a container's current state as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			st, err := o.State(args[0])
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	}
}

func newFeaturesCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Print this runtime's static capability report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(orchestrator.DescribeFeatures())
		},
	}
}

func newExecCommand(g *globalOptions) *cobra.Command {
	var cwd, consoleSocket string
	var env []string
	var uid, gid uint32
	var terminal, detach bool

	cmd := &cobra.Command{
		Use:   "exec <container-id> -- <command> [args...]",
		Short: "Run a new process inside a running container",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			pid, err := o.Exec(args[0], orchestrator.ExecOptions{
				Args:          args[1:],
				Env:           env,
				Cwd:           cwd,
				UID:           uid,
				GID:           gid,
				Terminal:      terminal,
				ConsoleSocket: consoleSocket,
				Detach:        detach,
			})
			if err != nil {
				return err
			}
			if detach {
				fmt.Println(pid)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory of the new process")
	cmd.Flags().StringArrayVarP(&env, "env", "e", nil, "additional environment variables (KEY=VALUE)")
	cmd.Flags().Uint32Var(&uid, "user", 0, "uid to run as")
	cmd.Flags().Uint32Var(&gid, "group", 0, "gid to run as")
	cmd.Flags().BoolVarP(&terminal, "tty", "t", false, "allocate a pseudo-terminal")
	cmd.Flags().StringVar(&consoleSocket, "console-socket", "", "unix socket to receive the console's PTY master fd")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "detach from the new process instead of waiting for it")
	return cmd
}

func newPauseCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <container-id>",
		Short: "Freeze a running container's processes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			return o.Pause(args[0])
		},
	}
}

func newResumeCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <container-id>",
		Short: "Thaw a paused container's processes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			return o.Resume(args[0])
		},
	}
}

func newPsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ps <container-id>",
		Short: "List the processes running inside a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			st, err := o.State(args[0])
			if err != nil {
				return err
			}
			for _, pid := range orchestrator.CollectProcessTree(st.PID) {
				fmt.Printf("%d\t%s\n", pid, orchestrator.ProcessComm(pid))
			}
			return nil
		},
	}
}

func newEventsCommand(g *globalOptions) *cobra.Command {
	var stats bool
	var intervalMS int

	cmd := &cobra.Command{
		Use:   "events <container-id>",
		Short: "Print a container's event log, optionally sampling live stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			id := args[0]

			recs, err := events.ReadAll(o.Store.EventsPath(id))
			if err != nil {
				return err
			}
			for _, r := range recs {
				if err := printJSON(r); err != nil {
					return err
				}
			}

			if !stats {
				return nil
			}
			if intervalMS <= 0 {
				intervalMS = 5000
			}
			st, err := o.State(id)
			if err != nil {
				return err
			}
			relPath, _ := st.Annotations["runway.cgroupPath"]
			ticker := time.NewTicker(time.Duration(intervalMS) * time.Millisecond)
			defer ticker.Stop()
			for range ticker.C {
				snap, err := cgroups.ReadStats(relPath)
				if err != nil {
					continue
				}
				_ = printJSON(map[string]uint64{
					"cpu.usage.total_ns":     snap.CPUUsageNS,
					"memory.usage.rss_bytes": snap.MemoryRSS,
					"pids.current":           snap.PidsCurrent,
				})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "periodically sample and print cgroup resource stats")
	cmd.Flags().IntVar(&intervalMS, "interval", 5000, "sampling interval in milliseconds for --stats")
	return cmd
}

func newKillCommand(g *globalOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "kill <container-id> [signal]",
		Short: "Send a signal to a container's init process",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			sig := 15
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid signal %q: %w", args[1], err)
				}
				sig = n
			}
			return o.Kill(args[0], sig, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "signal every process in the container, not just its init")
	return cmd
}

func newDeleteCommand(g *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <container-id>",
		Short: "Remove a stopped container's persisted state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator(g)
			if err != nil {
				return err
			}
			return o.Delete(args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "kill the container first if it isn't stopped")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
