package mount

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// Kind tags a mount's handling strategy.
type Kind int

const (
	KindGeneric Kind = iota
	KindBind
	KindRemount
	KindProc
	KindTmpfs
)

// ClassifyKind derives the Kind from a mount's type and parsed options,
// purely to decide Executor strategy — it never changes what gets passed
// to the kernel.
func ClassifyKind(fsType string, opts ParsedOptions) Kind {
	switch {
	case opts.Flags&unix.MS_REMOUNT != 0:
		return KindRemount
	case opts.Flags&unix.MS_BIND != 0:
		return KindBind
	case fsType == "proc":
		return KindProc
	case fsType == "tmpfs":
		return KindTmpfs
	default:
		return KindGeneric
	}
}

// PrepareTarget implements target preparation: stat the source; a
// regular file gets an empty file target, anything else (including a
// missing/non-bind source) gets a directory target. Missing intermediate
// directories are created along the way.
func PrepareTarget(source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return runtimeerr.New(runtimeerr.MountFail, "prepare-target", err)
	}

	isFile := false
	if source != "" {
		if st, err := os.Stat(source); err == nil {
			isFile = st.Mode().IsRegular()
		}
	}

	if isFile {
		f, err := os.OpenFile(target, os.O_CREATE, 0o644)
		if err != nil {
			return runtimeerr.New(runtimeerr.MountFail, "prepare-target", err)
		}
		return f.Close()
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return runtimeerr.New(runtimeerr.MountFail, "prepare-target", err)
	}
	return nil
}

// cgroupFsTypes is the small set of filesystem types whose "already
// mounted" EBUSY is tolerated silently — kept narrow to cgroup
// filesystems rather than broadened to every pre-mountable class.
var cgroupFsTypes = map[string]bool{"cgroup": true, "cgroup2": true}

// Apply mounts one entry: the initial bind mount omits MS_RDONLY even
// when BindReadonly is set (the kernel ignores MS_RDONLY on the initial
// bind), and a separate MS_REMOUNT|MS_BIND|MS_RDONLY call enforces it
// afterward.
func Apply(fsType, source, target string, opts ParsedOptions) error {
	if err := PrepareTarget(source, target); err != nil {
		return err
	}

	flags := opts.Flags
	if opts.BindReadonly {
		flags &^= unix.MS_RDONLY
	}

	err := unix.Mount(source, target, fsType, flags, opts.Data)
	if err != nil {
		if err == unix.EBUSY && cgroupFsTypes[fsType] {
			return nil
		}
		return runtimeerr.New(runtimeerr.MountFail, "mount", err)
	}

	if opts.BindReadonly {
		roFlags := (opts.Flags &^ unix.MS_RDONLY) | unix.MS_REMOUNT | unix.MS_BIND | unix.MS_RDONLY
		if err := unix.Mount(source, target, fsType, roFlags, ""); err != nil {
			return runtimeerr.New(runtimeerr.MountFail, "remount-readonly", err)
		}
	}

	if opts.HasPropagation {
		if err := ApplyPropagation(target, opts.Propagation); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPropagation issues the separate mount(NULL, target, NULL,
// propagation, NULL) call the kernel requires to set propagation on an
// already-mounted target.
func ApplyPropagation(target string, propagation uintptr) error {
	if err := unix.Mount("", target, "", propagation, ""); err != nil {
		return runtimeerr.New(runtimeerr.MountFail, "apply-propagation", err)
	}
	return nil
}

// ApplyReadonlyPath bind-mounts path onto itself and remounts it
// read-only. Failures here are non-fatal for the caller — it should log
// and continue rather than propagate the error.
func ApplyReadonlyPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if err := unix.Mount(path, path, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return err
	}
	return unix.Mount(path, path, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY|unix.MS_REC, "")
}

// MaskPath masks a path so processes inside the container can't read it:
// a directory target is masked with a read-only zero-size tmpfs; a
// regular file target is masked by
// bind-mounting /dev/null over it. A missing path is a no-op; any other
// failure is returned so the caller can decide.
func MaskPath(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if st.IsDir() {
		return unix.Mount("tmpfs", path, "tmpfs", unix.MS_RDONLY, "size=0k")
	}
	return unix.Mount("/dev/null", path, "", unix.MS_BIND, "")
}
