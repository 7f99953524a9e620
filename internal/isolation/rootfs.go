package isolation

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	rmount "github.com/nelmo-ux/container-runway/internal/mount"
	"github.com/nelmo-ux/container-runway/internal/specs"
)

const defaultRootfsPropagation = unix.MS_PRIVATE | unix.MS_REC

func propagationFlags(name string) uintptr {
	if name == "" {
		return defaultRootfsPropagation
	}
	p := rmount.ParseOptions([]string{name})
	if p.HasPropagation {
		return p.Propagation
	}
	return defaultRootfsPropagation
}

// setHostname sets the UTS namespace hostname, a no-op if applies is false
// or hostname is empty.
func setHostname(hostname string, applies bool) error {
	if !applies || hostname == "" {
		return nil
	}
	return unix.Sethostname([]byte(hostname))
}

// bindRootfsOntoItself mounts rootfs onto itself; mandatory for
// pivot_root to later succeed.
func bindRootfsOntoItself(rootfs string) error {
	return unix.Mount(rootfs, rootfs, "", unix.MS_BIND|unix.MS_REC, "")
}

// applyRootfsPropagation sets mount propagation on target. Called twice
// during rootfs setup (once on the bind-mounted rootfs, once again after
// pivot/chroot on the final root) — the second call is redundant in most
// configurations but kept for the chroot fallback path where no real
// pivot ever occurred.
func applyRootfsPropagation(target, propagation string) error {
	return unix.Mount("", target, "", propagationFlags(propagation), "")
}

// applyConfigMounts applies every mounts[] entry in declaration order,
// targets resolved under rootfs.
func applyConfigMounts(rootfs string, mounts []specs.Mount) error {
	for _, m := range mounts {
		target := filepath.Join(rootfs, m.Destination)
		opts := rmount.ParseOptions(m.Options)
		if err := rmount.Apply(m.Type, m.Source, target, opts); err != nil {
			return fmt.Errorf("mount %s -> %s: %w", m.Source, m.Destination, err)
		}
	}
	return nil
}

// applyReadonlyPaths bind-remounts each path read-only; failures are
// non-fatal.
func applyReadonlyPaths(rootfs string, paths []string) {
	for _, p := range paths {
		full := filepath.Join(rootfs, p)
		_ = rmount.ApplyReadonlyPath(full)
	}
}

// pivot moves into rootfs via pivot_root, falling back to chroot on any
// failure (or unconditionally when noPivot is set, per the --no-pivot
// flag).
func pivot(rootfs string, noPivot bool) error {
	if noPivot {
		return chrootFallback(rootfs)
	}
	if err := pivotRoot(rootfs); err != nil {
		return chrootFallback(rootfs)
	}
	return nil
}

func pivotRoot(rootfs string) error {
	oldroot := filepath.Join(rootfs, ".oldroot")
	if err := os.MkdirAll(oldroot, 0o700); err != nil {
		return err
	}
	if err := unix.PivotRoot(rootfs, oldroot); err != nil {
		return err
	}
	if err := unix.Chdir("/"); err != nil {
		return err
	}
	if err := unix.Unmount("/.oldroot", unix.MNT_DETACH); err != nil {
		return err
	}
	return os.RemoveAll("/.oldroot")
}

func chrootFallback(rootfs string) error {
	if err := unix.Chroot(rootfs); err != nil {
		return err
	}
	return unix.Chdir("/")
}

// mountProc mounts a fresh procfs once the new mount/pid namespace is in
// place.
func mountProc() error {
	if err := os.MkdirAll("/proc", 0o555); err != nil && !os.IsExist(err) {
		return err
	}
	return unix.Mount("proc", "/proc", "proc", 0, "")
}

// applyMaskedPaths masks each path; unmountable paths are skipped rather
// than failing the container.
func applyMaskedPaths(paths []string) {
	for _, p := range paths {
		_ = rmount.MaskPath(p)
	}
}

// remountRootReadonly remounts the final root filesystem read-only.
func remountRootReadonly() error {
	return unix.Mount("/", "/", "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY|unix.MS_REC, "")
}
