package isolation

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nelmo-ux/container-runway/internal/specs"
)

// nsCloneFlag maps a namespace type to its CLONE_NEW* value.
func nsCloneFlag(t specs.NamespaceType) uintptr {
	switch t {
	case specs.PIDNamespace:
		return unix.CLONE_NEWPID
	case specs.UTSNamespace:
		return unix.CLONE_NEWUTS
	case specs.IPCNamespace:
		return unix.CLONE_NEWIPC
	case specs.NetNamespace:
		return unix.CLONE_NEWNET
	case specs.MountNamespace:
		return unix.CLONE_NEWNS
	case specs.UserNamespace:
		return unix.CLONE_NEWUSER
	case specs.CgroupNamespace:
		return unix.CLONE_NEWCGROUP
	default:
		return 0
	}
}

// UnshareFlags computes the CLONE_NEW* bitmask for every namespace in
// linux.namespaces that has no path.
func UnshareFlags(l specs.Linux) uintptr {
	var flags uintptr
	for _, ns := range l.Namespaces {
		if ns.Path == "" {
			flags |= nsCloneFlag(ns.Type)
		}
	}
	return flags
}

// JoinOrderAndTypes returns, in bundle-declaration order, the namespace
// types that specify an existing path to join.
func JoinOrderAndTypes(l specs.Linux) []specs.NamespaceType {
	var order []specs.NamespaceType
	for _, ns := range l.Namespaces {
		if ns.Path != "" {
			order = append(order, ns.Type)
		}
	}
	return order
}

// joinNamespaces setns()s into each fd in order, then closes it. Any
// failure aborts immediately without closing the remaining fds (the
// caller's process is about to exit anyway).
func joinNamespaces(types []specs.NamespaceType, fds []int) error {
	if len(types) != len(fds) {
		return fmt.Errorf("join namespace mismatch: %d types, %d fds", len(types), len(fds))
	}
	for i, t := range types {
		if err := unix.Setns(fds[i], int(nsCloneFlag(t))); err != nil {
			return fmt.Errorf("setns %s: %w", t, err)
		}
		unix.Close(fds[i])
	}
	return nil
}

// unshareNamespaces performs the single unshare(2) call that creates
// every new namespace at once.
func unshareNamespaces(flags uintptr) error {
	if flags == 0 {
		return nil
	}
	return unix.Unshare(int(flags))
}
