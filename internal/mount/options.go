// Package mount is the Mount Planner / Executor: option parsing,
// mount target preparation, and the bind/remount/propagation sequencing
// the kernel demands. The option table follows classic libcontainer
// mount handling, generalized into a data-driven option parser instead
// of scattering inline syscall.MS_* literals through the call sites.
package mount

import (
	"strings"

	"golang.org/x/sys/unix"
)

// ParsedOptions is the result of parsing one mounts[].options list.
type ParsedOptions struct {
	Flags          uintptr
	Propagation    uintptr
	HasPropagation bool
	BindReadonly   bool
	Data           string
}

// flagTable maps a recognized option token directly to the kernel mount
// flag(s) it contributes. Tokens mapping to 0 are still "recognized" —
// they exist only to be excluded from Data (e.g. "rw" is the absence of
// MS_RDONLY, but must not be forwarded to the kernel as opaque data).
var flagTable = map[string]uintptr{
	"ro":            unix.MS_RDONLY,
	"rw":            0,
	"nosuid":        unix.MS_NOSUID,
	"nodev":         unix.MS_NODEV,
	"noexec":        unix.MS_NOEXEC,
	"relatime":      unix.MS_RELATIME,
	"norelatime":    0,
	"strictatime":   unix.MS_STRICTATIME,
	"nostrictatime": 0,
	"sync":          unix.MS_SYNCHRONOUS,
	"dirsync":       unix.MS_DIRSYNC,
	"remount":       unix.MS_REMOUNT,
	"bind":          unix.MS_BIND,
	"rbind":         unix.MS_BIND | unix.MS_REC,
	"recursive":     unix.MS_REC,
}

// propagationTable maps a propagation token to its mount flag, including
// the recursive "r"-prefixed variants.
var propagationTable = map[string]uintptr{
	"private":     unix.MS_PRIVATE,
	"rprivate":    unix.MS_PRIVATE | unix.MS_REC,
	"shared":      unix.MS_SHARED,
	"rshared":     unix.MS_SHARED | unix.MS_REC,
	"slave":       unix.MS_SLAVE,
	"rslave":      unix.MS_SLAVE | unix.MS_REC,
	"unbindable":  unix.MS_UNBINDABLE,
	"runbindable": unix.MS_UNBINDABLE | unix.MS_REC,
}

// ParseOptions implements parse_options: the returned Flags value
// is always the bitwise-or of every recognized token's flag contribution,
// independent of what the Executor later does with BindReadonly.
func ParseOptions(opts []string) ParsedOptions {
	var p ParsedOptions
	var hasBind, hasRO bool
	var data []string

	for _, tok := range opts {
		if flag, ok := flagTable[tok]; ok {
			p.Flags |= flag
			switch tok {
			case "bind", "rbind":
				hasBind = true
			case "ro":
				hasRO = true
			}
			continue
		}
		if prop, ok := propagationTable[tok]; ok {
			p.Propagation |= prop
			p.HasPropagation = true
			continue
		}
		data = append(data, tok)
	}

	p.BindReadonly = hasBind && hasRO
	p.Data = strings.Join(data, ",")
	return p
}
