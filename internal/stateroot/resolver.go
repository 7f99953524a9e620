// Package stateroot resolves the runtime's persistent state directory
//: the one piece of host filesystem every other component agrees
// on before it does anything else.
package stateroot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// RuntimeName is embedded in every fallback path (/run/<name>,
// $XDG_RUNTIME_DIR/<name>, /tmp/<name>-<uid>).
const RuntimeName = "runway"

const dirMode = 0o755

// Resolve determines <state_root> by precedence: explicit flag, then
// /run/<name> for root, then $XDG_RUNTIME_DIR/<name>, then
// /tmp/<name>-<uid>. It guarantees the directory exists with mode 0755
// before returning.
func Resolve(explicit string, log logrus.FieldLogger) (string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if explicit != "" {
		root := filepath.Clean(explicit)
		if err := ensureDir(root); err != nil {
			return "", runtimeerr.New(runtimeerr.IOFail, "resolve-state-root", err)
		}
		return root, nil
	}

	isRoot := os.Geteuid() == 0
	if isRoot {
		root := filepath.Join("/run", RuntimeName)
		if err := ensureDir(root); err != nil {
			return "", runtimeerr.New(runtimeerr.IOFail, "resolve-state-root", err)
		}
		return root, nil
	}

	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		root := filepath.Join(filepath.Clean(xdg), RuntimeName)
		if err := ensureDir(root); err == nil {
			return root, nil
		}
		log.WithField("path", root).Debug("state root: XDG_RUNTIME_DIR unusable, falling back to /tmp")
	}

	root := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", RuntimeName, os.Getuid()))
	if err := ensureDir(root); err != nil {
		return "", runtimeerr.New(runtimeerr.IOFail, "resolve-state-root", err)
	}
	return root, nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, dirMode); err != nil {
		return err
	}
	return os.Chmod(path, dirMode)
}

// ContainerDir is <state_root>/<id>.
func ContainerDir(stateRoot, id string) string {
	return filepath.Join(stateRoot, id)
}
