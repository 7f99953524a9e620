// Package store is the Persistent State Store: the single place
// that reads and writes a container's on-disk state.json, pid file, and
// sync FIFO. The runtime is stateless across invocations only because
// this package's files are the truth between them.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// Status is one of the lifecycle states a container can be in.
type Status string

const (
	StatusCreating Status = "creating"
	StatusCreated  Status = "created"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusStopped  Status = "stopped"
)

const stateVersion = 1

// State is the persisted container state, using OCI-spec field
// names. BundlePath accepts the legacy bundle_path alias on read via a
// custom UnmarshalJSON below.
type State struct {
	Version     int               `json:"version"`
	OCIVersion  string            `json:"ociVersion"`
	ID          string            `json:"id"`
	PID         int               `json:"pid"`
	Status      Status            `json:"status"`
	BundlePath  string            `json:"bundle"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// legacyState is the on-wire shape accepted for backward compatibility.
type legacyState struct {
	Version     int               `json:"version"`
	OCIVersion  string            `json:"ociVersion"`
	ID          string            `json:"id"`
	PID         int               `json:"pid"`
	Status      Status            `json:"status"`
	BundlePath  string            `json:"bundle"`
	LegacyPath  string            `json:"bundle_path"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

func (s *State) UnmarshalJSON(data []byte) error {
	var l legacyState
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	s.Version = l.Version
	s.OCIVersion = l.OCIVersion
	s.ID = l.ID
	s.PID = l.PID
	s.Status = l.Status
	s.Annotations = l.Annotations
	s.BundlePath = l.BundlePath
	if s.BundlePath == "" {
		s.BundlePath = l.LegacyPath
	}
	return nil
}

// SetAnnotation sets k=v in Annotations, allocating the map if needed.
func (s *State) SetAnnotation(k, v string) {
	if s.Annotations == nil {
		s.Annotations = map[string]string{}
	}
	s.Annotations[k] = v
}

// Annotation reads an annotation, returning ok=false if absent.
func (s *State) Annotation(k string) (string, bool) {
	v, ok := s.Annotations[k]
	return v, ok
}

// HookDoneKey is the annotation key recording that all hooks of phase
// have completed successfully at least once (at-most-once).
func HookDoneKey(phase string) string { return "hooks." + phase }

// NewState builds the initial creating-state value for a fresh container.
func NewState(id, ociVersion, bundlePath string) *State {
	return &State{
		Version:     stateVersion,
		OCIVersion:  ociVersion,
		ID:          id,
		Status:      StatusCreating,
		BundlePath:  bundlePath,
		Annotations: map[string]string{},
	}
}

// Store operates against one <state_root>.
type Store struct {
	root string
}

func New(stateRoot string) *Store { return &Store{root: stateRoot} }

func (s *Store) dir(id string) string         { return filepath.Join(s.root, id) }
func (s *Store) statePath(id string) string   { return filepath.Join(s.dir(id), "state.json") }
func (s *Store) FifoPath(id string) string    { return filepath.Join(s.dir(id), "sync_fifo") }
func (s *Store) EventsPath(id string) string  { return filepath.Join(s.dir(id), "events.log") }
func (s *Store) ContainerDir(id string) string { return s.dir(id) }

// EnsureDir creates the container's state directory if absent.
func (s *Store) EnsureDir(id string) error {
	if err := os.MkdirAll(s.dir(id), 0o755); err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "ensure-state-dir", err)
	}
	return nil
}

// Save writes state.json. Single-writer by contract: a
// truncate+write is sufficient, no temp-file+rename dance is required.
func (s *Store) Save(st *State) error {
	if err := s.EnsureDir(st.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "save-state", err)
	}
	f, err := os.OpenFile(s.statePath(st.ID), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "save-state", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "save-state", err)
	}
	return nil
}

// Load reads state.json for id.
func (s *Store) Load(id string) (*State, error) {
	data, err := os.ReadFile(s.statePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, runtimeerr.New(runtimeerr.NotFound, "load-state", fmt.Errorf("container %q does not exist", id))
		}
		return nil, runtimeerr.New(runtimeerr.IOFail, "load-state", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, runtimeerr.New(runtimeerr.IOFail, "load-state", fmt.Errorf("corrupt state for %q: %w", id, err))
	}
	return &st, nil
}

// Remove deletes the FIFO, state.json, event log, and the now-empty
// container state directory. Missing files are benign.
func (s *Store) Remove(id string) error {
	for _, p := range []string{s.FifoPath(id), s.statePath(id), s.EventsPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return runtimeerr.New(runtimeerr.IOFail, "remove-state", err)
		}
	}
	if err := os.Remove(s.dir(id)); err != nil && !os.IsNotExist(err) {
		return runtimeerr.New(runtimeerr.IOFail, "remove-state", err)
	}
	return nil
}

// ListIDs returns every container id with a state directory under root,
// for `list`/`ps`-adjacent reporting. A missing root is an empty list,
// not an error — nothing has been created there yet.
func (s *Store) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, runtimeerr.New(runtimeerr.IOFail, "list-containers", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// WritePIDFile writes a numeric-only payload (no trailing whitespace) so
// shims can parse it as a bare integer.
func WritePIDFile(path string, pid int) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "write-pid-file", err)
	}
	return nil
}

// ReadPIDFile is the inverse of WritePIDFile, tolerating surrounding
// whitespace a shim or human might have introduced.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, runtimeerr.New(runtimeerr.IOFail, "read-pid-file", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, runtimeerr.New(runtimeerr.IOFail, "read-pid-file", err)
	}
	return pid, nil
}
