// Package runtimeerr defines the error taxonomy shared by every component
// of the runtime engine. Callers classify failures by kind instead of
// string-matching messages; the orchestrator's rollback and event-log
// paths switch on Kind to decide what is benign and what isn't.
package runtimeerr

import "fmt"

// Kind classifies a failure into one of the categories the orchestrator's
// rollback and reporting logic understands.
type Kind string

const (
	ConfigInvalid Kind = "ConfigInvalid"
	NotFound      Kind = "NotFound"
	AlreadyExists Kind = "AlreadyExists"
	WrongState    Kind = "WrongState"
	NamespaceFail Kind = "NamespaceFail"
	MountFail     Kind = "MountFail"
	CgroupFail    Kind = "CgroupFail"
	HookFail      Kind = "HookFail"
	IOFail        Kind = "IOFail"
	ConsoleFail   Kind = "ConsoleFail"
)

// Error wraps an underlying cause with a Kind and the sub-operation (the
// "phase") in which it occurred, so the event log can record {phase,
// message} without the caller re-deriving either.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

func (e *Error) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for the given kind/phase, wrapping err. Returns nil
// if err is nil so callers can write `return runtimeerr.New(...)` inline
// after a fallible call without an extra if-nil check.
func New(kind Kind, phase string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Phase: phase, Err: err}
}

// KindOf extracts the Kind of err, or "" if err is not (or does not wrap)
// a *Error.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return ""
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
