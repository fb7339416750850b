// Package schedulerrors defines the stable error-kind taxonomy the core
// uses to report failures across the auditor, model builder, solve driver
// and decoder (spec §7).
package schedulerrors

import (
	"errors"
	"fmt"
)

// Kind is a stable identifier for tooling; never change its string value.
type Kind string

const (
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindInfeasibleStatic  Kind = "INFEASIBLE_STATIC"
	KindInfeasibleSolve   Kind = "INFEASIBLE_SOLVE"
	KindTimeout           Kind = "TIMEOUT"
	KindRoomAssignment    Kind = "ROOM_ASSIGNMENT"
	KindCancelled         Kind = "CANCELLED"
	KindInternal          Kind = "INTERNAL"
)

// ExitCode maps a Kind to the process exit code from spec §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindInvalidInput:
		return 4
	case KindInfeasibleStatic, KindInfeasibleSolve:
		return 2
	case KindTimeout:
		return 3
	default:
		return 1
	}
}

// Recoverable reports whether the caller may reasonably retry or accept a
// partial result for this kind (spec §7 propagation policy).
func (k Kind) Recoverable() bool {
	switch k {
	case KindInfeasibleSolve, KindTimeout, KindCancelled:
		return true
	default:
		return false
	}
}

// Error is a typed core error carrying a stable Kind plus the offending
// entity id, if any.
type Error struct {
	Kind   Kind
	Entity string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := string(e.Kind)
	if e.Entity != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Entity)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WithEntity attaches the offending entity id.
func (e *Error) WithEntity(id string) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Entity = id
	return &clone
}

// Wrap attaches context to an existing error without losing its cause.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// As reports whether err is (or wraps) a *Error, mirroring errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal if err is not a *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
