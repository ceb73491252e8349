package circulation

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures for the boundary. Domain kinds are returned
// synchronously and never retried; transient failures may be retried by the
// caller with the same request because every precondition is re-checked.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindState
	KindTransient
)

type Error struct {
	Kind    Kind
	Reason  string // machine-readable, e.g. "ItemUnavailable"
	Message string // human-readable, shown as-is to the caller
	Err     error  // wrapped cause, transient only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validation(reason, msg string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: msg}
}

func notFound(reason, msg string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: msg}
}

func conflict(reason, msg string) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: msg}
}

func stateErr(reason, msg string) *Error {
	return &Error{Kind: KindState, Reason: reason, Message: msg}
}

func transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Reason: "StorageUnavailable", Message: op, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsValidation(err error) bool { k, ok := kindOf(err); return ok && k == KindValidation }
func IsNotFound(err error) bool   { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsConflict(err error) bool   { k, ok := kindOf(err); return ok && k == KindConflict }
func IsState(err error) bool      { k, ok := kindOf(err); return ok && k == KindState }
func IsTransient(err error) bool  { k, ok := kindOf(err); return ok && k == KindTransient }

// Reason extracts the machine-readable reason, or "" for foreign errors.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
