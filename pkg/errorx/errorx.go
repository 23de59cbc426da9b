// Package errorx provides coded errors shared by the chat core and its
// transports. A CodeError carries a stable machine-readable code that is sent
// to clients in "error" events, and can wrap an underlying cause.
package errorx

import (
	"errors"
	"fmt"
)

// Code is a stable, client-visible error category.
type Code string

const (
	CodeUnknownParticipant Code = "unknown_participant"
	CodeAlreadyPaired      Code = "already_paired"
	CodeNoActiveSession    Code = "no_active_session"
	CodeInvalidFilter      Code = "invalid_filter"
	CodeNotInRoom          Code = "not_in_room"
	CodeInvalidPayload     Code = "invalid_payload"
	CodeInternal           Code = "internal"
)

// CodeError is an error with a category code.
type CodeError struct {
	Code  Code
	Msg   string
	cause error
}

func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a CodeError with the same code, so that a
// wrapped error still matches its sentinel.
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func Newf(code Code, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

func Wrapf(err error, code Code, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode extracts the code from err, or CodeInternal if err is not coded.
func GetCode(err error) Code {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeInternal
}

var (
	ErrUnknownParticipant = New(CodeUnknownParticipant, "unknown participant")
	ErrAlreadyPaired      = New(CodeAlreadyPaired, "participant already paired")
	ErrNoActiveSession    = New(CodeNoActiveSession, "no active session")
	ErrNotInRoom          = New(CodeNotInRoom, "participant is not in that room")
	ErrInvalidPayload     = New(CodeInvalidPayload, "invalid payload")
)
