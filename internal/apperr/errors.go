// Package apperr carries the coded errors returned by services. Handlers map
// codes to HTTP statuses; callers branch on codes with HasCode.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation    Code = "validation"
	CodeAuthorization Code = "authorization"
	CodeNotFound      Code = "not_found"
	CodeConflict      Code = "conflict"
	CodeExternal      Code = "external"
	CodeInternal      Code = "internal"
)

// Store-level facts. Services translate these into coded errors before
// they leave the service layer.
var (
	ErrNotFound    = errors.New("record not found")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and a client-safe message to err.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string) error    { return New(CodeValidation, message) }
func Forbidden(message string) error     { return New(CodeAuthorization, message) }
func NotFound(message string) error      { return New(CodeNotFound, message) }
func Conflict(message string) error      { return New(CodeConflict, message) }
func External(err error, message string) error {
	return Wrap(err, CodeExternal, message)
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the client-facing message. Internal errors never expose
// their text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return "Internal server error"
}
