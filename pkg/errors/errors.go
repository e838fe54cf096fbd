// Package errors defines the coded errors shared by the selection core, the
// sweep driver, the command line and the result server.
//
// A coded error carries a stable [Code] next to its message, so callers can
// react to the category of a failure without matching strings:
//
//	if errors.Is(err, errors.ErrCodeTableNotFound) {
//	    // nothing swept yet
//	}
//
// Codes survive wrapping with fmt.Errorf("...: %w", err). [Is] matches a
// code anywhere in the chain, [GetCode] reports the outermost one.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	// Bad flags, config files or option values. Raised before any run.
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	// Malformed measurement files, result tables or request parameters.
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	// Site or experiment names that are unsafe as file or key components.
	ErrCodeInvalidName Code = "INVALID_NAME"
	// Unsupported output format.
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeGraphNotFound Code = "GRAPH_NOT_FOUND"
	ErrCodeTableNotFound Code = "TABLE_NOT_FOUND"

	// The node reduction program was infeasible or could not be solved.
	ErrCodeReductionFailed Code = "REDUCTION_FAILED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error with code and a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any coded error in err's chain has code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode returns the code of the outermost coded error in err's chain, or
// "" when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost coded error without its
// code, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps err to a response status: 400 for invalid requests, 404
// for missing graphs and tables, 500 otherwise.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidConfig, ErrCodeInvalidInput, ErrCodeInvalidName, ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeGraphNotFound, ErrCodeTableNotFound:
		return http.StatusNotFound
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
