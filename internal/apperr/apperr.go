// Package apperr defines structured application errors that carry an HTTP
// status, so handlers can render them without knowing where they came from.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is an application-specific error code.
type Code string

const (
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeMissingField  Code = "MISSING_FIELD"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	CodeBackend       Code = "BACKEND_ERROR"
	CodeDatabase      Code = "DATABASE_ERROR"
	CodeTransport     Code = "TRANSPORT_ERROR"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// AppError is an error with a code, a user-facing message and an HTTP status.
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError with the same code, so callers can compare against
// the sentinel values below with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidInput = &AppError{Code: CodeInvalidInput, StatusCode: http.StatusBadRequest}
	ErrNotFound     = &AppError{Code: CodeNotFound, StatusCode: http.StatusNotFound}
	ErrBackend      = &AppError{Code: CodeBackend, StatusCode: http.StatusInternalServerError}
)

// New creates an AppError with a 500 status.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: http.StatusInternalServerError}
}

// Wrap wraps err with a code and message; status defaults to 500.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: http.StatusInternalServerError, Err: err}
}

// WithStatus overrides the HTTP status.
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message, StatusCode: http.StatusBadRequest}
}

func MissingField(message string) *AppError {
	return &AppError{Code: CodeMissingField, Message: message, StatusCode: http.StatusBadRequest}
}

func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, StatusCode: http.StatusNotFound}
}

func Configuration(message string) *AppError {
	return &AppError{Code: CodeConfiguration, Message: message, StatusCode: http.StatusInternalServerError}
}

func Backend(message string, err error) *AppError {
	return &AppError{Code: CodeBackend, Message: message, StatusCode: http.StatusInternalServerError, Err: err}
}

func Transport(message string, err error) *AppError {
	return &AppError{Code: CodeTransport, Message: message, StatusCode: http.StatusBadGateway, Err: err}
}

func Database(message string, err error) *AppError {
	return &AppError{Code: CodeDatabase, Message: message, StatusCode: http.StatusInternalServerError, Err: err}
}

// As extracts an AppError from err. Unknown errors become CodeInternal.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(CodeInternal, "internal error", err)
}
