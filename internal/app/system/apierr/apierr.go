// Package apierr defines the typed errors handlers return to API clients.
// Each error carries a stable machine-readable code, a human message, and
// the HTTP status it maps to.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes written in the "error" field of JSON error bodies.
const (
	CodeBadRequest          = "bad_request"
	CodeValidation          = "validation_failed"
	CodeDuplicate           = "duplicate"
	CodeLocationUnavailable = "location_unavailable"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeTooManyRequests     = "too_many_requests"
	CodeInternal            = "internal_error"
)

// Error is an API-facing error.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail returns a copy of e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// New builds an Error with an explicit code and status.
func New(code, message string, status int, err error) *Error {
	return &Error{Code: code, Message: message, Status: status, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(CodeBadRequest, message, http.StatusBadRequest, err)
}

// Validation reports per-field validation failures.
func Validation(fields map[string]string) *Error {
	e := New(CodeValidation, "validation failed", http.StatusBadRequest, nil)
	if len(fields) > 0 {
		e.Details = map[string]any{"fields": fields}
	}
	return e
}

// Duplicate reports a uniqueness violation on field (email, plate, cpf).
func Duplicate(field string, err error) *Error {
	e := New(CodeDuplicate, field+" already registered", http.StatusBadRequest, err)
	e.Details = map[string]any{"field": field}
	return e
}

// LocationUnavailable is returned when a driver asks for nearby work
// without a stored location.
func LocationUnavailable() *Error {
	return New(CodeLocationUnavailable, "driver location unavailable; update your location first", http.StatusBadRequest, nil)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return New(CodeForbidden, message, http.StatusForbidden, nil)
}

func NotFound(resource string) *Error {
	return New(CodeNotFound, resource+" not found", http.StatusNotFound, nil)
}

func Conflict(message string, err error) *Error {
	return New(CodeConflict, message, http.StatusConflict, err)
}

func TooManyRequests(message string) *Error {
	return New(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

// Internal wraps an unexpected failure. The message shown to clients is
// always generic.
func Internal(err error) *Error {
	return New(CodeInternal, "internal server error", http.StatusInternalServerError, err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// From returns err as an *Error, wrapping anything unrecognized as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
