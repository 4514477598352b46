package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels shared by every layer. Repositories return them bare and
// services wrap them in an AppError carrying a user-facing message.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrDuplicate     = errors.New("duplicate submission")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidStatus = errors.New("invalid status")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternal      = errors.New("internal error")
	ErrUnavailable   = errors.New("service unavailable")
)

// Kind describes how a sentinel surfaces over HTTP.
type Kind struct {
	Code   string
	Status int
	// Message is shown when nothing more specific is known. Empty means the
	// error text itself is safe to show.
	Message string
}

var internalKind = Kind{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Message: "an internal error occurred"}

// kinds is checked in order; the first sentinel in the chain wins.
var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrNotFound, Kind{"NOT_FOUND", http.StatusNotFound, "resource not found"}},
	{ErrAlreadyExists, Kind{"ALREADY_EXISTS", http.StatusConflict, "resource already exists"}},
	{ErrDuplicate, Kind{"DUPLICATE", http.StatusBadRequest, "duplicate submission"}},
	{ErrInvalidStatus, Kind{"INVALID_STATUS", http.StatusBadRequest, ""}},
	{ErrInvalidInput, Kind{"INVALID_INPUT", http.StatusBadRequest, ""}},
	{ErrUnauthorized, Kind{"UNAUTHORIZED", http.StatusUnauthorized, "authentication required"}},
	{ErrForbidden, Kind{"FORBIDDEN", http.StatusForbidden, "access denied"}},
	{ErrUnavailable, Kind{"SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service temporarily unavailable"}},
}

// Classify maps err onto the first known sentinel it wraps. Anything else
// is an internal error.
func Classify(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return internalKind
}

// AppError is an error with a stable code, a client-safe message and the
// HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(sentinel error, message string) *AppError {
	k := Classify(sentinel)
	return &AppError{Code: k.Code, Message: message, Status: k.Status, Err: sentinel}
}

// NotFound reports a missing resource (404).
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// AlreadyExists reports a unique attribute clash such as an email (409).
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError(ErrAlreadyExists, fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

// Duplicate reports a second submission of something allowed once (400).
func Duplicate(message string) *AppError {
	return newAppError(ErrDuplicate, message)
}

// InvalidInput reports a bad request (400).
func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message)
}

// InvalidStatus reports a transition to an unknown status (400).
func InvalidStatus(status string, allowed ...string) *AppError {
	msg := fmt.Sprintf("invalid status %q", status)
	if len(allowed) > 0 {
		msg += fmt.Sprintf(", must be one of %v", allowed)
	}
	return newAppError(ErrInvalidStatus, msg)
}

// Unauthorized reports missing or bad credentials (401).
func Unauthorized(message string) *AppError {
	return newAppError(ErrUnauthorized, message)
}

// Forbidden reports an authenticated caller lacking rights (403).
func Forbidden(message string) *AppError {
	return newAppError(ErrForbidden, message)
}

// Internal hides cause behind a generic 500 message.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    internalKind.Code,
		Message: internalKind.Message,
		Status:  internalKind.Status,
		Err:     cause,
	}
}

// Unavailable reports an upstream dependency refusing work (503). The
// result always matches ErrUnavailable and also wraps cause when given.
func Unavailable(message string, cause error) *AppError {
	e := newAppError(ErrUnavailable, message)
	if cause != nil && !errors.Is(cause, ErrUnavailable) {
		e.Err = fmt.Errorf("%w: %w", ErrUnavailable, cause)
	} else if cause != nil {
		e.Err = cause
	}
	return e
}

// Wrap adds context to err.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the status for err, preferring an AppError's own.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return Classify(err).Status
}
