package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used to classify failures across layers.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Fallback rendering of errors that carry no classification.
const (
	CodeInternal    = "INTERNAL_ERROR"
	MessageInternal = "an internal error occurred"
)

// class describes how one sentinel renders. An empty public message means
// the error text itself is safe to show.
type class struct {
	sentinel error
	code     string
	status   int
	public   string
}

var classes = []class{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrConflict, "CONFLICT", http.StatusConflict, "resource conflict"},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden, "forbidden"},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "unauthorized"},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable"},
}

func classOf(sentinel error) class {
	for _, c := range classes {
		if c.sentinel == sentinel {
			return c
		}
	}
	panic(fmt.Sprintf("errors: unclassified sentinel %v", sentinel))
}

// AppError is a classified error carrying the HTTP status it renders as.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, message string) *AppError {
	c := classOf(sentinel)
	return &AppError{Code: c.code, Message: message, Status: c.status, Err: sentinel}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return newError(ErrForbidden, message)
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return newError(ErrConflict, message)
}

// ConflictWithStatus creates a conflict error that renders with a caller-chosen
// code and status. Callers still match it with errors.Is(err, ErrConflict).
func ConflictWithStatus(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: ErrConflict}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return newError(ErrServiceUnavail, message)
}

// Classify returns the code, status and client-safe message for err. An
// AppError anywhere in the chain wins; bare sentinels get a generic message;
// anything else is an opaque internal error.
func Classify(err error) (code string, status int, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Status, appErr.Message
	}
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			if c.public == "" {
				return c.code, c.status, err.Error()
			}
			return c.code, c.status, c.public
		}
	}
	return CodeInternal, http.StatusInternalServerError, MessageInternal
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	_, status, _ := Classify(err)
	return status
}
