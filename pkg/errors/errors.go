// Package errors defines the typed error taxonomy for the search service and
// its translation to HTTP status codes at the transport boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMessageExists is returned when a message ID is already indexed.
	ErrMessageExists = errors.New("message already indexed")
	// ErrInvalidFilter is returned for malformed search filters, such as an
	// unparseable date range.
	ErrInvalidFilter = errors.New("invalid search filter")
	// ErrInvalidInput is returned for malformed request payloads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence is returned when the durable message store cannot be
	// read or written.
	ErrPersistence = errors.New("persistence failure")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrInternal is the fallback for unexpected failures.
	ErrInternal = errors.New("internal error")
)

// AppError pairs a sentinel error with a human-readable message and an HTTP
// status code for the boundary layer.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel in an AppError with the given status and message.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with a formatted message.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to an HTTP status code. AppError carries its
// own code; sentinels fall back to a fixed mapping; anything else is a 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrMessageExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
