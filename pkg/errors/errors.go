package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedCollection   = errors.New("malformed document collection")
	ErrCollectionUnavailable = errors.New("document collection unavailable")
	ErrInvalidInput          = errors.New("invalid input")
	ErrIndexNotReady         = errors.New("index not ready")
	ErrTimeout               = errors.New("operation timed out")
	ErrInternal              = errors.New("internal error")
)

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

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Wrap annotates err with a sentinel so callers can match on either.
func Wrap(sentinel error, err error, message string) error {
	return fmt.Errorf("%w: %s: %w", sentinel, message, err)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrCollectionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
