package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeSignalingFailed    ErrorCode = "SIGNALING_FAILED"
	ErrCodeElectionFailed     ErrorCode = "ELECTION_FAILED"
	ErrCodeNotHost            ErrorCode = "NOT_HOST"
	ErrCodeCooldown           ErrorCode = "COOLDOWN"
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
)

// AppError is an error rendered to the local HTTP API with a stable code.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
	}
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewConflictError(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// NewSignalingError reports a failed write or read against the signaling store.
func NewSignalingError(err error, message string) *AppError {
	return WrapError(err, ErrCodeSignalingFailed, message, http.StatusBadGateway)
}

func NewElectionError(err error) *AppError {
	return WrapError(err, ErrCodeElectionFailed, "could not elect new host", http.StatusServiceUnavailable)
}

func NewNotHostError() *AppError {
	return NewAppError(ErrCodeNotHost, "only the host can do this", http.StatusForbidden)
}

func NewCooldownError(message string) *AppError {
	return NewAppError(ErrCodeCooldown, message, http.StatusTooManyRequests)
}

func NewCatalogError(err error) *AppError {
	return WrapError(err, ErrCodeCatalogUnavailable, "video catalog unavailable", http.StatusBadGateway)
}

// IsAppError checks if the error chain holds an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
