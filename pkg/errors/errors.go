package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// DataAccess marks a fault of the underlying data collaborator. Always
// retryable; operations that fail this way do not partially apply.
func DataAccess(message string, err error) *AppError {
	return &AppError{
		Code:    "DATA_ACCESS",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// SendFailed marks a message persistence failure. The caller must keep the
// composed content so the user can retry without retyping.
func SendFailed(message string, err error) *AppError {
	return &AppError{
		Code:    "SEND_FAILED",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// SubscriptionFailed marks a push channel that could not be established or
// dropped. History reads and sends still work in this state.
func SubscriptionFailed(message string, err error) *AppError {
	return &AppError{
		Code:    "SUBSCRIPTION_FAILED",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsCanceled distinguishes intentional cancellation (conversation switch,
// teardown) from genuine failure; canceled operations are never surfaced to
// the user.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
