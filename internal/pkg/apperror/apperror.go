package apperror

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Code is the stable machine-readable code returned to callers.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeNotOwner           Code = "NOT_OWNER"
	CodeForbidden          Code = "FORBIDDEN"
	CodeAlreadyPending     Code = "ALREADY_PENDING"
	CodeAlreadyProcessed   Code = "ALREADY_PROCESSED"
	CodeMembershipInactive Code = "MEMBERSHIP_NOT_ACTIVE"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodeTransientStore     Code = "TRANSIENT_STORE_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// AppError carries a stable code plus a human readable message.
// Callers decide retry behaviour from the code, never from the message.
type AppError struct {
	Code    Code
	Message string
	Err     error
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

// HTTPStatus maps the code onto a fiber status for the error middleware.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeNotOwner, CodeForbidden:
		return fiber.StatusForbidden
	case CodeAlreadyPending, CodeAlreadyProcessed, CodeMembershipInactive, CodeInvariantViolation:
		return fiber.StatusConflict
	case CodeTransientStore:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the whole operation as-is.
func (e *AppError) Retryable() bool {
	return e.Code == CodeTransientStore
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func NotFound(what string) *AppError {
	return New(CodeNotFound, what+" not found")
}

func NotOwner() *AppError {
	return New(CodeNotOwner, "caller does not own this resource")
}

func AlreadyPending() *AppError {
	return New(CodeAlreadyPending, "a pending cancellation request already exists for this membership")
}

func AlreadyProcessed() *AppError {
	return New(CodeAlreadyProcessed, "request has already been processed")
}

func MembershipNotActive() *AppError {
	return New(CodeMembershipInactive, "membership is not active")
}

// FromStore translates a storage error into the taxonomy. A unique-index
// rejection is an invariant violation and must surface as a conflict, never
// be silently retried with a different row. Context timeouts are transient;
// the caller may retry the whole transaction.
func FromStore(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(CodeInvariantViolation, "write rejected by uniqueness constraint", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Wrap(CodeTransientStore, "store operation timed out", err)
	default:
		return Wrap(CodeInternal, "unexpected store error", err)
	}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
