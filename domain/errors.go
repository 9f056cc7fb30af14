package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeLockConflict      ErrorCode = "LOCK_CONFLICT"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error. Meta carries machine-readable
// details (field name, current state, lock holder) for the transport layer.
type Error struct {
	Code    ErrorCode
	Message string
	Meta    map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports a field-level input problem.
func NewValidationError(field, message string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: message,
		Meta:    map[string]string{"field": field},
	}
}

// NewInvalidTransition reports an action that is not legal in the current status.
func NewInvalidTransition(current OrderStatus, attempted string) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s order in status %s", attempted, current),
		Meta: map[string]string{
			"current":   string(current),
			"attempted": attempted,
		},
	}
}

// NewLockConflict reports that another auditor holds the order.
func NewLockConflict(holder string) *Error {
	return &Error{
		Code:    ErrCodeLockConflict,
		Message: fmt.Sprintf("order is locked by %s", holder),
		Meta:    map[string]string{"holder": holder},
	}
}

// NewForbidden reports a caller acting on an order it does not hold.
func NewForbidden(caller, holder string) *Error {
	return &Error{
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("%s does not hold the audit lock", caller),
		Meta:    map[string]string{"caller": caller, "holder": holder},
	}
}

// Common domain errors.
var (
	ErrOrderNotFound       = NewError(ErrCodeNotFound, "order not found")
	ErrProductNotFound     = NewError(ErrCodeNotFound, "product not found")
	ErrStoreNotFound       = NewError(ErrCodeNotFound, "store not found")
	ErrItemNotFound        = NewError(ErrCodeNotFound, "item not found in order")
	ErrVersionConflict     = NewError(ErrCodeConflict, "order was modified concurrently")
	ErrDuplicateSubmission = NewError(ErrCodeConflict, "store already has an order for this day")
	ErrInvalidPayload      = NewError(ErrCodeValidation, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// MetaOf returns the metadata attached to a domain error, if any.
func MetaOf(err error) map[string]string {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Meta
	}
	return nil
}
