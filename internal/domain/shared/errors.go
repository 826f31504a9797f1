package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context. The HTTP layer maps them to
// status codes, so they are part of the public contract.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeInvalidOperation       = "INVALID_OPERATION"
	CodeNegativeInventory      = "NEGATIVE_INVENTORY"
	CodeDuplicateCode          = "DUPLICATE_CODE"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so a specific error such as
// NewInsufficientStockError(...) matches the ErrInsufficientStock sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error with an extra detail attached
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing entity of the given kind
func NewNotFoundError(kind string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", kind, id)).
		WithDetail("kind", kind)
}

// Common domain errors
var (
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Transition not allowed in current state")
	ErrInvalidOperation       = NewDomainError(CodeInvalidOperation, "Operation not allowed")
	ErrNegativeInventory      = NewDomainError(CodeNegativeInventory, "Inventory quantity cannot become negative")
	ErrDuplicateCode          = NewDomainError(CodeDuplicateCode, "Code already exists")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource is locked by another operation")
)
