package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match sentinel errors with errors.Is even when the
// message has been customized through one of the New* constructors.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the financial core
const (
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnbalancedEntry    = "UNBALANCED_ENTRY"
	CodeDuplicateKey       = "DUPLICATE_KEY"
	CodeInvalidState       = "INVALID_STATE"
	CodeAllocationMismatch = "ALLOCATION_MISMATCH"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict           = NewDomainError(CodeConflict, "Operation conflicts with current resource state")
	ErrValidation         = NewDomainError(CodeValidation, "Invalid input provided")
	ErrUnbalancedEntry    = NewDomainError(CodeUnbalancedEntry, "Journal entry debits and credits do not balance")
	ErrDuplicateKey       = NewDomainError(CodeDuplicateKey, "Uniqueness constraint violated")
	ErrInvalidState       = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrAllocationMismatch = NewDomainError(CodeAllocationMismatch, "Allocations do not sum to the payment amount")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewInvalidStateError creates an invalid-state error with a specific message
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewConflictError creates a conflict error with a specific message
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// IsCode reports whether err carries the given domain error code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
