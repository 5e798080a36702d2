package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code.
// This lets callers use errors.Is against the sentinel errors below.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes for the financial core taxonomy
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrDuplicateRequest    = NewDomainError(CodeDuplicateRequest, "Request was already processed")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
)

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a not-found error for the named entity.
// Out-of-scope entities are reported identically to missing ones.
func NewNotFoundError(entity string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", entity))
}

// NewInvalidStateError creates an invalid-state error with a formatted message
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsInvalidState reports whether err is an invalid-state error
func IsInvalidState(err error) bool {
	return hasCode(err, CodeInvalidState)
}

// IsConflict reports whether err is a concurrency conflict or duplicate request
func IsConflict(err error) bool {
	return hasCode(err, CodeConcurrencyConflict) || hasCode(err, CodeDuplicateRequest)
}

func hasCode(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
