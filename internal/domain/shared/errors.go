package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by the ledger. Handlers map them to HTTP statuses.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInconsistentBatch   = "INCONSISTENT_BATCH"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeMissingPrerequisite = "MISSING_PREREQUISITE"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, shared.ErrNotFound) against a specific message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInconsistentBatch   = NewDomainError(CodeInconsistentBatch, "Batch entries disagree")
	ErrInsufficientBalance = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrMissingPrerequisite = NewDomainError(CodeMissingPrerequisite, "Required data is missing")
	ErrValidationFailed    = NewDomainError(CodeValidationFailed, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrDuplicateSubmission = NewDomainError(CodeDuplicateSubmission, "Request was already processed")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)

// NotFound names the missing entity and its id.
func NotFound(entity string, id fmt.Stringer) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// InconsistentBatch names the field whose value differs from the first entry.
func InconsistentBatch(field string, expected, got any) *DomainError {
	return NewDomainError(CodeInconsistentBatch,
		fmt.Sprintf("all entries must share the same %s: expected %v, got %v", field, expected, got))
}

// InsufficientBalance names the account that cannot cover the movement.
func InsufficientBalance(accountTitle string, balance, requested fmt.Stringer) *DomainError {
	return NewDomainError(CodeInsufficientBalance,
		fmt.Sprintf("insufficient balance in account %q: available %s, requested %s", accountTitle, balance, requested))
}

// MissingPrerequisite reports data that must exist before an operation can run.
func MissingPrerequisite(format string, args ...any) *DomainError {
	return NewDomainError(CodeMissingPrerequisite, fmt.Sprintf(format, args...))
}

// ValidationFailed reports invalid input.
func ValidationFailed(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidationFailed, fmt.Sprintf(format, args...))
}

// ConcurrencyConflict reports a lost version-guarded update.
func ConcurrencyConflict(entity string, id fmt.Stringer) *DomainError {
	return NewDomainError(CodeConcurrencyConflict,
		fmt.Sprintf("%s %s was modified by another process", entity, id))
}

// InvalidState reports an operation that the entity's status forbids.
func InvalidState(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// CodeOf extracts the domain error code, or "" for non-domain errors.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
