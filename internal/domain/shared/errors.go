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
// This lets wrapped errors carrying a different message still match the sentinels below.
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

// Error codes shared across bounded contexts
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeOverAllocation    = "OVER_ALLOCATION"
	CodeRetryExhausted    = "SEQUENCE_RETRY_EXHAUSTED"
	CodeTransitionBlocked = "TRANSITION_BLOCKED"
)

// Common domain errors
var (
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState      = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidAmount     = NewDomainError(CodeInvalidAmount, "Invalid monetary amount")
	ErrOverAllocation    = NewDomainError(CodeOverAllocation, "Allocation exceeds unallocated payment amount")
	ErrRetryExhausted    = NewDomainError(CodeRetryExhausted, "Could not allocate a unique number, please retry later")
	ErrTransitionBlocked = NewDomainError(CodeTransitionBlocked, "Status change blocked by unpaid payment stages")
)
