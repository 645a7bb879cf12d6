package dto

import (
	"net/http"

	"github.com/erp/tradecore/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	// ErrCodeInvalidAmount is used when a monetary amount cannot be parsed or is out of range
	ErrCodeInvalidAmount = "ERR_INVALID_AMOUNT"
	// ErrCodeInvalidReference covers unknown sequence scopes, document kinds and statuses
	ErrCodeInvalidReference = "ERR_INVALID_REFERENCE"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeOverAllocation is used when an allocation exceeds the unallocated payment amount
	ErrCodeOverAllocation = "ERR_OVER_ALLOCATION"
	// ErrCodeTransitionBlocked is used when unpaid payment stages block a status change
	ErrCodeTransitionBlocked = "ERR_TRANSITION_BLOCKED"
	// ErrCodeRetryExhausted is used when a unique number could not be allocated; the caller may retry later
	ErrCodeRetryExhausted = "ERR_SEQUENCE_RETRY_EXHAUSTED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeInvalidAmount:    http.StatusBadRequest,
	ErrCodeInvalidReference: http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeOverAllocation:    http.StatusUnprocessableEntity,
	ErrCodeTransitionBlocked: http.StatusConflict,
	ErrCodeRetryExhausted:    http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:          ErrCodeNotFound,
	shared.CodeInvalidInput:      ErrCodeInvalidInput,
	shared.CodeInvalidState:      ErrCodeInvalidState,
	shared.CodeInvalidAmount:     ErrCodeInvalidAmount,
	shared.CodeOverAllocation:    ErrCodeOverAllocation,
	shared.CodeRetryExhausted:    ErrCodeRetryExhausted,
	shared.CodeTransitionBlocked: ErrCodeTransitionBlocked,
	"OPTIMISTIC_LOCK_ERROR":      ErrCodeConcurrencyConflict,
	"INVALID_SCOPE":              ErrCodeInvalidReference,
	"INVALID_DOCUMENT":           ErrCodeInvalidReference,
	"INVALID_DOCUMENT_KIND":      ErrCodeInvalidReference,
	"INVALID_DOCUMENT_NUMBER":    ErrCodeInvalidInput,
	"INVALID_STATUS":             ErrCodeInvalidReference,
	"INVALID_SCHEDULE_ITEM":      ErrCodeInvalidInput,
	"INVALID_ACTOR":              ErrCodeInvalidInput,
	"INVALID_TIME":               ErrCodeInvalidInput,
	"INVALID_LABEL":              ErrCodeInvalidInput,
	"INVALID_DESCRIPTION":        ErrCodeInvalidInput,
	"INVALID_BILLABLE_TO":        ErrCodeInvalidInput,
	"INVALID_PAYMENT_NUMBER":     ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
