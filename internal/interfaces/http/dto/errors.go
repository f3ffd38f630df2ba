package dto

import (
	"net/http"

	"github.com/campus/backend/internal/domain/shared"
)

// Error code constants returned by the API.
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeInvalidID  = "ERR_INVALID_ID"
	ErrCodeTooLarge   = "ERR_REQUEST_TOO_LARGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeDuplicateSubmission = "ERR_DUPLICATE_SUBMISSION"

	// Business rule errors
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"
	ErrCodeInconsistentBatch   = "ERR_INCONSISTENT_BATCH"
	ErrCodeMissingPrerequisite = "ERR_MISSING_PREREQUISITE"
	ErrCodeDomainValidation    = "ERR_VALIDATION_FAILED"
	ErrCodeServiceUnavailable  = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Malformed input -> 400
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeInvalidID:  http.StatusBadRequest,
	ErrCodeTooLarge:   http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateSubmission: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
	ErrCodeInconsistentBatch:   http.StatusUnprocessableEntity,
	ErrCodeMissingPrerequisite: http.StatusUnprocessableEntity,
	ErrCodeDomainValidation:    http.StatusUnprocessableEntity,

	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps shared.DomainError codes to API codes
var domainErrorCodes = map[string]string{
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeInconsistentBatch:   ErrCodeInconsistentBatch,
	shared.CodeInsufficientBalance: ErrCodeInsufficientBalance,
	shared.CodeMissingPrerequisite: ErrCodeMissingPrerequisite,
	shared.CodeValidationFailed:    ErrCodeDomainValidation,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeDuplicateSubmission: ErrCodeDuplicateSubmission,
	shared.CodeUnauthorized:        ErrCodeUnauthorized,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
