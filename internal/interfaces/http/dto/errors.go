package dto

import "net/http"

// Error codes have the format ERR_<CATEGORY>[_<DESCRIPTION>].
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when query parameters fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeNotFound is used for unknown classes, objects and datasets
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeInvalidState is used for datasets with a dirty migration
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeAmbiguous is used for ambiguous schema or instance data
	ErrCodeAmbiguous = "ERR_AMBIGUOUS"
	// ErrCodeInconsistent is used for inconsistent schema definitions
	ErrCodeInconsistent = "ERR_INCONSISTENT"
	// ErrCodeUnsupported is used for unsupported versions and backends
	ErrCodeUnsupported = "ERR_UNSUPPORTED"
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Codes missing
// here answer 500.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps shared.DomainError codes to API error codes.
var domainErrorCodes = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,
	"AMBIGUOUS":      ErrCodeAmbiguous,
	"INCONSISTENT":   ErrCodeInconsistent,
	"UNSUPPORTED":    ErrCodeUnsupported,
	"ALREADY_EXISTS": ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to its API error code.
// Unknown codes are returned unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
