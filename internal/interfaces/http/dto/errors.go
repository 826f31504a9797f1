package dto

import (
	"net/http"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Domain error codes pass through to clients unchanged
const (
	ErrCodeValidation             = shared.CodeValidation
	ErrCodeNotFound               = shared.CodeNotFound
	ErrCodeInsufficientStock      = shared.CodeInsufficientStock
	ErrCodeInvalidStateTransition = shared.CodeInvalidStateTransition
	ErrCodeInvalidOperation       = shared.CodeInvalidOperation
	ErrCodeNegativeInventory      = shared.CodeNegativeInventory
	ErrCodeDuplicateCode          = shared.CodeDuplicateCode
	ErrCodeConcurrencyConflict    = shared.CodeConcurrencyConflict
)

// Transport error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the body is not valid JSON
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
	// ErrCodeServiceUnavailable is used when a dependency is down
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	// Business rule violations -> 422 Unprocessable Entity
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeInvalidOperation:  http.StatusUnprocessableEntity,
	ErrCodeNegativeInventory: http.StatusUnprocessableEntity,

	// State and identity conflicts -> 409 Conflict
	ErrCodeInvalidStateTransition: http.StatusConflict,
	ErrCodeDuplicateCode:          http.StatusConflict,
	ErrCodeConcurrencyConflict:    http.StatusConflict,

	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:      http.StatusNotFound,
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
