package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"VALIDATION_ERROR", http.StatusBadRequest},
		{"NOT_FOUND", http.StatusNotFound},
		{"INSUFFICIENT_STOCK", http.StatusUnprocessableEntity},
		{"INVALID_OPERATION", http.StatusUnprocessableEntity},
		{"NEGATIVE_INVENTORY", http.StatusUnprocessableEntity},
		{"INVALID_STATE_TRANSITION", http.StatusConflict},
		{"DUPLICATE_CODE", http.StatusConflict},
		{"CONCURRENCY_CONFLICT", http.StatusConflict},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeInternal, http.StatusInternalServerError},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page       int
		pageSize   int
		totalPages int
	}{
		{"exact pages", 40, 1, 20, 2},
		{"partial last page", 41, 3, 20, 3},
		{"empty", 0, 1, 20, 0},
		{"unpaged", 7, 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]int{}, tt.total, tt.page, tt.pageSize)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.totalPages, resp.Meta.TotalPages)
			assert.GreaterOrEqual(t, resp.Meta.Page, 1)
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewValidationErrorResponse("invalid request", "req-1", []FieldError{
		{Field: "quantity", Message: "must be greater than zero"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	fields := errInfo["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "quantity", fields[0].(map[string]any)["field"])
}
