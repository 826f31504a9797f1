package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
}

type orderRequest struct {
	Reference string        `json:"reference" binding:"required,max=8"`
	Lines     []lineRequest `json:"lines" binding:"required,min=1,dive"`
}

func validationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req orderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestSetupValidator_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		SetupValidator()
		SetupValidator()
	})
}

func TestValidation(t *testing.T) {
	router := validationRouter()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{"valid", `{"reference":"R1","lines":[{"quantity":"2.5"}]}`, http.StatusOK, nil},
		{"numeric quantity", `{"reference":"R1","lines":[{"quantity":3}]}`, http.StatusOK, nil},
		{"zero quantity", `{"reference":"R1","lines":[{"quantity":"0"}]}`, http.StatusBadRequest, []string{"lines[0].quantity"}},
		{"negative quantity", `{"reference":"R1","lines":[{"quantity":"1"},{"quantity":"-4"}]}`, http.StatusBadRequest, []string{"lines[1].quantity"}},
		{"missing lines and long reference", `{"reference":"REFERENCE-TOO-LONG"}`, http.StatusBadRequest, []string{"reference", "lines"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(RequestIDHeader, "val-1")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantFields == nil {
				return
			}

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Equal(t, "val-1", resp.Error.RequestID)

			var got []string
			for _, f := range resp.Error.Fields {
				got = append(got, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.ElementsMatch(t, tt.wantFields, got)
		})
	}
}

func TestDecimalGT0Message(t *testing.T) {
	router := validationRouter()

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"reference":"R1","lines":[{"quantity":"0"}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "Must be a number greater than zero")
}
