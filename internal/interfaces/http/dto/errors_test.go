package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"validation", ErrCodeValidation, http.StatusBadRequest},
		{"not found", ErrCodeNotFound, http.StatusNotFound},
		{"invalid state", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"conflict", ErrCodeConflict, http.StatusConflict},
		{"concurrency conflict", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"duplicate request", ErrCodeDuplicateRequest, http.StatusConflict},
		{"unauthorized", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrCodeForbidden, http.StatusForbidden},
		{"token expired", ErrCodeTokenExpired, http.StatusUnauthorized},
		{"bad request", ErrCodeBadRequest, http.StatusBadRequest},
		{"internal", ErrCodeInternal, http.StatusInternalServerError},
		{"unknown code falls back to 500", "ERR_SOMETHING_ELSE", http.StatusInternalServerError},
		{"empty code falls back to 500", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"validation", "VALIDATION_ERROR", ErrCodeValidation},
		{"not found", "NOT_FOUND", ErrCodeNotFound},
		{"invalid state", "INVALID_STATE", ErrCodeInvalidState},
		{"concurrency conflict", "CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"duplicate request", "DUPLICATE_REQUEST", ErrCodeDuplicateRequest},
		{"unauthorized maps to forbidden", "UNAUTHORIZED", ErrCodeForbidden},
		{"already transport format passes through", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown passes through", "SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewSuccessResponseWithMeta_ExactDivision(t *testing.T) {
	resp := NewSuccessResponseWithMeta(nil, 40, 1, 20)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrCodeNotFound, "invoice not found")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "invoice not found", resp.Error.Message)
	assert.Empty(t, resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "amount", Message: "must be positive"}}
	resp := NewValidationErrorResponse("validation failed", "req-123", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}
