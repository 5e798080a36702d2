package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewNotFoundError("invoice")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, errors.New("invoice not found")))
	assert.Equal(t, "invoice not found", err.Error())
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"validation error", NewValidationError("amount must be positive"), IsValidation, true},
		{"not found error", NewNotFoundError("payment"), IsNotFound, true},
		{"invalid state error", NewInvalidStateError("invoice is %s", "CANCELLED"), IsInvalidState, true},
		{"concurrency conflict", ErrConcurrencyConflict, IsConflict, true},
		{"duplicate request", ErrDuplicateRequest, IsConflict, true},
		{"validation is not conflict", ErrValidation, IsConflict, false},
		{"plain error is nothing", errors.New("boom"), IsValidation, false},
		{"nil error", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestNewValidationError_Formats(t *testing.T) {
	err := NewValidationError("item %d of %d is invalid", 2, 5)
	assert.Equal(t, "item 2 of 5 is invalid", err.Message)
	assert.Equal(t, CodeValidation, err.Code)
}
