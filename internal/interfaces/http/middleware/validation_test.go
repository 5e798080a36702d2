package middleware

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/backend/internal/interfaces/http/dto"
)

type validationFixture struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,oneof=USD EUR"`
	Notes    string  `json:"notes" validate:"max=5"`
}

func TestFormatValidationErrors_FieldDetails(t *testing.T) {
	v := validator.New()

	err := v.Struct(validationFixture{Amount: 0, Currency: "GBP", Notes: "too long"})
	require.Error(t, err)

	resp := FormatValidationErrors(err, "req-42")

	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 3)

	messages := map[string]string{}
	for _, d := range resp.Error.Details {
		messages[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", messages["Amount"])
	assert.Equal(t, "Must be one of: USD EUR", messages["Currency"])
	assert.Equal(t, "Must be at most 5 characters", messages["Notes"])
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req-43")

	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}
