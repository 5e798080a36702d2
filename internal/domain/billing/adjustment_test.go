package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
)

func TestAdjustmentType_IsValid(t *testing.T) {
	tests := []struct {
		adjType  AdjustmentType
		expected bool
	}{
		{AdjustmentTypeWriteOff, true},
		{AdjustmentTypeDiscount, true},
		{AdjustmentTypeCorrection, true},
		{AdjustmentTypeFee, true},
		{AdjustmentType("REBATE"), false},
		{AdjustmentType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.adjType), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.adjType.IsValid())
		})
	}
}

func TestNewInvoiceAdjustment(t *testing.T) {
	orgID := uuid.New()
	invoiceID := uuid.New()
	userID := uuid.New()
	applied := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	adj, err := NewInvoiceAdjustment(orgID, invoiceID, AdjustmentTypeWriteOff,
		valueobject.NewMoneyUSDFromFloat(25.00), "uncollectible balance", applied, userID)

	require.NoError(t, err)
	assert.Equal(t, orgID, adj.OrganizationID)
	assert.Equal(t, invoiceID, adj.InvoiceID)
	assert.Equal(t, AdjustmentTypeWriteOff, adj.Type)
	assert.True(t, adj.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "uncollectible balance", adj.Reason)
	assert.Equal(t, applied, adj.AppliedDate)
	assert.Equal(t, userID, adj.CreatedByID)
	assert.Len(t, adj.GetDomainEvents(), 1)
}

func TestNewInvoiceAdjustment_DefaultsAppliedDate(t *testing.T) {
	adj, err := NewInvoiceAdjustment(uuid.New(), uuid.New(), AdjustmentTypeDiscount,
		valueobject.NewMoneyUSDFromFloat(10), "loyalty discount", time.Time{}, uuid.New())

	require.NoError(t, err)
	assert.False(t, adj.AppliedDate.IsZero())
}

func TestNewInvoiceAdjustment_NegativeCorrection(t *testing.T) {
	adj, err := NewInvoiceAdjustment(uuid.New(), uuid.New(), AdjustmentTypeCorrection,
		valueobject.NewMoneyUSDFromFloat(-15.50), "posting error reversal", time.Time{}, uuid.New())

	require.NoError(t, err)
	assert.True(t, adj.Amount.Equal(decimal.NewFromFloat(-15.50)))
}

func TestNewInvoiceAdjustment_Validation(t *testing.T) {
	tests := []struct {
		name        string
		invoiceID   uuid.UUID
		adjType     AdjustmentType
		amount      float64
		reason      string
		createdByID uuid.UUID
	}{
		{"nil invoice", uuid.Nil, AdjustmentTypeWriteOff, 10, "reason", uuid.New()},
		{"invalid type", uuid.New(), AdjustmentType("REBATE"), 10, "reason", uuid.New()},
		{"zero amount", uuid.New(), AdjustmentTypeWriteOff, 0, "reason", uuid.New()},
		{"negative write-off", uuid.New(), AdjustmentTypeWriteOff, -10, "reason", uuid.New()},
		{"negative discount", uuid.New(), AdjustmentTypeDiscount, -10, "reason", uuid.New()},
		{"negative fee", uuid.New(), AdjustmentTypeFee, -10, "reason", uuid.New()},
		{"empty reason", uuid.New(), AdjustmentTypeWriteOff, 10, "", uuid.New()},
		{"reason too long", uuid.New(), AdjustmentTypeWriteOff, 10, strings.Repeat("x", 501), uuid.New()},
		{"nil user", uuid.New(), AdjustmentTypeWriteOff, 10, "reason", uuid.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInvoiceAdjustment(uuid.New(), tt.invoiceID, tt.adjType,
				valueobject.NewMoneyUSDFromFloat(tt.amount), tt.reason, time.Time{}, tt.createdByID)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestInvoiceAdjustment_BalanceEffect(t *testing.T) {
	tests := []struct {
		name     string
		adjType  AdjustmentType
		amount   float64
		expected float64
	}{
		{"write-off reduces balance", AdjustmentTypeWriteOff, 30, 30},
		{"discount reduces balance", AdjustmentTypeDiscount, 12.50, 12.50},
		{"fee increases balance", AdjustmentTypeFee, 5, -5},
		{"negative correction increases balance", AdjustmentTypeCorrection, -20, -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj, err := NewInvoiceAdjustment(uuid.New(), uuid.New(), tt.adjType,
				valueobject.NewMoneyUSDFromFloat(tt.amount), "reason", time.Time{}, uuid.New())
			require.NoError(t, err)
			assert.True(t, adj.BalanceEffect().Equal(decimal.NewFromFloat(tt.expected)))
		})
	}
}
