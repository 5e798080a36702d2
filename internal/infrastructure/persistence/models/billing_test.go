package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
)

func TestInvoiceModel_RoundTrip(t *testing.T) {
	inv, err := billing.NewInvoice(uuid.New(), "INV-202401-00001", uuid.New(),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	createdBy := uuid.New()
	inv.SetCreatedBy(createdBy)
	_, err = inv.AddItem("Consultation", 2, valueobject.NewMoneyUSDFromFloat(75.50))
	require.NoError(t, err)
	require.NoError(t, inv.ApplyDiscount(billing.DiscountTypePercentage, decimal.NewFromInt(10)))

	model := InvoiceModelFromDomain(inv)
	restored := model.ToDomain()

	// The embedded base fields survive the mapping through the flat model
	assert.Equal(t, inv.ID, restored.ID)
	assert.Equal(t, inv.OrganizationID, restored.OrganizationID)
	assert.Equal(t, inv.Version, restored.Version)
	require.NotNil(t, restored.CreatedBy)
	assert.Equal(t, createdBy, *restored.CreatedBy)

	assert.Equal(t, inv.InvoiceNumber, restored.InvoiceNumber)
	assert.Equal(t, inv.Status, restored.Status)
	assert.True(t, restored.TotalAmount.Equal(decimal.NewFromInt(151)))
	assert.True(t, restored.FinalAmount.Equal(decimal.NewFromFloat(135.90)))
	require.Len(t, restored.Items, 1)
	assert.Equal(t, inv.Items[0].ID, restored.Items[0].ID)
	assert.True(t, restored.Items[0].TotalPrice.Equal(decimal.NewFromInt(151)))
}

func TestPaymentPlanModel_RoundTrip(t *testing.T) {
	plan, err := billing.NewPaymentPlan(uuid.New(), uuid.New(), uuid.New(),
		billing.FrequencyBiweekly, 3, valueobject.NewMoneyUSDFromFloat(50),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	_, err = plan.MarkInstallmentPaid(plan.Installments[0].ID)
	require.NoError(t, err)

	model := PaymentPlanModelFromDomain(plan)
	restored := model.ToDomain()

	assert.Equal(t, plan.ID, restored.ID)
	assert.Equal(t, plan.Status, restored.Status)
	require.Len(t, restored.Installments, 3)
	assert.True(t, restored.Installments[0].IsPaid)
	require.NotNil(t, restored.Installments[0].PaidAt)
	assert.False(t, restored.Installments[1].IsPaid)
	assert.Equal(t, plan.Installments[2].DueDate, restored.Installments[2].DueDate)
}
