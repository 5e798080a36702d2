package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/backend/internal/domain/billing"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Invoice numbers are unique per organization; the composite unique index
// idx_invoice_org_number lives in the migrations because the organization
// column belongs to the embedded base model.
type InvoiceModel struct {
	OrgAggregateModel
	InvoiceNumber   string                 `gorm:"type:varchar(50);not null;index"`
	PatientID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	Items           []InvoiceItemModel     `gorm:"foreignKey:InvoiceID;references:ID"`
	TotalAmount     decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	DiscountType    billing.DiscountType   `gorm:"type:varchar(20);not null;default:'NONE'"`
	DiscountValue   decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	FinalAmount     decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	PaidAmount      decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	AdjustmentTotal decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Status          billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	IssuedDate      time.Time              `gorm:"not null;index"`
	DueDate         *time.Time             `gorm:"index"`
	Notes           string                 `gorm:"type:text"`
	SentAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	items := make([]billing.InvoiceItem, 0, len(m.Items))
	for i := range m.Items {
		items = append(items, *m.Items[i].ToDomain())
	}

	inv := &billing.Invoice{
		InvoiceNumber:   m.InvoiceNumber,
		PatientID:       m.PatientID,
		Items:           items,
		TotalAmount:     m.TotalAmount,
		DiscountType:    m.DiscountType,
		DiscountValue:   m.DiscountValue,
		FinalAmount:     m.FinalAmount,
		PaidAmount:      m.PaidAmount,
		AdjustmentTotal: m.AdjustmentTotal,
		Status:          m.Status,
		IssuedDate:      m.IssuedDate,
		DueDate:         m.DueDate,
		Notes:           m.Notes,
		SentAt:          m.SentAt,
		CancelledAt:     m.CancelledAt,
		CancelReason:    m.CancelReason,
	}
	m.PopulateOrgAggregateRoot(&inv.OrgAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainOrgAggregateRoot(inv.OrgAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.PatientID = inv.PatientID
	m.TotalAmount = inv.TotalAmount
	m.DiscountType = inv.DiscountType
	m.DiscountValue = inv.DiscountValue
	m.FinalAmount = inv.FinalAmount
	m.PaidAmount = inv.PaidAmount
	m.AdjustmentTotal = inv.AdjustmentTotal
	m.Status = inv.Status
	m.IssuedDate = inv.IssuedDate
	m.DueDate = inv.DueDate
	m.Notes = inv.Notes
	m.SentAt = inv.SentAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason

	m.Items = make([]InvoiceItemModel, 0, len(inv.Items))
	for i := range inv.Items {
		item := InvoiceItemModel{}
		item.FromDomain(&inv.Items[i])
		m.Items = append(m.Items, item)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for an invoice line item.
type InvoiceItemModel struct {
	BaseModel
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem.
func (m *InvoiceItemModel) ToDomain() *billing.InvoiceItem {
	return &billing.InvoiceItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TotalPrice:  m.TotalPrice,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain InvoiceItem.
func (m *InvoiceItemModel) FromDomain(item *billing.InvoiceItem) {
	m.ID = item.ID
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
	m.InvoiceID = item.InvoiceID
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.TotalPrice = item.TotalPrice
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	OrgAggregateModel
	InvoiceID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	InstallmentID   *uuid.UUID            `gorm:"type:uuid;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaymentDate     time.Time             `gorm:"not null;index"`
	PaymentMethod   billing.PaymentMethod `gorm:"type:varchar(20);not null;index"`
	ReferenceNumber string                `gorm:"type:varchar(100)"`
	IsRefunded      bool                  `gorm:"not null;default:false;index"`
	RefundReason    string                `gorm:"type:varchar(500)"`
	RefundedAt      *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		InvoiceID:       m.InvoiceID,
		InstallmentID:   m.InstallmentID,
		Amount:          m.Amount,
		PaymentDate:     m.PaymentDate,
		PaymentMethod:   m.PaymentMethod,
		ReferenceNumber: m.ReferenceNumber,
		IsRefunded:      m.IsRefunded,
		RefundReason:    m.RefundReason,
		RefundedAt:      m.RefundedAt,
	}
	m.PopulateOrgAggregateRoot(&p.OrgAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainOrgAggregateRoot(p.OrgAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.InstallmentID = p.InstallmentID
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.PaymentMethod = p.PaymentMethod
	m.ReferenceNumber = p.ReferenceNumber
	m.IsRefunded = p.IsRefunded
	m.RefundReason = p.RefundReason
	m.RefundedAt = p.RefundedAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PaymentPlanModel is the persistence model for the PaymentPlan aggregate root.
type PaymentPlanModel struct {
	OrgAggregateModel
	InvoiceID            uuid.UUID             `gorm:"type:uuid;not null;index"`
	PatientID            uuid.UUID             `gorm:"type:uuid;not null;index"`
	Frequency            billing.PlanFrequency `gorm:"type:varchar(20);not null"`
	NumberOfInstallments int                   `gorm:"not null"`
	InstallmentAmount    decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	StartDate            time.Time             `gorm:"not null"`
	Status               billing.PlanStatus    `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	Installments         []InstallmentModel    `gorm:"foreignKey:PlanID;references:ID"`
	CompletedAt          *time.Time
}

// TableName returns the table name for GORM
func (PaymentPlanModel) TableName() string {
	return "payment_plans"
}

// ToDomain converts the persistence model to a domain PaymentPlan entity.
func (m *PaymentPlanModel) ToDomain() *billing.PaymentPlan {
	installments := make([]billing.Installment, 0, len(m.Installments))
	for i := range m.Installments {
		installments = append(installments, *m.Installments[i].ToDomain())
	}

	plan := &billing.PaymentPlan{
		InvoiceID:            m.InvoiceID,
		PatientID:            m.PatientID,
		Frequency:            m.Frequency,
		NumberOfInstallments: m.NumberOfInstallments,
		InstallmentAmount:    m.InstallmentAmount,
		StartDate:            m.StartDate,
		Status:               m.Status,
		Installments:         installments,
		CompletedAt:          m.CompletedAt,
	}
	m.PopulateOrgAggregateRoot(&plan.OrgAggregateRoot)
	return plan
}

// FromDomain populates the persistence model from a domain PaymentPlan entity.
func (m *PaymentPlanModel) FromDomain(plan *billing.PaymentPlan) {
	m.FromDomainOrgAggregateRoot(plan.OrgAggregateRoot)
	m.InvoiceID = plan.InvoiceID
	m.PatientID = plan.PatientID
	m.Frequency = plan.Frequency
	m.NumberOfInstallments = plan.NumberOfInstallments
	m.InstallmentAmount = plan.InstallmentAmount
	m.StartDate = plan.StartDate
	m.Status = plan.Status
	m.CompletedAt = plan.CompletedAt

	m.Installments = make([]InstallmentModel, 0, len(plan.Installments))
	for i := range plan.Installments {
		inst := InstallmentModel{}
		inst.FromDomain(&plan.Installments[i])
		m.Installments = append(m.Installments, inst)
	}
}

// PaymentPlanModelFromDomain creates a new persistence model from a domain PaymentPlan.
func PaymentPlanModelFromDomain(plan *billing.PaymentPlan) *PaymentPlanModel {
	m := &PaymentPlanModel{}
	m.FromDomain(plan)
	return m
}

// InstallmentModel is the persistence model for a payment plan installment.
type InstallmentModel struct {
	BaseModel
	PlanID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_installment_plan_number,priority:1"`
	Number  int             `gorm:"not null;uniqueIndex:idx_installment_plan_number,priority:2"`
	DueDate time.Time       `gorm:"not null;index"`
	Amount  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsPaid  bool            `gorm:"not null;default:false"`
	PaidAt  *time.Time
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment.
func (m *InstallmentModel) ToDomain() *billing.Installment {
	return &billing.Installment{
		ID:        m.ID,
		PlanID:    m.PlanID,
		Number:    m.Number,
		DueDate:   m.DueDate,
		Amount:    m.Amount,
		IsPaid:    m.IsPaid,
		PaidAt:    m.PaidAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Installment.
func (m *InstallmentModel) FromDomain(inst *billing.Installment) {
	m.ID = inst.ID
	m.CreatedAt = inst.CreatedAt
	m.UpdatedAt = inst.UpdatedAt
	m.PlanID = inst.PlanID
	m.Number = inst.Number
	m.DueDate = inst.DueDate
	m.Amount = inst.Amount
	m.IsPaid = inst.IsPaid
	m.PaidAt = inst.PaidAt
}

// InvoiceAdjustmentModel is the persistence model for the InvoiceAdjustment
// aggregate root. Adjustments are append-only; the model is never updated.
type InvoiceAdjustmentModel struct {
	OrgAggregateModel
	InvoiceID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type        billing.AdjustmentType `gorm:"type:varchar(20);not null;index"`
	Amount      decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Reason      string                 `gorm:"type:varchar(500);not null"`
	AppliedDate time.Time              `gorm:"not null;index"`
	CreatedByID uuid.UUID              `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (InvoiceAdjustmentModel) TableName() string {
	return "invoice_adjustments"
}

// ToDomain converts the persistence model to a domain InvoiceAdjustment entity.
func (m *InvoiceAdjustmentModel) ToDomain() *billing.InvoiceAdjustment {
	adj := &billing.InvoiceAdjustment{
		InvoiceID:   m.InvoiceID,
		Type:        m.Type,
		Amount:      m.Amount,
		Reason:      m.Reason,
		AppliedDate: m.AppliedDate,
		CreatedByID: m.CreatedByID,
	}
	m.PopulateOrgAggregateRoot(&adj.OrgAggregateRoot)
	return adj
}

// FromDomain populates the persistence model from a domain InvoiceAdjustment entity.
func (m *InvoiceAdjustmentModel) FromDomain(adj *billing.InvoiceAdjustment) {
	m.FromDomainOrgAggregateRoot(adj.OrgAggregateRoot)
	m.InvoiceID = adj.InvoiceID
	m.Type = adj.Type
	m.Amount = adj.Amount
	m.Reason = adj.Reason
	m.AppliedDate = adj.AppliedDate
	m.CreatedByID = adj.CreatedByID
}

// InvoiceAdjustmentModelFromDomain creates a new persistence model from a domain InvoiceAdjustment.
func InvoiceAdjustmentModelFromDomain(adj *billing.InvoiceAdjustment) *InvoiceAdjustmentModel {
	m := &InvoiceAdjustmentModel{}
	m.FromDomain(adj)
	return m
}
