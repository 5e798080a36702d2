package billing

import (
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanStatus represents the status of a payment plan
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
)

// IsValid checks if the status is a valid PlanStatus
func (s PlanStatus) IsValid() bool {
	return s == PlanStatusActive || s == PlanStatusCompleted
}

// String returns the string representation of PlanStatus
func (s PlanStatus) String() string {
	return string(s)
}

// PlanFrequency represents the installment cadence
type PlanFrequency string

const (
	FrequencyWeekly   PlanFrequency = "WEEKLY"
	FrequencyBiweekly PlanFrequency = "BIWEEKLY"
	FrequencyMonthly  PlanFrequency = "MONTHLY"
)

// IsValid checks if the frequency is valid
func (f PlanFrequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// String returns the string representation of PlanFrequency
func (f PlanFrequency) String() string {
	return string(f)
}

// Next returns the due date following from at this cadence.
// Monthly uses calendar months, so Jan 31 advances to the date AddDate yields.
func (f PlanFrequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	}
	return from
}

// Installment represents a scheduled partial payment obligation under a plan
type Installment struct {
	ID        uuid.UUID
	PlanID    uuid.UUID
	Number    int // 1..N, unique within the plan
	DueDate   time.Time
	Amount    decimal.Decimal
	IsPaid    bool
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InstallmentSpec carries an explicit installment override for plan creation
type InstallmentSpec struct {
	DueDate time.Time
	Amount  decimal.Decimal
}

// PaymentPlan represents a payment plan aggregate root owning its installments
type PaymentPlan struct {
	shared.OrgAggregateRoot
	InvoiceID            uuid.UUID
	PatientID            uuid.UUID
	Frequency            PlanFrequency
	NumberOfInstallments int
	InstallmentAmount    decimal.Decimal
	StartDate            time.Time
	Status               PlanStatus
	Installments         []Installment
	CompletedAt          *time.Time
}

// NewPaymentPlan creates a payment plan. When explicit specs are supplied they
// are used verbatim; otherwise installments are generated from startDate at
// the given frequency, each carrying installmentAmount.
func NewPaymentPlan(
	organizationID uuid.UUID,
	invoiceID uuid.UUID,
	patientID uuid.UUID,
	frequency PlanFrequency,
	numberOfInstallments int,
	installmentAmount valueobject.Money,
	startDate time.Time,
	explicit []InstallmentSpec,
) (*PaymentPlan, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("invoice ID cannot be empty")
	}
	if patientID == uuid.Nil {
		return nil, shared.NewValidationError("patient ID cannot be empty")
	}
	if !frequency.IsValid() {
		return nil, shared.NewValidationError("frequency %q is not valid", frequency)
	}
	if len(explicit) > 0 {
		numberOfInstallments = len(explicit)
	}
	if numberOfInstallments < 1 {
		return nil, shared.NewValidationError("number of installments must be at least 1")
	}
	if len(explicit) == 0 {
		if !installmentAmount.IsPositive() {
			return nil, shared.NewValidationError("installment amount must be positive")
		}
		if startDate.IsZero() {
			return nil, shared.NewValidationError("start date is required")
		}
	}

	plan := &PaymentPlan{
		OrgAggregateRoot:     shared.NewOrgAggregateRoot(organizationID),
		InvoiceID:            invoiceID,
		PatientID:            patientID,
		Frequency:            frequency,
		NumberOfInstallments: numberOfInstallments,
		InstallmentAmount:    installmentAmount.Amount(),
		StartDate:            startDate,
		Status:               PlanStatusActive,
		Installments:         make([]Installment, 0, numberOfInstallments),
	}

	now := time.Now()
	if len(explicit) > 0 {
		for i, spec := range explicit {
			if spec.DueDate.IsZero() {
				return nil, shared.NewValidationError("installment %d: due date is required", i+1)
			}
			if spec.Amount.LessThanOrEqual(decimal.Zero) {
				return nil, shared.NewValidationError("installment %d: amount must be positive", i+1)
			}
			plan.Installments = append(plan.Installments, Installment{
				ID:        uuid.New(),
				PlanID:    plan.ID,
				Number:    i + 1,
				DueDate:   spec.DueDate,
				Amount:    spec.Amount,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if plan.StartDate.IsZero() {
			plan.StartDate = explicit[0].DueDate
		}
	} else {
		dueDate := startDate
		for i := 0; i < numberOfInstallments; i++ {
			plan.Installments = append(plan.Installments, Installment{
				ID:        uuid.New(),
				PlanID:    plan.ID,
				Number:    i + 1,
				DueDate:   dueDate,
				Amount:    installmentAmount.Amount(),
				CreatedAt: now,
				UpdatedAt: now,
			})
			dueDate = frequency.Next(dueDate)
		}
	}

	plan.AddDomainEvent(NewPaymentPlanCreatedEvent(plan))

	return plan, nil
}

// GetInstallmentByID returns the installment with the given ID, or nil
func (p *PaymentPlan) GetInstallmentByID(installmentID uuid.UUID) *Installment {
	for i := range p.Installments {
		if p.Installments[i].ID == installmentID {
			return &p.Installments[i]
		}
	}
	return nil
}

// MarkInstallmentPaid flags the installment as paid and re-derives plan
// completion. It returns true exactly when this call moved the plan from
// ACTIVE to COMPLETED.
func (p *PaymentPlan) MarkInstallmentPaid(installmentID uuid.UUID) (bool, error) {
	inst := p.GetInstallmentByID(installmentID)
	if inst == nil {
		return false, shared.NewNotFoundError("installment")
	}
	if inst.IsPaid {
		return false, shared.NewInvalidStateError("installment %d is already paid", inst.Number)
	}

	now := time.Now()
	inst.IsPaid = true
	inst.PaidAt = &now
	inst.UpdatedAt = now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewInstallmentPaidEvent(p, inst))

	return p.refreshCompletion(), nil
}

// AllInstallmentsPaid reports whether every installment has been settled
func (p *PaymentPlan) AllInstallmentsPaid() bool {
	for i := range p.Installments {
		if !p.Installments[i].IsPaid {
			return false
		}
	}
	return len(p.Installments) > 0
}

// TotalScheduled returns the sum of all installment amounts
func (p *PaymentPlan) TotalScheduled() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Installments {
		total = total.Add(p.Installments[i].Amount)
	}
	return total
}

// refreshCompletion derives the plan status from installment state. The plan
// completes exactly when every installment is paid; nothing else changes plan
// status. Returns true when the transition happened on this call.
func (p *PaymentPlan) refreshCompletion() bool {
	if p.Status == PlanStatusCompleted {
		return false
	}
	if !p.AllInstallmentsPaid() {
		return false
	}

	now := time.Now()
	p.Status = PlanStatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now

	p.AddDomainEvent(NewPaymentPlanCompletedEvent(p))

	return true
}
