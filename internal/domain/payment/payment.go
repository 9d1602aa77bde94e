package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusApplied  PaymentStatus = "APPLIED"  // Allocations applied to invoices
	PaymentStatusReversed PaymentStatus = "REVERSED" // Allocations undone, payment kept for audit
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusApplied || s == PaymentStatusReversed
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// FundingSource represents the origin of the money backing a payment
type FundingSource string

const (
	FundingSourceCash   FundingSource = "CASH"   // External payment instrument
	FundingSourceCredit FundingSource = "CREDIT" // Customer credit balance
)

// IsValid checks if the funding source is valid
func (f FundingSource) IsValid() bool {
	return f == FundingSourceCash || f == FundingSourceCredit
}

// String returns the string representation of FundingSource
func (f FundingSource) String() string {
	return string(f)
}

// Allocation links a payment to an invoice with an applied amount.
// Allocations are owned by the Payment aggregate; reversed allocations are
// retained for audit and tagged rather than deleted.
type Allocation struct {
	ID         uuid.UUID       `json:"id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	AppliedAt  time.Time       `json:"applied_at"`
	Reversed   bool            `json:"reversed"`
	ReversedAt *time.Time      `json:"reversed_at,omitempty"`
}

// NewAllocation creates a new active allocation
func NewAllocation(paymentID, invoiceID uuid.UUID, amount decimal.Decimal) *Allocation {
	return &Allocation{
		ID:        uuid.New(),
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    amount,
		AppliedAt: time.Now(),
	}
}

// MarkReversed tags the allocation as reversed
func (a *Allocation) MarkReversed() {
	now := time.Now()
	a.Reversed = true
	a.ReversedAt = &now
}

// Payment represents a payment aggregate root. It records money received (cash
// or credit-funded) and how that money is attributed to invoices. Payments are
// never deleted; reversal is a status transition plus compensating invoice
// updates.
type Payment struct {
	shared.BaseAggregateRoot
	ReferenceKey      string          `json:"reference_key"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	FundingSource     FundingSource   `json:"funding_source"`
	Status            PaymentStatus   `json:"status"`
	Allocations       []Allocation    `json:"allocations"`
	ReversedAt        *time.Time      `json:"reversed_at,omitempty"`
}

// NewPayment creates a new payment with no allocations yet
func NewPayment(referenceKey string, customerID uuid.UUID, totalAmount valueobject.Money, fundingSource FundingSource) (*Payment, error) {
	if referenceKey == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE_KEY", "Reference key cannot be empty")
	}
	if len(referenceKey) > 100 {
		return nil, shared.NewDomainError("INVALID_REFERENCE_KEY", "Reference key cannot exceed 100 characters")
	}
	if totalAmount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !fundingSource.IsValid() {
		return nil, shared.NewDomainError("INVALID_FUNDING_SOURCE", "Funding source is not valid")
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReferenceKey:      referenceKey,
		CustomerID:        customerID,
		TotalAmount:       totalAmount.Amount(),
		AllocatedAmount:   decimal.Zero,
		UnallocatedAmount: totalAmount.Amount(),
		FundingSource:     fundingSource,
		Status:            PaymentStatusApplied,
		Allocations:       make([]Allocation, 0),
	}

	p.AddDomainEvent(NewPaymentReceivedEvent(p))

	return p, nil
}

// SetAllocations replaces the payment's active allocation set with the entries
// of an allocation plan. Previously reversed allocations are retained.
// The sum of the plan's entries must not exceed the payment's total amount.
func (p *Payment) SetAllocations(plan *AllocationPlan) error {
	if p.Status == PaymentStatusReversed {
		return shared.NewDomainError("PAYMENT_ALREADY_REVERSED", "Cannot allocate a reversed payment")
	}

	allocated := decimal.Zero
	for _, entry := range plan.Entries {
		allocated = allocated.Add(entry.Amount)
	}
	if allocated.GreaterThan(p.TotalAmount) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Allocated amount %s exceeds payment total %s", allocated.StringFixed(2), p.TotalAmount.StringFixed(2)))
	}

	retained := make([]Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		if a.Reversed {
			retained = append(retained, a)
		}
	}
	// Zero-applied plan entries inform the caller but produce no row.
	for _, entry := range plan.Entries {
		if !entry.Amount.IsPositive() {
			continue
		}
		retained = append(retained, *NewAllocation(p.ID, entry.InvoiceID, entry.Amount))
	}

	p.Allocations = retained
	p.AllocatedAmount = allocated
	p.UnallocatedAmount = p.TotalAmount.Sub(allocated)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentAllocatedEvent(p))

	return nil
}

// ActiveAllocations returns the allocations that currently contribute to
// invoice balances.
func (p *Payment) ActiveAllocations() []Allocation {
	active := make([]Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		if !a.Reversed {
			active = append(active, a)
		}
	}
	return active
}

// Reverse transitions the payment to REVERSED and tags every active
// allocation. Fails if the payment has already been reversed; the caller must
// not double-credit invoices.
func (p *Payment) Reverse() ([]Allocation, error) {
	if p.Status == PaymentStatusReversed {
		return nil, shared.NewDomainError("PAYMENT_ALREADY_REVERSED",
			fmt.Sprintf("Payment %s has already been reversed", p.ReferenceKey))
	}

	reversed := make([]Allocation, 0, len(p.Allocations))
	for i := range p.Allocations {
		if !p.Allocations[i].Reversed {
			p.Allocations[i].MarkReversed()
			reversed = append(reversed, p.Allocations[i])
		}
	}

	now := time.Now()
	p.Status = PaymentStatusReversed
	p.ReversedAt = &now
	p.AllocatedAmount = decimal.Zero
	p.UnallocatedAmount = decimal.Zero
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentReversedEvent(p, reversed))

	return reversed, nil
}

// IsReversed returns true if the payment has been reversed
func (p *Payment) IsReversed() bool {
	return p.Status == PaymentStatusReversed
}

// IsCreditFunded returns true if the payment was funded from a credit balance
func (p *Payment) IsCreditFunded() bool {
	return p.FundingSource == FundingSourceCredit
}

// GetTotalAmountMoney returns the total amount as Money
func (p *Payment) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.TotalAmount)
}

// AllocationCount returns the number of allocation rows, reversed included
func (p *Payment) AllocationCount() int {
	return len(p.Allocations)
}
