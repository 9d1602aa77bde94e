package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainpayment "github.com/grolife/invoice-engine/internal/domain/payment"
)

// AllocationTargetRequest names one invoice and the amount to apply to it.
// Target order is significant: first-listed invoices are paid first.
type AllocationTargetRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProcessPaymentRequest creates a payment and allocates it across invoices
type ProcessPaymentRequest struct {
	ReferenceKey  string                      `json:"reference_key"`
	CustomerID    uuid.UUID                   `json:"customer_id"`
	TotalAmount   decimal.Decimal             `json:"total_amount"`
	FundingSource domainpayment.FundingSource `json:"funding_source"`
	AllowPartial  bool                        `json:"allow_partial"`
	Targets       []AllocationTargetRequest   `json:"targets"`
}

// UpdatePaymentRequest replaces the allocation set of an existing payment.
// The payment is addressed by ID or by reference key; the ID wins when both
// are present. The previous allocations are compensated before the new
// targets are applied.
type UpdatePaymentRequest struct {
	PaymentID    uuid.UUID                 `json:"payment_id"`
	ReferenceKey string                    `json:"reference_key"`
	AllowPartial bool                      `json:"allow_partial"`
	Targets      []AllocationTargetRequest `json:"targets"`
}

// UseCreditRequest funds a payment from the customer's credit balance
type UseCreditRequest struct {
	ReferenceKey string                    `json:"reference_key"`
	CustomerID   uuid.UUID                 `json:"customer_id"`
	TotalAmount  decimal.Decimal           `json:"total_amount"`
	AllowPartial bool                      `json:"allow_partial"`
	Targets      []AllocationTargetRequest `json:"targets"`
}

// InvoiceAllocationResult reports what one allocation did to its invoice
type InvoiceAllocationResult struct {
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	InvoiceStatus    string          `json:"invoice_status"`
}

// ProcessPaymentResult is the outcome of creating or updating a payment
type ProcessPaymentResult struct {
	PaymentID         uuid.UUID                 `json:"payment_id"`
	ReferenceKey      string                    `json:"reference_key"`
	TotalAmount       decimal.Decimal           `json:"total_amount"`
	AllocatedAmount   decimal.Decimal           `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal           `json:"unallocated_amount"`
	FundingSource     string                    `json:"funding_source"`
	Allocations       []InvoiceAllocationResult `json:"allocations"`
}

// ReversalResult is the outcome of reversing a payment
type ReversalResult struct {
	PaymentID        uuid.UUID                 `json:"payment_id"`
	ReferenceKey     string                    `json:"reference_key"`
	ReversedAmount   decimal.Decimal           `json:"reversed_amount"`
	CreditRestored   bool                      `json:"credit_restored"`
	RestoredInvoices []InvoiceAllocationResult `json:"restored_invoices"`
}

// AllocationResult describes one allocation row of a payment
type AllocationResult struct {
	ID         uuid.UUID       `json:"id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	AppliedAt  time.Time       `json:"applied_at"`
	Reversed   bool            `json:"reversed"`
	ReversedAt *time.Time      `json:"reversed_at,omitempty"`
}

// PaymentResult is the read model for a payment
type PaymentResult struct {
	ID                uuid.UUID          `json:"id"`
	ReferenceKey      string             `json:"reference_key"`
	CustomerID        uuid.UUID          `json:"customer_id"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	AllocatedAmount   decimal.Decimal    `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal    `json:"unallocated_amount"`
	FundingSource     string             `json:"funding_source"`
	Status            string             `json:"status"`
	Allocations       []AllocationResult `json:"allocations"`
	CreatedAt         time.Time          `json:"created_at"`
	ReversedAt        *time.Time         `json:"reversed_at,omitempty"`
}

// ToPaymentResult maps a payment aggregate to its read model
func ToPaymentResult(p *domainpayment.Payment) *PaymentResult {
	allocations := make([]AllocationResult, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, AllocationResult{
			ID:         a.ID,
			InvoiceID:  a.InvoiceID,
			Amount:     a.Amount,
			AppliedAt:  a.AppliedAt,
			Reversed:   a.Reversed,
			ReversedAt: a.ReversedAt,
		})
	}
	return &PaymentResult{
		ID:                p.ID,
		ReferenceKey:      p.ReferenceKey,
		CustomerID:        p.CustomerID,
		TotalAmount:       p.TotalAmount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		FundingSource:     p.FundingSource.String(),
		Status:            p.Status.String(),
		Allocations:       allocations,
		CreatedAt:         p.CreatedAt,
		ReversedAt:        p.ReversedAt,
	}
}
