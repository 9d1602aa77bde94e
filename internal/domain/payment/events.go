package payment

import (
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypePaymentReceived  = "payment.received"
	EventTypePaymentAllocated = "payment.allocated"
	EventTypePaymentReversed  = "payment.reversed"
	EventTypeCreditDebited    = "credit.debited"
)

// PaymentReceivedEvent is emitted when a new payment is created
type PaymentReceivedEvent struct {
	shared.BaseDomainEvent
	ReferenceKey  string          `json:"reference_key"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FundingSource FundingSource   `json:"funding_source"`
}

// NewPaymentReceivedEvent creates a PaymentReceivedEvent
func NewPaymentReceivedEvent(p *Payment) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReceived, "Payment", p.ID),
		ReferenceKey:    p.ReferenceKey,
		TotalAmount:     p.TotalAmount,
		FundingSource:   p.FundingSource,
	}
}

// PaymentAllocatedEvent is emitted when a payment's allocation set is written
// or replaced
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	ReferenceKey      string          `json:"reference_key"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	AllocationCount   int             `json:"allocation_count"`
}

// NewPaymentAllocatedEvent creates a PaymentAllocatedEvent
func NewPaymentAllocatedEvent(p *Payment) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePaymentAllocated, "Payment", p.ID),
		ReferenceKey:      p.ReferenceKey,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		AllocationCount:   len(p.ActiveAllocations()),
	}
}

// PaymentReversedEvent is emitted when a payment is reversed
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	ReferenceKey  string          `json:"reference_key"`
	ReversedCount int             `json:"reversed_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FundingSource FundingSource   `json:"funding_source"`
}

// NewPaymentReversedEvent creates a PaymentReversedEvent
func NewPaymentReversedEvent(p *Payment, reversed []Allocation) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReversed, "Payment", p.ID),
		ReferenceKey:    p.ReferenceKey,
		ReversedCount:   len(reversed),
		TotalAmount:     p.TotalAmount,
		FundingSource:   p.FundingSource,
	}
}

// CreditDebitedEvent is emitted when a credit balance funds a payment
type CreditDebitedEvent struct {
	shared.BaseDomainEvent
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

// NewCreditDebitedEvent creates a CreditDebitedEvent
func NewCreditDebitedEvent(cb *CreditBalance, amount decimal.Decimal) *CreditDebitedEvent {
	return &CreditDebitedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditDebited, "CreditBalance", cb.ID),
		Amount:          amount,
		Remaining:       cb.Available,
	}
}
