package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grolife/invoice-engine/internal/domain/payment"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber      string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	TotalAmount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	OutstandingBalance decimal.Decimal       `gorm:"type:decimal(18,4);not null;index"`
	Status             payment.InvoiceStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	PaidAt             *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *payment.Invoice {
	return &payment.Invoice{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		InvoiceNumber:      m.InvoiceNumber,
		CustomerID:         m.CustomerID,
		TotalAmount:        m.TotalAmount,
		OutstandingBalance: m.OutstandingBalance,
		Status:             m.Status,
		PaidAt:             m.PaidAt,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *payment.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber:      inv.InvoiceNumber,
		CustomerID:         inv.CustomerID,
		TotalAmount:        inv.TotalAmount,
		OutstandingBalance: inv.OutstandingBalance,
		Status:             inv.Status,
		PaidAt:             inv.PaidAt,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
// Allocation rows live in their own table but are owned by the payment and
// are loaded and saved together with it.
type PaymentModel struct {
	AggregateModel
	ReferenceKey      string                   `gorm:"type:varchar(100);not null;uniqueIndex"`
	CustomerID        uuid.UUID                `gorm:"type:uuid;not null;index"`
	TotalAmount       decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount   decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	FundingSource     payment.FundingSource    `gorm:"type:varchar(10);not null"`
	Status            payment.PaymentStatus    `gorm:"type:varchar(10);not null;default:'APPLIED';index"`
	ReversedAt        *time.Time               `gorm:"index"`
	Allocations       []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *payment.Payment {
	allocations := make([]payment.Allocation, 0, len(m.Allocations))
	for i := range m.Allocations {
		allocations = append(allocations, *m.Allocations[i].ToDomain())
	}
	return &payment.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ReferenceKey:      m.ReferenceKey,
		CustomerID:        m.CustomerID,
		TotalAmount:       m.TotalAmount,
		AllocatedAmount:   m.AllocatedAmount,
		UnallocatedAmount: m.UnallocatedAmount,
		FundingSource:     m.FundingSource,
		Status:            m.Status,
		Allocations:       allocations,
		ReversedAt:        m.ReversedAt,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	allocations := make([]PaymentAllocationModel, 0, len(p.Allocations))
	for i := range p.Allocations {
		allocations = append(allocations, *PaymentAllocationModelFromDomain(&p.Allocations[i]))
	}
	m := &PaymentModel{
		ReferenceKey:      p.ReferenceKey,
		CustomerID:        p.CustomerID,
		TotalAmount:       p.TotalAmount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		FundingSource:     p.FundingSource,
		Status:            p.Status,
		ReversedAt:        p.ReversedAt,
		Allocations:       allocations,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// PaymentAllocationModel is the persistence model for one allocation row.
// Reversed rows are kept and tagged, never deleted.
type PaymentAllocationModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AppliedAt  time.Time       `gorm:"not null"`
	Reversed   bool            `gorm:"not null;default:false;index"`
	ReversedAt *time.Time
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation entity.
func (m *PaymentAllocationModel) ToDomain() *payment.Allocation {
	return &payment.Allocation{
		ID:         m.ID,
		PaymentID:  m.PaymentID,
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		AppliedAt:  m.AppliedAt,
		Reversed:   m.Reversed,
		ReversedAt: m.ReversedAt,
	}
}

// PaymentAllocationModelFromDomain creates a persistence model from a domain Allocation entity.
func PaymentAllocationModelFromDomain(a *payment.Allocation) *PaymentAllocationModel {
	return &PaymentAllocationModel{
		ID:         a.ID,
		PaymentID:  a.PaymentID,
		InvoiceID:  a.InvoiceID,
		Amount:     a.Amount,
		AppliedAt:  a.AppliedAt,
		Reversed:   a.Reversed,
		ReversedAt: a.ReversedAt,
	}
}

// CreditBalanceModel is the persistence model for the CreditBalance aggregate root.
type CreditBalanceModel struct {
	AggregateModel
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Available  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CreditBalanceModel) TableName() string {
	return "credit_balances"
}

// ToDomain converts the persistence model to a domain CreditBalance entity.
func (m *CreditBalanceModel) ToDomain() *payment.CreditBalance {
	return &payment.CreditBalance{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		Available:         m.Available,
	}
}

// CreditBalanceModelFromDomain creates a persistence model from a domain CreditBalance entity.
func CreditBalanceModelFromDomain(cb *payment.CreditBalance) *CreditBalanceModel {
	m := &CreditBalanceModel{
		CustomerID: cb.CustomerID,
		Available:  cb.Available,
	}
	m.FromDomainAggregateRoot(cb.BaseAggregateRoot)
	return m
}
