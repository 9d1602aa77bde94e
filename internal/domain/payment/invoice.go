package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen          InvoiceStatus = "OPEN"           // No payments applied yet
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // 0 < paid < total
	InvoiceStatusPaid          InvoiceStatus = "PAID"           // Outstanding balance is zero
	InvoiceStatusClosed        InvoiceStatus = "CLOSED"         // Closed for further allocations
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanAcceptAllocation returns true if allocations can be applied in this status
func (s InvoiceStatus) CanAcceptAllocation() bool {
	return s == InvoiceStatusOpen || s == InvoiceStatusPartiallyPaid
}

// Invoice represents an outstanding invoice aggregate root.
// This engine only applies and reverses payment allocations against it;
// invoice creation and pricing live elsewhere.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber      string          `json:"invoice_number"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Status             InvoiceStatus   `json:"status"`
	PaidAt             *time.Time      `json:"paid_at"`
}

// NewInvoice creates a new open invoice with its full amount outstanding
func NewInvoice(invoiceNumber string, customerID uuid.UUID, totalAmount valueobject.Money) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if totalAmount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}

	inv := &Invoice{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		InvoiceNumber:      invoiceNumber,
		CustomerID:         customerID,
		TotalAmount:        totalAmount.Amount(),
		OutstandingBalance: totalAmount.Amount(),
		Status:             InvoiceStatusOpen,
	}

	return inv, nil
}

// ApplyAllocation reduces the outstanding balance by the allocated amount
// and recomputes the invoice status.
func (inv *Invoice) ApplyAllocation(amount decimal.Decimal) error {
	if !inv.Status.CanAcceptAllocation() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot allocate against invoice in %s status", inv.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.GreaterThan(inv.OutstandingBalance) {
		return shared.NewDomainError("INVALID_ALLOCATION_TARGET",
			fmt.Sprintf("Allocation amount %s exceeds outstanding balance %s of invoice %s",
				amount.StringFixed(2), inv.OutstandingBalance.StringFixed(2), inv.InvoiceNumber))
	}

	inv.OutstandingBalance = inv.OutstandingBalance.Sub(amount)
	inv.recomputeStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// RestoreAllocation adds a previously allocated amount back to the outstanding
// balance. Used when a payment is updated or reversed.
func (inv *Invoice) RestoreAllocation(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Restore amount must be positive")
	}
	restored := inv.OutstandingBalance.Add(amount)
	if restored.GreaterThan(inv.TotalAmount) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Restoring %s would exceed total amount %s of invoice %s",
				amount.StringFixed(2), inv.TotalAmount.StringFixed(2), inv.InvoiceNumber))
	}

	inv.OutstandingBalance = restored
	inv.recomputeStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// recomputeStatus derives the status from the outstanding balance.
// Closed invoices stay closed.
func (inv *Invoice) recomputeStatus() {
	if inv.Status == InvoiceStatusClosed {
		return
	}
	switch {
	case inv.OutstandingBalance.IsZero():
		now := time.Now()
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	case inv.OutstandingBalance.LessThan(inv.TotalAmount):
		inv.Status = InvoiceStatusPartiallyPaid
		inv.PaidAt = nil
	default:
		inv.Status = InvoiceStatusOpen
		inv.PaidAt = nil
	}
}

// Close closes the invoice for further allocations
func (inv *Invoice) Close() error {
	if inv.Status == InvoiceStatusClosed {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already closed")
	}
	inv.Status = InvoiceStatusClosed
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// GetOutstandingBalanceMoney returns the outstanding balance as Money
func (inv *Invoice) GetOutstandingBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(inv.OutstandingBalance)
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsOpen returns true if the invoice has no payments applied
func (inv *Invoice) IsOpen() bool {
	return inv.Status == InvoiceStatusOpen
}
