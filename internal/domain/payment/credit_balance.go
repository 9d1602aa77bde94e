package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CreditBalance represents a customer's prepaid credit account. It is debited
// when a payment is funded from credit and credited back when such a payment
// is reversed. Cash payments never touch it.
type CreditBalance struct {
	shared.BaseAggregateRoot
	CustomerID uuid.UUID       `json:"customer_id"`
	Available  decimal.Decimal `json:"available"`
}

// NewCreditBalance creates a credit balance for a customer
func NewCreditBalance(customerID uuid.UUID, available valueobject.Money) (*CreditBalance, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if available.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Available amount cannot be negative")
	}

	return &CreditBalance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Available:         available.Amount(),
	}, nil
}

// Debit reduces the available amount. Fails if the balance cannot cover it.
func (cb *CreditBalance) Debit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Debit amount must be positive")
	}
	if amount.GreaterThan(cb.Available) {
		return shared.NewDomainError("INSUFFICIENT_CREDIT",
			fmt.Sprintf("Insufficient credit: available %s, required %s",
				cb.Available.StringFixed(2), amount.StringFixed(2)))
	}

	cb.Available = cb.Available.Sub(amount)
	cb.UpdatedAt = time.Now()
	cb.IncrementVersion()

	cb.AddDomainEvent(NewCreditDebitedEvent(cb, amount))

	return nil
}

// Credit adds to the available amount
func (cb *CreditBalance) Credit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}

	cb.Available = cb.Available.Add(amount)
	cb.UpdatedAt = time.Now()
	cb.IncrementVersion()

	return nil
}

// CanCover returns true if the balance can fund the given amount
func (cb *CreditBalance) CanCover(amount decimal.Decimal) bool {
	return cb.Available.GreaterThanOrEqual(amount)
}

// GetAvailableMoney returns the available amount as Money
func (cb *CreditBalance) GetAvailableMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(cb.Available)
}
