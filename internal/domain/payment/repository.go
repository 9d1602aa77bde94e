package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID. Returns nil when no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDs finds the given invoices, returned in ascending ID order so
	// callers acquire row locks in a fixed global order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID, allocations included.
	// Returns nil when no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByReferenceKey finds a payment by its caller-supplied reference key.
	// Returns nil when no row exists.
	FindByReferenceKey(ctx context.Context, referenceKey string) (*Payment, error)

	// FindAll lists payments with pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Payment, error)

	// ExistsByReferenceKey checks whether a reference key is already in use
	ExistsByReferenceKey(ctx context.Context, referenceKey string) (bool, error)

	// Save creates or updates a payment together with its allocation rows
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// Count counts all payments
	Count(ctx context.Context) (int64, error)
}

// CreditBalanceRepository defines the interface for credit balance persistence
type CreditBalanceRepository interface {
	// FindByCustomerID finds the credit balance for a customer.
	// Returns nil when the customer has no balance row.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*CreditBalance, error)

	// Save creates or updates a credit balance
	Save(ctx context.Context, balance *CreditBalance) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, balance *CreditBalance) error
}
