package payment

import (
	"context"

	"github.com/grolife/invoice-engine/internal/domain/payment"
)

// TransactionScope provides transactional access to the payment repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and are committed or
// rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all payment repositories within
// a transaction. All repositories returned share the same underlying database
// transaction.
//
// Aggregate boundary notes:
//   - Payments: repository for the Payment aggregate root. Allocation rows are
//     child entities and are persisted through it, never independently.
//   - Invoices: this engine only adjusts outstanding balances and statuses;
//     invoice creation lives in another system.
//   - CreditBalances: one row per customer, debited and credited as payments
//     funded from credit are applied and reversed.
type TransactionalRepositories interface {
	// Payments returns the payment repository scoped to the current transaction
	Payments() payment.PaymentRepository
	// Invoices returns the invoice repository scoped to the current transaction
	Invoices() payment.InvoiceRepository
	// CreditBalances returns the credit balance repository scoped to the current transaction
	CreditBalances() payment.CreditBalanceRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	paymentRepo payment.PaymentRepository
	invoiceRepo payment.InvoiceRepository
	creditRepo  payment.CreditBalanceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	paymentRepo payment.PaymentRepository,
	invoiceRepo payment.InvoiceRepository,
	creditRepo payment.CreditBalanceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		creditRepo:  creditRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Payments returns the payment repository.
func (s *NoOpTransactionScope) Payments() payment.PaymentRepository {
	return s.paymentRepo
}

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() payment.InvoiceRepository {
	return s.invoiceRepo
}

// CreditBalances returns the credit balance repository.
func (s *NoOpTransactionScope) CreditBalances() payment.CreditBalanceRepository {
	return s.creditRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
