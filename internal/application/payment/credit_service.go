package payment

import (
	"context"

	domainpayment "github.com/grolife/invoice-engine/internal/domain/payment"
)

// CreditFundingService funds invoice payments from customer credit balances.
// The credit debit, the payment record and the invoice allocations commit in
// one transaction; an insufficient balance rolls everything back.
type CreditFundingService struct {
	payments *PaymentService
}

// NewCreditFundingService creates a new CreditFundingService
func NewCreditFundingService(payments *PaymentService) *CreditFundingService {
	return &CreditFundingService{payments: payments}
}

// UseCreditForPayment debits the customer's credit balance and allocates the
// amount across the requested invoices
func (s *CreditFundingService) UseCreditForPayment(ctx context.Context, req UseCreditRequest) (*ProcessPaymentResult, error) {
	return s.payments.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  req.ReferenceKey,
		CustomerID:    req.CustomerID,
		TotalAmount:   req.TotalAmount,
		FundingSource: domainpayment.FundingSourceCredit,
		AllowPartial:  req.AllowPartial,
		Targets:       req.Targets,
	})
}
