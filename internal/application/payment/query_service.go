package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainpayment "github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/domain/shared"
)

// QueryService serves read-only payment lookups. It goes straight to the
// repository; no transaction scope is needed for reads.
type QueryService struct {
	paymentRepo domainpayment.PaymentRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(paymentRepo domainpayment.PaymentRepository) *QueryService {
	return &QueryService{paymentRepo: paymentRepo}
}

// GetPayment returns a payment by ID, allocation rows included
func (s *QueryService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResult, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND",
			fmt.Sprintf("Payment %s not found", id))
	}
	return ToPaymentResult(p), nil
}

// GetPaymentByReference returns a payment by its reference key
func (s *QueryService) GetPaymentByReference(ctx context.Context, referenceKey string) (*PaymentResult, error) {
	p, err := s.paymentRepo.FindByReferenceKey(ctx, referenceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND",
			fmt.Sprintf("Payment with reference key %s not found", referenceKey))
	}
	return ToPaymentResult(p), nil
}

// ListPayments returns a page of payments plus the total count
func (s *QueryService) ListPayments(ctx context.Context, filter shared.Filter) ([]PaymentResult, int64, error) {
	payments, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	total, err := s.paymentRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	results := make([]PaymentResult, 0, len(payments))
	for i := range payments {
		results = append(results, *ToPaymentResult(&payments[i]))
	}
	return results, total, nil
}
