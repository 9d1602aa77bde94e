package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainpayment "github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
)

// ReversalService undoes a payment's effects. Reversal restores the invoice
// balances the payment had reduced, credits the customer's credit balance back
// when the payment was credit-funded, and tags the allocation rows rather than
// deleting them. A payment can only be reversed once; a second attempt fails
// so callers learn nothing was changed.
type ReversalService struct {
	scope TransactionScope
}

// NewReversalService creates a new ReversalService
func NewReversalService(scope TransactionScope) *ReversalService {
	return &ReversalService{scope: scope}
}

// ReverseByID reverses the payment with the given ID
func (s *ReversalService) ReverseByID(ctx context.Context, id uuid.UUID) (*ReversalResult, error) {
	return s.reverse(ctx, func(repos TransactionalRepositories) (*domainpayment.Payment, error) {
		p, err := repos.Payments().FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND",
				fmt.Sprintf("Payment %s not found", id))
		}
		return p, nil
	})
}

// ReverseByReference reverses the payment with the given reference key
func (s *ReversalService) ReverseByReference(ctx context.Context, referenceKey string) (*ReversalResult, error) {
	return s.reverse(ctx, func(repos TransactionalRepositories) (*domainpayment.Payment, error) {
		p, err := repos.Payments().FindByReferenceKey(ctx, referenceKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND",
				fmt.Sprintf("Payment with reference key %s not found", referenceKey))
		}
		return p, nil
	})
}

func (s *ReversalService) reverse(ctx context.Context, find func(repos TransactionalRepositories) (*domainpayment.Payment, error)) (*ReversalResult, error) {
	var result *ReversalResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := find(repos)
		if err != nil {
			return err
		}

		reversedAllocs, err := p.Reverse()
		if err != nil {
			return err
		}

		restored := make(map[uuid.UUID]decimal.Decimal, len(reversedAllocs))
		reversedAmount := decimal.Zero
		for _, a := range reversedAllocs {
			restored[a.InvoiceID] = restored[a.InvoiceID].Add(a.Amount)
			reversedAmount = reversedAmount.Add(a.Amount)
		}

		invoices, byID, err := loadInvoices(ctx, repos, invoiceIDsOf(nil, restored))
		if err != nil {
			return err
		}
		for id := range restored {
			if byID[id] == nil {
				return fmt.Errorf("invoice %s referenced by an allocation no longer exists", id)
			}
		}

		restoredResults := make([]InvoiceAllocationResult, 0, len(invoices))
		for i := range invoices {
			inv := &invoices[i]
			if err := inv.RestoreAllocation(restored[inv.ID]); err != nil {
				return err
			}
			restoredResults = append(restoredResults, InvoiceAllocationResult{
				InvoiceID:        inv.ID,
				AppliedAmount:    restored[inv.ID].Neg(),
				ResultingBalance: inv.OutstandingBalance,
				InvoiceStatus:    inv.Status.String(),
			})
		}

		creditRestored := false
		if p.IsCreditFunded() {
			if err := creditBack(ctx, repos, p.CustomerID, p.TotalAmount); err != nil {
				return err
			}
			creditRestored = true
		}

		touched := make(map[uuid.UUID]bool, len(invoices))
		for i := range invoices {
			touched[invoices[i].ID] = true
		}
		if err := saveInvoices(ctx, repos, invoices, touched); err != nil {
			return err
		}
		if err := repos.Payments().SaveWithLock(ctx, p); err != nil {
			return err
		}

		result = &ReversalResult{
			PaymentID:        p.ID,
			ReferenceKey:     p.ReferenceKey,
			ReversedAmount:   reversedAmount,
			CreditRestored:   creditRestored,
			RestoredInvoices: restoredResults,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// creditBack returns a credit-funded payment's amount to the customer's
// balance. A missing balance row is created rather than failing: the money was
// taken from the customer and must come back.
func creditBack(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, amount decimal.Decimal) error {
	cb, err := repos.CreditBalances().FindByCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to load credit balance: %w", err)
	}
	if cb == nil {
		cb, err = domainpayment.NewCreditBalance(customerID, valueobject.ZeroUSD())
		if err != nil {
			return err
		}
		if err := cb.Credit(amount); err != nil {
			return err
		}
		return repos.CreditBalances().Save(ctx, cb)
	}
	if err := cb.Credit(amount); err != nil {
		return err
	}
	return repos.CreditBalances().SaveWithLock(ctx, cb)
}
