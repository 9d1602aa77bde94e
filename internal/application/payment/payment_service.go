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

// PaymentService handles creating payments and re-allocating existing ones.
// Every operation runs in a single transaction: either the payment, its
// allocation rows, the invoice balances and any credit debit all commit
// together, or none of them do.
type PaymentService struct {
	scope TransactionScope
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope) *PaymentService {
	return &PaymentService{scope: scope}
}

// CreatePayment records a new payment and allocates it across the requested
// invoices in target order. The reference key must not have been used before.
// Credit-funded payments debit the customer's credit balance in the same
// transaction.
func (s *PaymentService) CreatePayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResult, error) {
	var result *ProcessPaymentResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Payments().ExistsByReferenceKey(ctx, req.ReferenceKey)
		if err != nil {
			return fmt.Errorf("failed to check reference key: %w", err)
		}
		if exists {
			return shared.NewDomainError("DUPLICATE_REFERENCE",
				fmt.Sprintf("Reference key %s is already in use", req.ReferenceKey))
		}

		p, err := domainpayment.NewPayment(req.ReferenceKey, req.CustomerID,
			valueobject.NewMoneyUSD(req.TotalAmount), req.FundingSource)
		if err != nil {
			return err
		}

		invoices, byID, err := loadInvoices(ctx, repos, invoiceIDsOf(req.Targets, nil))
		if err != nil {
			return err
		}

		plan, err := domainpayment.PlanAllocations(req.TotalAmount,
			toDomainTargets(req.Targets), allocatableBalances(byID, nil), req.AllowPartial)
		if err != nil {
			return err
		}

		touched := make(map[uuid.UUID]bool, len(plan.Entries))
		for _, entry := range plan.Entries {
			if !entry.Amount.IsPositive() {
				continue
			}
			if err := byID[entry.InvoiceID].ApplyAllocation(entry.Amount); err != nil {
				return err
			}
			touched[entry.InvoiceID] = true
		}

		if p.IsCreditFunded() {
			if err := debitCredit(ctx, repos, req.CustomerID, req.TotalAmount); err != nil {
				return err
			}
		}

		if err := p.SetAllocations(plan); err != nil {
			return err
		}
		if err := saveInvoices(ctx, repos, invoices, touched); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		result = newProcessResult(p, allocationResults(plan, byID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePayment replaces the allocation set of an existing payment with a new
// target list. The previous allocations are compensated and the new plan is
// applied against the restored balances, all in one transaction. Each invoice
// is adjusted by its net delta so it is written exactly once.
func (s *PaymentService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*ProcessPaymentResult, error) {
	var result *ProcessPaymentResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := findPaymentForUpdate(ctx, repos, req)
		if err != nil {
			return err
		}
		if p.IsReversed() {
			return shared.NewDomainError("PAYMENT_ALREADY_REVERSED",
				fmt.Sprintf("Payment %s has already been reversed", p.ReferenceKey))
		}

		restored := make(map[uuid.UUID]decimal.Decimal)
		for _, a := range p.ActiveAllocations() {
			restored[a.InvoiceID] = restored[a.InvoiceID].Add(a.Amount)
		}

		invoices, byID, err := loadInvoices(ctx, repos, invoiceIDsOf(req.Targets, restored))
		if err != nil {
			return err
		}
		for id := range restored {
			if byID[id] == nil {
				return fmt.Errorf("invoice %s referenced by an existing allocation no longer exists", id)
			}
		}

		// Plan against the balances as they would be with this payment's
		// previous allocations undone.
		plan, err := domainpayment.PlanAllocations(p.TotalAmount,
			toDomainTargets(req.Targets), allocatableBalances(byID, restored), req.AllowPartial)
		if err != nil {
			return err
		}

		applied := make(map[uuid.UUID]decimal.Decimal, len(plan.Entries))
		for _, entry := range plan.Entries {
			applied[entry.InvoiceID] = entry.Amount
		}

		touched := make(map[uuid.UUID]bool, len(byID))
		for i := range invoices {
			inv := &invoices[i]
			net := applied[inv.ID].Sub(restored[inv.ID])
			switch {
			case net.IsPositive():
				if err := inv.ApplyAllocation(net); err != nil {
					return err
				}
			case net.IsNegative():
				if err := inv.RestoreAllocation(net.Neg()); err != nil {
					return err
				}
			default:
				continue
			}
			touched[inv.ID] = true
		}

		if err := p.SetAllocations(plan); err != nil {
			return err
		}
		if err := saveInvoices(ctx, repos, invoices, touched); err != nil {
			return err
		}
		if err := repos.Payments().SaveWithLock(ctx, p); err != nil {
			return err
		}

		result = newProcessResult(p, allocationResults(plan, byID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// findPaymentForUpdate resolves the payment an update request addresses, by
// ID when given and by reference key otherwise.
func findPaymentForUpdate(ctx context.Context, repos TransactionalRepositories, req UpdatePaymentRequest) (*domainpayment.Payment, error) {
	switch {
	case req.PaymentID != uuid.Nil:
		p, err := repos.Payments().FindByID(ctx, req.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND",
				fmt.Sprintf("Payment %s not found", req.PaymentID))
		}
		return p, nil
	case req.ReferenceKey != "":
		p, err := repos.Payments().FindByReferenceKey(ctx, req.ReferenceKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND",
				fmt.Sprintf("Payment with reference key %s not found", req.ReferenceKey))
		}
		return p, nil
	default:
		return nil, shared.NewDomainError("INVALID_INPUT",
			"Either payment_id or reference_key is required")
	}
}

// toDomainTargets maps request targets to domain allocation targets, order preserved
func toDomainTargets(targets []AllocationTargetRequest) []domainpayment.AllocationTarget {
	out := make([]domainpayment.AllocationTarget, 0, len(targets))
	for _, t := range targets {
		out = append(out, domainpayment.AllocationTarget{InvoiceID: t.InvoiceID, Amount: t.Amount})
	}
	return out
}

// invoiceIDsOf collects the distinct invoice IDs named by the targets plus any
// extra IDs (invoices holding allocations to be compensated).
func invoiceIDsOf(targets []AllocationTargetRequest, extra map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(targets)+len(extra))
	ids := make([]uuid.UUID, 0, len(targets)+len(extra))
	for _, t := range targets {
		if !seen[t.InvoiceID] {
			seen[t.InvoiceID] = true
			ids = append(ids, t.InvoiceID)
		}
	}
	for id := range extra {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// loadInvoices fetches the invoices and indexes them by ID. The repository
// returns rows in ascending ID order, which fixes the lock acquisition order
// across concurrent transactions.
func loadInvoices(ctx context.Context, repos TransactionalRepositories, ids []uuid.UUID) ([]domainpayment.Invoice, map[uuid.UUID]*domainpayment.Invoice, error) {
	invoices, err := repos.Invoices().FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	byID := make(map[uuid.UUID]*domainpayment.Invoice, len(invoices))
	for i := range invoices {
		byID[invoices[i].ID] = &invoices[i]
	}
	return invoices, byID, nil
}

// allocatableBalances derives the balance each invoice can still absorb.
// Closed invoices absorb nothing. The restored map holds amounts about to be
// compensated back onto their invoices; they count as available again.
func allocatableBalances(byID map[uuid.UUID]*domainpayment.Invoice, restored map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	balances := make(map[uuid.UUID]decimal.Decimal, len(byID))
	for id, inv := range byID {
		if inv.Status == domainpayment.InvoiceStatusClosed {
			balances[id] = decimal.Zero
			continue
		}
		balances[id] = inv.OutstandingBalance.Add(restored[id])
	}
	return balances
}

// saveInvoices writes the touched invoices in slice (ascending ID) order
func saveInvoices(ctx context.Context, repos TransactionalRepositories, invoices []domainpayment.Invoice, touched map[uuid.UUID]bool) error {
	for i := range invoices {
		if !touched[invoices[i].ID] {
			continue
		}
		if err := repos.Invoices().SaveWithLock(ctx, &invoices[i]); err != nil {
			return err
		}
	}
	return nil
}

// debitCredit funds a payment from the customer's credit balance
func debitCredit(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, amount decimal.Decimal) error {
	cb, err := repos.CreditBalances().FindByCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to load credit balance: %w", err)
	}
	if cb == nil {
		return shared.NewDomainError("INSUFFICIENT_CREDIT",
			fmt.Sprintf("Customer %s has no credit balance", customerID))
	}
	if err := cb.Debit(amount); err != nil {
		return err
	}
	return repos.CreditBalances().SaveWithLock(ctx, cb)
}

// allocationResults reports each plan entry with the invoice state after apply
func allocationResults(plan *domainpayment.AllocationPlan, byID map[uuid.UUID]*domainpayment.Invoice) []InvoiceAllocationResult {
	results := make([]InvoiceAllocationResult, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		inv := byID[entry.InvoiceID]
		results = append(results, InvoiceAllocationResult{
			InvoiceID:        entry.InvoiceID,
			AppliedAmount:    entry.Amount,
			ResultingBalance: inv.OutstandingBalance,
			InvoiceStatus:    inv.Status.String(),
		})
	}
	return results
}

func newProcessResult(p *domainpayment.Payment, allocations []InvoiceAllocationResult) *ProcessPaymentResult {
	return &ProcessPaymentResult{
		PaymentID:         p.ID,
		ReferenceKey:      p.ReferenceKey,
		TotalAmount:       p.TotalAmount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		FundingSource:     p.FundingSource.String(),
		Allocations:       allocations,
	}
}
