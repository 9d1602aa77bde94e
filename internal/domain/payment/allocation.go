package payment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationTarget names an invoice and the amount the caller wants applied
// to it. Targets are ordered: first-listed invoices are paid first.
type AllocationTarget struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// PlannedAllocation is one entry of an allocation plan
type PlannedAllocation struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// AllocationPlan is the output of PlanAllocations. Entries preserve target
// order; Unallocated is the part of the payment the targets could not absorb.
type AllocationPlan struct {
	Entries     []PlannedAllocation
	Unallocated decimal.Decimal
}

// AllocatedTotal returns the sum of all planned entries
func (p *AllocationPlan) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// PlanAllocations computes how a payment amount is split across the given
// invoice targets. It is a pure function: the same inputs always produce the
// same plan, so the create and update paths share it.
//
// Each entry applies min(requested, invoice outstanding balance, remaining
// budget), walking targets in order. With allowPartial=false the plan must
// consume the whole amount and every requested amount must fit its invoice;
// otherwise the shortfall is reported as Unallocated, never silently dropped.
func PlanAllocations(
	totalAmount decimal.Decimal,
	targets []AllocationTarget,
	balances map[uuid.UUID]decimal.Decimal,
	allowPartial bool,
) (*AllocationPlan, error) {
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if len(targets) == 0 {
		return nil, shared.NewDomainError("INSUFFICIENT_ALLOCATION_TARGETS", "At least one allocation target is required")
	}

	requestedTotal := decimal.Zero
	seen := make(map[uuid.UUID]bool, len(targets))
	for _, t := range targets {
		if t.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_ALLOCATION_TARGET",
				fmt.Sprintf("Requested amount for invoice %s must be positive", t.InvoiceID))
		}
		balance, ok := balances[t.InvoiceID]
		if !ok {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND",
				fmt.Sprintf("Invoice %s not found", t.InvoiceID))
		}
		if seen[t.InvoiceID] {
			return nil, shared.NewDomainError("INVALID_ALLOCATION_TARGET",
				fmt.Sprintf("Invoice %s is targeted more than once", t.InvoiceID))
		}
		seen[t.InvoiceID] = true

		if !allowPartial && t.Amount.GreaterThan(balance) {
			return nil, shared.NewDomainError("INVALID_ALLOCATION_TARGET",
				fmt.Sprintf("Requested amount %s exceeds outstanding balance %s of invoice %s",
					t.Amount.StringFixed(2), balance.StringFixed(2), t.InvoiceID))
		}
		requestedTotal = requestedTotal.Add(t.Amount)
	}

	if !allowPartial && requestedTotal.LessThan(totalAmount) {
		return nil, shared.NewDomainError("INSUFFICIENT_ALLOCATION_TARGETS",
			fmt.Sprintf("Targets cover %s of payment amount %s",
				requestedTotal.StringFixed(2), totalAmount.StringFixed(2)))
	}

	plan := &AllocationPlan{Entries: make([]PlannedAllocation, 0, len(targets))}
	remaining := totalAmount
	for _, t := range targets {
		// Every target gets an entry, in request order. A target that can
		// absorb nothing reports a zero applied amount rather than vanishing
		// from the result.
		applied := decimal.Min(t.Amount, balances[t.InvoiceID], remaining)
		if applied.IsNegative() {
			applied = decimal.Zero
		}
		plan.Entries = append(plan.Entries, PlannedAllocation{InvoiceID: t.InvoiceID, Amount: applied})
		remaining = remaining.Sub(applied)
	}

	plan.Unallocated = remaining

	return plan, nil
}
