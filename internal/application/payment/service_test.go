package payment

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpayment "github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// In-memory repositories
// =============================================================================

type memInvoiceRepo struct {
	items map[uuid.UUID]domainpayment.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{items: make(map[uuid.UUID]domainpayment.Invoice)}
}

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*domainpayment.Invoice, error) {
	inv, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *memInvoiceRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]domainpayment.Invoice, error) {
	out := make([]domainpayment.Invoice, 0, len(ids))
	for _, id := range ids {
		if inv, ok := r.items[id]; ok {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memInvoiceRepo) Save(_ context.Context, inv *domainpayment.Invoice) error {
	r.items[inv.ID] = *inv
	return nil
}

func (r *memInvoiceRepo) SaveWithLock(_ context.Context, inv *domainpayment.Invoice) error {
	r.items[inv.ID] = *inv
	return nil
}

type memPaymentRepo struct {
	items map[uuid.UUID]domainpayment.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{items: make(map[uuid.UUID]domainpayment.Payment)}
}

func copyPayment(p domainpayment.Payment) domainpayment.Payment {
	allocations := make([]domainpayment.Allocation, len(p.Allocations))
	copy(allocations, p.Allocations)
	p.Allocations = allocations
	return p
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*domainpayment.Payment, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := copyPayment(p)
	return &cp, nil
}

func (r *memPaymentRepo) FindByReferenceKey(_ context.Context, key string) (*domainpayment.Payment, error) {
	for _, p := range r.items {
		if p.ReferenceKey == key {
			cp := copyPayment(p)
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) FindAll(_ context.Context, filter shared.Filter) ([]domainpayment.Payment, error) {
	out := make([]domainpayment.Payment, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, copyPayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	offset := filter.Offset()
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + filter.Limit()
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *memPaymentRepo) ExistsByReferenceKey(_ context.Context, key string) (bool, error) {
	for _, p := range r.items {
		if p.ReferenceKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPaymentRepo) Save(_ context.Context, p *domainpayment.Payment) error {
	r.items[p.ID] = copyPayment(*p)
	return nil
}

func (r *memPaymentRepo) SaveWithLock(_ context.Context, p *domainpayment.Payment) error {
	r.items[p.ID] = copyPayment(*p)
	return nil
}

func (r *memPaymentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.items)), nil
}

type memCreditRepo struct {
	items map[uuid.UUID]domainpayment.CreditBalance
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{items: make(map[uuid.UUID]domainpayment.CreditBalance)}
}

func (r *memCreditRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID) (*domainpayment.CreditBalance, error) {
	cb, ok := r.items[customerID]
	if !ok {
		return nil, nil
	}
	return &cb, nil
}

func (r *memCreditRepo) Save(_ context.Context, cb *domainpayment.CreditBalance) error {
	r.items[cb.CustomerID] = *cb
	return nil
}

func (r *memCreditRepo) SaveWithLock(_ context.Context, cb *domainpayment.CreditBalance) error {
	r.items[cb.CustomerID] = *cb
	return nil
}

var (
	_ domainpayment.InvoiceRepository       = (*memInvoiceRepo)(nil)
	_ domainpayment.PaymentRepository       = (*memPaymentRepo)(nil)
	_ domainpayment.CreditBalanceRepository = (*memCreditRepo)(nil)
)

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	customerID uuid.UUID
	invoices   *memInvoiceRepo
	payments   *memPaymentRepo
	credits    *memCreditRepo
	service    *PaymentService
	reversal   *ReversalService
	credit     *CreditFundingService
	query      *QueryService
}

func newFixture() *fixture {
	invoices := newMemInvoiceRepo()
	payments := newMemPaymentRepo()
	credits := newMemCreditRepo()
	scope := NewNoOpTransactionScope(payments, invoices, credits)
	service := NewPaymentService(scope)
	return &fixture{
		customerID: uuid.New(),
		invoices:   invoices,
		payments:   payments,
		credits:    credits,
		service:    service,
		reversal:   NewReversalService(scope),
		credit:     NewCreditFundingService(service),
		query:      NewQueryService(payments),
	}
}

func (f *fixture) addInvoice(t *testing.T, number, total string) *domainpayment.Invoice {
	t.Helper()
	amount, err := valueobject.NewMoneyUSDFromString(total)
	require.NoError(t, err)
	inv, err := domainpayment.NewInvoice(number, f.customerID, amount)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Save(context.Background(), inv))
	return inv
}

func (f *fixture) addCredit(t *testing.T, available string) {
	t.Helper()
	amount, err := valueobject.NewMoneyUSDFromString(available)
	require.NoError(t, err)
	cb, err := domainpayment.NewCreditBalance(f.customerID, amount)
	require.NoError(t, err)
	require.NoError(t, f.credits.Save(context.Background(), cb))
}

func (f *fixture) invoiceBalance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	inv, err := f.invoices.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv.OutstandingBalance
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

// =============================================================================
// PaymentService
// =============================================================================

func TestPaymentService_CreatePayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invA := f.addInvoice(t, "INV-A", "60")
	invB := f.addInvoice(t, "INV-B", "40")

	result, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("100"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets: []AllocationTargetRequest{
			{InvoiceID: invA.ID, Amount: dec("60")},
			{InvoiceID: invB.ID, Amount: dec("40")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "PAY-001", result.ReferenceKey)
	assert.True(t, result.AllocatedAmount.Equal(dec("100")))
	assert.True(t, result.UnallocatedAmount.IsZero())
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, invA.ID, result.Allocations[0].InvoiceID)
	assert.True(t, result.Allocations[0].AppliedAmount.Equal(dec("60")))
	assert.Equal(t, domainpayment.InvoiceStatusPaid.String(), result.Allocations[0].InvoiceStatus)

	assert.True(t, f.invoiceBalance(t, invA.ID).IsZero())
	assert.True(t, f.invoiceBalance(t, invB.ID).IsZero())

	stored, err := f.payments.FindByID(ctx, result.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domainpayment.PaymentStatusApplied, stored.Status)
	assert.Len(t, stored.Allocations, 2)
}

func TestPaymentService_CreatePayment_DuplicateReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")
	req := ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("50"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("50")}},
	}

	_, err := f.service.CreatePayment(ctx, req)
	require.NoError(t, err)

	_, err = f.service.CreatePayment(ctx, req)
	assertDomainCode(t, err, "DUPLICATE_REFERENCE")
	// First payment's effect stands untouched.
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("50")))
}

func TestPaymentService_CreatePayment_OrderedBudget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invA := f.addInvoice(t, "INV-A", "80")
	invB := f.addInvoice(t, "INV-B", "80")

	result, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("100"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets: []AllocationTargetRequest{
			{InvoiceID: invA.ID, Amount: dec("80")},
			{InvoiceID: invB.ID, Amount: dec("80")},
		},
	})

	require.NoError(t, err)
	assert.True(t, f.invoiceBalance(t, invA.ID).IsZero())
	assert.True(t, f.invoiceBalance(t, invB.ID).Equal(dec("60")))
	assert.True(t, result.UnallocatedAmount.IsZero())
}

func TestPaymentService_CreatePayment_StrictModeErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "30")

	_, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("50"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("50")}},
	})
	assertDomainCode(t, err, "INVALID_ALLOCATION_TARGET")
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("30")))

	_, err = f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-002",
		CustomerID:    f.customerID,
		TotalAmount:   dec("50"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("30")}},
	})
	assertDomainCode(t, err, "INSUFFICIENT_ALLOCATION_TARGETS")
}

func TestPaymentService_CreatePayment_UnknownInvoice(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreatePayment(context.Background(), ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("50"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets:       []AllocationTargetRequest{{InvoiceID: uuid.New(), Amount: dec("50")}},
	})
	assertDomainCode(t, err, "INVOICE_NOT_FOUND")
}

func TestPaymentService_UpdatePayment_MovesAllocations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invA := f.addInvoice(t, "INV-A", "60")
	invB := f.addInvoice(t, "INV-B", "40")
	invC := f.addInvoice(t, "INV-C", "80")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("100"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets: []AllocationTargetRequest{
			{InvoiceID: invA.ID, Amount: dec("60")},
			{InvoiceID: invB.ID, Amount: dec("40")},
		},
	})
	require.NoError(t, err)

	// Re-point the whole payment at invoice C. C can only absorb 80 of the
	// 100, so the remaining 20 must come back as unallocated.
	updated, err := f.service.UpdatePayment(ctx, UpdatePaymentRequest{
		PaymentID:    created.PaymentID,
		AllowPartial: true,
		Targets:      []AllocationTargetRequest{{InvoiceID: invC.ID, Amount: dec("100")}},
	})
	require.NoError(t, err)

	assert.True(t, updated.AllocatedAmount.Equal(dec("80")))
	assert.True(t, updated.UnallocatedAmount.Equal(dec("20")))

	// Old invoices are fully compensated, the new one is paid down.
	assert.True(t, f.invoiceBalance(t, invA.ID).Equal(dec("60")))
	assert.True(t, f.invoiceBalance(t, invB.ID).Equal(dec("40")))
	assert.True(t, f.invoiceBalance(t, invC.ID).IsZero())

	stored, err := f.payments.FindByID(ctx, created.PaymentID)
	require.NoError(t, err)
	active := stored.ActiveAllocations()
	require.Len(t, active, 1)
	assert.Equal(t, invC.ID, active[0].InvoiceID)
}

func TestPaymentService_UpdatePayment_SameInvoiceNetChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("70"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("70")}},
	})
	require.NoError(t, err)
	require.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("30")))

	// Shrink the allocation on the same invoice: only the delta moves.
	updated, err := f.service.UpdatePayment(ctx, UpdatePaymentRequest{
		PaymentID:    created.PaymentID,
		AllowPartial: true,
		Targets:      []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("40")}},
	})
	require.NoError(t, err)

	assert.True(t, updated.AllocatedAmount.Equal(dec("40")))
	assert.True(t, updated.UnallocatedAmount.Equal(dec("30")))
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("60")))
}

func TestPaymentService_UpdatePayment_ByReferenceKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invA := f.addInvoice(t, "INV-A", "50")
	invB := f.addInvoice(t, "INV-B", "50")

	_, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("50"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets:       []AllocationTargetRequest{{InvoiceID: invA.ID, Amount: dec("50")}},
	})
	require.NoError(t, err)

	// No payment ID given: the reference key alone addresses the payment.
	updated, err := f.service.UpdatePayment(ctx, UpdatePaymentRequest{
		ReferenceKey: "PAY-001",
		Targets:      []AllocationTargetRequest{{InvoiceID: invB.ID, Amount: dec("50")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "PAY-001", updated.ReferenceKey)
	assert.True(t, f.invoiceBalance(t, invA.ID).Equal(dec("50")))
	assert.True(t, f.invoiceBalance(t, invB.ID).IsZero())

	_, err = f.service.UpdatePayment(ctx, UpdatePaymentRequest{
		ReferenceKey: "PAY-MISSING",
		Targets:      []AllocationTargetRequest{{InvoiceID: invB.ID, Amount: dec("50")}},
	})
	assertDomainCode(t, err, "PAYMENT_NOT_FOUND")
}

func TestPaymentService_UpdatePayment_MissingIdentifier(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdatePayment(context.Background(), UpdatePaymentRequest{
		Targets: []AllocationTargetRequest{{InvoiceID: uuid.New(), Amount: dec("10")}},
	})
	assertDomainCode(t, err, "INVALID_INPUT")
}

func TestPaymentService_UpdatePayment_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdatePayment(context.Background(), UpdatePaymentRequest{
		PaymentID: uuid.New(),
		Targets:   []AllocationTargetRequest{{InvoiceID: uuid.New(), Amount: dec("10")}},
	})
	assertDomainCode(t, err, "PAYMENT_NOT_FOUND")
}

func TestPaymentService_UpdatePayment_ReversedPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("50"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("50")}},
	})
	require.NoError(t, err)

	_, err = f.reversal.ReverseByID(ctx, created.PaymentID)
	require.NoError(t, err)

	_, err = f.service.UpdatePayment(ctx, UpdatePaymentRequest{
		PaymentID:    created.PaymentID,
		AllowPartial: true,
		Targets:      []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("50")}},
	})
	assertDomainCode(t, err, "PAYMENT_ALREADY_REVERSED")
}

// =============================================================================
// ReversalService
// =============================================================================

func TestReversalService_ReverseByID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invA := f.addInvoice(t, "INV-A", "60")
	invB := f.addInvoice(t, "INV-B", "40")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("100"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets: []AllocationTargetRequest{
			{InvoiceID: invA.ID, Amount: dec("60")},
			{InvoiceID: invB.ID, Amount: dec("40")},
		},
	})
	require.NoError(t, err)

	result, err := f.reversal.ReverseByID(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.True(t, result.ReversedAmount.Equal(dec("100")))
	assert.False(t, result.CreditRestored)
	assert.Len(t, result.RestoredInvoices, 2)

	assert.True(t, f.invoiceBalance(t, invA.ID).Equal(dec("60")))
	assert.True(t, f.invoiceBalance(t, invB.ID).Equal(dec("40")))

	stored, err := f.payments.FindByID(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domainpayment.PaymentStatusReversed, stored.Status)
	assert.Len(t, stored.Allocations, 2)
	for _, a := range stored.Allocations {
		assert.True(t, a.Reversed)
	}
}

func TestReversalService_SecondReversalFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("100"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("100")}},
	})
	require.NoError(t, err)

	_, err = f.reversal.ReverseByID(ctx, created.PaymentID)
	require.NoError(t, err)

	_, err = f.reversal.ReverseByID(ctx, created.PaymentID)
	assertDomainCode(t, err, "PAYMENT_ALREADY_REVERSED")
	// Balance restored exactly once.
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("100")))
}

func TestReversalService_ReverseAfterUpdate_RestoresLatestSet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invA := f.addInvoice(t, "INV-A", "100")
	invB := f.addInvoice(t, "INV-B", "50")
	invC := f.addInvoice(t, "INV-C", "80")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("120"),
		FundingSource: domainpayment.FundingSourceCash,
		Targets: []AllocationTargetRequest{
			{InvoiceID: invA.ID, Amount: dec("100")},
			{InvoiceID: invB.ID, Amount: dec("20")},
		},
	})
	require.NoError(t, err)
	require.True(t, f.invoiceBalance(t, invA.ID).IsZero())
	require.True(t, f.invoiceBalance(t, invB.ID).Equal(dec("30")))

	_, err = f.service.UpdatePayment(ctx, UpdatePaymentRequest{
		PaymentID:    created.PaymentID,
		AllowPartial: true,
		Targets:      []AllocationTargetRequest{{InvoiceID: invC.ID, Amount: dec("100")}},
	})
	require.NoError(t, err)

	// Reversal undoes the current allocation set, not the original one:
	// only invoice C moves, A and B were already compensated by the update.
	result, err := f.reversal.ReverseByID(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.True(t, result.ReversedAmount.Equal(dec("80")))
	require.Len(t, result.RestoredInvoices, 1)
	assert.Equal(t, invC.ID, result.RestoredInvoices[0].InvoiceID)

	assert.True(t, f.invoiceBalance(t, invA.ID).Equal(dec("100")))
	assert.True(t, f.invoiceBalance(t, invB.ID).Equal(dec("50")))
	assert.True(t, f.invoiceBalance(t, invC.ID).Equal(dec("80")))

	stored, err := f.payments.FindByID(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domainpayment.PaymentStatusReversed, stored.Status)
}

func TestReversalService_ReverseByReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")

	_, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-REF-42",
		CustomerID:    f.customerID,
		TotalAmount:   dec("60"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("60")}},
	})
	require.NoError(t, err)

	result, err := f.reversal.ReverseByReference(ctx, "PAY-REF-42")
	require.NoError(t, err)
	assert.Equal(t, "PAY-REF-42", result.ReferenceKey)
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("100")))

	_, err = f.reversal.ReverseByReference(ctx, "PAY-MISSING")
	assertDomainCode(t, err, "PAYMENT_NOT_FOUND")
}

// =============================================================================
// CreditFundingService
// =============================================================================

func TestCreditFundingService_UseCreditForPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")
	f.addCredit(t, "150")

	result, err := f.credit.UseCreditForPayment(ctx, UseCreditRequest{
		ReferenceKey: "PAY-001",
		CustomerID:   f.customerID,
		TotalAmount:  dec("100"),
		Targets:      []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("100")}},
	})
	require.NoError(t, err)
	assert.Equal(t, domainpayment.FundingSourceCredit.String(), result.FundingSource)
	assert.True(t, f.invoiceBalance(t, inv.ID).IsZero())

	cb, err := f.credits.FindByCustomerID(ctx, f.customerID)
	require.NoError(t, err)
	assert.True(t, cb.Available.Equal(dec("50")))
}

func TestCreditFundingService_InsufficientCredit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")
	f.addCredit(t, "30")

	_, err := f.credit.UseCreditForPayment(ctx, UseCreditRequest{
		ReferenceKey: "PAY-001",
		CustomerID:   f.customerID,
		TotalAmount:  dec("100"),
		Targets:      []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("100")}},
	})
	assertDomainCode(t, err, "INSUFFICIENT_CREDIT")

	// Nothing was persisted.
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("100")))
	cb, err := f.credits.FindByCustomerID(ctx, f.customerID)
	require.NoError(t, err)
	assert.True(t, cb.Available.Equal(dec("30")))
}

func TestCreditFundingService_NoCreditBalance(t *testing.T) {
	f := newFixture()
	inv := f.addInvoice(t, "INV-A", "100")

	_, err := f.credit.UseCreditForPayment(context.Background(), UseCreditRequest{
		ReferenceKey: "PAY-001",
		CustomerID:   f.customerID,
		TotalAmount:  dec("50"),
		AllowPartial: true,
		Targets:      []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("50")}},
	})
	assertDomainCode(t, err, "INSUFFICIENT_CREDIT")
}

func TestReversal_CreditFunded_RestoresBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")
	f.addCredit(t, "100")

	created, err := f.credit.UseCreditForPayment(ctx, UseCreditRequest{
		ReferenceKey: "PAY-001",
		CustomerID:   f.customerID,
		TotalAmount:  dec("100"),
		Targets:      []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("100")}},
	})
	require.NoError(t, err)

	cb, err := f.credits.FindByCustomerID(ctx, f.customerID)
	require.NoError(t, err)
	require.True(t, cb.Available.IsZero())

	result, err := f.reversal.ReverseByID(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.True(t, result.CreditRestored)

	cb, err = f.credits.FindByCustomerID(ctx, f.customerID)
	require.NoError(t, err)
	assert.True(t, cb.Available.Equal(dec("100")))
	assert.True(t, f.invoiceBalance(t, inv.ID).Equal(dec("100")))
}

// =============================================================================
// QueryService
// =============================================================================

func TestQueryService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.addInvoice(t, "INV-A", "100")

	created, err := f.service.CreatePayment(ctx, ProcessPaymentRequest{
		ReferenceKey:  "PAY-001",
		CustomerID:    f.customerID,
		TotalAmount:   dec("60"),
		FundingSource: domainpayment.FundingSourceCash,
		AllowPartial:  true,
		Targets:       []AllocationTargetRequest{{InvoiceID: inv.ID, Amount: dec("60")}},
	})
	require.NoError(t, err)

	got, err := f.query.GetPayment(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-001", got.ReferenceKey)
	assert.Len(t, got.Allocations, 1)

	byRef, err := f.query.GetPaymentByReference(ctx, "PAY-001")
	require.NoError(t, err)
	assert.Equal(t, created.PaymentID, byRef.ID)

	_, err = f.query.GetPayment(ctx, uuid.New())
	assertDomainCode(t, err, "PAYMENT_NOT_FOUND")

	list, total, err := f.query.ListPayments(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "PAY-001", list[0].ReferenceKey)
}
