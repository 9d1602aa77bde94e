package payment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	customerID := uuid.New()

	tests := []struct {
		name          string
		referenceKey  string
		totalAmount   valueobject.Money
		fundingSource FundingSource
		wantErr       bool
	}{
		{
			name:          "valid cash payment",
			referenceKey:  "PAY-001",
			totalAmount:   valueobject.NewMoneyUSDFromFloat(100),
			fundingSource: FundingSourceCash,
			wantErr:       false,
		},
		{
			name:          "valid credit payment",
			referenceKey:  "PAY-002",
			totalAmount:   valueobject.NewMoneyUSDFromFloat(50),
			fundingSource: FundingSourceCredit,
			wantErr:       false,
		},
		{
			name:          "empty reference key",
			referenceKey:  "",
			totalAmount:   valueobject.NewMoneyUSDFromFloat(100),
			fundingSource: FundingSourceCash,
			wantErr:       true,
		},
		{
			name:          "zero amount",
			referenceKey:  "PAY-003",
			totalAmount:   valueobject.ZeroUSD(),
			fundingSource: FundingSourceCash,
			wantErr:       true,
		},
		{
			name:          "invalid funding source",
			referenceKey:  "PAY-004",
			totalAmount:   valueobject.NewMoneyUSDFromFloat(100),
			fundingSource: FundingSource("WIRE"),
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayment(tt.referenceKey, customerID, tt.totalAmount, tt.fundingSource)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.referenceKey, p.ReferenceKey)
			assert.Equal(t, PaymentStatusApplied, p.Status)
			assert.True(t, p.AllocatedAmount.IsZero())
			assert.True(t, p.UnallocatedAmount.Equal(tt.totalAmount.Amount()))
			assert.Len(t, p.GetDomainEvents(), 1)
		})
	}
}

func newTestPayment(t *testing.T, amount string) *Payment {
	t.Helper()
	m, err := valueobject.NewMoneyUSDFromString(amount)
	require.NoError(t, err)
	p, err := NewPayment("PAY-TEST", uuid.New(), m, FundingSourceCash)
	require.NoError(t, err)
	return p
}

func TestPayment_SetAllocations(t *testing.T) {
	p := newTestPayment(t, "100")
	inv1 := uuid.New()
	inv2 := uuid.New()

	plan := &AllocationPlan{
		Entries: []PlannedAllocation{
			{InvoiceID: inv1, Amount: dec("60")},
			{InvoiceID: inv2, Amount: dec("30")},
		},
		Unallocated: dec("10"),
	}

	require.NoError(t, p.SetAllocations(plan))
	assert.True(t, p.AllocatedAmount.Equal(dec("90")))
	assert.True(t, p.UnallocatedAmount.Equal(dec("10")))
	require.Len(t, p.ActiveAllocations(), 2)
	assert.Equal(t, inv1, p.ActiveAllocations()[0].InvoiceID)
	assert.Equal(t, p.ID, p.ActiveAllocations()[0].PaymentID)
}

func TestPayment_SetAllocations_ReplacesActiveSet(t *testing.T) {
	p := newTestPayment(t, "100")
	inv1 := uuid.New()
	inv2 := uuid.New()

	require.NoError(t, p.SetAllocations(&AllocationPlan{
		Entries: []PlannedAllocation{{InvoiceID: inv1, Amount: dec("100")}},
	}))
	require.NoError(t, p.SetAllocations(&AllocationPlan{
		Entries: []PlannedAllocation{{InvoiceID: inv2, Amount: dec("70")}},
	}))

	active := p.ActiveAllocations()
	require.Len(t, active, 1)
	assert.Equal(t, inv2, active[0].InvoiceID)
	assert.True(t, p.AllocatedAmount.Equal(dec("70")))
	assert.True(t, p.UnallocatedAmount.Equal(dec("30")))
}

func TestPayment_SetAllocations_ExceedsTotal(t *testing.T) {
	p := newTestPayment(t, "100")

	err := p.SetAllocations(&AllocationPlan{
		Entries: []PlannedAllocation{{InvoiceID: uuid.New(), Amount: dec("101")}},
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestPayment_Reverse(t *testing.T) {
	p := newTestPayment(t, "100")
	inv1 := uuid.New()
	require.NoError(t, p.SetAllocations(&AllocationPlan{
		Entries: []PlannedAllocation{{InvoiceID: inv1, Amount: dec("100")}},
	}))

	reversed, err := p.Reverse()
	require.NoError(t, err)
	require.Len(t, reversed, 1)
	assert.Equal(t, inv1, reversed[0].InvoiceID)
	assert.True(t, reversed[0].Amount.Equal(dec("100")))

	assert.Equal(t, PaymentStatusReversed, p.Status)
	assert.True(t, p.IsReversed())
	assert.NotNil(t, p.ReversedAt)
	assert.True(t, p.AllocatedAmount.IsZero())
	assert.True(t, p.UnallocatedAmount.IsZero())

	// Rows are retained for audit, just tagged.
	assert.Equal(t, 1, p.AllocationCount())
	assert.Empty(t, p.ActiveAllocations())
	assert.True(t, p.Allocations[0].Reversed)
	assert.NotNil(t, p.Allocations[0].ReversedAt)
}

func TestPayment_Reverse_Twice(t *testing.T) {
	p := newTestPayment(t, "100")
	_, err := p.Reverse()
	require.NoError(t, err)

	_, err = p.Reverse()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PAYMENT_ALREADY_REVERSED", domainErr.Code)
}

func TestPayment_SetAllocations_AfterReversal(t *testing.T) {
	p := newTestPayment(t, "100")
	_, err := p.Reverse()
	require.NoError(t, err)

	err = p.SetAllocations(&AllocationPlan{
		Entries: []PlannedAllocation{{InvoiceID: uuid.New(), Amount: dec("10")}},
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PAYMENT_ALREADY_REVERSED", domainErr.Code)
}

func TestPayment_AmountConservation(t *testing.T) {
	p := newTestPayment(t, "100")
	require.NoError(t, p.SetAllocations(&AllocationPlan{
		Entries: []PlannedAllocation{{InvoiceID: uuid.New(), Amount: dec("65.50")}},
	}))

	sum := p.AllocatedAmount.Add(p.UnallocatedAmount)
	assert.True(t, sum.Equal(p.TotalAmount))
	assert.True(t, p.UnallocatedAmount.Equal(decimal.RequireFromString("34.5")))
}

func TestPayment_IsCreditFunded(t *testing.T) {
	cash, err := NewPayment("PAY-C1", uuid.New(), valueobject.NewMoneyUSDFromFloat(10), FundingSourceCash)
	require.NoError(t, err)
	credit, err := NewPayment("PAY-C2", uuid.New(), valueobject.NewMoneyUSDFromFloat(10), FundingSourceCredit)
	require.NoError(t, err)

	assert.False(t, cash.IsCreditFunded())
	assert.True(t, credit.IsCreditFunded())
}
