package payment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoice(t *testing.T) {
	customerID := uuid.New()

	tests := []struct {
		name          string
		invoiceNumber string
		customerID    uuid.UUID
		totalAmount   valueobject.Money
		wantErr       bool
	}{
		{
			name:          "valid invoice",
			invoiceNumber: "INV-2026-001",
			customerID:    customerID,
			totalAmount:   valueobject.NewMoneyUSDFromFloat(250.00),
			wantErr:       false,
		},
		{
			name:          "empty invoice number",
			invoiceNumber: "",
			customerID:    customerID,
			totalAmount:   valueobject.NewMoneyUSDFromFloat(250.00),
			wantErr:       true,
		},
		{
			name:          "nil customer",
			invoiceNumber: "INV-2026-002",
			customerID:    uuid.Nil,
			totalAmount:   valueobject.NewMoneyUSDFromFloat(250.00),
			wantErr:       true,
		},
		{
			name:          "zero amount",
			invoiceNumber: "INV-2026-003",
			customerID:    customerID,
			totalAmount:   valueobject.ZeroUSD(),
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice(tt.invoiceNumber, tt.customerID, tt.totalAmount)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, inv)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.invoiceNumber, inv.InvoiceNumber)
			assert.Equal(t, InvoiceStatusOpen, inv.Status)
			assert.True(t, inv.OutstandingBalance.Equal(tt.totalAmount.Amount()))
			assert.Nil(t, inv.PaidAt)
		})
	}
}

func TestInvoice_ApplyAllocation(t *testing.T) {
	inv, err := NewInvoice("INV-001", uuid.New(), valueobject.NewMoneyUSDFromFloat(100))
	require.NoError(t, err)

	err = inv.ApplyAllocation(dec("40"))
	require.NoError(t, err)
	assert.True(t, inv.OutstandingBalance.Equal(dec("60")))
	assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)

	err = inv.ApplyAllocation(dec("60"))
	require.NoError(t, err)
	assert.True(t, inv.OutstandingBalance.IsZero())
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.NotNil(t, inv.PaidAt)
	assert.True(t, inv.IsPaid())
}

func TestInvoice_ApplyAllocation_ExceedsBalance(t *testing.T) {
	inv, err := NewInvoice("INV-001", uuid.New(), valueobject.NewMoneyUSDFromFloat(100))
	require.NoError(t, err)

	err = inv.ApplyAllocation(dec("150"))
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_ALLOCATION_TARGET", domainErr.Code)
	assert.True(t, inv.OutstandingBalance.Equal(dec("100")))
}

func TestInvoice_ApplyAllocation_PaidInvoiceRejects(t *testing.T) {
	inv, err := NewInvoice("INV-001", uuid.New(), valueobject.NewMoneyUSDFromFloat(50))
	require.NoError(t, err)
	require.NoError(t, inv.ApplyAllocation(dec("50")))

	err = inv.ApplyAllocation(dec("1"))
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestInvoice_RestoreAllocation(t *testing.T) {
	inv, err := NewInvoice("INV-001", uuid.New(), valueobject.NewMoneyUSDFromFloat(100))
	require.NoError(t, err)
	require.NoError(t, inv.ApplyAllocation(dec("100")))
	require.Equal(t, InvoiceStatusPaid, inv.Status)

	err = inv.RestoreAllocation(dec("100"))
	require.NoError(t, err)
	assert.True(t, inv.OutstandingBalance.Equal(dec("100")))
	assert.Equal(t, InvoiceStatusOpen, inv.Status)
	assert.Nil(t, inv.PaidAt)
}

func TestInvoice_RestoreAllocation_CannotExceedTotal(t *testing.T) {
	inv, err := NewInvoice("INV-001", uuid.New(), valueobject.NewMoneyUSDFromFloat(100))
	require.NoError(t, err)
	require.NoError(t, inv.ApplyAllocation(dec("30")))

	err = inv.RestoreAllocation(dec("50"))
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	assert.True(t, inv.OutstandingBalance.Equal(dec("70")))
}

func TestInvoice_Close(t *testing.T) {
	inv, err := NewInvoice("INV-001", uuid.New(), valueobject.NewMoneyUSDFromFloat(100))
	require.NoError(t, err)

	require.NoError(t, inv.Close())
	assert.Equal(t, InvoiceStatusClosed, inv.Status)
	assert.False(t, inv.Status.CanAcceptAllocation())

	err = inv.Close()
	assert.Error(t, err)
}

func TestInvoiceStatus_Validity(t *testing.T) {
	assert.True(t, InvoiceStatusOpen.IsValid())
	assert.True(t, InvoiceStatusPartiallyPaid.IsValid())
	assert.True(t, InvoiceStatusPaid.IsValid())
	assert.True(t, InvoiceStatusClosed.IsValid())
	assert.False(t, InvoiceStatus("BOGUS").IsValid())
	assert.False(t, InvoiceStatusPaid.CanAcceptAllocation())
}
