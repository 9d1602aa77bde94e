package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/domain/shared/valueobject"
	"github.com/grolife/invoice-engine/internal/infrastructure/persistence/models"
)

func setupCreditBalanceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CreditBalanceModel{})
	require.NoError(t, err)

	return db
}

func TestCreditBalanceRepository_SaveAndFind(t *testing.T) {
	db := setupCreditBalanceTestDB(t)
	repo := NewGormCreditBalanceRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	cb, err := payment.NewCreditBalance(customerID, valueobject.NewMoneyUSDFromFloat(200))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cb))

	found, err := repo.FindByCustomerID(ctx, customerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, customerID, found.CustomerID)
	assert.True(t, found.Available.Equal(dec(200)))

	missing, err := repo.FindByCustomerID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreditBalanceRepository_SaveWithLock(t *testing.T) {
	db := setupCreditBalanceTestDB(t)
	repo := NewGormCreditBalanceRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	cb, err := payment.NewCreditBalance(customerID, valueobject.NewMoneyUSDFromFloat(200))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cb))

	require.NoError(t, cb.Debit(dec(150)))
	require.NoError(t, repo.SaveWithLock(ctx, cb))

	found, err := repo.FindByCustomerID(ctx, customerID)
	require.NoError(t, err)
	assert.True(t, found.Available.Equal(dec(50)))
	assert.Equal(t, 2, found.Version)
}

func TestCreditBalanceRepository_SaveWithLock_Conflict(t *testing.T) {
	db := setupCreditBalanceTestDB(t)
	repo := NewGormCreditBalanceRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	cb, err := payment.NewCreditBalance(customerID, valueobject.NewMoneyUSDFromFloat(200))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cb))

	first, err := repo.FindByCustomerID(ctx, customerID)
	require.NoError(t, err)
	second, err := repo.FindByCustomerID(ctx, customerID)
	require.NoError(t, err)

	require.NoError(t, first.Debit(dec(100)))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.Debit(dec(100)))
	err = repo.SaveWithLock(ctx, second)
	assertDomainErrorCode(t, err, "CONCURRENCY_CONFLICT")
}
