package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/infrastructure/persistence/models"
)

// GormCreditBalanceRepository implements CreditBalanceRepository using GORM
type GormCreditBalanceRepository struct {
	db *gorm.DB
}

// NewGormCreditBalanceRepository creates a new GormCreditBalanceRepository
func NewGormCreditBalanceRepository(db *gorm.DB) *GormCreditBalanceRepository {
	return &GormCreditBalanceRepository{db: db}
}

// FindByCustomerID finds the credit balance for a customer
func (r *GormCreditBalanceRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*payment.CreditBalance, error) {
	var model models.CreditBalanceModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a credit balance
func (r *GormCreditBalanceRepository) Save(ctx context.Context, balance *payment.CreditBalance) error {
	model := models.CreditBalanceModelFromDomain(balance)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormCreditBalanceRepository) SaveWithLock(ctx context.Context, balance *payment.CreditBalance) error {
	model := models.CreditBalanceModelFromDomain(balance)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", balance.ID, balance.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "The credit balance has been modified by another transaction")
	}
	return nil
}

var _ payment.CreditBalanceRepository = (*GormCreditBalanceRepository)(nil)
