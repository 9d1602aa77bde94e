package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/domain/shared"
	"github.com/grolife/invoice-engine/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements PaymentRepository using GORM.
// Allocation rows are loaded and written together with the payment; the
// aggregate owns them, so the stored set always mirrors the in-memory set
// (reversed rows included).
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID, allocations included
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReferenceKey finds a payment by its reference key
func (r *GormPaymentRepository) FindByReferenceKey(ctx context.Context, referenceKey string) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("reference_key = ?", referenceKey).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists payments with pagination
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]payment.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Order(orderClause(filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]payment.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// ExistsByReferenceKey checks whether a reference key is already in use
func (r *GormPaymentRepository) ExistsByReferenceKey(ctx context.Context, referenceKey string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("reference_key = ?", referenceKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a payment together with its allocation rows
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	model := models.PaymentModelFromDomain(p)
	if err := r.db.WithContext(ctx).
		Omit("Allocations").
		Save(model).Error; err != nil {
		return translateDuplicateReference(err, p.ReferenceKey)
	}
	return r.syncAllocations(ctx, model)
}

// SaveWithLock saves with optimistic locking
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	model := models.PaymentModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Select("*").
		Omit("Allocations").
		Updates(model)

	if result.Error != nil {
		return translateDuplicateReference(result.Error, p.ReferenceKey)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "The payment has been modified by another transaction")
	}
	return r.syncAllocations(ctx, model)
}

// translateDuplicateReference maps the unique index violation on reference_key
// to the domain error the duplicate pre-check would have produced. Two
// concurrent creates can both pass the pre-check; the index is the backstop.
func translateDuplicateReference(err error, referenceKey string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError("DUPLICATE_REFERENCE",
			fmt.Sprintf("Reference key %s is already in use", referenceKey))
	}
	return err
}

// Count counts all payments
func (r *GormPaymentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Count(&count).Error
	return count, err
}

// syncAllocations makes the stored allocation rows match the aggregate's set.
// Rows no longer present are removed, the rest are upserted in place.
func (r *GormPaymentRepository) syncAllocations(ctx context.Context, model *models.PaymentModel) error {
	ids := make([]uuid.UUID, 0, len(model.Allocations))
	for i := range model.Allocations {
		ids = append(ids, model.Allocations[i].ID)
	}

	query := r.db.WithContext(ctx).Where("payment_id = ?", model.ID)
	if len(ids) > 0 {
		query = query.Where("id NOT IN ?", ids)
	}
	if err := query.Delete(&models.PaymentAllocationModel{}).Error; err != nil {
		return err
	}

	if len(model.Allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&model.Allocations).Error
}

// orderClause builds a safe ORDER BY from the filter. Unknown columns fall
// back to created_at.
func orderClause(filter shared.Filter) string {
	column := "created_at"
	switch filter.OrderBy {
	case "created_at", "updated_at", "reference_key", "total_amount", "status":
		column = filter.OrderBy
	}
	dir := "desc"
	if filter.OrderDir == "asc" {
		dir = "asc"
	}
	return fmt.Sprintf("%s %s", column, dir)
}

var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)
