package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/domain/shared"
	"github.com/welfare/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements contribution.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *Database
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *Database) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*contribution.Payment, error) {
	var model models.PaymentModel
	if err := r.db.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMember lists a member's payments, newest first
func (r *GormPaymentRepository) FindByMember(ctx context.Context, memberID uuid.UUID, filter shared.Filter) ([]contribution.Payment, error) {
	query := r.db.conn(ctx).Model(&models.PaymentModel{}).Where("member_id = ?", memberID)
	query = applyOrdering(query, filter, "payment_date DESC, created_at DESC")
	query = applyPagination(query, filter)

	var rows []models.PaymentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	payments := make([]contribution.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *contribution.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.conn(ctx).Save(model).Error
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ contribution.PaymentRepository = (*GormPaymentRepository)(nil)
