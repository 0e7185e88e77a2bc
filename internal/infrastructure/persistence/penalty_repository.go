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

// GormPenaltyRepository implements contribution.PenaltyRepository using GORM
type GormPenaltyRepository struct {
	db *Database
}

// NewGormPenaltyRepository creates a new GormPenaltyRepository
func NewGormPenaltyRepository(db *Database) *GormPenaltyRepository {
	return &GormPenaltyRepository{db: db}
}

// FindByID finds a penalty by its ID
func (r *GormPenaltyRepository) FindByID(ctx context.Context, id uuid.UUID) (*contribution.Penalty, error) {
	var model models.PenaltyModel
	if err := r.db.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMemberPeriod finds the penalty for one member-period
func (r *GormPenaltyRepository) FindByMemberPeriod(ctx context.Context, memberID uuid.UUID, period contribution.Period) (*contribution.Penalty, error) {
	var model models.PenaltyModel
	err := r.db.conn(ctx).
		Where("member_id = ? AND period = ?", memberID, period).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists penalties with filtering
func (r *GormPenaltyRepository) FindAll(ctx context.Context, filter contribution.PenaltyFilter) ([]contribution.Penalty, error) {
	query := r.db.conn(ctx).Model(&models.PenaltyModel{})

	if filter.MemberID != nil {
		query = query.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Period != nil {
		query = query.Where("period = ?", *filter.Period)
	}

	query = applyOrdering(query, filter.Filter, "period ASC, created_at ASC")
	query = applyPagination(query, filter.Filter)

	var rows []models.PenaltyModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	penalties := make([]contribution.Penalty, len(rows))
	for i := range rows {
		penalties[i] = *rows[i].ToDomain()
	}
	return penalties, nil
}

// FindUnpaid lists all unpaid penalties, oldest period first
func (r *GormPenaltyRepository) FindUnpaid(ctx context.Context) ([]contribution.Penalty, error) {
	var rows []models.PenaltyModel
	err := r.db.conn(ctx).
		Where("status = ?", contribution.PenaltyStatusUnpaid).
		Order("period ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	penalties := make([]contribution.Penalty, len(rows))
	for i := range rows {
		penalties[i] = *rows[i].ToDomain()
	}
	return penalties, nil
}

// Create inserts a new penalty row. The (member, period) uniqueness
// constraint surfaces as shared.ErrDuplicateKey.
func (r *GormPenaltyRepository) Create(ctx context.Context, penalty *contribution.Penalty) error {
	model := models.PenaltyModelFromDomain(penalty)
	if err := r.db.conn(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Update saves recomputed fields with an optimistic version check
func (r *GormPenaltyRepository) Update(ctx context.Context, penalty *contribution.Penalty) error {
	// Explicit column map: a recomputed amount may legitimately be zero,
	// which a struct-based update would skip.
	result := r.db.conn(ctx).
		Model(&models.PenaltyModel{}).
		Where("id = ? AND version = ?", penalty.ID, penalty.Version).
		Updates(map[string]any{
			"contribution_amount": penalty.ContributionAmount,
			"penalty_rate":        penalty.PenaltyRate,
			"shortfall":           penalty.Shortfall,
			"amount":              penalty.Amount,
			"status":              penalty.Status,
			"calculated_at":       penalty.CalculatedAt,
			"journal_entry_id":    penalty.JournalEntryID,
			"version":             penalty.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("Penalty was modified concurrently")
	}
	penalty.Version++
	return nil
}

// Ensure GormPenaltyRepository implements PenaltyRepository
var _ contribution.PenaltyRepository = (*GormPenaltyRepository)(nil)
