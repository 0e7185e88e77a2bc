package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/domain/shared"
	"github.com/welfare/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAllocationRepository implements contribution.AllocationRepository using GORM
type GormAllocationRepository struct {
	db *Database
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *Database) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// SaveAll persists a batch of allocation rows
func (r *GormAllocationRepository) SaveAll(ctx context.Context, allocations []*contribution.ContributionAllocation) error {
	if len(allocations) == 0 {
		return nil
	}

	rows := make([]models.ContributionAllocationModel, len(allocations))
	for i, a := range allocations {
		rows[i].FromDomain(a)
	}

	if err := r.db.conn(ctx).Create(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// FindByPayment lists a payment's allocations, oldest period first
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]contribution.ContributionAllocation, error) {
	var rows []models.ContributionAllocationModel
	err := r.db.conn(ctx).
		Where("payment_id = ?", paymentID).
		Order("period ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	allocations := make([]contribution.ContributionAllocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations, nil
}

// SumByMemberPeriod returns the member's allocated total for one period
func (r *GormAllocationRepository) SumByMemberPeriod(ctx context.Context, memberID uuid.UUID, period contribution.Period) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.conn(ctx).
		Model(&models.ContributionAllocationModel{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("member_id = ? AND period = ?", memberID, period).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// SumsByMember returns allocated totals keyed by period token
func (r *GormAllocationRepository) SumsByMember(ctx context.Context, memberID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Period string
		Total  decimal.Decimal
	}
	err := r.db.conn(ctx).
		Model(&models.ContributionAllocationModel{}).
		Select("period, COALESCE(SUM(amount), 0) AS total").
		Where("member_id = ?", memberID).
		Group("period").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Period] = row.Total
	}
	return sums, nil
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ contribution.AllocationRepository = (*GormAllocationRepository)(nil)
