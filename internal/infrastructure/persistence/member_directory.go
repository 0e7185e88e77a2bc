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

// GormMemberDirectory implements contribution.MemberDirectory against the
// locally replicated members table. Member management owns the table's
// contents; the financial core only reads it.
type GormMemberDirectory struct {
	db *Database
}

// NewGormMemberDirectory creates a new GormMemberDirectory
func NewGormMemberDirectory(db *Database) *GormMemberDirectory {
	return &GormMemberDirectory{db: db}
}

// GetMember returns the member or shared.ErrNotFound
func (r *GormMemberDirectory) GetMember(ctx context.Context, id uuid.UUID) (*contribution.Member, error) {
	var model models.MemberModel
	if err := r.db.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	member := model.ToDomain()
	return &member, nil
}

// ListActiveMembers returns all members currently subject to contribution
// obligations, oldest enrollment first
func (r *GormMemberDirectory) ListActiveMembers(ctx context.Context) ([]contribution.Member, error) {
	var rows []models.MemberModel
	err := r.db.conn(ctx).
		Where("active = ?", true).
		Order("enrollment_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]contribution.Member, len(rows))
	for i := range rows {
		members[i] = rows[i].ToDomain()
	}
	return members, nil
}

// Ensure GormMemberDirectory implements MemberDirectory
var _ contribution.MemberDirectory = (*GormMemberDirectory)(nil)
