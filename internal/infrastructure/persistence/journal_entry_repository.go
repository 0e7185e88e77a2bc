package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"github.com/welfare/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormJournalEntryRepository implements ledger.JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db *Database
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *Database) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// FindByID finds an entry with its lines by ID
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	err := r.db.conn(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an entry with its lines by entry number
func (r *GormJournalEntryRepository) FindByNumber(ctx context.Context, entryNumber string) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	err := r.db.conn(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("entry_number = ?", entryNumber).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists entries with filtering. Lines are loaded with each entry.
func (r *GormJournalEntryRepository) FindAll(ctx context.Context, filter ledger.EntryFilter) ([]ledger.JournalEntry, error) {
	query := r.db.conn(ctx).Model(&models.JournalEntryModel{}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("entry_number ILIKE ? OR reference ILIKE ? OR description ILIKE ?",
			pattern, pattern, pattern)
	}

	query = applyOrdering(query, filter.Filter, "entry_date DESC, entry_number DESC")
	query = applyPagination(query, filter.Filter)

	var rows []models.JournalEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]ledger.JournalEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// Save creates or updates the entry and replaces its lines
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	lines := model.Lines
	model.Lines = nil

	conn := r.db.conn(ctx)
	if err := conn.Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateKey
		}
		return err
	}

	// Replace owned lines wholesale; they only ever change while the entry
	// is a draft.
	if err := conn.Where("entry_id = ?", model.ID).Delete(&models.JournalLineModel{}).Error; err != nil {
		return err
	}
	if len(lines) > 0 {
		if err := conn.Create(&lines).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteDraft removes a draft entry and its lines
func (r *GormJournalEntryRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	conn := r.db.conn(ctx)
	if err := conn.Where("entry_id = ?", id).Delete(&models.JournalLineModel{}).Error; err != nil {
		return err
	}
	result := conn.Where("id = ? AND status = ?", id, ledger.EntryStatusDraft).
		Delete(&models.JournalEntryModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForDate counts entries dated on the given calendar day
func (r *GormJournalEntryRepository) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := r.db.conn(ctx).
		Model(&models.JournalEntryModel{}).
		Where("entry_date >= ? AND entry_date < ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormJournalEntryRepository implements JournalEntryRepository
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
