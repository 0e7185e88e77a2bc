package persistence

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/domain/shared"
	"github.com/welfare/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsStore implements contribution.SettingsStore using GORM.
// Unset keys fall back to caller-supplied or built-in defaults; invalid
// stored values are reported, never silently replaced.
type GormSettingsStore struct {
	db *Database
}

// NewGormSettingsStore creates a new GormSettingsStore
func NewGormSettingsStore(db *Database) *GormSettingsStore {
	return &GormSettingsStore{db: db}
}

// Get returns the value for key, or def when unset
func (r *GormSettingsStore) Get(ctx context.Context, key, def string) (string, error) {
	var model models.SettingModel
	err := r.db.conn(ctx).Where("key = ?", key).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, nil
		}
		return "", err
	}
	return model.Value, nil
}

// Set writes the value for key, inserting or updating in place
func (r *GormSettingsStore) Set(ctx context.Context, key, value, description string) error {
	model := models.SettingModel{
		BaseModel:   models.BaseModel{},
		Key:         key,
		Value:       value,
		Description: description,
	}
	model.FromDomainBaseEntity(shared.NewBaseEntity())

	return r.db.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
		}).
		Create(&model).Error
}

// Snapshot reads all engine-relevant settings at once
func (r *GormSettingsStore) Snapshot(ctx context.Context) (contribution.Settings, error) {
	defaults := contribution.DefaultSettings()

	var rows []models.SettingModel
	if err := r.db.conn(ctx).Find(&rows).Error; err != nil {
		return contribution.Settings{}, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	cfg := defaults

	if v, ok := values[contribution.SettingContributionAmount]; ok {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return contribution.Settings{}, shared.NewValidationError("Invalid monthly_contribution_amount setting: " + v)
		}
		cfg.ContributionAmount = amount
	}
	if v, ok := values[contribution.SettingPenaltyRate]; ok {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return contribution.Settings{}, shared.NewValidationError("Invalid penalty_percentage_rate setting: " + v)
		}
		cfg.PenaltyRate = rate
	}
	if v, ok := values[contribution.SettingApplyPenaltyToUnpaid]; ok {
		apply, err := strconv.ParseBool(v)
		if err != nil {
			return contribution.Settings{}, shared.NewValidationError("Invalid apply_penalty_to_existing setting: " + v)
		}
		cfg.ApplyPenaltyToExisting = apply
	}
	if v, ok := values[contribution.SettingPenaltyDueDay]; ok {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 31 {
			return contribution.Settings{}, shared.NewValidationError("Invalid penalty_due_day setting: " + v)
		}
		cfg.PenaltyDueDay = day
	}
	if v, ok := values[contribution.SettingCashAccount]; ok {
		cfg.CashAccountCode = v
	}
	if v, ok := values[contribution.SettingContributionRevenue]; ok {
		cfg.ContributionRevenueCode = v
	}
	if v, ok := values[contribution.SettingPenaltyReceivable]; ok {
		cfg.PenaltyReceivableCode = v
	}
	if v, ok := values[contribution.SettingPenaltyIncomeAccount]; ok {
		cfg.PenaltyIncomeCode = v
	}

	if err := cfg.Validate(); err != nil {
		return contribution.Settings{}, err
	}
	return cfg, nil
}

// Ensure GormSettingsStore implements SettingsStore
var _ contribution.SettingsStore = (*GormSettingsStore)(nil)
