package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"github.com/welfare/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *Database
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *Database) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds an account by its unique code
func (r *GormAccountRepository) FindByCode(ctx context.Context, code string) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.conn(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCodes loads multiple accounts keyed by code
func (r *GormAccountRepository) FindByCodes(ctx context.Context, codes []string) (map[string]*ledger.Account, error) {
	result := make(map[string]*ledger.Account, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	var rows []models.AccountModel
	if err := r.db.conn(ctx).Where("code IN ?", codes).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].Code] = rows[i].ToDomain()
	}
	return result, nil
}

// FindAll finds all accounts matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, filter ledger.AccountFilter) ([]ledger.Account, error) {
	query := applyOrdering(r.accountQuery(ctx, filter), filter.Filter, "code ASC")
	query = applyPagination(query, filter.Filter)

	var rows []models.AccountModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// Count counts accounts matching the filter, ignoring pagination
func (r *GormAccountRepository) Count(ctx context.Context, filter ledger.AccountFilter) (int64, error) {
	var count int64
	if err := r.accountQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// accountQuery builds the filtered base query shared by FindAll and Count
func (r *GormAccountRepository) accountQuery(ctx context.Context, filter ledger.AccountFilter) *gorm.DB {
	query := r.db.conn(ctx).Model(&models.AccountModel{})

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", pattern, pattern)
	}
	return query
}

// FindChildren lists direct children of an account
func (r *GormAccountRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]ledger.Account, error) {
	var rows []models.AccountModel
	if err := r.db.conn(ctx).Where("parent_id = ?", parentID).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	if err := r.db.conn(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// ApplyDelta atomically adds delta to the account's running balance. The
// increment happens in SQL, so concurrent postings serialize on the row
// instead of overwriting each other's read-modify-write cycles.
func (r *GormAccountRepository) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	result := r.db.conn(ctx).
		Model(&models.AccountModel{}).
		Where("id = ?", accountID).
		UpdateColumns(map[string]interface{}{
			"current_balance": gorm.Expr("current_balance + ?", delta),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasPostedLines reports whether any posted entry references the account
func (r *GormAccountRepository) HasPostedLines(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.conn(ctx).
		Model(&models.JournalLineModel{}).
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Where("journal_lines.account_id = ? AND journal_entries.status IN ?",
			accountID, []ledger.EntryStatus{ledger.EntryStatusPosted, ledger.EntryStatusReversed}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumPostedLines returns the signed sum of posted lines touching the
// account up to and including asOf. Debits count positive and credits
// negative; the caller flips the sign for credit-normal accounts.
func (r *GormAccountRepository) SumPostedLines(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	account, err := r.FindByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	type sums struct {
		Debits  decimal.Decimal
		Credits decimal.Decimal
	}
	var row sums
	err = r.db.conn(ctx).
		Model(&models.JournalLineModel{}).
		Select(`COALESCE(SUM(CASE WHEN journal_lines.side = 'DEBIT' THEN journal_lines.amount ELSE 0 END), 0) AS debits,
			COALESCE(SUM(CASE WHEN journal_lines.side = 'CREDIT' THEN journal_lines.amount ELSE 0 END), 0) AS credits`).
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Where("journal_lines.account_id = ? AND journal_entries.status IN ? AND journal_entries.entry_date <= ?",
			accountID, []ledger.EntryStatus{ledger.EntryStatusPosted, ledger.EntryStatusReversed}, asOf).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}

	if account.NormalBalance == ledger.NormalBalanceDebit {
		return row.Debits.Sub(row.Credits), nil
	}
	return row.Credits.Sub(row.Debits), nil
}

// applyOrdering applies the filter's ordering, falling back to the default
func applyOrdering(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	if filter.OrderBy == "" {
		return query.Order(defaultOrder)
	}
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		orderDir = "DESC"
	}
	return query.Order(filter.OrderBy + " " + orderDir)
}

// applyPagination applies the filter's page window when set
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// Ensure GormAccountRepository implements AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
