package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// AccountFilter defines filtering options for chart-of-accounts queries
type AccountFilter struct {
	shared.Filter
	Type       *AccountType
	ActiveOnly bool
}

// AccountRepository defines the interface for chart-of-accounts persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its unique code
	FindByCode(ctx context.Context, code string) (*Account, error)

	// FindByCodes loads multiple accounts keyed by code
	FindByCodes(ctx context.Context, codes []string) (map[string]*Account, error)

	// FindAll lists accounts with filtering
	FindAll(ctx context.Context, filter AccountFilter) ([]Account, error)

	// Count counts accounts matching the filter, ignoring pagination
	Count(ctx context.Context, filter AccountFilter) (int64, error)

	// FindChildren lists direct children of an account
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]Account, error)

	// Save creates or updates an account. Duplicate codes surface as
	// shared.ErrDuplicateKey.
	Save(ctx context.Context, account *Account) error

	// ApplyDelta atomically adds delta to the account's stored running
	// balance. Posting uses this instead of Save so concurrent postings
	// against the same account never lose increments.
	ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error

	// HasPostedLines reports whether any posted entry references the account
	HasPostedLines(ctx context.Context, accountID uuid.UUID) (bool, error)

	// SumPostedLines returns the signed sum of posted lines touching the
	// account up to and including asOf, for historical balance replay.
	SumPostedLines(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
}

// EntryFilter defines filtering options for journal entry queries
type EntryFilter struct {
	shared.Filter
	Status   *EntryStatus
	FromDate *time.Time
	ToDate   *time.Time
}

// JournalEntryRepository defines the interface for journal entry persistence.
// Save persists the entry together with its owned lines.
type JournalEntryRepository interface {
	// FindByID finds an entry (with lines) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// FindByNumber finds an entry (with lines) by its entry number
	FindByNumber(ctx context.Context, entryNumber string) (*JournalEntry, error)

	// FindAll lists entries with filtering
	FindAll(ctx context.Context, filter EntryFilter) ([]JournalEntry, error)

	// Save creates or updates the entry and its lines. A duplicate entry
	// number surfaces as shared.ErrDuplicateKey so the caller can
	// regenerate and retry.
	Save(ctx context.Context, entry *JournalEntry) error

	// DeleteDraft removes a draft entry and its lines
	DeleteDraft(ctx context.Context, id uuid.UUID) error

	// CountForDate counts entries whose number was issued for the given
	// date, used in date-scoped number generation.
	CountForDate(ctx context.Context, date time.Time) (int64, error)
}
