package contribution

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// Setting keys consumed by the engines
const (
	SettingContributionAmount   = "monthly_contribution_amount"
	SettingPenaltyRate          = "penalty_percentage_rate"
	SettingApplyPenaltyToUnpaid = "apply_penalty_to_existing"
	SettingPenaltyDueDay        = "penalty_due_day"
	SettingCashAccount          = "cash_account_code"
	SettingContributionRevenue  = "contribution_revenue_account_code"
	SettingPenaltyReceivable    = "penalty_receivable_account_code"
	SettingPenaltyIncomeAccount = "penalty_income_account_code"
)

// SettingsStore is flat key/value configuration. It never triggers
// recomputation itself; rate changes apply to future assessments and
// retroactive application is an explicit caller action.
type SettingsStore interface {
	// Get returns the value for key, or def when unset
	Get(ctx context.Context, key, def string) (string, error)

	// Set writes the value for key
	Set(ctx context.Context, key, value, description string) error

	// Snapshot reads all engine-relevant settings at once. Engines take
	// one snapshot at the start of each unit of work and never re-read
	// mid-transaction.
	Snapshot(ctx context.Context) (Settings, error)
}

// Settings is the configuration snapshot an engine works from
type Settings struct {
	ContributionAmount      decimal.Decimal
	PenaltyRate             decimal.Decimal
	ApplyPenaltyToExisting  bool
	PenaltyDueDay           int
	CashAccountCode         string
	ContributionRevenueCode string
	PenaltyReceivableCode   string
	PenaltyIncomeCode       string
}

// Validate rejects configurations the engines cannot run on. A
// non-positive contribution amount in particular would make period
// allocation walk forever, so snapshots refuse it up front.
func (s Settings) Validate() error {
	if !s.ContributionAmount.IsPositive() {
		return shared.NewValidationError("monthly_contribution_amount must be positive")
	}
	if s.PenaltyRate.IsNegative() {
		return shared.NewValidationError("penalty_percentage_rate cannot be negative")
	}
	if s.PenaltyDueDay < 1 || s.PenaltyDueDay > 31 {
		return shared.NewValidationError("penalty_due_day must be between 1 and 31")
	}
	for key, code := range map[string]string{
		SettingCashAccount:          s.CashAccountCode,
		SettingContributionRevenue:  s.ContributionRevenueCode,
		SettingPenaltyReceivable:    s.PenaltyReceivableCode,
		SettingPenaltyIncomeAccount: s.PenaltyIncomeCode,
	} {
		if strings.TrimSpace(code) == "" {
			return shared.NewValidationError(key + " cannot be empty")
		}
	}
	return nil
}

// ValidateSettingValue checks a single key's candidate value before it is
// written, so bad configuration is rejected at the edge instead of
// poisoning later snapshots.
func ValidateSettingValue(key, value string) error {
	switch key {
	case SettingContributionAmount:
		amount, err := decimal.NewFromString(value)
		if err != nil || !amount.IsPositive() {
			return shared.NewValidationError("monthly_contribution_amount must be a positive number")
		}
	case SettingPenaltyRate:
		rate, err := decimal.NewFromString(value)
		if err != nil || rate.IsNegative() {
			return shared.NewValidationError("penalty_percentage_rate must be a non-negative number")
		}
	case SettingApplyPenaltyToUnpaid:
		if _, err := strconv.ParseBool(value); err != nil {
			return shared.NewValidationError("apply_penalty_to_existing must be a boolean")
		}
	case SettingPenaltyDueDay:
		day, err := strconv.Atoi(value)
		if err != nil || day < 1 || day > 31 {
			return shared.NewValidationError("penalty_due_day must be between 1 and 31")
		}
	case SettingCashAccount, SettingContributionRevenue, SettingPenaltyReceivable, SettingPenaltyIncomeAccount:
		if strings.TrimSpace(value) == "" {
			return shared.NewValidationError(key + " cannot be empty")
		}
	}
	return nil
}

// DefaultSettings returns the built-in configuration used when the
// settings table has no overrides.
func DefaultSettings() Settings {
	return Settings{
		ContributionAmount:      decimal.NewFromInt(50000),
		PenaltyRate:             decimal.NewFromInt(10),
		ApplyPenaltyToExisting:  false,
		PenaltyDueDay:           5,
		CashAccountCode:         "1000",
		ContributionRevenueCode: "4000",
		PenaltyReceivableCode:   "1100",
		PenaltyIncomeCode:       "4100",
	}
}
