package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// AccountType classifies an account within the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is a valid AccountType
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// NormalBalance is the side on which an account's balance naturally increases
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// IsValid checks if the normal balance side is valid
func (n NormalBalance) IsValid() bool {
	return n == NormalBalanceDebit || n == NormalBalanceCredit
}

// DefaultNormalBalance returns the conventional normal balance for the type:
// assets and expenses grow on the debit side, everything else on credit.
func DefaultNormalBalance(t AccountType) NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

// Account is one node in the chart of accounts. CurrentBalance is mutated
// only through journal posting and reversal; there is no direct balance
// mutation API.
type Account struct {
	shared.BaseAggregateRoot
	Code           string
	Name           string
	Type           AccountType
	Subtype        string
	ParentID       *uuid.UUID
	NormalBalance  NormalBalance
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	IsSystem       bool
	Active         bool
}

// NewAccount creates a new active account with validation
func NewAccount(code, name string, accountType AccountType, subtype string, openingBalance decimal.Decimal) (*Account, error) {
	if code == "" {
		return nil, shared.NewValidationError("Account code is required")
	}
	if name == "" {
		return nil, shared.NewValidationError("Account name is required")
	}
	if !accountType.IsValid() {
		return nil, shared.NewValidationError("Invalid account type: " + string(accountType))
	}

	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Type:              accountType,
		Subtype:           subtype,
		NormalBalance:     DefaultNormalBalance(accountType),
		OpeningBalance:    openingBalance,
		CurrentBalance:    openingBalance,
		Active:            true,
	}, nil
}

// WithParent sets the parent account reference. The parent is a weak
// reference used for roll-ups; cycle detection happens at the chart level
// where the full tree is visible.
func (a *Account) WithParent(parentID uuid.UUID) *Account {
	a.ParentID = &parentID
	return a
}

// MarkSystem flags the account as system-owned, protecting it from deactivation
func (a *Account) MarkSystem() *Account {
	a.IsSystem = true
	return a
}

// SignedEffect returns the balance delta a line on the given side applies
// to this account: a debit on a debit-normal account increases the balance,
// and the reverse for credit-normal accounts.
func (a *Account) SignedEffect(side EntrySide, amount decimal.Decimal) decimal.Decimal {
	increases := (side == SideDebit && a.NormalBalance == NormalBalanceDebit) ||
		(side == SideCredit && a.NormalBalance == NormalBalanceCredit)
	if increases {
		return amount
	}
	return amount.Neg()
}

// ApplyLine applies one posted journal line's signed effect to the running balance
func (a *Account) ApplyLine(side EntrySide, amount decimal.Decimal) {
	a.CurrentBalance = a.CurrentBalance.Add(a.SignedEffect(side, amount))
}

// Deactivate soft-deletes the account. System accounts and accounts still
// referenced by posted entries cannot be deactivated; the repository-level
// reference check is the caller's responsibility.
func (a *Account) Deactivate() error {
	if a.IsSystem {
		return shared.NewConflictError("System accounts cannot be deactivated")
	}
	if !a.Active {
		return shared.NewInvalidStateError("Account is already inactive")
	}
	a.Active = false
	return nil
}
