package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ChartService provides chart-of-accounts operations. Balances are read
// here but only ever written through journal posting.
type ChartService struct {
	accounts ledger.AccountRepository
	uow      shared.UnitOfWork
	audit    shared.AuditSink
	logger   *zap.Logger
}

// NewChartService creates a new ChartService
func NewChartService(
	accounts ledger.AccountRepository,
	uow shared.UnitOfWork,
	audit shared.AuditSink,
	logger *zap.Logger,
) *ChartService {
	return &ChartService{
		accounts: accounts,
		uow:      uow,
		audit:    audit,
		logger:   logger,
	}
}

// CreateAccountRequest describes a new account
type CreateAccountRequest struct {
	Code           string          `json:"code" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Type           string          `json:"type" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Subtype        string          `json:"subtype"`
	ParentCode     string          `json:"parent_code"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Subtype        string          `json:"subtype,omitempty"`
	ParentID       *uuid.UUID      `json:"parent_id,omitempty"`
	NormalBalance  string          `json:"normal_balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsSystem       bool            `json:"is_system"`
	Active         bool            `json:"active"`
}

// CreateAccount adds an account to the chart. Duplicate codes and parent
// cycles are rejected with a validation error.
func (s *ChartService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	account, err := ledger.NewAccount(req.Code, req.Name, ledger.AccountType(req.Type), req.Subtype, req.OpeningBalance)
	if err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if req.ParentCode != "" {
			parent, err := s.accounts.FindByCode(ctx, req.ParentCode)
			if err != nil {
				if shared.IsCode(err, shared.CodeNotFound) {
					return shared.NewValidationError("Unknown parent account code: " + req.ParentCode)
				}
				return err
			}
			if err := s.checkNoCycle(ctx, account.ID, parent); err != nil {
				return err
			}
			account.WithParent(parent.ID)
		}

		if err := s.accounts.Save(ctx, account); err != nil {
			if shared.IsCode(err, shared.CodeDuplicateKey) {
				return shared.NewValidationError("Account code already exists: " + req.Code)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, shared.AuditEvent{
		Action:     "account.create",
		EntityType: "account",
		EntityID:   account.Code,
		After:      map[string]any{"name": account.Name, "type": account.Type.String()},
		Timestamp:  time.Now(),
	})
	return toAccountResponse(account), nil
}

// GetBalance returns the running balance, or a historical balance computed
// by replaying posted lines up to asOf on top of the opening balance.
func (s *ChartService) GetBalance(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.accounts.FindByCode(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	if asOf == nil {
		return account.CurrentBalance, nil
	}

	delta, err := s.accounts.SumPostedLines(ctx, account.ID, *asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return account.OpeningBalance.Add(delta), nil
}

// DeactivateAccount soft-deletes an account. System accounts and accounts
// referenced by posted entries are protected.
func (s *ChartService) DeactivateAccount(ctx context.Context, code string) error {
	return s.uow.Execute(ctx, func(ctx context.Context) error {
		account, err := s.accounts.FindByCode(ctx, code)
		if err != nil {
			return err
		}

		children, err := s.accounts.FindChildren(ctx, account.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.Active {
				return shared.NewConflictError("Account has active child accounts")
			}
		}

		referenced, err := s.accounts.HasPostedLines(ctx, account.ID)
		if err != nil {
			return err
		}
		if referenced {
			return shared.NewConflictError("Account is referenced by posted journal entries")
		}

		if err := account.Deactivate(); err != nil {
			return err
		}
		return s.accounts.Save(ctx, account)
	})
}

// ListAccounts lists chart accounts with filtering, returning the total
// match count alongside the current page.
func (s *ChartService) ListAccounts(ctx context.Context, filter ledger.AccountFilter) ([]AccountResponse, int64, error) {
	accounts, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = *toAccountResponse(&accounts[i])
	}
	return responses, total, nil
}

// TrialBalanceRow is one account line of the trial balance
type TrialBalanceRow struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalanceReport sums account balances onto their normal side
type TrialBalanceReport struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// TrialBalance builds a trial balance across all active accounts. Each
// balance lands in its normal-side column; a negative balance flips to the
// opposite column.
func (s *ChartService) TrialBalance(ctx context.Context) (*TrialBalanceReport, error) {
	accounts, err := s.accounts.FindAll(ctx, ledger.AccountFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	report := &TrialBalanceReport{
		Rows:        make([]TrialBalanceRow, 0, len(accounts)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		GeneratedAt: time.Now(),
	}
	for _, account := range accounts {
		row := TrialBalanceRow{
			Code:   account.Code,
			Name:   account.Name,
			Type:   account.Type.String(),
			Debit:  decimal.Zero,
			Credit: decimal.Zero,
		}
		balance := account.CurrentBalance
		side := account.NormalBalance
		if balance.IsNegative() {
			balance = balance.Neg()
			if side == ledger.NormalBalanceDebit {
				side = ledger.NormalBalanceCredit
			} else {
				side = ledger.NormalBalanceDebit
			}
		}
		if side == ledger.NormalBalanceDebit {
			row.Debit = balance
			report.TotalDebit = report.TotalDebit.Add(balance)
		} else {
			row.Credit = balance
			report.TotalCredit = report.TotalCredit.Add(balance)
		}
		report.Rows = append(report.Rows, row)
	}
	report.Balanced = report.TotalDebit.Equal(report.TotalCredit)
	return report, nil
}

// checkNoCycle walks the parent chain from the proposed parent upward and
// rejects a link that would loop back to the account being placed.
func (s *ChartService) checkNoCycle(ctx context.Context, accountID uuid.UUID, parent *ledger.Account) error {
	for current := parent; current != nil; {
		if current.ID == accountID {
			return shared.NewValidationError("Account parent chain would form a cycle")
		}
		if current.ParentID == nil {
			return nil
		}
		next, err := s.accounts.FindByID(ctx, *current.ParentID)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

func toAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Type:           a.Type.String(),
		Subtype:        a.Subtype,
		ParentID:       a.ParentID,
		NormalBalance:  string(a.NormalBalance),
		OpeningBalance: a.OpeningBalance,
		CurrentBalance: a.CurrentBalance,
		IsSystem:       a.IsSystem,
		Active:         a.Active,
	}
}
