package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/ledger"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	AggregateModel
	Code           string               `gorm:"type:varchar(20);not null;uniqueIndex:idx_accounts_code"`
	Name           string               `gorm:"type:varchar(200);not null"`
	Type           ledger.AccountType   `gorm:"type:varchar(20);not null;index"`
	Subtype        string               `gorm:"type:varchar(50)"`
	ParentID       *uuid.UUID           `gorm:"type:uuid;index"`
	NormalBalance  ledger.NormalBalance `gorm:"type:varchar(10);not null"`
	OpeningBalance decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	CurrentBalance decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	IsSystem       bool                 `gorm:"not null;default:false"`
	Active         bool                 `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Type:              m.Type,
		Subtype:           m.Subtype,
		ParentID:          m.ParentID,
		NormalBalance:     m.NormalBalance,
		OpeningBalance:    m.OpeningBalance,
		CurrentBalance:    m.CurrentBalance,
		IsSystem:          m.IsSystem,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Type = a.Type
	m.Subtype = a.Subtype
	m.ParentID = a.ParentID
	m.NormalBalance = a.NormalBalance
	m.OpeningBalance = a.OpeningBalance
	m.CurrentBalance = a.CurrentBalance
	m.IsSystem = a.IsSystem
	m.Active = a.Active
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// JournalEntryModel is the persistence model for the JournalEntry aggregate
// root. Lines are owned rows loaded and saved with the entry.
type JournalEntryModel struct {
	AggregateModel
	EntryNumber    string             `gorm:"type:varchar(30);not null;uniqueIndex:idx_journal_entries_number"`
	EntryDate      time.Time          `gorm:"not null;index"`
	Reference      string             `gorm:"type:varchar(100)"`
	Description    string             `gorm:"type:varchar(500)"`
	Status         ledger.EntryStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	TotalDebit     decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	TotalCredit    decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	CreatedBy      string             `gorm:"type:varchar(100)"`
	PostedBy       string             `gorm:"type:varchar(100)"`
	PostedAt       *time.Time
	ReversedBy     string `gorm:"type:varchar(100)"`
	ReversedAt     *time.Time
	ReversalReason string             `gorm:"type:varchar(500)"`
	ReversalOf     *uuid.UUID         `gorm:"type:uuid;index"`
	Lines          []JournalLineModel `gorm:"foreignKey:EntryID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain JournalEntry entity.
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	lines := make([]ledger.JournalLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = l.ToDomain()
	}
	return &ledger.JournalEntry{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		EntryNumber:       m.EntryNumber,
		EntryDate:         m.EntryDate,
		Reference:         m.Reference,
		Description:       m.Description,
		Status:            m.Status,
		TotalDebit:        m.TotalDebit,
		TotalCredit:       m.TotalCredit,
		Lines:             lines,
		CreatedBy:         m.CreatedBy,
		PostedBy:          m.PostedBy,
		PostedAt:          m.PostedAt,
		ReversedBy:        m.ReversedBy,
		ReversedAt:        m.ReversedAt,
		ReversalReason:    m.ReversalReason,
		ReversalOf:        m.ReversalOf,
	}
}

// FromDomain populates the persistence model from a domain JournalEntry entity.
func (m *JournalEntryModel) FromDomain(e *ledger.JournalEntry) {
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	m.EntryNumber = e.EntryNumber
	m.EntryDate = e.EntryDate
	m.Reference = e.Reference
	m.Description = e.Description
	m.Status = e.Status
	m.TotalDebit = e.TotalDebit
	m.TotalCredit = e.TotalCredit
	m.CreatedBy = e.CreatedBy
	m.PostedBy = e.PostedBy
	m.PostedAt = e.PostedAt
	m.ReversedBy = e.ReversedBy
	m.ReversedAt = e.ReversedAt
	m.ReversalReason = e.ReversalReason
	m.ReversalOf = e.ReversalOf

	m.Lines = make([]JournalLineModel, len(e.Lines))
	for i, l := range e.Lines {
		m.Lines[i].FromDomain(e.ID, l)
	}
}

// JournalEntryModelFromDomain creates a new persistence model from a domain JournalEntry.
func JournalEntryModelFromDomain(e *ledger.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{}
	m.FromDomain(e)
	return m
}

// JournalLineModel is the persistence model for one journal line.
type JournalLineModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key"`
	EntryID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Side      ledger.EntrySide `gorm:"type:varchar(10);not null"`
	Amount    decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Memo      string           `gorm:"type:varchar(300)"`
	Position  int              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalLine.
func (m *JournalLineModel) ToDomain() ledger.JournalLine {
	return ledger.JournalLine{
		ID:        m.ID,
		AccountID: m.AccountID,
		Side:      m.Side,
		Amount:    m.Amount,
		Memo:      m.Memo,
		Position:  m.Position,
	}
}

// FromDomain populates the persistence model from a domain JournalLine.
func (m *JournalLineModel) FromDomain(entryID uuid.UUID, l ledger.JournalLine) {
	m.ID = l.ID
	m.EntryID = entryID
	m.AccountID = l.AccountID
	m.Side = l.Side
	m.Amount = l.Amount
	m.Memo = l.Memo
	m.Position = l.Position
}
