package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// EntryStatus represents the lifecycle state of a journal entry
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

// IsValid checks if the status is a valid EntryStatus
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPosted, EntryStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the entry can no longer change state
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusReversed
}

// EntrySide is the debit/credit side of a journal line
type EntrySide string

const (
	SideDebit  EntrySide = "DEBIT"
	SideCredit EntrySide = "CREDIT"
)

// IsValid checks if the side is valid
func (s EntrySide) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite returns the flipped side
func (s EntrySide) Opposite() EntrySide {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// JournalLine is one debit or credit leg of a journal entry. Lines are
// exclusively owned by their entry and only exist independently while the
// entry is a draft (voiding a draft cascades).
type JournalLine struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Side      EntrySide
	Amount    decimal.Decimal
	Memo      string
	Position  int
}

// NewJournalLine creates a validated journal line
func NewJournalLine(accountID uuid.UUID, side EntrySide, amount decimal.Decimal, memo string) (JournalLine, error) {
	if accountID == uuid.Nil {
		return JournalLine{}, shared.NewValidationError("Journal line requires an account reference")
	}
	if !side.IsValid() {
		return JournalLine{}, shared.NewValidationError("Journal line side must be DEBIT or CREDIT")
	}
	if !amount.IsPositive() {
		return JournalLine{}, shared.NewValidationError("Journal line amount must be positive")
	}
	return JournalLine{
		ID:        uuid.New(),
		AccountID: accountID,
		Side:      side,
		Amount:    amount,
		Memo:      memo,
	}, nil
}

// JournalEntry is a balanced multi-line posting against the chart of
// accounts. Entries are created as drafts, become immutable on posting and
// are cancelled only by an offsetting reversal entry, never by edits.
type JournalEntry struct {
	shared.BaseAggregateRoot
	EntryNumber    string
	EntryDate      time.Time
	Reference      string
	Description    string
	Status         EntryStatus
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	Lines          []JournalLine
	CreatedBy      string
	PostedBy       string
	PostedAt       *time.Time
	ReversedBy     string
	ReversedAt     *time.Time
	ReversalReason string
	// ReversalOf links a reversal entry back to the entry it offsets
	ReversalOf *uuid.UUID
}

// NewJournalEntry creates a draft entry. Line amounts and account refs are
// validated here; the balance requirement is checked at posting time so a
// draft may be assembled incrementally.
func NewJournalEntry(entryDate time.Time, reference, description, createdBy string, lines []JournalLine) (*JournalEntry, error) {
	if len(lines) == 0 {
		return nil, shared.NewValidationError("Journal entry requires at least one line")
	}
	for i := range lines {
		if !lines[i].Amount.IsPositive() {
			return nil, shared.NewValidationError("Journal line amount must be positive")
		}
		if lines[i].AccountID == uuid.Nil {
			return nil, shared.NewValidationError("Journal line requires an account reference")
		}
		lines[i].Position = i
	}

	return &JournalEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		EntryDate:         entryDate,
		Reference:         reference,
		Description:       description,
		Status:            EntryStatusDraft,
		TotalDebit:        decimal.Zero,
		TotalCredit:       decimal.Zero,
		Lines:             lines,
		CreatedBy:         createdBy,
	}, nil
}

// SumDebits returns the sum of all debit lines
func (e *JournalEntry) SumDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		if l.Side == SideDebit {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// SumCredits returns the sum of all credit lines
func (e *JournalEntry) SumCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		if l.Side == SideCredit {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// DistinctAccountCount returns the number of distinct accounts touched
func (e *JournalEntry) DistinctAccountCount() int {
	seen := make(map[uuid.UUID]struct{}, len(e.Lines))
	for _, l := range e.Lines {
		seen[l.AccountID] = struct{}{}
	}
	return len(seen)
}

// Post transitions the entry from draft to posted. A posted entry must have
// at least two lines touching at least two distinct accounts, and debits
// must equal credits exactly.
func (e *JournalEntry) Post(postedBy string, at time.Time) error {
	if e.Status != EntryStatusDraft {
		return shared.NewInvalidStateError("Only draft entries can be posted, entry is " + e.Status.String())
	}
	if len(e.Lines) < 2 {
		return shared.NewValidationError("A posted entry requires at least two lines")
	}
	if e.DistinctAccountCount() < 2 {
		return shared.NewValidationError("A posted entry must touch at least two distinct accounts")
	}

	debits := e.SumDebits()
	credits := e.SumCredits()
	if !debits.Equal(credits) {
		return shared.NewDomainError(shared.CodeUnbalancedEntry,
			"Entry does not balance: debits "+debits.String()+" vs credits "+credits.String())
	}

	e.Status = EntryStatusPosted
	e.TotalDebit = debits
	e.TotalCredit = credits
	e.PostedBy = postedBy
	e.PostedAt = &at
	return nil
}

// MarkReversed records that an offsetting entry has been posted for this
// entry. The original lines and totals are never edited.
func (e *JournalEntry) MarkReversed(reversedBy, reason string, at time.Time) error {
	if e.Status != EntryStatusPosted {
		return shared.NewInvalidStateError("Only posted entries can be reversed, entry is " + e.Status.String())
	}
	if reason == "" {
		return shared.NewValidationError("Reversal reason is required")
	}
	e.Status = EntryStatusReversed
	e.ReversedBy = reversedBy
	e.ReversedAt = &at
	e.ReversalReason = reason
	return nil
}

// BuildReversal constructs a new draft entry with every line's side flipped.
// The caller assigns an entry number and posts it; this entry is then marked
// reversed via MarkReversed.
func (e *JournalEntry) BuildReversal(entryDate time.Time, reason, actor string) (*JournalEntry, error) {
	if e.Status != EntryStatusPosted {
		return nil, shared.NewInvalidStateError("Only posted entries can be reversed, entry is " + e.Status.String())
	}
	lines := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLine{
			ID:        uuid.New(),
			AccountID: l.AccountID,
			Side:      l.Side.Opposite(),
			Amount:    l.Amount,
			Memo:      l.Memo,
			Position:  i,
		}
	}

	reversal, err := NewJournalEntry(entryDate, e.EntryNumber, "Reversal of "+e.EntryNumber+": "+reason, actor, lines)
	if err != nil {
		return nil, err
	}
	id := e.ID
	reversal.ReversalOf = &id
	return reversal, nil
}

// CanVoid returns true while the entry is still a deletable draft
func (e *JournalEntry) CanVoid() bool {
	return e.Status == EntryStatusDraft
}
