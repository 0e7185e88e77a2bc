package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// entryNumberAttempts bounds the regenerate-and-retry loop on number collisions
const entryNumberAttempts = 3

// JournalService provides application-level journal ledger operations:
// opening drafts, posting, reversing and voiding entries. Posting and
// reversal apply account balance effects inside a single transaction.
type JournalService struct {
	entries  ledger.JournalEntryRepository
	accounts ledger.AccountRepository
	uow      shared.UnitOfWork
	audit    shared.AuditSink
	logger   *zap.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(
	entries ledger.JournalEntryRepository,
	accounts ledger.AccountRepository,
	uow shared.UnitOfWork,
	audit shared.AuditSink,
	logger *zap.Logger,
) *JournalService {
	return &JournalService{
		entries:  entries,
		accounts: accounts,
		uow:      uow,
		audit:    audit,
		logger:   logger,
	}
}

// LineRequest is one debit or credit leg in an open-entry request
type LineRequest struct {
	AccountCode string          `json:"account_code" binding:"required"`
	Side        string          `json:"side" binding:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Memo        string          `json:"memo"`
}

// OpenEntryRequest describes a draft journal entry to create
type OpenEntryRequest struct {
	EntryDate   time.Time     `json:"entry_date" binding:"required"`
	Reference   string        `json:"reference"`
	Description string        `json:"description" binding:"required"`
	CreatedBy   string        `json:"created_by"`
	Lines       []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// LineResponse is one journal line in API responses
type LineResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Side        string          `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo,omitempty"`
}

// EntryResponse represents a journal entry in API responses
type EntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	EntryNumber    string          `json:"entry_number"`
	EntryDate      time.Time       `json:"entry_date"`
	Reference      string          `json:"reference,omitempty"`
	Description    string          `json:"description"`
	Status         string          `json:"status"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Lines          []LineResponse  `json:"lines"`
	PostedBy       string          `json:"posted_by,omitempty"`
	PostedAt       *time.Time      `json:"posted_at,omitempty"`
	ReversedBy     string          `json:"reversed_by,omitempty"`
	ReversedAt     *time.Time      `json:"reversed_at,omitempty"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
}

// OpenEntry creates a draft entry with a freshly issued entry number.
// Balances are untouched until the entry is posted.
func (s *JournalService) OpenEntry(ctx context.Context, req OpenEntryRequest) (*EntryResponse, error) {
	codes := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		codes[i] = l.AccountCode
	}

	var entry *ledger.JournalEntry
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		accounts, err := s.accounts.FindByCodes(ctx, codes)
		if err != nil {
			return err
		}

		lines := make([]ledger.JournalLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			account, ok := accounts[l.AccountCode]
			if !ok {
				return shared.NewValidationError("Unknown account code: " + l.AccountCode)
			}
			if !account.Active {
				return shared.NewValidationError("Account is inactive: " + l.AccountCode)
			}
			line, err := ledger.NewJournalLine(account.ID, ledger.EntrySide(l.Side), l.Amount, l.Memo)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		entry, err = ledger.NewJournalEntry(req.EntryDate, req.Reference, req.Description, req.CreatedBy, lines)
		if err != nil {
			return err
		}
		return s.saveWithFreshNumber(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, entry), nil
}

// PostEntry transitions a draft to posted and atomically applies each
// line's signed effect to its account balance.
func (s *JournalService) PostEntry(ctx context.Context, entryNumber, postedBy string) (*EntryResponse, error) {
	var entry *ledger.JournalEntry
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.entries.FindByNumber(ctx, entryNumber)
		if err != nil {
			return err
		}
		return s.postLoaded(ctx, entry, postedBy)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, shared.AuditEvent{
		Actor:      postedBy,
		Action:     "journal.post",
		EntityType: "journal_entry",
		EntityID:   entry.EntryNumber,
		After:      map[string]any{"status": entry.Status.String(), "total_debit": entry.TotalDebit.String()},
		Timestamp:  time.Now(),
	})
	return s.toResponse(ctx, entry), nil
}

// ReverseEntry creates and posts an offsetting entry for a posted entry
// and marks the original reversed. The original's lines and totals are
// never edited; history stays append-only.
func (s *JournalService) ReverseEntry(ctx context.Context, entryNumber, reason, actor string) (*EntryResponse, error) {
	var reversal *ledger.JournalEntry
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		original, err := s.entries.FindByNumber(ctx, entryNumber)
		if err != nil {
			return err
		}
		reversal, err = s.reverseLoaded(ctx, original, reason, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, shared.AuditEvent{
		Actor:      actor,
		Action:     "journal.reverse",
		EntityType: "journal_entry",
		EntityID:   entryNumber,
		After:      map[string]any{"reversal_entry": reversal.EntryNumber, "reason": reason},
		Timestamp:  time.Now(),
	})
	return s.toResponse(ctx, reversal), nil
}

// ReverseEntryByID is ReverseEntry keyed by entry ID, for callers that
// hold a reference rather than a number (penalty recomputation).
func (s *JournalService) ReverseEntryByID(ctx context.Context, entryID uuid.UUID, reason, actor string) (*ledger.JournalEntry, error) {
	var reversal *ledger.JournalEntry
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		original, err := s.entries.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		reversal, err = s.reverseLoaded(ctx, original, reason, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reversal, nil
}

// reverseLoaded builds, numbers and posts the offsetting entry, then marks
// the original reversed. Must run inside a transaction.
func (s *JournalService) reverseLoaded(ctx context.Context, original *ledger.JournalEntry, reason, actor string) (*ledger.JournalEntry, error) {
	reversal, err := original.BuildReversal(time.Now(), reason, actor)
	if err != nil {
		return nil, err
	}
	if err := s.saveWithFreshNumber(ctx, reversal); err != nil {
		return nil, err
	}
	if err := s.postLoaded(ctx, reversal, actor); err != nil {
		return nil, err
	}
	if err := original.MarkReversed(actor, reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, original); err != nil {
		return nil, err
	}
	return reversal, nil
}

// VoidDraft deletes a draft entry together with its lines
func (s *JournalService) VoidDraft(ctx context.Context, entryNumber string) error {
	return s.uow.Execute(ctx, func(ctx context.Context) error {
		entry, err := s.entries.FindByNumber(ctx, entryNumber)
		if err != nil {
			return err
		}
		if !entry.CanVoid() {
			return shared.NewInvalidStateError("Only draft entries can be voided, entry is " + entry.Status.String())
		}
		return s.entries.DeleteDraft(ctx, entry.ID)
	})
}

// GetEntry returns one entry with its lines
func (s *JournalService) GetEntry(ctx context.Context, entryNumber string) (*EntryResponse, error) {
	entry, err := s.entries.FindByNumber(ctx, entryNumber)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, entry), nil
}

// PostNewEntry opens and immediately posts a balanced entry inside the
// ambient transaction. Used by the contribution engines, which record one
// posting per financial event.
func (s *JournalService) PostNewEntry(ctx context.Context, req OpenEntryRequest, postedBy string) (*ledger.JournalEntry, error) {
	var entry *ledger.JournalEntry
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		resp, err := s.OpenEntry(ctx, req)
		if err != nil {
			return err
		}
		entry, err = s.entries.FindByID(ctx, resp.ID)
		if err != nil {
			return err
		}
		return s.postLoaded(ctx, entry, postedBy)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// postLoaded posts an already-loaded entry and applies balance effects.
// Must run inside a transaction.
func (s *JournalService) postLoaded(ctx context.Context, entry *ledger.JournalEntry, postedBy string) error {
	if err := entry.Post(postedBy, time.Now()); err != nil {
		return err
	}

	// Accumulate each line's signed effect and write every touched account
	// once, as a relative increment. Absolute writes would let concurrent
	// postings against the same account lose each other's updates.
	loaded := make(map[uuid.UUID]*ledger.Account, len(entry.Lines))
	deltas := make(map[uuid.UUID]decimal.Decimal, len(entry.Lines))
	order := make([]uuid.UUID, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		account, ok := loaded[line.AccountID]
		if !ok {
			var err error
			account, err = s.accounts.FindByID(ctx, line.AccountID)
			if err != nil {
				return fmt.Errorf("loading account for posting: %w", err)
			}
			loaded[line.AccountID] = account
			order = append(order, line.AccountID)
		}
		deltas[line.AccountID] = deltas[line.AccountID].Add(account.SignedEffect(line.Side, line.Amount))
	}
	for _, id := range order {
		if err := s.accounts.ApplyDelta(ctx, id, deltas[id]); err != nil {
			return fmt.Errorf("applying account balance: %w", err)
		}
	}

	return s.entries.Save(ctx, entry)
}

// saveWithFreshNumber issues a date-scoped entry number and saves,
// regenerating on a duplicate-number collision from a concurrent caller.
func (s *JournalService) saveWithFreshNumber(ctx context.Context, entry *ledger.JournalEntry) error {
	var err error
	for attempt := 0; attempt < entryNumberAttempts; attempt++ {
		var count int64
		count, err = s.entries.CountForDate(ctx, entry.EntryDate)
		if err != nil {
			return err
		}
		entry.EntryNumber = fmt.Sprintf("JE-%s-%04d", entry.EntryDate.Format("20060102"), count+1+int64(attempt))

		err = s.entries.Save(ctx, entry)
		if err == nil {
			return nil
		}
		if !shared.IsCode(err, shared.CodeDuplicateKey) {
			return err
		}
		s.logger.Warn("Entry number collision, regenerating",
			zap.String("entry_number", entry.EntryNumber))
	}
	return err
}

func (s *JournalService) toResponse(ctx context.Context, entry *ledger.JournalEntry) *EntryResponse {
	lines := make([]LineResponse, len(entry.Lines))
	ids := make([]uuid.UUID, 0, len(entry.Lines))
	for _, l := range entry.Lines {
		ids = append(ids, l.AccountID)
	}
	codes := s.accountCodes(ctx, ids)
	for i, l := range entry.Lines {
		lines[i] = LineResponse{
			AccountID:   l.AccountID,
			AccountCode: codes[l.AccountID],
			Side:        string(l.Side),
			Amount:      l.Amount,
			Memo:        l.Memo,
		}
	}
	return &EntryResponse{
		ID:             entry.ID,
		EntryNumber:    entry.EntryNumber,
		EntryDate:      entry.EntryDate,
		Reference:      entry.Reference,
		Description:    entry.Description,
		Status:         entry.Status.String(),
		TotalDebit:     entry.TotalDebit,
		TotalCredit:    entry.TotalCredit,
		Lines:          lines,
		PostedBy:       entry.PostedBy,
		PostedAt:       entry.PostedAt,
		ReversedBy:     entry.ReversedBy,
		ReversedAt:     entry.ReversedAt,
		ReversalReason: entry.ReversalReason,
	}
}

// accountCodes resolves line account IDs to codes for display; lookup
// failures degrade to empty codes rather than failing the response.
func (s *JournalService) accountCodes(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]string {
	codes := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if _, ok := codes[id]; ok {
			continue
		}
		account, err := s.accounts.FindByID(ctx, id)
		if err != nil {
			codes[id] = ""
			continue
		}
		codes[id] = account.Code
	}
	return codes
}
