package contribution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	ledgerapp "github.com/welfare/backend/internal/application/ledger"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentService is the contribution allocation engine: it records a
// payment, distributes its amount across contribution periods oldest-first
// and posts the matching journal entry, all in one transaction.
type PaymentService struct {
	payments    contribution.PaymentRepository
	allocations contribution.AllocationRepository
	penalties   contribution.PenaltyRepository
	members     contribution.MemberDirectory
	settings    contribution.SettingsStore
	journal     *ledgerapp.JournalService
	uow         shared.UnitOfWork
	audit       shared.AuditSink
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	payments contribution.PaymentRepository,
	allocations contribution.AllocationRepository,
	penalties contribution.PenaltyRepository,
	members contribution.MemberDirectory,
	settings contribution.SettingsStore,
	journal *ledgerapp.JournalService,
	uow shared.UnitOfWork,
	audit shared.AuditSink,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:    payments,
		allocations: allocations,
		penalties:   penalties,
		members:     members,
		settings:    settings,
		journal:     journal,
		uow:         uow,
		audit:       audit,
		logger:      logger,
	}
}

// RecordPaymentRequest describes an incoming member payment
type RecordPaymentRequest struct {
	MemberID        uuid.UUID       `json:"member_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate     time.Time       `json:"payment_date" binding:"required"`
	Type            string          `json:"payment_type" binding:"required,oneof=MONTHLY OTHER"`
	Purpose         string          `json:"purpose"`
	Method          string          `json:"method"`
	ReferenceNumber string          `json:"reference_number"`
	RecordedBy      string          `json:"-"`
}

// AllocationResponse is one allocation row in API responses
type AllocationResponse struct {
	ID     uuid.UUID       `json:"id"`
	Period string          `json:"period"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
}

// RecordPaymentResult carries the recorded payment with its allocation
// breakdown and the ledger entry posted for it
type RecordPaymentResult struct {
	PaymentID   uuid.UUID            `json:"payment_id"`
	MemberID    uuid.UUID            `json:"member_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Allocations []AllocationResponse `json:"allocations"`
	EntryNumber string               `json:"journal_entry"`
}

// RecordPayment validates and persists a payment, allocates its amount
// across the member's contribution periods and posts one balanced journal
// entry (debit cash, credit contribution revenue). The allocation rows and
// the posting commit or roll back together.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	payment, err := contribution.NewPayment(
		req.MemberID, req.Amount, req.PaymentDate,
		contribution.PaymentType(req.Type), req.Purpose, req.Method, req.ReferenceNumber,
	)
	if err != nil {
		return nil, err
	}

	member, err := s.members.GetMember(ctx, req.MemberID)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return nil, shared.NewValidationError("Unknown member")
		}
		return nil, err
	}

	// One settings snapshot per unit of work; never re-read mid-transaction.
	// The allocation walk cannot terminate on a non-positive contribution
	// amount, so a snapshot that fails validation stops the engine here.
	cfg, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var allocations []*contribution.ContributionAllocation
	var entry *ledger.JournalEntry
	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		paid, err := s.allocations.SumsByMember(ctx, member.ID)
		if err != nil {
			return err
		}

		allocations = buildAllocations(payment, *member, cfg, paid)

		if err := verifyAllocationTotal(allocations, payment.Amount); err != nil {
			// Logic defect, never a user error: roll back and report loudly.
			s.logger.Error("Allocation mismatch",
				zap.String("payment_amount", payment.Amount.String()),
				zap.Int("allocations", len(allocations)),
				zap.String("member_id", member.ID.String()))
			return err
		}

		if err := s.payments.Save(ctx, payment); err != nil {
			return err
		}
		if err := s.allocations.SaveAll(ctx, allocations); err != nil {
			return err
		}

		entry, err = s.journal.PostNewEntry(ctx, ledgerapp.OpenEntryRequest{
			EntryDate:   payment.PaymentDate,
			Reference:   payment.ReferenceNumber,
			Description: "Member contribution payment",
			CreatedBy:   req.RecordedBy,
			Lines: []ledgerapp.LineRequest{
				{AccountCode: cfg.CashAccountCode, Side: string(ledger.SideDebit), Amount: payment.Amount, Memo: "Contribution received"},
				{AccountCode: cfg.ContributionRevenueCode, Side: string(ledger.SideCredit), Amount: payment.Amount, Memo: "Contribution revenue"},
			},
		}, req.RecordedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, shared.AuditEvent{
		Actor:      req.RecordedBy,
		Action:     "payment.record",
		EntityType: "payment",
		EntityID:   payment.ID.String(),
		After: map[string]any{
			"member_id":     payment.MemberID.String(),
			"amount":        payment.Amount.String(),
			"allocations":   len(allocations),
			"journal_entry": entry.EntryNumber,
		},
		Timestamp: time.Now(),
	})

	result := &RecordPaymentResult{
		PaymentID:   payment.ID,
		MemberID:    payment.MemberID,
		Amount:      payment.Amount,
		Allocations: make([]AllocationResponse, len(allocations)),
		EntryNumber: entry.EntryNumber,
	}
	for i, a := range allocations {
		result.Allocations[i] = AllocationResponse{
			ID:     a.ID,
			Period: a.Period.String(),
			Amount: a.Amount,
			Type:   string(a.Type),
		}
	}
	return result, nil
}

// buildAllocations distributes the payment amount across periods. Outstanding
// periods from the member's first obligated period through the payment-date
// period are funded oldest-first; any remainder rolls forward into future
// periods as advances, one full contribution each, with a smaller tail
// becoming a partial advance. Period ordering is a business invariant: it
// decides which periods count as paid for penalty purposes.
func buildAllocations(
	payment *contribution.Payment,
	member contribution.Member,
	cfg contribution.Settings,
	paid map[string]decimal.Decimal,
) []*contribution.ContributionAllocation {
	var allocations []*contribution.ContributionAllocation
	remaining := payment.Amount
	current := contribution.PeriodOf(payment.PaymentDate)

	for _, period := range contribution.PeriodsBetween(member.FirstObligatedPeriod(), current) {
		if remaining.IsZero() {
			break
		}
		shortfall := cfg.ContributionAmount.Sub(paid[period.String()])
		if !shortfall.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, shortfall)
		allocationType := contribution.AllocationTypeCurrent
		if take.LessThan(shortfall) {
			allocationType = contribution.AllocationTypePartial
		}
		allocation, _ := contribution.NewContributionAllocation(payment.ID, member.ID, take, period, allocationType)
		allocations = append(allocations, allocation)
		remaining = remaining.Sub(take)
	}

	for period := current.Next(); remaining.IsPositive(); period = period.Next() {
		shortfall := cfg.ContributionAmount.Sub(paid[period.String()])
		if !shortfall.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, shortfall)
		allocation, _ := contribution.NewContributionAllocation(payment.ID, member.ID, take, period, contribution.AllocationTypeAdvance)
		allocations = append(allocations, allocation)
		remaining = remaining.Sub(take)
	}

	return allocations
}

// verifyAllocationTotal guards the engine's core invariant before anything
// is persisted: the allocation rows for a payment must account for exactly
// its amount, no more and no less.
func verifyAllocationTotal(allocations []*contribution.ContributionAllocation, amount decimal.Decimal) error {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	if !total.Equal(amount) {
		return shared.ErrAllocationMismatch
	}
	return nil
}

// MemberStatement builds the per-period contribution statement for one
// member from the allocation history, up to the period containing asOf.
func (s *PaymentService) MemberStatement(ctx context.Context, memberID uuid.UUID, asOf time.Time) ([]contribution.StatementLine, error) {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := s.allocations.SumsByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	penalties, err := s.penalties.FindAll(ctx, contribution.PenaltyFilter{MemberID: &memberID})
	if err != nil {
		return nil, err
	}
	penaltyByPeriod := make(map[string]decimal.Decimal, len(penalties))
	for _, p := range penalties {
		penaltyByPeriod[p.Period.String()] = p.Amount
	}

	var lines []contribution.StatementLine
	for _, period := range contribution.PeriodsBetween(member.FirstObligatedPeriod(), contribution.PeriodOf(asOf)) {
		allocated := paid[period.String()]
		shortfall := cfg.ContributionAmount.Sub(allocated)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}
		lines = append(lines, contribution.StatementLine{
			Period:    period,
			Required:  cfg.ContributionAmount,
			Allocated: allocated,
			Shortfall: shortfall,
			DueDate:   period.DueDate(cfg.PenaltyDueDay),
			Penalty:   penaltyByPeriod[period.String()],
			Settled:   shortfall.IsZero(),
		})
	}
	return lines, nil
}
