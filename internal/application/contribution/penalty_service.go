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

// PenaltyService scans members' obligation history, assesses penalties for
// missed periods and recomputes unpaid penalties after rate changes. Runs
// are idempotent: correctness rests on the structural (member, period)
// uniqueness constraint, never on in-memory state or scheduler locks, so
// the same code path is safe from a scheduler, a manual force-run or a
// retry after a crash.
type PenaltyService struct {
	penalties   contribution.PenaltyRepository
	allocations contribution.AllocationRepository
	members     contribution.MemberDirectory
	settings    contribution.SettingsStore
	journal     *ledgerapp.JournalService
	uow         shared.UnitOfWork
	audit       shared.AuditSink
	logger      *zap.Logger
}

// NewPenaltyService creates a new PenaltyService
func NewPenaltyService(
	penalties contribution.PenaltyRepository,
	allocations contribution.AllocationRepository,
	members contribution.MemberDirectory,
	settings contribution.SettingsStore,
	journal *ledgerapp.JournalService,
	uow shared.UnitOfWork,
	audit shared.AuditSink,
	logger *zap.Logger,
) *PenaltyService {
	return &PenaltyService{
		penalties:   penalties,
		allocations: allocations,
		members:     members,
		settings:    settings,
		journal:     journal,
		uow:         uow,
		audit:       audit,
		logger:      logger,
	}
}

// AssessmentRequest parameterizes one assessment run
type AssessmentRequest struct {
	RunDate  time.Time
	MemberID *uuid.UUID
	Force    bool
	DryRun   bool
	Actor    string
}

// MemberError records a per-member failure that did not abort the batch
type MemberError struct {
	MemberID uuid.UUID `json:"member_id"`
	Error    string    `json:"error"`
}

// AssessmentResult aggregates one assessment run
type AssessmentResult struct {
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Skipped   bool          `json:"skipped"`
	Errors    []MemberError `json:"errors"`
}

// AssessPenalties runs penalty assessment for one member or all active
// members. Each member-period is its own transaction, so one failure never
// rolls back unrelated work; per-member errors are collected and reported,
// not fatal. Without force, a full run only proceeds on the configured due
// day - a scheduling policy, not a correctness gate.
func (s *PenaltyService) AssessPenalties(ctx context.Context, req AssessmentRequest) (*AssessmentResult, error) {
	cfg, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &AssessmentResult{}
	if !req.Force && req.MemberID == nil && req.RunDate.Day() != cfg.PenaltyDueDay {
		s.logger.Info("Assessment skipped: not the scheduled due day",
			zap.Int("due_day", cfg.PenaltyDueDay),
			zap.Time("run_date", req.RunDate))
		result.Skipped = true
		return result, nil
	}

	var members []contribution.Member
	if req.MemberID != nil {
		member, err := s.members.GetMember(ctx, *req.MemberID)
		if err != nil {
			return nil, err
		}
		members = []contribution.Member{*member}
	} else {
		members, err = s.members.ListActiveMembers(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, member := range members {
		created, err := s.assessMember(ctx, member, req, cfg)
		result.Processed++
		result.Created += created
		if err != nil {
			s.logger.Warn("Member assessment failed",
				zap.String("member_id", member.ID.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, MemberError{MemberID: member.ID, Error: err.Error()})
		}
	}
	return result, nil
}

// assessMember walks the member's due periods and assesses each
// outstanding one. Returns the number of penalties created.
func (s *PenaltyService) assessMember(ctx context.Context, member contribution.Member, req AssessmentRequest, cfg contribution.Settings) (int, error) {
	paid, err := s.allocations.SumsByMember(ctx, member.ID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, period := range contribution.PeriodsBetween(member.FirstObligatedPeriod(), contribution.PeriodOf(req.RunDate)) {
		if req.RunDate.Before(period.DueDate(cfg.PenaltyDueDay)) {
			continue // not due yet
		}
		shortfall := cfg.ContributionAmount.Sub(paid[period.String()])
		if !shortfall.IsPositive() {
			continue // settled
		}

		if _, err := s.penalties.FindByMemberPeriod(ctx, member.ID, period); err == nil {
			continue // already penalized
		} else if !shared.IsCode(err, shared.CodeNotFound) {
			return created, err
		}

		if req.DryRun {
			created++
			continue
		}

		ok, err := s.assessPeriod(ctx, member, period, shortfall, cfg, req.Actor)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// assessPeriod creates one penalty and its ledger posting in a single
// transaction. A concurrent run losing the insert race sees a duplicate
// key, which is "already assessed", not a failure.
func (s *PenaltyService) assessPeriod(ctx context.Context, member contribution.Member, period contribution.Period, shortfall decimal.Decimal, cfg contribution.Settings, actor string) (bool, error) {
	penalty, err := contribution.NewPenalty(member.ID, period, cfg.ContributionAmount, cfg.PenaltyRate, shortfall, time.Now())
	if err != nil {
		return false, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := s.penalties.Create(ctx, penalty); err != nil {
			return err
		}

		entry, err := s.journal.PostNewEntry(ctx, ledgerapp.OpenEntryRequest{
			EntryDate:   time.Now(),
			Reference:   penalty.ID.String(),
			Description: "Late contribution penalty " + period.String(),
			CreatedBy:   actor,
			Lines: []ledgerapp.LineRequest{
				{AccountCode: cfg.PenaltyReceivableCode, Side: string(ledger.SideDebit), Amount: penalty.Amount, Memo: "Penalty receivable " + period.String()},
				{AccountCode: cfg.PenaltyIncomeCode, Side: string(ledger.SideCredit), Amount: penalty.Amount, Memo: "Penalty income " + period.String()},
			},
		}, actor)
		if err != nil {
			return err
		}

		penalty.AttachJournalEntry(entry.ID)
		return s.penalties.Update(ctx, penalty)
	})
	if err != nil {
		if shared.IsCode(err, shared.CodeDuplicateKey) {
			// Lost the race to a concurrent assessment run.
			return false, nil
		}
		return false, err
	}

	s.audit.Record(ctx, shared.AuditEvent{
		Actor:      actor,
		Action:     "penalty.assess",
		EntityType: "penalty",
		EntityID:   penalty.ID.String(),
		After: map[string]any{
			"member_id": member.ID.String(),
			"period":    period.String(),
			"amount":    penalty.Amount.String(),
		},
		Timestamp: time.Now(),
	})
	return true, nil
}

// RecalculationResult aggregates one recalculation run
type RecalculationResult struct {
	Updated int           `json:"updated"`
	Errors  []MemberError `json:"errors"`
}

// RecalculateUnpaid recomputes every unpaid penalty against the supplied
// rates and the member's current allocation state, updating rows in place -
// never duplicating them. When a penalty has a posted ledger entry, the old
// entry is reversed and a corrected one posted, preserving the append-only
// ledger. One transaction per penalty. Retroactive recomputation only runs
// when apply_penalty_to_existing is enabled; otherwise rate changes affect
// future assessments only.
func (s *PenaltyService) RecalculateUnpaid(ctx context.Context, contributionAmount, penaltyRate decimal.Decimal, actor string) (*RecalculationResult, error) {
	if !contributionAmount.IsPositive() {
		return nil, shared.NewValidationError("Contribution amount must be positive")
	}
	if penaltyRate.IsNegative() {
		return nil, shared.NewValidationError("Penalty rate cannot be negative")
	}

	cfg, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.ApplyPenaltyToExisting {
		return nil, shared.NewConflictError("Retroactive recalculation is disabled: apply_penalty_to_existing is off")
	}

	unpaid, err := s.penalties.FindUnpaid(ctx)
	if err != nil {
		return nil, err
	}

	result := &RecalculationResult{}
	for i := range unpaid {
		penalty := unpaid[i]
		if err := s.recalculateOne(ctx, &penalty, contributionAmount, penaltyRate, cfg, actor); err != nil {
			s.logger.Warn("Penalty recalculation failed",
				zap.String("penalty_id", penalty.ID.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, MemberError{MemberID: penalty.MemberID, Error: err.Error()})
			continue
		}
		result.Updated++
	}
	return result, nil
}

func (s *PenaltyService) recalculateOne(ctx context.Context, penalty *contribution.Penalty, contributionAmount, penaltyRate decimal.Decimal, cfg contribution.Settings, actor string) error {
	return s.uow.Execute(ctx, func(ctx context.Context) error {
		allocated, err := s.allocations.SumByMemberPeriod(ctx, penalty.MemberID, penalty.Period)
		if err != nil {
			return err
		}
		shortfall := contributionAmount.Sub(allocated)

		oldAmount := penalty.Amount
		oldEntryID := penalty.JournalEntryID
		if err := penalty.Recalculate(contributionAmount, penaltyRate, shortfall, time.Now()); err != nil {
			return err
		}

		if oldEntryID != nil && !penalty.Amount.Equal(oldAmount) {
			if _, err := s.journal.ReverseEntryByID(ctx, *oldEntryID, "Penalty recalculation", actor); err != nil {
				return err
			}
			penalty.JournalEntryID = nil

			if penalty.Amount.IsPositive() {
				entry, err := s.journal.PostNewEntry(ctx, ledgerapp.OpenEntryRequest{
					EntryDate:   time.Now(),
					Reference:   penalty.ID.String(),
					Description: "Recalculated penalty " + penalty.Period.String(),
					CreatedBy:   actor,
					Lines: []ledgerapp.LineRequest{
						{AccountCode: cfg.PenaltyReceivableCode, Side: string(ledger.SideDebit), Amount: penalty.Amount, Memo: "Penalty receivable " + penalty.Period.String()},
						{AccountCode: cfg.PenaltyIncomeCode, Side: string(ledger.SideCredit), Amount: penalty.Amount, Memo: "Penalty income " + penalty.Period.String()},
					},
				}, actor)
				if err != nil {
					return err
				}
				penalty.AttachJournalEntry(entry.ID)
			}
		}

		if err := s.penalties.Update(ctx, penalty); err != nil {
			return err
		}

		s.audit.Record(ctx, shared.AuditEvent{
			Actor:      actor,
			Action:     "penalty.recalculate",
			EntityType: "penalty",
			EntityID:   penalty.ID.String(),
			Before:     map[string]any{"amount": oldAmount.String()},
			After:      map[string]any{"amount": penalty.Amount.String()},
			Timestamp:  time.Now(),
		})
		return nil
	})
}

// MarkPenaltyPaid settles a penalty through the payment-recording path.
// Paid penalties are terminal; later recalculations leave them untouched.
func (s *PenaltyService) MarkPenaltyPaid(ctx context.Context, penaltyID uuid.UUID, actor string) error {
	return s.uow.Execute(ctx, func(ctx context.Context) error {
		penalty, err := s.penalties.FindByID(ctx, penaltyID)
		if err != nil {
			return err
		}
		if err := penalty.MarkPaid(); err != nil {
			return err
		}
		if err := s.penalties.Update(ctx, penalty); err != nil {
			return err
		}
		s.audit.Record(ctx, shared.AuditEvent{
			Actor:      actor,
			Action:     "penalty.paid",
			EntityType: "penalty",
			EntityID:   penalty.ID.String(),
			After:      map[string]any{"status": string(penalty.Status)},
			Timestamp:  time.Now(),
		})
		return nil
	})
}
