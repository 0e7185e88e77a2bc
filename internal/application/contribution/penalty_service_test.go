package contribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	ledgerapp "github.com/welfare/backend/internal/application/ledger"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"go.uber.org/zap"
)

type penaltyServiceFixture struct {
	service     *PenaltyService
	penalties   *MockPenaltyRepository
	allocations *MockAllocationRepository
	members     *MockMemberDirectory
	ledger      *ledgerFixture
}

func newPenaltyServiceFixture(t *testing.T) *penaltyServiceFixture {
	t.Helper()
	return newPenaltyServiceFixtureWith(t, contribution.DefaultSettings())
}

func newPenaltyServiceFixtureWith(t *testing.T, cfg contribution.Settings) *penaltyServiceFixture {
	t.Helper()
	f := &penaltyServiceFixture{
		penalties:   new(MockPenaltyRepository),
		allocations: new(MockAllocationRepository),
		members:     new(MockMemberDirectory),
		ledger:      newLedgerFixture(t),
	}
	f.service = NewPenaltyService(
		f.penalties, f.allocations, f.members,
		stubSettingsStore{cfg: cfg},
		f.ledger.journal, passthroughUnitOfWork{}, shared.NopAuditSink{}, zap.NewNop(),
	)
	return f
}

// retroactiveSettings enables apply_penalty_to_existing, the gate for
// recomputing penalties that are already on the books
func retroactiveSettings() contribution.Settings {
	cfg := contribution.DefaultSettings()
	cfg.ApplyPenaltyToExisting = true
	return cfg
}

func TestPenaltyService_AssessPenalties(t *testing.T) {
	ctx := context.Background()

	t.Run("full run off the due day is skipped", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
			Actor:   "scheduler",
		})

		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Zero(t, result.Processed)
		f.members.AssertNotCalled(t, "ListActiveMembers", mock.Anything)
	})

	t.Run("assesses overdue unpaid periods on the due day", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		member := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}
		decemberPeriod := contribution.NewPeriod(2024, time.December)

		f.members.On("ListActiveMembers", ctx).Return([]contribution.Member{member}, nil)
		f.allocations.On("SumsByMember", ctx, member.ID).Return(map[string]decimal.Decimal{
			"2024-11": decimal.NewFromInt(50000),
			"2024-12": decimal.NewFromInt(20000),
		}, nil)
		f.penalties.On("FindByMemberPeriod", ctx, member.ID, decemberPeriod).Return(nil, shared.ErrNotFound)

		var created *contribution.Penalty
		f.penalties.On("Create", ctx, mock.AnythingOfType("*contribution.Penalty")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*contribution.Penalty) }).
			Return(nil)
		f.penalties.On("Update", ctx, mock.AnythingOfType("*contribution.Penalty")).Return(nil)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
			Actor:   "scheduler",
		})

		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Created)
		assert.Empty(t, result.Errors)

		require.NotNil(t, created)
		assert.Equal(t, "2024-12", created.Period.String())
		assert.True(t, created.Shortfall.Equal(decimal.NewFromInt(30000)))
		assert.True(t, created.Amount.Equal(decimal.NewFromInt(3000)), "10%% of the 30000 shortfall")
		assert.Equal(t, contribution.PenaltyStatusUnpaid, created.Status)
		require.NotNil(t, created.JournalEntryID, "penalty links to its posting")

		assert.True(t, f.ledger.balance("1100").Equal(decimal.NewFromInt(3000)))
		assert.True(t, f.ledger.balance("4100").Equal(decimal.NewFromInt(3000)))
	})

	t.Run("single-member run bypasses the due-day gate", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		member := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}

		f.members.On("GetMember", ctx, member.ID).Return(&member, nil)
		f.allocations.On("SumsByMember", ctx, member.ID).Return(map[string]decimal.Decimal{
			"2024-12": decimal.NewFromInt(50000),
			"2025-01": decimal.NewFromInt(50000),
		}, nil)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate:  time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC),
			MemberID: &member.ID,
			Actor:    "treasurer",
		})

		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.Equal(t, 1, result.Processed)
		assert.Zero(t, result.Created, "fully paid member owes nothing")
	})

	t.Run("force overrides the due-day gate", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		f.members.On("ListActiveMembers", ctx).Return([]contribution.Member{}, nil)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC),
			Force:   true,
			Actor:   "treasurer",
		})

		require.NoError(t, err)
		assert.False(t, result.Skipped)
		f.members.AssertExpectations(t)
	})

	t.Run("dry run counts without writing", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		member := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}

		f.members.On("ListActiveMembers", ctx).Return([]contribution.Member{member}, nil)
		f.allocations.On("SumsByMember", ctx, member.ID).Return(map[string]decimal.Decimal{}, nil)
		f.penalties.On("FindByMemberPeriod", ctx, member.ID, mock.AnythingOfType("contribution.Period")).
			Return(nil, shared.ErrNotFound)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
			DryRun:  true,
			Actor:   "scheduler",
		})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Created, "2024-11 and 2024-12 are overdue and unpaid")
		f.penalties.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.True(t, f.ledger.balance("1100").IsZero())
	})

	t.Run("already assessed period is left alone", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		member := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}
		existing, err := contribution.NewPenalty(
			member.ID, contribution.NewPeriod(2024, time.December),
			decimal.NewFromInt(50000), decimal.NewFromInt(10), decimal.NewFromInt(50000), time.Now(),
		)
		require.NoError(t, err)

		f.members.On("ListActiveMembers", ctx).Return([]contribution.Member{member}, nil)
		f.allocations.On("SumsByMember", ctx, member.ID).Return(map[string]decimal.Decimal{}, nil)
		f.penalties.On("FindByMemberPeriod", ctx, member.ID, mock.AnythingOfType("contribution.Period")).
			Return(existing, nil)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
			Actor:   "scheduler",
		})

		require.NoError(t, err)
		assert.Zero(t, result.Created)
		f.penalties.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("losing the insert race is not an error", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		member := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}

		f.members.On("ListActiveMembers", ctx).Return([]contribution.Member{member}, nil)
		f.allocations.On("SumsByMember", ctx, member.ID).Return(map[string]decimal.Decimal{}, nil)
		f.penalties.On("FindByMemberPeriod", ctx, member.ID, mock.AnythingOfType("contribution.Period")).
			Return(nil, shared.ErrNotFound)
		f.penalties.On("Create", ctx, mock.AnythingOfType("*contribution.Penalty")).
			Return(shared.ErrDuplicateKey)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
			Actor:   "scheduler",
		})

		require.NoError(t, err)
		assert.Zero(t, result.Created)
		assert.Empty(t, result.Errors)
	})

	t.Run("per-member failure does not abort the batch", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		failing := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}
		healthy := contribution.Member{
			ID:             uuid.New(),
			EnrollmentDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}

		f.members.On("ListActiveMembers", ctx).Return([]contribution.Member{failing, healthy}, nil)
		f.allocations.On("SumsByMember", ctx, failing.ID).Return(nil, assert.AnError)
		f.allocations.On("SumsByMember", ctx, healthy.ID).Return(map[string]decimal.Decimal{
			"2024-12": decimal.NewFromInt(50000),
			"2025-01": decimal.NewFromInt(50000),
		}, nil)

		result, err := f.service.AssessPenalties(ctx, AssessmentRequest{
			RunDate: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
			Actor:   "scheduler",
		})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, failing.ID, result.Errors[0].MemberID)
	})
}

func TestPenaltyService_RecalculateUnpaid(t *testing.T) {
	ctx := context.Background()
	memberID := uuid.New()
	period := contribution.NewPeriod(2024, time.December)

	// newAssessedPenalty builds an unpaid penalty with a posted ledger entry
	// behind it, the state a scheduler-assessed penalty is left in.
	newAssessedPenalty := func(t *testing.T, f *penaltyServiceFixture) *contribution.Penalty {
		t.Helper()
		penalty, err := contribution.NewPenalty(
			memberID, period,
			decimal.NewFromInt(50000), decimal.NewFromInt(10), decimal.NewFromInt(30000), time.Now(),
		)
		require.NoError(t, err)

		entry, err := f.ledger.journal.PostNewEntry(ctx, ledgerapp.OpenEntryRequest{
			EntryDate:   time.Now(),
			Reference:   penalty.ID.String(),
			Description: "Late contribution penalty " + period.String(),
			CreatedBy:   "scheduler",
			Lines: []ledgerapp.LineRequest{
				{AccountCode: "1100", Side: "DEBIT", Amount: penalty.Amount},
				{AccountCode: "4100", Side: "CREDIT", Amount: penalty.Amount},
			},
		}, "scheduler")
		require.NoError(t, err)
		penalty.AttachJournalEntry(entry.ID)
		return penalty
	}

	t.Run("rejects invalid rates", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)

		_, err := f.service.RecalculateUnpaid(ctx, decimal.Zero, decimal.NewFromInt(10), "treasurer")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))

		_, err = f.service.RecalculateUnpaid(ctx, decimal.NewFromInt(50000), decimal.NewFromInt(-1), "treasurer")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("refused while apply_penalty_to_existing is off", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)

		_, err := f.service.RecalculateUnpaid(ctx, decimal.NewFromInt(50000), decimal.NewFromInt(4), "treasurer")

		assert.True(t, shared.IsCode(err, shared.CodeConflict))
		f.penalties.AssertNotCalled(t, "FindUnpaid", mock.Anything)
	})

	t.Run("recomputes the amount and replaces the posting", func(t *testing.T) {
		f := newPenaltyServiceFixtureWith(t, retroactiveSettings())
		penalty := newAssessedPenalty(t, f)
		oldEntryID := *penalty.JournalEntryID

		f.penalties.On("FindUnpaid", ctx).Return([]contribution.Penalty{*penalty}, nil)
		f.allocations.On("SumByMemberPeriod", ctx, memberID, period).Return(decimal.NewFromInt(20000), nil)

		var updated *contribution.Penalty
		f.penalties.On("Update", ctx, mock.AnythingOfType("*contribution.Penalty")).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*contribution.Penalty) }).
			Return(nil)

		result, err := f.service.RecalculateUnpaid(ctx, decimal.NewFromInt(50000), decimal.NewFromInt(4), "treasurer")

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Empty(t, result.Errors)

		require.NotNil(t, updated)
		assert.True(t, updated.Amount.Equal(decimal.NewFromInt(1200)), "4%% of the 30000 shortfall")
		assert.True(t, updated.PenaltyRate.Equal(decimal.NewFromInt(4)))
		require.NotNil(t, updated.JournalEntryID)
		assert.NotEqual(t, oldEntryID, *updated.JournalEntryID)

		oldEntry, err := f.ledger.entries.FindByID(ctx, oldEntryID)
		require.NoError(t, err)
		assert.Equal(t, ledger.EntryStatusReversed, oldEntry.Status)
		assert.True(t, f.ledger.balance("1100").Equal(decimal.NewFromInt(1200)))
		assert.True(t, f.ledger.balance("4100").Equal(decimal.NewFromInt(1200)))
	})

	t.Run("unchanged amount keeps the original posting", func(t *testing.T) {
		f := newPenaltyServiceFixtureWith(t, retroactiveSettings())
		penalty := newAssessedPenalty(t, f)
		oldEntryID := *penalty.JournalEntryID

		f.penalties.On("FindUnpaid", ctx).Return([]contribution.Penalty{*penalty}, nil)
		f.allocations.On("SumByMemberPeriod", ctx, memberID, period).Return(decimal.NewFromInt(20000), nil)

		var updated *contribution.Penalty
		f.penalties.On("Update", ctx, mock.AnythingOfType("*contribution.Penalty")).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*contribution.Penalty) }).
			Return(nil)

		result, err := f.service.RecalculateUnpaid(ctx, decimal.NewFromInt(50000), decimal.NewFromInt(10), "treasurer")

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		require.NotNil(t, updated)
		require.NotNil(t, updated.JournalEntryID)
		assert.Equal(t, oldEntryID, *updated.JournalEntryID)

		oldEntry, err := f.ledger.entries.FindByID(ctx, oldEntryID)
		require.NoError(t, err)
		assert.Equal(t, ledger.EntryStatusPosted, oldEntry.Status)
		assert.True(t, f.ledger.balance("1100").Equal(decimal.NewFromInt(3000)))
	})

	t.Run("settled period zeroes the penalty without a new posting", func(t *testing.T) {
		f := newPenaltyServiceFixtureWith(t, retroactiveSettings())
		penalty := newAssessedPenalty(t, f)
		oldEntryID := *penalty.JournalEntryID

		f.penalties.On("FindUnpaid", ctx).Return([]contribution.Penalty{*penalty}, nil)
		f.allocations.On("SumByMemberPeriod", ctx, memberID, period).Return(decimal.NewFromInt(50000), nil)

		var updated *contribution.Penalty
		f.penalties.On("Update", ctx, mock.AnythingOfType("*contribution.Penalty")).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*contribution.Penalty) }).
			Return(nil)

		result, err := f.service.RecalculateUnpaid(ctx, decimal.NewFromInt(50000), decimal.NewFromInt(10), "treasurer")

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		require.NotNil(t, updated)
		assert.True(t, updated.Amount.IsZero())
		assert.Nil(t, updated.JournalEntryID)

		oldEntry, err := f.ledger.entries.FindByID(ctx, oldEntryID)
		require.NoError(t, err)
		assert.Equal(t, ledger.EntryStatusReversed, oldEntry.Status)
		assert.True(t, f.ledger.balance("1100").IsZero())
		assert.True(t, f.ledger.balance("4100").IsZero())
	})
}

func TestPenaltyService_MarkPenaltyPaid(t *testing.T) {
	ctx := context.Background()

	newUnpaid := func(t *testing.T) *contribution.Penalty {
		t.Helper()
		penalty, err := contribution.NewPenalty(
			uuid.New(), contribution.NewPeriod(2024, time.December),
			decimal.NewFromInt(50000), decimal.NewFromInt(10), decimal.NewFromInt(30000), time.Now(),
		)
		require.NoError(t, err)
		return penalty
	}

	t.Run("settles an unpaid penalty", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		penalty := newUnpaid(t)

		f.penalties.On("FindByID", ctx, penalty.ID).Return(penalty, nil)
		f.penalties.On("Update", ctx, penalty).Return(nil)

		err := f.service.MarkPenaltyPaid(ctx, penalty.ID, "treasurer")

		require.NoError(t, err)
		assert.Equal(t, contribution.PenaltyStatusPaid, penalty.Status)
		f.penalties.AssertExpectations(t)
	})

	t.Run("paid penalty is terminal", func(t *testing.T) {
		f := newPenaltyServiceFixture(t)
		penalty := newUnpaid(t)
		require.NoError(t, penalty.MarkPaid())

		f.penalties.On("FindByID", ctx, penalty.ID).Return(penalty, nil)

		err := f.service.MarkPenaltyPaid(ctx, penalty.ID, "treasurer")

		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
		f.penalties.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
