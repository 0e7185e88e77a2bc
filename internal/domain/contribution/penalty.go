package contribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// PenaltyStatus represents the payment state of a penalty
type PenaltyStatus string

const (
	PenaltyStatusUnpaid PenaltyStatus = "UNPAID"
	PenaltyStatusPaid   PenaltyStatus = "PAID"
)

// IsValid checks if the status is valid
func (s PenaltyStatus) IsValid() bool {
	return s == PenaltyStatusUnpaid || s == PenaltyStatusPaid
}

// IsTerminal returns true once the penalty can no longer be recomputed
func (s PenaltyStatus) IsTerminal() bool {
	return s == PenaltyStatusPaid
}

// Penalty is the charge assessed against one member for one underpaid
// period. Exactly one row may exist per (member, period) - enforced by a
// database uniqueness constraint, not an in-memory check - so concurrent
// or repeated assessment runs converge on the same row. While unpaid the
// amount may be recomputed in place; a paid penalty is immutable.
type Penalty struct {
	shared.BaseAggregateRoot
	MemberID uuid.UUID
	Period   Period
	// ContributionAmount snapshots the required contribution in effect at assessment
	ContributionAmount decimal.Decimal
	// PenaltyRate snapshots the percentage rate at assessment
	PenaltyRate decimal.Decimal
	// Shortfall is the unpaid portion of the period the amount was derived from
	Shortfall      decimal.Decimal
	Amount         decimal.Decimal
	Status         PenaltyStatus
	CalculatedAt   time.Time
	JournalEntryID *uuid.UUID
}

// PenaltyAmount computes shortfall * rate / 100 rounded to two places
func PenaltyAmount(shortfall, rate decimal.Decimal) decimal.Decimal {
	return shortfall.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

// NewPenalty assesses a penalty for one member-period
func NewPenalty(memberID uuid.UUID, period Period, contributionAmount, penaltyRate, shortfall decimal.Decimal, calculatedAt time.Time) (*Penalty, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewValidationError("Penalty requires a member reference")
	}
	if period.IsZero() {
		return nil, shared.NewValidationError("Penalty requires a period")
	}
	if !shortfall.IsPositive() {
		return nil, shared.NewValidationError("Penalty shortfall must be positive")
	}
	if penaltyRate.IsNegative() {
		return nil, shared.NewValidationError("Penalty rate cannot be negative")
	}

	return &Penalty{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		MemberID:           memberID,
		Period:             period,
		ContributionAmount: contributionAmount,
		PenaltyRate:        penaltyRate,
		Shortfall:          shortfall,
		Amount:             PenaltyAmount(shortfall, penaltyRate),
		Status:             PenaltyStatusUnpaid,
		CalculatedAt:       calculatedAt,
	}, nil
}

// AttachJournalEntry links the ledger posting recorded for this penalty
func (p *Penalty) AttachJournalEntry(entryID uuid.UUID) {
	p.JournalEntryID = &entryID
}

// Recalculate recomputes the penalty in place from new rates and a freshly
// computed shortfall. Paid penalties are terminal and reject recomputation.
func (p *Penalty) Recalculate(contributionAmount, penaltyRate, shortfall decimal.Decimal, at time.Time) error {
	if p.Status.IsTerminal() {
		return shared.NewInvalidStateError("Paid penalties cannot be recalculated")
	}
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	p.ContributionAmount = contributionAmount
	p.PenaltyRate = penaltyRate
	p.Shortfall = shortfall
	p.Amount = PenaltyAmount(shortfall, penaltyRate)
	p.CalculatedAt = at
	return nil
}

// MarkPaid settles the penalty; terminal
func (p *Penalty) MarkPaid() error {
	if p.Status == PenaltyStatusPaid {
		return shared.NewInvalidStateError("Penalty is already paid")
	}
	p.Status = PenaltyStatusPaid
	return nil
}
