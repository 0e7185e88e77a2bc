package contribution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByMember lists a member's payments, newest first
	FindByMember(ctx context.Context, memberID uuid.UUID, filter shared.Filter) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}

// AllocationRepository defines the interface for contribution allocation
// persistence. The allocation history is the source of truth for how much
// a member has paid per period; totals are summed at read time.
type AllocationRepository interface {
	// SaveAll persists a batch of allocation rows. The unique
	// (payment, period) constraint surfaces as shared.ErrDuplicateKey.
	SaveAll(ctx context.Context, allocations []*ContributionAllocation) error

	// FindByPayment lists a payment's allocations, oldest period first
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]ContributionAllocation, error)

	// SumByMemberPeriod returns the member's allocated total for one period
	SumByMemberPeriod(ctx context.Context, memberID uuid.UUID, period Period) (decimal.Decimal, error)

	// SumsByMember returns allocated totals keyed by period token for all
	// of a member's allocations.
	SumsByMember(ctx context.Context, memberID uuid.UUID) (map[string]decimal.Decimal, error)
}

// PenaltyFilter defines filtering options for penalty queries
type PenaltyFilter struct {
	shared.Filter
	MemberID *uuid.UUID
	Status   *PenaltyStatus
	Period   *Period
}

// PenaltyRepository defines the interface for penalty persistence
type PenaltyRepository interface {
	// FindByID finds a penalty by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Penalty, error)

	// FindByMemberPeriod finds the penalty for one member-period, or
	// shared.ErrNotFound
	FindByMemberPeriod(ctx context.Context, memberID uuid.UUID, period Period) (*Penalty, error)

	// FindAll lists penalties with filtering
	FindAll(ctx context.Context, filter PenaltyFilter) ([]Penalty, error)

	// FindUnpaid lists all unpaid penalties, oldest period first
	FindUnpaid(ctx context.Context) ([]Penalty, error)

	// Create inserts a new penalty row. The structural (member, period)
	// uniqueness constraint surfaces as shared.ErrDuplicateKey; callers in
	// batch assessment treat that as "already assessed".
	Create(ctx context.Context, penalty *Penalty) error

	// Update saves recomputed fields on an existing row with an
	// optimistic version check
	Update(ctx context.Context, penalty *Penalty) error
}

// StatementLine is one period row of a member's contribution statement
type StatementLine struct {
	Period    Period          `json:"period"`
	Required  decimal.Decimal `json:"required"`
	Allocated decimal.Decimal `json:"allocated"`
	Shortfall decimal.Decimal `json:"shortfall"`
	DueDate   time.Time       `json:"due_date"`
	Penalty   decimal.Decimal `json:"penalty"`
	Settled   bool            `json:"settled"`
}
