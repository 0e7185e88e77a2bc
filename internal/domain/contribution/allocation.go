package contribution

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// AllocationType classifies how an allocation relates to the member's
// obligation schedule at the time of payment
type AllocationType string

const (
	// AllocationTypeCurrent fully covers the member's earliest outstanding period
	AllocationTypeCurrent AllocationType = "CURRENT"
	// AllocationTypeAdvance funds a period after the payment date's period
	AllocationTypeAdvance AllocationType = "ADVANCE"
	// AllocationTypePartial leaves the period's cumulative total below the
	// required contribution amount
	AllocationTypePartial AllocationType = "PARTIAL"
)

// IsValid checks if the allocation type is valid
func (t AllocationType) IsValid() bool {
	switch t {
	case AllocationTypeCurrent, AllocationTypeAdvance, AllocationTypePartial:
		return true
	}
	return false
}

// ContributionAllocation assigns part or all of one payment's amount to a
// specific member-period. At most one allocation exists per
// (payment, period); the sum over a member-period across payments is the
// period's paid total, computed at read time, never cached.
type ContributionAllocation struct {
	shared.BaseAggregateRoot
	PaymentID uuid.UUID
	MemberID  uuid.UUID
	Amount    decimal.Decimal
	Period    Period
	Type      AllocationType
}

// NewContributionAllocation creates a validated allocation row
func NewContributionAllocation(paymentID, memberID uuid.UUID, amount decimal.Decimal, period Period, allocationType AllocationType) (*ContributionAllocation, error) {
	if paymentID == uuid.Nil {
		return nil, shared.NewValidationError("Allocation requires a payment reference")
	}
	if memberID == uuid.Nil {
		return nil, shared.NewValidationError("Allocation requires a member reference")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Allocation amount must be positive")
	}
	if period.IsZero() {
		return nil, shared.NewValidationError("Allocation requires a contribution period")
	}
	if !allocationType.IsValid() {
		return nil, shared.NewValidationError("Invalid allocation type: " + string(allocationType))
	}

	return &ContributionAllocation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentID:         paymentID,
		MemberID:          memberID,
		Amount:            amount,
		Period:            period,
		Type:              allocationType,
	}, nil
}
