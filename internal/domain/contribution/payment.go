package contribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/shared"
)

// PaymentType distinguishes monthly contributions from other receipts
type PaymentType string

const (
	PaymentTypeMonthly PaymentType = "MONTHLY"
	PaymentTypeOther   PaymentType = "OTHER"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeMonthly || t == PaymentTypeOther
}

// Payment is one recorded receipt from a member. Immutable once created
// except for free-text notes; its allocations carry the breakdown across
// contribution periods.
type Payment struct {
	shared.BaseAggregateRoot
	MemberID        uuid.UUID
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Type            PaymentType
	Purpose         string
	Method          string
	ReferenceNumber string
	Notes           string
}

// NewPayment creates a validated payment record
func NewPayment(memberID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, paymentType PaymentType, purpose, method, referenceNumber string) (*Payment, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewValidationError("Payment requires a member reference")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewValidationError("Payment date is required")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewValidationError("Invalid payment type: " + string(paymentType))
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		Amount:            amount,
		PaymentDate:       paymentDate,
		Type:              paymentType,
		Purpose:           purpose,
		Method:            method,
		ReferenceNumber:   referenceNumber,
	}, nil
}

// SetNotes updates the soft metadata on an otherwise immutable payment
func (p *Payment) SetNotes(notes string) {
	p.Notes = notes
}
