package contribution

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Member is the slice of the member directory the financial core needs:
// identity, the enrollment date that bounds the obligation schedule, and
// whether the member is currently active. Member management itself is an
// external collaborator.
type Member struct {
	ID             uuid.UUID
	EnrollmentDate time.Time
	Active         bool
}

// FirstObligatedPeriod derives the first period the member owes a
// contribution for from the enrollment date.
func (m Member) FirstObligatedPeriod() Period {
	return PeriodOf(m.EnrollmentDate)
}

// MemberDirectory is the consumed collaborator interface for member lookup
type MemberDirectory interface {
	// GetMember returns the member or shared.ErrNotFound
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)

	// ListActiveMembers returns all members currently subject to
	// contribution obligations
	ListActiveMembers(ctx context.Context) ([]Member, error)
}
