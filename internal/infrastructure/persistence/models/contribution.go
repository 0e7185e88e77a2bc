package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welfare/backend/internal/domain/contribution"
)

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	MemberID        uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	PaymentDate     time.Time                `gorm:"not null;index"`
	Type            contribution.PaymentType `gorm:"type:varchar(20);not null"`
	Purpose         string                   `gorm:"type:varchar(200)"`
	Method          string                   `gorm:"type:varchar(50)"`
	ReferenceNumber string                   `gorm:"type:varchar(100)"`
	Notes           string                   `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *contribution.Payment {
	return &contribution.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		MemberID:          m.MemberID,
		Amount:            m.Amount,
		PaymentDate:       m.PaymentDate,
		Type:              m.Type,
		Purpose:           m.Purpose,
		Method:            m.Method,
		ReferenceNumber:   m.ReferenceNumber,
		Notes:             m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *contribution.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.MemberID = p.MemberID
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.Type = p.Type
	m.Purpose = p.Purpose
	m.Method = p.Method
	m.ReferenceNumber = p.ReferenceNumber
	m.Notes = p.Notes
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *contribution.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// ContributionAllocationModel is the persistence model for one allocation
// row. The (payment, period) pair is structurally unique.
type ContributionAllocationModel struct {
	AggregateModel
	PaymentID uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_allocations_payment_period,priority:1"`
	MemberID  uuid.UUID                   `gorm:"type:uuid;not null;index:idx_allocations_member_period,priority:1"`
	Amount    decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Period    contribution.Period         `gorm:"type:varchar(7);not null;uniqueIndex:idx_allocations_payment_period,priority:2;index:idx_allocations_member_period,priority:2"`
	Type      contribution.AllocationType `gorm:"type:varchar(10);not null"`
}

// TableName returns the table name for GORM
func (ContributionAllocationModel) TableName() string {
	return "contribution_allocations"
}

// ToDomain converts the persistence model to a domain ContributionAllocation.
func (m *ContributionAllocationModel) ToDomain() *contribution.ContributionAllocation {
	return &contribution.ContributionAllocation{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PaymentID:         m.PaymentID,
		MemberID:          m.MemberID,
		Amount:            m.Amount,
		Period:            m.Period,
		Type:              m.Type,
	}
}

// FromDomain populates the persistence model from a domain ContributionAllocation.
func (m *ContributionAllocationModel) FromDomain(a *contribution.ContributionAllocation) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.PaymentID = a.PaymentID
	m.MemberID = a.MemberID
	m.Amount = a.Amount
	m.Period = a.Period
	m.Type = a.Type
}

// AllocationModelFromDomain creates a new persistence model from a domain allocation.
func AllocationModelFromDomain(a *contribution.ContributionAllocation) *ContributionAllocationModel {
	m := &ContributionAllocationModel{}
	m.FromDomain(a)
	return m
}

// PenaltyModel is the persistence model for the Penalty aggregate root.
// The (member, period) pair is structurally unique so repeated assessment
// runs converge on one row.
type PenaltyModel struct {
	AggregateModel
	MemberID           uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_penalties_member_period,priority:1"`
	Period             contribution.Period        `gorm:"type:varchar(7);not null;uniqueIndex:idx_penalties_member_period,priority:2"`
	ContributionAmount decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	PenaltyRate        decimal.Decimal            `gorm:"type:decimal(8,4);not null"`
	Shortfall          decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	Amount             decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	Status             contribution.PenaltyStatus `gorm:"type:varchar(10);not null;default:'UNPAID';index"`
	CalculatedAt       time.Time                  `gorm:"not null"`
	JournalEntryID     *uuid.UUID                 `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (PenaltyModel) TableName() string {
	return "penalties"
}

// ToDomain converts the persistence model to a domain Penalty entity.
func (m *PenaltyModel) ToDomain() *contribution.Penalty {
	return &contribution.Penalty{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		MemberID:           m.MemberID,
		Period:             m.Period,
		ContributionAmount: m.ContributionAmount,
		PenaltyRate:        m.PenaltyRate,
		Shortfall:          m.Shortfall,
		Amount:             m.Amount,
		Status:             m.Status,
		CalculatedAt:       m.CalculatedAt,
		JournalEntryID:     m.JournalEntryID,
	}
}

// FromDomain populates the persistence model from a domain Penalty entity.
func (m *PenaltyModel) FromDomain(p *contribution.Penalty) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.MemberID = p.MemberID
	m.Period = p.Period
	m.ContributionAmount = p.ContributionAmount
	m.PenaltyRate = p.PenaltyRate
	m.Shortfall = p.Shortfall
	m.Amount = p.Amount
	m.Status = p.Status
	m.CalculatedAt = p.CalculatedAt
	m.JournalEntryID = p.JournalEntryID
}

// PenaltyModelFromDomain creates a new persistence model from a domain Penalty.
func PenaltyModelFromDomain(p *contribution.Penalty) *PenaltyModel {
	m := &PenaltyModel{}
	m.FromDomain(p)
	return m
}

// MemberModel is the persistence model for the member directory slice the
// financial core reads. Member management writes this table elsewhere.
type MemberModel struct {
	BaseModel
	FullName       string    `gorm:"type:varchar(200);not null"`
	Phone          string    `gorm:"type:varchar(30)"`
	EnrollmentDate time.Time `gorm:"not null"`
	Active         bool      `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (MemberModel) TableName() string {
	return "members"
}

// ToDomain converts the persistence model to the domain Member read view.
func (m *MemberModel) ToDomain() contribution.Member {
	return contribution.Member{
		ID:             m.ID,
		EnrollmentDate: m.EnrollmentDate,
		Active:         m.Active,
	}
}

// SettingModel is the persistence model for one configuration key.
type SettingModel struct {
	BaseModel
	Key         string `gorm:"type:varchar(100);not null;uniqueIndex:idx_settings_key"`
	Value       string `gorm:"type:varchar(500);not null"`
	Description string `gorm:"type:varchar(300)"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}
