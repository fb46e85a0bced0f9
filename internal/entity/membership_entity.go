package entity

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string
type PaymentStatus string

const (
	MembershipStatusPending             MembershipStatus = "pending"
	MembershipStatusActive              MembershipStatus = "active"
	MembershipStatusPendingCancellation MembershipStatus = "pending_cancellation"
	MembershipStatusCancelled           MembershipStatus = "cancelled"
	MembershipStatusExpired             MembershipStatus = "expired"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

type MembershipPlan struct {
	Id           uuid.UUID
	Name         string
	Slug         string
	Description  string
	Price        float64
	DurationDays int
	IsActive     bool
	SortOrder    int
}

// Payment is one purchase attempt. Rows are only ever status-transitioned,
// never deleted; the payment history is the audit trail for refunds.
type Payment struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	PlanId        uuid.UUID
	Amount        float64
	Method        string
	Status        PaymentStatus
	TransactionId string
	EndDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasCoverageAt reports whether this payment grants paid access at t.
func (p *Payment) HasCoverageAt(t time.Time) bool {
	return p.Status == PaymentStatusConfirmed && p.EndDate != nil && p.EndDate.After(t)
}

type UserMembership struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	PlanId    uuid.UUID
	PaymentId uuid.UUID
	Status    MembershipStatus
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
