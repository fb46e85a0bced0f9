package model

import (
	"time"

	"github.com/google/uuid"
)

type MembershipPlan struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Slug         string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Description  string    `gorm:"type:text"`
	Price        float64   `gorm:"type:decimal(12,2);not null"`
	DurationDays int       `gorm:"not null;default:30"`
	IsActive     bool      `gorm:"default:true"`
	SortOrder    int       `gorm:"default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (MembershipPlan) TableName() string {
	return "membership_plans"
}

type Payment struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	PlanId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Amount        float64    `gorm:"type:decimal(12,2);not null"`
	Method        string     `gorm:"type:varchar(50)"`
	Status        string     `gorm:"type:varchar(50);not null;default:'pending';index"` // pending, confirmed, rejected
	TransactionId string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	EndDate       *time.Time `gorm:"index"` // coverage end, set on confirmation
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

// UserMembership carries a partial unique index (created in cmd/migrate) on
// user_id WHERE status IN ('active','pending_cancellation') so the
// one-live-membership-per-user invariant is rejected at write time.
type UserMembership struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	PlanId    uuid.UUID `gorm:"type:uuid;not null;index"`
	PaymentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Status    string    `gorm:"type:varchar(50);not null;index"` // pending, active, pending_cancellation, cancelled, expired
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserMembership) TableName() string {
	return "user_memberships"
}
