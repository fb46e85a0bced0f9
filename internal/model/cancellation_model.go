package model

import (
	"time"

	"github.com/google/uuid"
)

// CancellationRequest GORM model for membership cancellation/refund requests.
// A partial unique index (cmd/migrate) on (user_id, membership_id)
// WHERE status = 'pending' blocks a second request while one is outstanding.
type CancellationRequest struct {
	Id                    uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId                uuid.UUID  `gorm:"type:uuid;not null;index"`
	MembershipId          uuid.UUID  `gorm:"type:uuid;not null;index"`
	Reason                string     `gorm:"type:text"`
	Status                string     `gorm:"type:varchar(50);not null;default:'pending';index"` // pending, approved, rejected
	RequestedRefundAmount float64    `gorm:"type:decimal(12,2);not null;default:0"`
	RefundApproved        bool       `gorm:"default:false"`
	ApprovedRefundAmount  float64    `gorm:"type:decimal(12,2);not null;default:0"`
	ProcessedAt           *time.Time
	ProcessedByAdminId    *uuid.UUID `gorm:"type:uuid"`
	AdminNotes            string     `gorm:"type:text"`
	BankAccountNumber     string     `gorm:"type:varchar(100)"`
	BankName              string     `gorm:"type:varchar(100)"`
	AccountHolderName     string     `gorm:"type:varchar(255)"`
	TransferConfirmed     bool       `gorm:"default:false"`
	ReceivedDate          *time.Time
	CreatedAt             time.Time  `gorm:"autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime"`

	// Relations
	User       User           `gorm:"foreignKey:UserId"`
	Membership UserMembership `gorm:"foreignKey:MembershipId"`
}

func (CancellationRequest) TableName() string {
	return "cancellation_requests"
}
