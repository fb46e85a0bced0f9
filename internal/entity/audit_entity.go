package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	AdminActionApproveCancellation = "cancellation.approve"
	AdminActionRejectCancellation  = "cancellation.reject"
	AdminActionConfirmTransfer     = "cancellation.transfer_confirmed"
)

type AdminActionLog struct {
	Id         uuid.UUID
	AdminId    uuid.UUID
	Action     string
	EntityType string
	EntityId   uuid.UUID
	Details    map[string]interface{}
	CreatedAt  time.Time
}

type Notification struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	TypeCode  string
	Title     string
	Message   string
	Metadata  map[string]interface{}
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// RoleFacts bundles everything ProjectRole needs for one user.
type RoleFacts struct {
	User        User
	Memberships []*UserMembership
	Payments    []*Payment
}
