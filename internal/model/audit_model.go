package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AdminActionLog records every admin decision on the cancellation workflow.
type AdminActionLog struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AdminId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Action     string         `gorm:"type:varchar(100);not null;index"`
	EntityType string         `gorm:"type:varchar(50);not null"`
	EntityId   uuid.UUID      `gorm:"type:uuid;not null;index"`
	Details    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (AdminActionLog) TableName() string {
	return "admin_action_logs"
}
