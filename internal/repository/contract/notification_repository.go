package contract

import (
	"context"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, userId uuid.UUID) error
}

type AuditRepository interface {
	Create(ctx context.Context, log *entity.AdminActionLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AdminActionLog, error)
}
