package implementation

import (
	"context"
	"encoding/json"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/model"
	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type notificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) contract.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, notification *entity.Notification) error {
	var metadata datatypes.JSON
	if notification.Metadata != nil {
		raw, err := json.Marshal(notification.Metadata)
		if err != nil {
			return err
		}
		metadata = raw
	}
	m := &model.Notification{
		Id:       notification.Id,
		UserId:   notification.UserId,
		TypeCode: notification.TypeCode,
		Title:    notification.Title,
		Message:  notification.Message,
		Metadata: metadata,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	notification.CreatedAt = m.CreatedAt
	return nil
}

func (r *notificationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notification, error) {
	var models []*model.Notification
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	notifications := make([]*entity.Notification, 0, len(models))
	for _, m := range models {
		var metadata map[string]interface{}
		if len(m.Metadata) > 0 {
			_ = json.Unmarshal(m.Metadata, &metadata)
		}
		notifications = append(notifications, &entity.Notification{
			Id:        m.Id,
			UserId:    m.UserId,
			TypeCode:  m.TypeCode,
			Title:     m.Title,
			Message:   m.Message,
			Metadata:  metadata,
			IsRead:    m.IsRead,
			ReadAt:    m.ReadAt,
			CreatedAt: m.CreatedAt,
		})
	}
	return notifications, nil
}

func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID, userId uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userId).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

type auditRepositoryImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) contract.AuditRepository {
	return &auditRepositoryImpl{db: db}
}

func (r *auditRepositoryImpl) Create(ctx context.Context, log *entity.AdminActionLog) error {
	var details datatypes.JSON
	if log.Details != nil {
		raw, err := json.Marshal(log.Details)
		if err != nil {
			return err
		}
		details = raw
	}
	m := &model.AdminActionLog{
		Id:         log.Id,
		AdminId:    log.AdminId,
		Action:     log.Action,
		EntityType: log.EntityType,
		EntityId:   log.EntityId,
		Details:    details,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	log.CreatedAt = m.CreatedAt
	return nil
}

func (r *auditRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AdminActionLog, error) {
	var models []*model.AdminActionLog
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	logs := make([]*entity.AdminActionLog, 0, len(models))
	for _, m := range models {
		var details map[string]interface{}
		if len(m.Details) > 0 {
			_ = json.Unmarshal(m.Details, &details)
		}
		logs = append(logs, &entity.AdminActionLog{
			Id:         m.Id,
			AdminId:    m.AdminId,
			Action:     m.Action,
			EntityType: m.EntityType,
			EntityId:   m.EntityId,
			Details:    details,
			CreatedAt:  m.CreatedAt,
		})
	}
	return logs, nil
}
