package service

import (
	"context"
	"encoding/json"
	"time"

	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/pkg/mailer"
	"coach-membership-be/internal/repository/specification"
	"coach-membership-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type INotificationService interface {
	// StartConsumer subscribes to the internal bus and fans decisions out to
	// in-app notifications and email until ctx is cancelled.
	StartConsumer(ctx context.Context) error
	GetNotifications(ctx context.Context, userId uuid.UUID) ([]*dto.NotificationResponse, error)
	MarkRead(ctx context.Context, userId, notificationId uuid.UUID) error
}

type notificationService struct {
	uowFactory   unitofwork.RepositoryFactory
	logger       logger.ILogger
	pubSub       *gochannel.GoChannel
	email        mailer.IEmailService
	queryTimeout time.Duration
}

func NewNotificationService(
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	pubSub *gochannel.GoChannel,
	email mailer.IEmailService,
	queryTimeout time.Duration,
) INotificationService {
	return &notificationService{
		uowFactory:   uowFactory,
		logger:       log,
		pubSub:       pubSub,
		email:        email,
		queryTimeout: queryTimeout,
	}
}

func (s *notificationService) StartConsumer(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, TopicCancellationProcessed)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var payload dto.CancellationProcessedMessage
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				s.logger.Warn("NOTIFICATION", "Dropping malformed bus message", map[string]interface{}{
					"messageId": msg.UUID,
					"error":     err.Error(),
				})
				msg.Ack()
				continue
			}
			s.handleProcessed(ctx, &payload)
			// Notifications are best effort; the decision itself is already
			// durable, so never nack into a redelivery loop.
			msg.Ack()
		}
	}()

	return nil
}

func (s *notificationService) handleProcessed(ctx context.Context, payload *dto.CancellationProcessedMessage) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: payload.UserId})
	if err != nil || user == nil {
		s.logger.Warn("NOTIFICATION", "Could not load user for notification", map[string]interface{}{
			"userId": payload.UserId.String(),
		})
		return
	}

	var typeCode, title, messageText string
	if payload.Approved {
		typeCode = "cancellation_approved"
		title = "Cancellation approved"
		messageText = "Your membership cancellation has been approved and your membership has ended."
		if payload.RefundApproved {
			messageText += " Your refund is on its way to the bank account you provided."
		}
	} else {
		typeCode = "cancellation_rejected"
		title = "Cancellation request declined"
		messageText = "Your membership cancellation request was not approved. Your membership remains active."
	}

	err = uow.NotificationRepository().Create(ctx, &entity.Notification{
		Id:       uuid.New(),
		UserId:   payload.UserId,
		TypeCode: typeCode,
		Title:    title,
		Message:  messageText,
		Metadata: map[string]interface{}{
			"request_id":      payload.RequestId.String(),
			"membership_id":   payload.MembershipId.String(),
			"refund_approved": payload.RefundApproved,
			"refund_amount":   payload.RefundAmount,
		},
	})
	if err != nil {
		s.logger.Warn("NOTIFICATION", "Failed to persist notification", map[string]interface{}{
			"userId": payload.UserId.String(),
			"error":  err.Error(),
		})
	}

	if s.email == nil {
		return
	}
	if payload.Approved {
		err = s.email.SendCancellationApproved(user.Email, user.FullName, payload.RefundApproved, payload.RefundAmount)
	} else {
		err = s.email.SendCancellationRejected(user.Email, user.FullName, payload.AdminNotes)
	}
	if err != nil {
		s.logger.Warn("NOTIFICATION", "Failed to send email", map[string]interface{}{
			"userId": payload.UserId.String(),
			"error":  err.Error(),
		})
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userId uuid.UUID) ([]*dto.NotificationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	notifications, err := uow.NotificationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 50, Offset: 0},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	res := make([]*dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		res = append(res, &dto.NotificationResponse{
			Id:        n.Id,
			TypeCode:  n.TypeCode,
			Title:     n.Title,
			Message:   n.Message,
			Metadata:  n.Metadata,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return res, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userId, notificationId uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.NotificationRepository().MarkRead(ctx, notificationId, userId); err != nil {
		return apperror.FromStore(err)
	}
	return nil
}
