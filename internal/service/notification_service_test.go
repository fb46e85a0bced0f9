package service

import (
	"context"
	"testing"
	"time"

	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalFansOutToNotification(t *testing.T) {
	f := newCancellationFixture(t)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifSvc := NewNotificationService(memory.NewFactory(f.store), logger.NewNopLogger(), pubSub, nil, 5*time.Second)
	require.NoError(t, notifSvc.StartConsumer(ctx))

	// Rewire the workflow engine onto the live bus.
	svc := NewCancellationService(memory.NewFactory(f.store), logger.NewNopLogger(), pubSub, nil, 5*time.Second)
	svc.(*cancellationService).now = func() time.Time { return f.now }

	res, err := svc.RequestCancellation(ctx, f.userId, &dto.RequestCancellationRequest{
		MembershipId:      f.membershipId,
		Reason:            "Moving abroad, cannot attend sessions",
		RequestRefund:     true,
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Test Member",
	})
	require.NoError(t, err)

	_, err = svc.ApproveCancellation(ctx, f.adminId, res.CancellationRequestId, &dto.ApproveCancellationRequest{ApproveRefund: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.store.Notifications()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	n := f.store.Notifications()[0]
	assert.Equal(t, f.userId, n.UserId)
	assert.Equal(t, "cancellation_approved", n.TypeCode)
	assert.Equal(t, true, n.Metadata["refund_approved"])
}

func TestGetNotificationsAndMarkRead(t *testing.T) {
	store := memory.NewStore()
	userId := uuid.New()
	notifId := uuid.New()
	store.AddUser(entity.User{Id: userId, Email: "member@example.com", Role: entity.RoleMember})

	svc := NewNotificationService(memory.NewFactory(store), logger.NewNopLogger(), nil, nil, 5*time.Second)

	uow := memory.NewFactory(store).NewUnitOfWork(context.Background())
	require.NoError(t, uow.NotificationRepository().Create(context.Background(), &entity.Notification{
		Id: notifId, UserId: userId,
		TypeCode: "cancellation_rejected", Title: "t", Message: "m",
	}))

	list, err := svc.GetNotifications(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)

	require.NoError(t, svc.MarkRead(context.Background(), userId, notifId))

	list, err = svc.GetNotifications(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}

func TestMarkReadForeignNotificationFails(t *testing.T) {
	store := memory.NewStore()
	owner := uuid.New()
	notifId := uuid.New()
	store.AddUser(entity.User{Id: owner, Email: "owner@example.com", Role: entity.RoleMember})

	uow := memory.NewFactory(store).NewUnitOfWork(context.Background())
	require.NoError(t, uow.NotificationRepository().Create(context.Background(), &entity.Notification{
		Id: notifId, UserId: owner, TypeCode: "cancellation_approved", Title: "t", Message: "m",
	}))

	svc := NewNotificationService(memory.NewFactory(store), logger.NewNopLogger(), nil, nil, 5*time.Second)
	err := svc.MarkRead(context.Background(), uuid.New(), notifId)
	require.Error(t, err)
}
