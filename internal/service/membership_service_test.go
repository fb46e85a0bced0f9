package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/memory"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "server-key-for-tests"

type membershipFixture struct {
	store *memory.Store
	svc   IMembershipService

	userId    uuid.UUID
	planId    uuid.UUID
	paymentId uuid.UUID
	now       time.Time
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()

	f := &membershipFixture{
		store:     memory.NewStore(),
		userId:    uuid.New(),
		planId:    uuid.New(),
		paymentId: uuid.New(),
		now:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	f.store.AddUser(entity.User{Id: f.userId, Email: "buyer@example.com", FullName: "Buyer", Role: entity.RoleGuest})
	f.store.AddPlan(entity.MembershipPlan{Id: f.planId, Name: "Monthly Coaching", Slug: "monthly-coaching", Price: 199000, DurationDays: 30, IsActive: true, SortOrder: 1})
	f.store.AddPayment(entity.Payment{
		Id: f.paymentId, UserId: f.userId, PlanId: f.planId,
		Amount: 199000, Status: entity.PaymentStatusPending,
		TransactionId: "ORDER-100",
	})

	svc := NewMembershipService(memory.NewFactory(f.store), logger.NewNopLogger(), nil, testServerKey, 5*time.Second)
	svc.(*membershipService).now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func gatewaySignature(orderId, statusCode, grossAmount string) string {
	h := sha512.New()
	h.Write([]byte(orderId + statusCode + grossAmount + testServerKey))
	return hex.EncodeToString(h.Sum(nil))
}

func settlementNotification(orderId string) *dto.GatewayNotificationRequest {
	return &dto.GatewayNotificationRequest{
		OrderId:           orderId,
		StatusCode:        "200",
		GrossAmount:       "199000.00",
		TransactionStatus: "settlement",
		SignatureKey:      gatewaySignature(orderId, "200", "199000.00"),
		PaymentType:       "bank_transfer",
	}
}

func TestGatewaySettlementActivatesMembership(t *testing.T) {
	f := newMembershipFixture(t)

	err := f.svc.HandleGatewayNotification(context.Background(), settlementNotification("ORDER-100"))
	require.NoError(t, err)

	p := f.store.Payment(f.paymentId)
	assert.Equal(t, entity.PaymentStatusConfirmed, p.Status)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, f.now.AddDate(0, 0, 30), *p.EndDate)

	assert.Equal(t, entity.RoleMember, f.store.User(f.userId).Role, "settlement promotes the buyer")

	status, err := f.svc.GetMembershipStatus(context.Background(), f.userId)
	require.NoError(t, err)
	assert.Equal(t, "active", status.Status)
	assert.True(t, status.IsActive)
	assert.Equal(t, "Monthly Coaching", status.PlanName)
}

func TestGatewaySettlementReplayIsIdempotent(t *testing.T) {
	f := newMembershipFixture(t)

	require.NoError(t, f.svc.HandleGatewayNotification(context.Background(), settlementNotification("ORDER-100")))
	require.NoError(t, f.svc.HandleGatewayNotification(context.Background(), settlementNotification("ORDER-100")))

	uow := memory.NewFactory(f.store).NewUnitOfWork(context.Background())
	memberships, err := uow.MembershipRepository().FindAll(context.Background(), specification.UserOwnedBy{UserID: f.userId})
	require.NoError(t, err)
	assert.Len(t, memberships, 1, "replay must not create a second membership")
}

func TestGatewayNotificationBadSignature(t *testing.T) {
	f := newMembershipFixture(t)

	req := settlementNotification("ORDER-100")
	req.SignatureKey = "forged"
	err := f.svc.HandleGatewayNotification(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	assert.Equal(t, entity.PaymentStatusPending, f.store.Payment(f.paymentId).Status, "no side effects")
}

func TestGatewayNotificationUnknownOrder(t *testing.T) {
	f := newMembershipFixture(t)

	req := &dto.GatewayNotificationRequest{
		OrderId:           "ORDER-404",
		StatusCode:        "200",
		GrossAmount:       "199000.00",
		TransactionStatus: "settlement",
		SignatureKey:      gatewaySignature("ORDER-404", "200", "199000.00"),
	}
	err := f.svc.HandleGatewayNotification(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestGatewayDenialRejectsPayment(t *testing.T) {
	f := newMembershipFixture(t)

	req := settlementNotification("ORDER-100")
	req.TransactionStatus = "deny"
	require.NoError(t, f.svc.HandleGatewayNotification(context.Background(), req))

	assert.Equal(t, entity.PaymentStatusRejected, f.store.Payment(f.paymentId).Status)
	assert.Equal(t, entity.RoleGuest, f.store.User(f.userId).Role)
}

func TestGetPlansOnlyActiveSorted(t *testing.T) {
	f := newMembershipFixture(t)
	f.store.AddPlan(entity.MembershipPlan{Id: uuid.New(), Name: "Legacy Plan", Slug: "legacy", Price: 99000, DurationDays: 30, IsActive: false})
	f.store.AddPlan(entity.MembershipPlan{Id: uuid.New(), Name: "Annual Coaching", Slug: "annual-coaching", Price: 1990000, DurationDays: 365, IsActive: true, SortOrder: 3})

	plans, err := f.svc.GetPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "monthly-coaching", plans[0].Slug)
	assert.Equal(t, "annual-coaching", plans[1].Slug)
}

func TestGetMembershipStatusWithoutMembership(t *testing.T) {
	f := newMembershipFixture(t)

	status, err := f.svc.GetMembershipStatus(context.Background(), f.userId)
	require.NoError(t, err)
	assert.Equal(t, "none", status.Status)
	assert.Equal(t, "guest", status.Role)
	assert.False(t, status.IsActive)
	assert.Nil(t, status.MembershipId)
}
