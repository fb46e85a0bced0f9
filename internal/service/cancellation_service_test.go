package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cancellationFixture struct {
	store *memory.Store
	svc   ICancellationService

	userId       uuid.UUID
	adminId      uuid.UUID
	planId       uuid.UUID
	paymentId    uuid.UUID
	membershipId uuid.UUID
	now          time.Time
}

func newCancellationFixture(t *testing.T) *cancellationFixture {
	t.Helper()

	f := &cancellationFixture{
		store:        memory.NewStore(),
		userId:       uuid.New(),
		adminId:      uuid.New(),
		planId:       uuid.New(),
		paymentId:    uuid.New(),
		membershipId: uuid.New(),
		now:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	endDate := f.now.AddDate(0, 0, 25)

	f.store.AddUser(entity.User{Id: f.userId, Email: "member@example.com", FullName: "Test Member", Role: entity.RoleMember})
	f.store.AddUser(entity.User{Id: f.adminId, Email: "admin@example.com", FullName: "Test Admin", Role: entity.RoleAdmin})
	f.store.AddPlan(entity.MembershipPlan{Id: f.planId, Name: "Monthly Coaching", Slug: "monthly-coaching", Price: 199000, DurationDays: 30, IsActive: true})
	f.store.AddPayment(entity.Payment{
		Id: f.paymentId, UserId: f.userId, PlanId: f.planId,
		Amount: 199000, Status: entity.PaymentStatusConfirmed,
		TransactionId: "ORDER-1", EndDate: &endDate,
	})
	f.store.AddMembership(entity.UserMembership{
		Id: f.membershipId, UserId: f.userId, PlanId: f.planId, PaymentId: f.paymentId,
		Status: entity.MembershipStatusActive,
		StartDate: f.now.AddDate(0, 0, -5), EndDate: endDate,
	})

	svc := NewCancellationService(memory.NewFactory(f.store), logger.NewNopLogger(), nil, nil, 5*time.Second)
	svc.(*cancellationService).now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func (f *cancellationFixture) request(t *testing.T) *dto.RequestCancellationResponse {
	t.Helper()
	res, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
		MembershipId:      f.membershipId,
		Reason:            "Moving abroad, cannot attend sessions",
		RequestRefund:     true,
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Test Member",
	})
	require.NoError(t, err)
	return res
}

func TestRequestCancellationDefaultsToHalfOfPayment(t *testing.T) {
	f := newCancellationFixture(t)

	res := f.request(t)

	assert.Equal(t, 99500.0, res.RequestedRefundAmount)
	assert.Equal(t, "pending", res.Status)

	m := f.store.Membership(f.membershipId)
	assert.Equal(t, entity.MembershipStatusPendingCancellation, m.Status)

	r := f.store.Cancellation(res.CancellationRequestId)
	assert.Equal(t, entity.CancellationStatusPending, r.Status)
	assert.Equal(t, "BCA", r.Bank.BankName)
}

func TestRequestCancellationClampsRequestedAmount(t *testing.T) {
	f := newCancellationFixture(t)

	amount := 500000.0
	res, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
		MembershipId:          f.membershipId,
		Reason:                "Moving abroad, cannot attend sessions",
		RequestRefund:         true,
		RequestedRefundAmount: &amount,
		BankAccountNumber:     "1234567890",
		BankName:              "BCA",
		AccountHolderName:     "Test Member",
	})
	require.NoError(t, err)

	assert.Equal(t, 199000.0, res.RequestedRefundAmount, "never above what was paid")
}

func TestRequestCancellationWithoutRefund(t *testing.T) {
	f := newCancellationFixture(t)

	res, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
		MembershipId:      f.membershipId,
		Reason:            "No longer need coaching, keep the money",
		RequestRefund:     false,
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Test Member",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.RequestedRefundAmount)
}

func TestRequestCancellationSecondRequestRejected(t *testing.T) {
	f := newCancellationFixture(t)
	f.request(t)

	_, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
		MembershipId:      f.membershipId,
		Reason:            "Trying again while still pending",
		RequestRefund:     true,
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Test Member",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyPending))
}

func TestRequestCancellationNotOwner(t *testing.T) {
	f := newCancellationFixture(t)
	stranger := uuid.New()
	f.store.AddUser(entity.User{Id: stranger, Email: "other@example.com", Role: entity.RoleMember})

	_, err := f.svc.RequestCancellation(context.Background(), stranger, &dto.RequestCancellationRequest{
		MembershipId:      f.membershipId,
		Reason:            "This membership is not mine at all",
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Stranger",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotOwner))

	m := f.store.Membership(f.membershipId)
	assert.Equal(t, entity.MembershipStatusActive, m.Status, "no side effects")
}

func TestRequestCancellationUnknownMembership(t *testing.T) {
	f := newCancellationFixture(t)

	_, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
		MembershipId:      uuid.New(),
		Reason:            "Pointing at a membership that is gone",
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Test Member",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestRequestCancellationInactiveMembership(t *testing.T) {
	f := newCancellationFixture(t)
	m := f.store.Membership(f.membershipId)
	m.Status = entity.MembershipStatusCancelled
	f.store.AddMembership(m)

	_, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
		MembershipId:      f.membershipId,
		Reason:            "Cancelling something already cancelled",
		BankAccountNumber: "1234567890",
		BankName:          "BCA",
		AccountHolderName: "Test Member",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMembershipInactive))
}

func TestRequestCancellationConcurrentOnlyOneWins(t *testing.T) {
	f := newCancellationFixture(t)

	req := func() error {
		_, err := f.svc.RequestCancellation(context.Background(), f.userId, &dto.RequestCancellationRequest{
			MembershipId:      f.membershipId,
			Reason:            "Concurrent cancellation race attempt",
			RequestRefund:     true,
			BankAccountNumber: "1234567890",
			BankName:          "BCA",
			AccountHolderName: "Test Member",
		})
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = req()
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		if err == nil {
			successes++
		} else if apperror.HasCode(err, apperror.CodeAlreadyPending) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestApproveCancellationWithRefund(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	res, err := f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{
		ApproveRefund: true,
		AdminNotes:    "Refund per policy",
	})
	require.NoError(t, err)

	assert.Equal(t, "approved", res.Status)
	assert.Equal(t, "cancelled", res.MembershipStatus)
	assert.Equal(t, 99500.0, res.RefundAmount)

	r := f.store.Cancellation(requested.CancellationRequestId)
	assert.Equal(t, entity.CancellationStatusApproved, r.Status)
	assert.True(t, r.RefundApproved)
	require.NotNil(t, r.ProcessedByAdminId)
	assert.Equal(t, f.adminId, *r.ProcessedByAdminId)

	assert.Equal(t, entity.MembershipStatusCancelled, f.store.Membership(f.membershipId).Status)
	assert.Equal(t, entity.PaymentStatusRejected, f.store.Payment(f.paymentId).Status)
	assert.Equal(t, entity.RoleGuest, f.store.User(f.userId).Role, "refund revokes paid access immediately")

	audits := f.store.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, entity.AdminActionApproveCancellation, audits[0].Action)
	assert.Equal(t, f.adminId, audits[0].AdminId)
}

func TestApproveCancellationWithoutRefundKeepsCoverage(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	res, err := f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{
		ApproveRefund: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.RefundAmount)

	// No money moved, so the confirmed payment still covers the user until
	// its end date; the scheduler demotes them once coverage lapses.
	assert.Equal(t, entity.PaymentStatusConfirmed, f.store.Payment(f.paymentId).Status)
	assert.Equal(t, entity.RoleMember, f.store.User(f.userId).Role)
	assert.Equal(t, entity.MembershipStatusCancelled, f.store.Membership(f.membershipId).Status)
}

func TestApproveCancellationClampsAdminAmount(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	amount := 250000.0
	res, err := f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{
		ApproveRefund: true,
		RefundAmount:  &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, 199000.0, res.RefundAmount)
}

func TestApproveCancellationTwiceIsRejected(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	_, err := f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{ApproveRefund: true})
	require.NoError(t, err)

	_, err = f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{ApproveRefund: true})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyProcessed))

	// First decision stands untouched.
	r := f.store.Cancellation(requested.CancellationRequestId)
	assert.Equal(t, entity.CancellationStatusApproved, r.Status)
	assert.Equal(t, 99500.0, r.ApprovedRefundAmount)
}

func TestApproveUnknownRequest(t *testing.T) {
	f := newCancellationFixture(t)

	_, err := f.svc.ApproveCancellation(context.Background(), f.adminId, uuid.New(), &dto.ApproveCancellationRequest{ApproveRefund: true})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestRejectCancellationRestoresMembership(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	res, err := f.svc.RejectCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.RejectCancellationRequest{
		AdminNotes: "Outside the refund window",
	})
	require.NoError(t, err)

	assert.Equal(t, "rejected", res.Status)
	assert.Equal(t, "active", res.MembershipStatus)

	assert.Equal(t, entity.MembershipStatusActive, f.store.Membership(f.membershipId).Status)
	assert.Equal(t, entity.PaymentStatusConfirmed, f.store.Payment(f.paymentId).Status, "payment untouched on reject")
	assert.Equal(t, entity.RoleMember, f.store.User(f.userId).Role)

	r := f.store.Cancellation(requested.CancellationRequestId)
	assert.Equal(t, entity.CancellationStatusRejected, r.Status)
	assert.False(t, r.RefundApproved)
}

func TestRejectThenRequestAgain(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	_, err := f.svc.RejectCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.RejectCancellationRequest{AdminNotes: "Not yet"})
	require.NoError(t, err)

	// The rejected request is terminal, so a fresh one is allowed.
	res := f.request(t)
	assert.NotEqual(t, requested.CancellationRequestId, res.CancellationRequestId)
	assert.Equal(t, entity.MembershipStatusPendingCancellation, f.store.Membership(f.membershipId).Status)
}

func TestRejectCancellationTwiceIsRejected(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	_, err := f.svc.RejectCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.RejectCancellationRequest{AdminNotes: "No"})
	require.NoError(t, err)

	_, err = f.svc.RejectCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.RejectCancellationRequest{AdminNotes: "No again"})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyProcessed))
}

func TestConfirmTransfer(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	_, err := f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{ApproveRefund: true})
	require.NoError(t, err)

	received := f.now.AddDate(0, 0, 3)
	res, err := f.svc.ConfirmTransfer(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ConfirmTransferRequest{
		ReceivedDate: &received,
	})
	require.NoError(t, err)
	assert.True(t, res.TransferConfirmed)
	assert.Equal(t, received, res.ReceivedDate)

	r := f.store.Cancellation(requested.CancellationRequestId)
	assert.True(t, r.TransferConfirmed)
	require.NotNil(t, r.ReceivedDate)
}

func TestConfirmTransferOnPendingRequestFails(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	_, err := f.svc.ConfirmTransfer(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ConfirmTransferRequest{})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAdminListsSplitPendingAndHistory(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	pending, err := f.svc.GetPendingCancellations(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, requested.CancellationRequestId, pending[0].Id)
	assert.Equal(t, "member@example.com", pending[0].User.Email)

	history, err := f.svc.GetCancellationHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.svc.ApproveCancellation(context.Background(), f.adminId, requested.CancellationRequestId, &dto.ApproveCancellationRequest{ApproveRefund: true})
	require.NoError(t, err)

	pending, err = f.svc.GetPendingCancellations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	history, err = f.svc.GetCancellationHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "approved", history[0].Status)
}

func TestGetRefundRequestsReturnsOwnOnly(t *testing.T) {
	f := newCancellationFixture(t)
	requested := f.request(t)

	own, err := f.svc.GetRefundRequests(context.Background(), f.userId)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, requested.CancellationRequestId, own[0].Id)

	other, err := f.svc.GetRefundRequests(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
