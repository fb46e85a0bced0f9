package membership

import (
	"testing"
	"time"

	"coach-membership-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestProjectRole(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(30 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	activeMembership := &entity.UserMembership{Status: entity.MembershipStatusActive}
	pendingCancellation := &entity.UserMembership{Status: entity.MembershipStatusPendingCancellation}
	cancelledMembership := &entity.UserMembership{Status: entity.MembershipStatusCancelled}
	expiredMembership := &entity.UserMembership{Status: entity.MembershipStatusExpired}

	coveredPayment := &entity.Payment{Status: entity.PaymentStatusConfirmed, EndDate: &future}
	lapsedPayment := &entity.Payment{Status: entity.PaymentStatusConfirmed, EndDate: &past}
	rejectedPayment := &entity.Payment{Status: entity.PaymentStatusRejected, EndDate: &future}

	tests := []struct {
		name        string
		current     entity.Role
		memberships []*entity.UserMembership
		payments    []*entity.Payment
		want        entity.Role
	}{
		{"active membership keeps member", entity.RoleMember, []*entity.UserMembership{activeMembership}, nil, entity.RoleMember},
		{"pending cancellation grants nothing by itself", entity.RoleMember, []*entity.UserMembership{pendingCancellation}, nil, entity.RoleGuest},
		{"pending cancellation with coverage keeps member", entity.RoleMember, []*entity.UserMembership{pendingCancellation}, []*entity.Payment{coveredPayment}, entity.RoleMember},
		{"pending cancellation with lapsed coverage demotes", entity.RoleMember, []*entity.UserMembership{pendingCancellation}, []*entity.Payment{lapsedPayment}, entity.RoleGuest},
		{"cancelled membership alone demotes", entity.RoleMember, []*entity.UserMembership{cancelledMembership}, nil, entity.RoleGuest},
		{"expired membership alone demotes", entity.RoleMember, []*entity.UserMembership{expiredMembership}, nil, entity.RoleGuest},
		{"confirmed coverage keeps member without membership row", entity.RoleMember, nil, []*entity.Payment{coveredPayment}, entity.RoleMember},
		{"lapsed coverage demotes", entity.RoleMember, nil, []*entity.Payment{lapsedPayment}, entity.RoleGuest},
		{"rejected payment grants nothing", entity.RoleMember, nil, []*entity.Payment{rejectedPayment}, entity.RoleGuest},
		{"coverage promotes guest", entity.RoleGuest, nil, []*entity.Payment{coveredPayment}, entity.RoleMember},
		{"no facts stays guest", entity.RoleGuest, nil, nil, entity.RoleGuest},
		{"coach passes through untouched", entity.RoleCoach, nil, nil, entity.RoleCoach},
		{"admin passes through untouched", entity.RoleAdmin, []*entity.UserMembership{expiredMembership}, nil, entity.RoleAdmin},
		{"mixed facts, one active membership wins", entity.RoleGuest, []*entity.UserMembership{cancelledMembership, activeMembership}, []*entity.Payment{lapsedPayment}, entity.RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectRole(tt.current, tt.memberships, tt.payments, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectRoleIsDeterministic(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	memberships := []*entity.UserMembership{{Status: entity.MembershipStatusActive}}
	payments := []*entity.Payment{{Status: entity.PaymentStatusConfirmed, EndDate: &future}}

	first := ProjectRole(entity.RoleGuest, memberships, payments, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ProjectRole(entity.RoleGuest, memberships, payments, now))
	}
}

func TestDefaultRefundAmount(t *testing.T) {
	payment := &entity.Payment{Amount: 199000}
	assert.Equal(t, 99500.0, DefaultRefundAmount(payment))
}

func TestClampRefund(t *testing.T) {
	payment := &entity.Payment{Amount: 199000}

	assert.Equal(t, 99500.0, ClampRefund(99500, payment))
	assert.Equal(t, 199000.0, ClampRefund(250000, payment), "never exceeds the amount paid")
	assert.Equal(t, 0.0, ClampRefund(-10, payment), "negative amounts clamp to zero")
}
