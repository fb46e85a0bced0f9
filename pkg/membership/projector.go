// Package membership holds the pure domain rules shared by the cancellation
// workflow and the reconciliation sweep.
package membership

import (
	"time"

	"coach-membership-be/internal/entity"
)

// ProjectRole derives the effective role from current membership and payment
// facts. It is the single source of the rule: every code path that mutates
// membership state must call it rather than write roles directly, so the
// workflow engine and the scheduler can never disagree.
//
// Privileged roles (coach, admin) pass through untouched. Otherwise the user
// is a member while they hold an active membership or a confirmed payment
// with coverage beyond now, and a guest the rest of the time. A membership in
// pending_cancellation grants nothing by itself: its holder normally stays a
// member through the confirmed payment's coverage, and on rejection the
// membership goes back to active before the role is recomputed.
func ProjectRole(current entity.Role, memberships []*entity.UserMembership, payments []*entity.Payment, now time.Time) entity.Role {
	if current.IsPrivileged() {
		return current
	}
	for _, m := range memberships {
		if m.Status == entity.MembershipStatusActive {
			return entity.RoleMember
		}
	}
	for _, p := range payments {
		if p.HasCoverageAt(now) {
			return entity.RoleMember
		}
	}
	return entity.RoleGuest
}

// DefaultRefundAmount applies the refund policy to the originating payment.
func DefaultRefundAmount(payment *entity.Payment) float64 {
	return payment.Amount * entity.DefaultRefundRate
}

// ClampRefund bounds a refund to the amount actually paid. Amounts are
// server-computed; client input never raises the ceiling.
func ClampRefund(amount float64, payment *entity.Payment) float64 {
	if amount < 0 {
		return 0
	}
	if amount > payment.Amount {
		return payment.Amount
	}
	return amount
}
