package scheduler

import (
	"context"
	"testing"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newReconcilerFixture(now time.Time) (*memory.Store, *Reconciler, *fakeClock) {
	store := memory.NewStore()
	clock := &fakeClock{now: now}
	r := NewReconciler(memory.NewFactory(store), logger.NewNopLogger(), clock, time.Hour, time.Minute)
	return store, r, clock
}

func addMemberWithLapsedMembership(store *memory.Store, now time.Time) (uuid.UUID, uuid.UUID) {
	userId := uuid.New()
	membershipId := uuid.New()
	paymentId := uuid.New()
	planId := uuid.New()
	ended := now.AddDate(0, 0, -2)

	store.AddUser(entity.User{Id: userId, Email: "lapsed@example.com", Role: entity.RoleMember})
	store.AddPayment(entity.Payment{
		Id: paymentId, UserId: userId, PlanId: planId,
		Amount: 199000, Status: entity.PaymentStatusConfirmed,
		TransactionId: uuid.NewString(), EndDate: &ended,
	})
	store.AddMembership(entity.UserMembership{
		Id: membershipId, UserId: userId, PlanId: planId, PaymentId: paymentId,
		Status:    entity.MembershipStatusActive,
		StartDate: now.AddDate(0, 0, -32), EndDate: ended,
	})
	return userId, membershipId
}

func TestSweepExpiresLapsedMembershipAndDemotes(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, _ := newReconcilerFixture(now)
	userId, membershipId := addMemberWithLapsedMembership(store, now)

	r.RunSweeps(context.Background())

	assert.Equal(t, entity.MembershipStatusExpired, store.Membership(membershipId).Status)
	assert.Equal(t, entity.RoleGuest, store.User(userId).Role)
}

func TestSweepKeepsMemberWithFutureCoverage(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, _ := newReconcilerFixture(now)

	userId := uuid.New()
	future := now.AddDate(0, 0, 10)
	store.AddUser(entity.User{Id: userId, Email: "covered@example.com", Role: entity.RoleMember})
	store.AddPayment(entity.Payment{
		Id: uuid.New(), UserId: userId, PlanId: uuid.New(),
		Amount: 199000, Status: entity.PaymentStatusConfirmed,
		TransactionId: uuid.NewString(), EndDate: &future,
	})

	r.RunSweeps(context.Background())

	assert.Equal(t, entity.RoleMember, store.User(userId).Role)
}

func TestSweepDemotesOrphanedMemberRole(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, _ := newReconcilerFixture(now)

	userId := uuid.New()
	store.AddUser(entity.User{Id: userId, Email: "orphan@example.com", Role: entity.RoleMember})

	r.RunSweeps(context.Background())

	assert.Equal(t, entity.RoleGuest, store.User(userId).Role)
}

func TestSweepDemotesLapsedCoverageDuringPendingCancellation(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, _ := newReconcilerFixture(now)

	// Coverage ran out while the cancellation request sits in the admin
	// queue. The pending_cancellation row grants nothing by itself, so the
	// sweep must converge this user to guest.
	userId := uuid.New()
	membershipId := uuid.New()
	lapsed := now.AddDate(0, 0, -3)
	store.AddUser(entity.User{Id: userId, Email: "undecided@example.com", Role: entity.RoleMember})
	store.AddPayment(entity.Payment{
		Id: uuid.New(), UserId: userId, PlanId: uuid.New(),
		Amount: 199000, Status: entity.PaymentStatusConfirmed,
		TransactionId: uuid.NewString(), EndDate: &lapsed,
	})
	store.AddMembership(entity.UserMembership{
		Id: membershipId, UserId: userId, PlanId: uuid.New(), PaymentId: uuid.New(),
		Status:    entity.MembershipStatusPendingCancellation,
		StartDate: now.AddDate(0, 0, -33), EndDate: lapsed,
	})

	r.RunSweeps(context.Background())

	assert.Equal(t, entity.RoleGuest, store.User(userId).Role)
	assert.Equal(t, entity.MembershipStatusPendingCancellation, store.Membership(membershipId).Status,
		"the sweep demotes the role but never decides the pending request")
}

func TestSweepNeverTouchesPrivilegedRoles(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, _ := newReconcilerFixture(now)

	coachId := uuid.New()
	adminId := uuid.New()
	store.AddUser(entity.User{Id: coachId, Email: "coach@example.com", Role: entity.RoleCoach})
	store.AddUser(entity.User{Id: adminId, Email: "admin@example.com", Role: entity.RoleAdmin})

	r.RunSweeps(context.Background())

	assert.Equal(t, entity.RoleCoach, store.User(coachId).Role)
	assert.Equal(t, entity.RoleAdmin, store.User(adminId).Role)
}

func TestSweepConverges(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, clock := newReconcilerFixture(now)
	userId, membershipId := addMemberWithLapsedMembership(store, now)

	r.RunSweeps(context.Background())
	firstMembership := store.Membership(membershipId)
	firstUser := store.User(userId)

	// Second run over an already converged store changes nothing.
	clock.now = clock.now.Add(24 * time.Hour)
	r.RunSweeps(context.Background())

	assert.Equal(t, firstMembership.Status, store.Membership(membershipId).Status)
	assert.Equal(t, firstUser.Role, store.User(userId).Role)
}

func TestSweepDemotesWhenCoverageLapsesLater(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, clock := newReconcilerFixture(now)

	// Cancelled membership but coverage paid through: the user keeps member
	// until the clock passes the payment's end date.
	userId := uuid.New()
	coverageEnd := now.AddDate(0, 0, 5)
	store.AddUser(entity.User{Id: userId, Email: "paidthrough@example.com", Role: entity.RoleMember})
	store.AddPayment(entity.Payment{
		Id: uuid.New(), UserId: userId, PlanId: uuid.New(),
		Amount: 199000, Status: entity.PaymentStatusConfirmed,
		TransactionId: uuid.NewString(), EndDate: &coverageEnd,
	})
	store.AddMembership(entity.UserMembership{
		Id: uuid.New(), UserId: userId, PlanId: uuid.New(), PaymentId: uuid.New(),
		Status:    entity.MembershipStatusCancelled,
		StartDate: now.AddDate(0, 0, -25), EndDate: coverageEnd,
	})

	r.RunSweeps(context.Background())
	assert.Equal(t, entity.RoleMember, store.User(userId).Role)

	clock.now = coverageEnd.AddDate(0, 0, 1)
	r.RunSweeps(context.Background())
	assert.Equal(t, entity.RoleGuest, store.User(userId).Role)
}

func TestStartStopLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	store, r, _ := newReconcilerFixture(now)
	userId, _ := addMemberWithLapsedMembership(store, now)

	r.Start()
	r.Start() // second Start is a no-op

	// Start runs an immediate sweep; wait for it to land.
	require.Eventually(t, func() bool {
		return store.User(userId).Role == entity.RoleGuest
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop() // second Stop is a no-op
}
