// Package memory provides an in-memory implementation of the repository
// contracts for tests. It mirrors store semantics the services rely on:
// conditional updates report rows affected, and the partial unique indexes
// reject writes with gorm.ErrDuplicatedKey exactly like the Postgres schema.
package memory

import (
	"context"
	"fmt"
	"sync"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Store holds all tables. One mutex covers the whole store; a unit of work
// holds it from Begin to Commit/Rollback, which serializes transactions the
// way row locks do in the real store.
type Store struct {
	mu sync.Mutex

	users         map[uuid.UUID]entity.User
	plans         map[uuid.UUID]entity.MembershipPlan
	payments      map[uuid.UUID]entity.Payment
	memberships   map[uuid.UUID]entity.UserMembership
	cancellations map[uuid.UUID]entity.CancellationRequest
	notifications map[uuid.UUID]entity.Notification
	audits        map[uuid.UUID]entity.AdminActionLog
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]entity.User),
		plans:         make(map[uuid.UUID]entity.MembershipPlan),
		payments:      make(map[uuid.UUID]entity.Payment),
		memberships:   make(map[uuid.UUID]entity.UserMembership),
		cancellations: make(map[uuid.UUID]entity.CancellationRequest),
		notifications: make(map[uuid.UUID]entity.Notification),
		audits:        make(map[uuid.UUID]entity.AdminActionLog),
	}
}

// Seed helpers used by tests.

func (s *Store) AddUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Id] = u
}

func (s *Store) AddPlan(p entity.MembershipPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.Id] = p
}

func (s *Store) AddPayment(p entity.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.Id] = p
}

func (s *Store) AddMembership(m entity.UserMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.Id] = m
}

func (s *Store) AddCancellation(c entity.CancellationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellations[c.Id] = c
}

// Inspection helpers used by tests.

func (s *Store) User(id uuid.UUID) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *Store) Membership(id uuid.UUID) entity.UserMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberships[id]
}

func (s *Store) Payment(id uuid.UUID) entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

func (s *Store) Cancellation(id uuid.UUID) entity.CancellationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancellations[id]
}

func (s *Store) Notifications() []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	return out
}

func (s *Store) Audits() []entity.AdminActionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.AdminActionLog, 0, len(s.audits))
	for _, a := range s.audits {
		out = append(out, a)
	}
	return out
}

type snapshot struct {
	users         map[uuid.UUID]entity.User
	plans         map[uuid.UUID]entity.MembershipPlan
	payments      map[uuid.UUID]entity.Payment
	memberships   map[uuid.UUID]entity.UserMembership
	cancellations map[uuid.UUID]entity.CancellationRequest
	notifications map[uuid.UUID]entity.Notification
	audits        map[uuid.UUID]entity.AdminActionLog
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() *snapshot {
	return &snapshot{
		users:         copyMap(s.users),
		plans:         copyMap(s.plans),
		payments:      copyMap(s.payments),
		memberships:   copyMap(s.memberships),
		cancellations: copyMap(s.cancellations),
		notifications: copyMap(s.notifications),
		audits:        copyMap(s.audits),
	}
}

func (s *Store) restore(snap *snapshot) {
	s.users = snap.users
	s.plans = snap.plans
	s.payments = snap.payments
	s.memberships = snap.memberships
	s.cancellations = snap.cancellations
	s.notifications = snap.notifications
	s.audits = snap.audits
}

// Factory hands out unit-of-work fakes over one shared Store.
type Factory struct {
	store *Store
}

func NewFactory(store *Store) unitofwork.RepositoryFactory {
	return &Factory{store: store}
}

func (f *Factory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUnitOfWork{store: f.store}
}

type memUnitOfWork struct {
	store *Store
	inTx  bool
	snap  *snapshot
}

func (u *memUnitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.snap = u.store.snapshot()
	u.inTx = true
	return nil
}

func (u *memUnitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.inTx = false
	u.snap = nil
	u.store.mu.Unlock()
	return nil
}

func (u *memUnitOfWork) Rollback() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.restore(u.snap)
	u.inTx = false
	u.snap = nil
	u.store.mu.Unlock()
	return nil
}

// lock takes the store mutex for a single operation outside a transaction.
// Inside a transaction the unit of work already holds it.
func (u *memUnitOfWork) lock() func() {
	if u.inTx {
		return func() {}
	}
	u.store.mu.Lock()
	return u.store.mu.Unlock
}

func (u *memUnitOfWork) UserRepository() contract.UserRepository {
	return &memUserRepository{u: u}
}

func (u *memUnitOfWork) PlanRepository() contract.PlanRepository {
	return &memPlanRepository{u: u}
}

func (u *memUnitOfWork) PaymentRepository() contract.PaymentRepository {
	return &memPaymentRepository{u: u}
}

func (u *memUnitOfWork) MembershipRepository() contract.MembershipRepository {
	return &memMembershipRepository{u: u}
}

func (u *memUnitOfWork) CancellationRepository() contract.CancellationRepository {
	return &memCancellationRepository{u: u}
}

func (u *memUnitOfWork) ReconciliationRepository() contract.ReconciliationRepository {
	return &memReconciliationRepository{u: u}
}

func (u *memUnitOfWork) NotificationRepository() contract.NotificationRepository {
	return &memNotificationRepository{u: u}
}

func (u *memUnitOfWork) AuditRepository() contract.AuditRepository {
	return &memAuditRepository{u: u}
}
