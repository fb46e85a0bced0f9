package unitofwork

import (
	"context"

	"coach-membership-be/internal/repository/contract"
)

// UnitOfWork scopes repository access to one logical operation. After
// Begin, every repository accessor runs inside the same transaction until
// Commit or Rollback; without Begin they run against the bare connection.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	PlanRepository() contract.PlanRepository
	PaymentRepository() contract.PaymentRepository
	MembershipRepository() contract.MembershipRepository
	CancellationRepository() contract.CancellationRepository
	ReconciliationRepository() contract.ReconciliationRepository
	NotificationRepository() contract.NotificationRepository
	AuditRepository() contract.AuditRepository
}
