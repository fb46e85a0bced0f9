package unitofwork

import (
	"context"
	"fmt"

	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) UserRepository() contract.UserRepository {
	return implementation.NewUserRepository(u.getDB())
}

func (u *UnitOfWorkImpl) PlanRepository() contract.PlanRepository {
	return implementation.NewPlanRepository(u.getDB())
}

func (u *UnitOfWorkImpl) PaymentRepository() contract.PaymentRepository {
	return implementation.NewPaymentRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MembershipRepository() contract.MembershipRepository {
	return implementation.NewMembershipRepository(u.getDB())
}

func (u *UnitOfWorkImpl) CancellationRepository() contract.CancellationRepository {
	return implementation.NewCancellationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ReconciliationRepository() contract.ReconciliationRepository {
	return implementation.NewReconciliationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) NotificationRepository() contract.NotificationRepository {
	return implementation.NewNotificationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AuditRepository() contract.AuditRepository {
	return implementation.NewAuditRepository(u.getDB())
}
