package implementation

import (
	"context"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/model"
	"coach-membership-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reconciliationRepositoryImpl struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) contract.ReconciliationRepository {
	return &reconciliationRepositoryImpl{db: db}
}

func (r *reconciliationRepositoryImpl) ExpiredCoverageCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id FROM users u
		WHERE u.role = ?
		  AND u.deleted_at IS NULL
		  AND EXISTS (
			SELECT 1 FROM payments p
			WHERE p.user_id = u.id AND p.status = ? AND p.end_date < ?
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.user_id = u.id AND p.status = ? AND p.end_date >= ?
		  )`,
		string(entity.RoleMember),
		string(entity.PaymentStatusConfirmed), now,
		string(entity.PaymentStatusConfirmed), now,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *reconciliationRepositoryImpl) OrphanCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id FROM users u
		WHERE u.role NOT IN ?
		  AND u.deleted_at IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.user_id = u.id AND p.status = ? AND p.end_date >= ?
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM user_memberships m
			WHERE m.user_id = u.id AND m.status = ?
		  )`,
		[]string{string(entity.RoleGuest), string(entity.RoleCoach), string(entity.RoleAdmin)},
		string(entity.PaymentStatusConfirmed), now,
		string(entity.MembershipStatusActive),
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *reconciliationRepositoryImpl) LoadRoleFacts(ctx context.Context, userIds []uuid.UUID) (map[uuid.UUID]*entity.RoleFacts, error) {
	facts := make(map[uuid.UUID]*entity.RoleFacts, len(userIds))
	if len(userIds) == 0 {
		return facts, nil
	}

	var users []*model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIds).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		facts[u.Id] = &entity.RoleFacts{
			User: entity.User{Id: u.Id, Email: u.Email, FullName: u.FullName, Role: entity.Role(u.Role), Status: u.Status},
		}
	}

	var memberships []*model.UserMembership
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIds).Find(&memberships).Error; err != nil {
		return nil, err
	}
	for _, m := range memberships {
		if f, ok := facts[m.UserId]; ok {
			f.Memberships = append(f.Memberships, &entity.UserMembership{
				Id:        m.Id,
				UserId:    m.UserId,
				PlanId:    m.PlanId,
				PaymentId: m.PaymentId,
				Status:    entity.MembershipStatus(m.Status),
				StartDate: m.StartDate,
				EndDate:   m.EndDate,
			})
		}
	}

	var payments []*model.Payment
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIds).Find(&payments).Error; err != nil {
		return nil, err
	}
	for _, p := range payments {
		if f, ok := facts[p.UserId]; ok {
			f.Payments = append(f.Payments, &entity.Payment{
				Id:            p.Id,
				UserId:        p.UserId,
				PlanId:        p.PlanId,
				Amount:        p.Amount,
				Status:        entity.PaymentStatus(p.Status),
				TransactionId: p.TransactionId,
				EndDate:       p.EndDate,
			})
		}
	}

	return facts, nil
}
