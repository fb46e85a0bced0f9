package implementation

import (
	"context"
	"errors"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/model"
	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type membershipRepositoryImpl struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) contract.MembershipRepository {
	return &membershipRepositoryImpl{db: db}
}

func (r *membershipRepositoryImpl) Create(ctx context.Context, membership *entity.UserMembership) error {
	m := &model.UserMembership{
		Id:        membership.Id,
		UserId:    membership.UserId,
		PlanId:    membership.PlanId,
		PaymentId: membership.PaymentId,
		Status:    string(membership.Status),
		StartDate: membership.StartDate,
		EndDate:   membership.EndDate,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*membership = *r.mapToEntity(m)
	return nil
}

func (r *membershipRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserMembership, error) {
	var m model.UserMembership
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapToEntity(&m), nil
}

func (r *membershipRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserMembership, error) {
	var models []*model.UserMembership
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	memberships := make([]*entity.UserMembership, 0, len(models))
	for _, m := range models {
		memberships = append(memberships, r.mapToEntity(m))
	}
	return memberships, nil
}

func (r *membershipRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.MembershipStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.UserMembership{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	return res.RowsAffected, res.Error
}

func (r *membershipRepositoryImpl) ExpireLapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var userIds []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		UPDATE user_memberships
		SET status = ?, updated_at = ?
		WHERE status = ? AND end_date < ?
		RETURNING user_id`,
		string(entity.MembershipStatusExpired), now,
		string(entity.MembershipStatusActive), now,
	).Scan(&userIds).Error
	if err != nil {
		return nil, err
	}
	return userIds, nil
}

func (r *membershipRepositoryImpl) mapToEntity(m *model.UserMembership) *entity.UserMembership {
	return &entity.UserMembership{
		Id:        m.Id,
		UserId:    m.UserId,
		PlanId:    m.PlanId,
		PaymentId: m.PaymentId,
		Status:    entity.MembershipStatus(m.Status),
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
