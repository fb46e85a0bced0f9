package implementation

import (
	"context"
	"errors"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/model"
	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/specification"

	"gorm.io/gorm"
)

type planRepositoryImpl struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) contract.PlanRepository {
	return &planRepositoryImpl{db: db}
}

func (r *planRepositoryImpl) Create(ctx context.Context, plan *entity.MembershipPlan) error {
	m := &model.MembershipPlan{
		Id:           plan.Id,
		Name:         plan.Name,
		Slug:         plan.Slug,
		Description:  plan.Description,
		Price:        plan.Price,
		DurationDays: plan.DurationDays,
		IsActive:     plan.IsActive,
		SortOrder:    plan.SortOrder,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*plan = *r.mapToEntity(m)
	return nil
}

func (r *planRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MembershipPlan, error) {
	var m model.MembershipPlan
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

func (r *planRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MembershipPlan, error) {
	var models []*model.MembershipPlan
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	plans := make([]*entity.MembershipPlan, 0, len(models))
	for _, m := range models {
		plans = append(plans, r.mapToEntity(m))
	}
	return plans, nil
}

func (r *planRepositoryImpl) mapToEntity(m *model.MembershipPlan) *entity.MembershipPlan {
	return &entity.MembershipPlan{
		Id:           m.Id,
		Name:         m.Name,
		Slug:         m.Slug,
		Description:  m.Description,
		Price:        m.Price,
		DurationDays: m.DurationDays,
		IsActive:     m.IsActive,
		SortOrder:    m.SortOrder,
	}
}
