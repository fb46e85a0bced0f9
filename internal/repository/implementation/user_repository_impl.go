package implementation

import (
	"context"
	"errors"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/model"
	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &userRepositoryImpl{db: db}
}

func (r *userRepositoryImpl) Create(ctx context.Context, user *entity.User) error {
	m := &model.User{
		Id:           user.Id,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		Role:         string(user.Role),
		Status:       user.Status,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*user = *r.mapToEntity(m)
	return nil
}

func (r *userRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	var m model.User
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

func (r *userRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	var models []*model.User
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*entity.User, 0, len(models))
	for _, m := range models {
		users = append(users, r.mapToEntity(m))
	}
	return users, nil
}

func (r *userRepositoryImpl) UpdateRole(ctx context.Context, userId uuid.UUID, role entity.Role) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userId).
		Update("role", string(role)).Error
}

func (r *userRepositoryImpl) DemoteToGuest(ctx context.Context, userIds []uuid.UUID) (int64, error) {
	if len(userIds) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id IN ?", userIds).
		Where("role NOT IN ?", []string{string(entity.RoleGuest), string(entity.RoleCoach), string(entity.RoleAdmin)}).
		Update("role", string(entity.RoleGuest))
	return res.RowsAffected, res.Error
}

func (r *userRepositoryImpl) mapToEntity(m *model.User) *entity.User {
	return &entity.User{
		Id:           m.Id,
		Email:        m.Email,
		FullName:     m.FullName,
		PasswordHash: m.PasswordHash,
		Role:         entity.Role(m.Role),
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
