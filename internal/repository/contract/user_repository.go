package contract

import (
	"context"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)
	// UpdateRole persists a projected role for a single user.
	UpdateRole(ctx context.Context, userId uuid.UUID, role entity.Role) error
	// DemoteToGuest is the scheduler's set-based write. Privileged roles are
	// excluded by the query itself regardless of the id list.
	DemoteToGuest(ctx context.Context, userIds []uuid.UUID) (int64, error)
}
