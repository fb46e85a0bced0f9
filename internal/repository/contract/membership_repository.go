package contract

import (
	"context"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *entity.UserMembership) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserMembership, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserMembership, error)
	// TransitionStatus flips status only when the row still holds `from`,
	// reporting rows affected. All workflow state-machine moves go through it.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.MembershipStatus) (int64, error)
	// ExpireLapsed marks active memberships whose end_date passed as expired
	// and returns the affected user ids for the sweep audit log.
	ExpireLapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *entity.MembershipPlan) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MembershipPlan, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MembershipPlan, error)
}
