package contract

import (
	"context"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error)
	FindByTransactionId(ctx context.Context, transactionId string) (*entity.Payment, error)
	// TransitionStatus is a conditional update guarded by the current status;
	// it reports rows affected so double deliveries apply effects once.
	// endDate is written only when non-nil (set on confirmation).
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus, endDate *time.Time) (int64, error)
}
