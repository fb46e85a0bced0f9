package contract

import (
	"context"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
)

// CancellationRepository defines operations for cancellation/refund requests
type CancellationRepository interface {
	Create(ctx context.Context, request *entity.CancellationRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CancellationRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CancellationRequest, error)
	// FindAllWithDetails preloads the User and Membership relations for the
	// admin views.
	FindAllWithDetails(ctx context.Context, specs ...specification.Specification) ([]*entity.CancellationRequest, error)
	// MarkProcessed writes the terminal decision with a
	// `WHERE status = 'pending'` guard and reports rows affected. Zero rows
	// means the request was already processed; the caller must not re-apply
	// any effect.
	MarkProcessed(ctx context.Context, request *entity.CancellationRequest) (int64, error)
	// ConfirmTransfer sets the out-of-band settlement flags on an approved
	// request. The only mutation permitted after a terminal state.
	ConfirmTransfer(ctx context.Context, id uuid.UUID, receivedDate time.Time) (int64, error)
}
