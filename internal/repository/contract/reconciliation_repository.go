package contract

import (
	"context"
	"time"

	"coach-membership-be/internal/entity"

	"github.com/google/uuid"
)

// ReconciliationRepository backs the daily sweep. The candidate queries are
// set-based prefilters; the final role decision is always recomputed through
// the projector so the sweep and the workflow engine cannot disagree.
type ReconciliationRepository interface {
	// ExpiredCoverageCandidates returns member-role users whose latest
	// confirmed payment coverage ended before now and who have no payment
	// with coverage in the future.
	ExpiredCoverageCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	// OrphanCandidates returns non-guest, non-privileged users holding
	// neither a confirmed unexpired payment nor an active membership.
	OrphanCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	// LoadRoleFacts batch-loads users with their memberships and payments.
	LoadRoleFacts(ctx context.Context, userIds []uuid.UUID) (map[uuid.UUID]*entity.RoleFacts, error)
}
