// Package scheduler runs the daily reconciliation sweeps that converge
// stored membership and role state with what the domain rules say it should
// be. The sweeps repair drift (missed webhooks, crashed transactions, manual
// data fixes); the workflow engine remains the source of state transitions.
package scheduler

import (
	"context"
	"sync"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/unitofwork"
	"coach-membership-be/pkg/membership"

	"github.com/google/uuid"
)

// Clock abstracts time for the sweeps so tests can drive them.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Reconciler owns the sweep ticker. One sweep runs at a time: ticks that
// arrive while a sweep is still in flight are skipped, not queued.
type Reconciler struct {
	uowFactory   unitofwork.RepositoryFactory
	logger       logger.ILogger
	clock        Clock
	interval     time.Duration
	sweepTimeout time.Duration

	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	sweepMu sync.Mutex
}

func NewReconciler(
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	clock Clock,
	interval time.Duration,
	sweepTimeout time.Duration,
) *Reconciler {
	return &Reconciler{
		uowFactory:   uowFactory,
		logger:       log,
		clock:        clock,
		interval:     interval,
		sweepTimeout: sweepTimeout,
	}
}

// Start launches the ticker loop and runs one sweep immediately so a
// restarted process catches up without waiting a full interval.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.stopCh = make(chan struct{})
	r.running = true
	r.ticker = time.NewTicker(r.interval)

	r.logger.Info("SCHEDULER", "Reconciliation scheduler started", map[string]interface{}{
		"interval": r.interval.String(),
	})

	r.wg.Add(1)
	go r.loop()
}

// Stop halts the ticker and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.ticker.Stop()
	close(r.stopCh)
	r.running = false
	r.wg.Wait()

	r.logger.Info("SCHEDULER", "Reconciliation scheduler stopped", nil)
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	r.runOnce()
	for {
		select {
		case <-r.ticker.C:
			r.runOnce()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reconciler) runOnce() {
	if !r.sweepMu.TryLock() {
		r.logger.Warn("SCHEDULER", "Skipping sweep, previous sweep still running", nil)
		return
	}
	defer r.sweepMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.sweepTimeout)
	defer cancel()

	r.RunSweeps(ctx)
}

// RunSweeps executes all reconciliation passes once. Each pass runs in its
// own transaction and its own error scope: a failing pass is logged and the
// next pass still runs, because the next scheduled sweep will retry whatever
// this one missed.
func (r *Reconciler) RunSweeps(ctx context.Context) {
	now := r.clock.Now()
	started := time.Now()

	expired, err := r.sweepLapsedMemberships(ctx, now)
	if err != nil {
		r.logger.Error("SCHEDULER", "Lapsed-membership sweep failed", map[string]interface{}{"error": err.Error()})
	}
	demotedCoverage, err := r.sweepExpiredCoverage(ctx, now)
	if err != nil {
		r.logger.Error("SCHEDULER", "Expired-coverage sweep failed", map[string]interface{}{"error": err.Error()})
	}
	demotedOrphans, err := r.sweepOrphanedRoles(ctx, now)
	if err != nil {
		r.logger.Error("SCHEDULER", "Orphaned-role sweep failed", map[string]interface{}{"error": err.Error()})
	}

	r.logger.Info("SCHEDULER", "Reconciliation sweep finished", map[string]interface{}{
		"expiredMemberships":     len(expired),
		"demotedExpiredCoverage": demotedCoverage,
		"demotedOrphans":         demotedOrphans,
		"duration":               time.Since(started).String(),
	})
}

// sweepLapsedMemberships expires active memberships whose end date passed,
// then re-projects the affected users' roles in the same transaction.
func (r *Reconciler) sweepLapsedMemberships(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	userIds, err := uow.MembershipRepository().ExpireLapsed(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(userIds) == 0 {
		return nil, uow.Commit()
	}

	demote, err := r.projectCandidates(ctx, uow, userIds, now)
	if err != nil {
		return nil, err
	}
	if len(demote) > 0 {
		if _, err := uow.UserRepository().DemoteToGuest(ctx, demote); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	r.logger.Info("SCHEDULER", "Expired lapsed memberships", map[string]interface{}{
		"users":   idStrings(userIds),
		"demoted": len(demote),
	})
	return userIds, nil
}

// sweepExpiredCoverage demotes members whose paid coverage ran out with no
// membership row keeping them a member.
func (r *Reconciler) sweepExpiredCoverage(ctx context.Context, now time.Time) (int64, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	candidates, err := uow.ReconciliationRepository().ExpiredCoverageCandidates(ctx, now)
	if err != nil {
		return 0, err
	}
	demoted, err := r.demoteProjected(ctx, uow, candidates, now)
	if err != nil {
		return 0, err
	}
	return demoted, uow.Commit()
}

// sweepOrphanedRoles is the safety net for member roles that no current
// membership or payment can explain.
func (r *Reconciler) sweepOrphanedRoles(ctx context.Context, now time.Time) (int64, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	candidates, err := uow.ReconciliationRepository().OrphanCandidates(ctx, now)
	if err != nil {
		return 0, err
	}
	demoted, err := r.demoteProjected(ctx, uow, candidates, now)
	if err != nil {
		return 0, err
	}
	return demoted, uow.Commit()
}

func (r *Reconciler) demoteProjected(ctx context.Context, uow unitofwork.UnitOfWork, candidates []uuid.UUID, now time.Time) (int64, error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	demote, err := r.projectCandidates(ctx, uow, candidates, now)
	if err != nil {
		return 0, err
	}
	if len(demote) == 0 {
		return 0, nil
	}
	demoted, err := uow.UserRepository().DemoteToGuest(ctx, demote)
	if err != nil {
		return 0, err
	}
	r.logger.Info("SCHEDULER", "Demoted users to guest", map[string]interface{}{
		"users": idStrings(demote),
	})
	return demoted, nil
}

// projectCandidates runs the candidate ids through the role projector and
// returns those whose projected role is guest. The candidate queries are
// only a prefilter; the projector makes the final call so the sweep can
// never apply a rule the workflow engine does not.
func (r *Reconciler) projectCandidates(ctx context.Context, uow unitofwork.UnitOfWork, userIds []uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	facts, err := uow.ReconciliationRepository().LoadRoleFacts(ctx, userIds)
	if err != nil {
		return nil, err
	}

	demote := make([]uuid.UUID, 0, len(userIds))
	for _, id := range userIds {
		f, ok := facts[id]
		if !ok {
			continue
		}
		role := membership.ProjectRole(f.User.Role, f.Memberships, f.Payments, now)
		if role == entity.RoleGuest && f.User.Role != entity.RoleGuest {
			demote = append(demote, id)
		}
	}
	return demote, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
