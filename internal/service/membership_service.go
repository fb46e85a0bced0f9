package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"time"

	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/specification"
	"coach-membership-be/internal/repository/unitofwork"
	"coach-membership-be/pkg/events"
	pktNats "coach-membership-be/pkg/nats"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const planCacheKey = "membership:plans:active"

type IMembershipService interface {
	GetPlans(ctx context.Context) ([]*dto.PlanResponse, error)
	GetMembershipStatus(ctx context.Context, userId uuid.UUID) (*dto.MembershipStatusResponse, error)
	HandleGatewayNotification(ctx context.Context, req *dto.GatewayNotificationRequest) error
}

type membershipService struct {
	uowFactory   unitofwork.RepositoryFactory
	logger       logger.ILogger
	eventPub     *pktNats.Publisher
	planCache    *gocache.Cache
	serverKey    string
	queryTimeout time.Duration
	now          func() time.Time
}

func NewMembershipService(
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	eventPub *pktNats.Publisher,
	serverKey string,
	queryTimeout time.Duration,
) IMembershipService {
	return &membershipService{
		uowFactory:   uowFactory,
		logger:       log,
		eventPub:     eventPub,
		planCache:    gocache.New(10*time.Minute, 15*time.Minute),
		serverKey:    serverKey,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

func (s *membershipService) GetPlans(ctx context.Context) ([]*dto.PlanResponse, error) {
	if cached, found := s.planCache.Get(planCacheKey); found {
		return cached.([]*dto.PlanResponse), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	plans, err := uow.PlanRepository().FindAll(ctx,
		specification.Filter("is_active", true),
		specification.OrderBy{Field: "sort_order", Desc: false},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	res := make([]*dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		res = append(res, &dto.PlanResponse{
			Id:           p.Id,
			Name:         p.Name,
			Slug:         p.Slug,
			Description:  p.Description,
			Price:        p.Price,
			DurationDays: p.DurationDays,
		})
	}
	s.planCache.Set(planCacheKey, res, gocache.DefaultExpiration)
	return res, nil
}

func (s *membershipService) GetMembershipStatus(ctx context.Context, userId uuid.UUID) (*dto.MembershipStatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if user == nil {
		return nil, apperror.NotFound("user")
	}

	m, err := uow.MembershipRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.StatusIn{Statuses: []string{
			string(entity.MembershipStatusActive),
			string(entity.MembershipStatusPendingCancellation),
		}},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	res := &dto.MembershipStatusResponse{
		Status: "none",
		Role:   string(user.Role),
	}
	if m == nil {
		return res, nil
	}

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: m.PlanId})
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	res.MembershipId = &m.Id
	res.Status = string(m.Status)
	res.StartDate = &m.StartDate
	res.EndDate = &m.EndDate
	res.IsActive = m.Status == entity.MembershipStatusActive
	if plan != nil {
		res.PlanName = plan.Name
	}
	return res, nil
}

// HandleGatewayNotification settles a pending payment from a gateway
// webhook. The gateway retries until it sees 200, so the whole handler is
// idempotent: replays find zero pending rows and change nothing.
func (s *membershipService) HandleGatewayNotification(ctx context.Context, req *dto.GatewayNotificationRequest) error {
	if !s.verifySignature(req) {
		s.logger.Warn("PAYMENT", "Webhook signature mismatch", map[string]interface{}{
			"orderId": req.OrderId,
		})
		return apperror.Validation("invalid gateway signature")
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.FromStore(err)
	}
	defer uow.Rollback()

	payment, err := uow.PaymentRepository().FindByTransactionId(ctx, req.OrderId)
	if err != nil {
		return apperror.FromStore(err)
	}
	if payment == nil {
		return apperror.NotFound("payment")
	}

	switch req.TransactionStatus {
	case "settlement", "capture":
		return s.settle(ctx, uow, payment)
	case "deny", "cancel", "expire", "failure":
		rows, err := uow.PaymentRepository().TransitionStatus(ctx, payment.Id,
			entity.PaymentStatusPending, entity.PaymentStatusRejected, nil)
		if err != nil {
			return apperror.FromStore(err)
		}
		if rows > 0 {
			s.logger.Info("PAYMENT", "Payment rejected by gateway", map[string]interface{}{
				"paymentId": payment.Id.String(),
				"status":    req.TransactionStatus,
			})
		}
		if err := uow.Commit(); err != nil {
			return apperror.FromStore(err)
		}
		return nil
	default:
		// pending / authorize etc: nothing to settle yet.
		if err := uow.Commit(); err != nil {
			return apperror.FromStore(err)
		}
		return nil
	}
}

func (s *membershipService) settle(ctx context.Context, uow unitofwork.UnitOfWork, payment *entity.Payment) error {
	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: payment.PlanId})
	if err != nil {
		return apperror.FromStore(err)
	}
	if plan == nil {
		return apperror.NotFound("membership plan")
	}

	now := s.now()
	endDate := now.AddDate(0, 0, plan.DurationDays)

	rows, err := uow.PaymentRepository().TransitionStatus(ctx, payment.Id,
		entity.PaymentStatusPending, entity.PaymentStatusConfirmed, &endDate)
	if err != nil {
		return apperror.FromStore(err)
	}
	if rows == 0 {
		// Replayed webhook; the first delivery already settled everything.
		if err := uow.Commit(); err != nil {
			return apperror.FromStore(err)
		}
		return nil
	}

	m := &entity.UserMembership{
		Id:        uuid.New(),
		UserId:    payment.UserId,
		PlanId:    payment.PlanId,
		PaymentId: payment.Id,
		Status:    entity.MembershipStatusActive,
		StartDate: now,
		EndDate:   endDate,
	}
	// The one-active-membership partial unique index rejects a second
	// concurrent activation; that surfaces as a conflict and rolls the
	// whole settlement back.
	if err := uow.MembershipRepository().Create(ctx, m); err != nil {
		return apperror.FromStore(err)
	}

	if _, err := projectAndStoreRole(ctx, uow, payment.UserId, now); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return apperror.FromStore(err)
	}

	s.logger.Info("PAYMENT", "Payment settled and membership activated", map[string]interface{}{
		"paymentId":    payment.Id.String(),
		"membershipId": m.Id.String(),
		"userId":       payment.UserId.String(),
		"endDate":      endDate,
	})
	if s.eventPub != nil {
		evt := events.BaseEvent{
			Type: events.TypeMembershipActivated,
			Data: map[string]interface{}{
				"membership_id": m.Id,
				"user_id":       payment.UserId,
				"plan_id":       payment.PlanId,
				"end_date":      endDate,
			},
			OccurredAt: now,
		}
		if err := s.eventPub.Publish(ctx, evt); err != nil {
			s.logger.Warn("EVENTS", "Failed to publish activation event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return nil
}

// verifySignature checks the gateway HMAC-style signature:
// sha512(order_id + status_code + gross_amount + server_key).
func (s *membershipService) verifySignature(req *dto.GatewayNotificationRequest) bool {
	h := sha512.New()
	h.Write([]byte(req.OrderId + req.StatusCode + req.GrossAmount + s.serverKey))
	return hex.EncodeToString(h.Sum(nil)) == req.SignatureKey
}
