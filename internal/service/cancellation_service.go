package service

import (
	"context"
	"encoding/json"
	"time"

	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/repository/specification"
	"coach-membership-be/internal/repository/unitofwork"
	"coach-membership-be/pkg/events"
	"coach-membership-be/pkg/membership"
	pktNats "coach-membership-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// TopicCancellationProcessed is the internal bus topic the notification
// consumer subscribes to.
const TopicCancellationProcessed = "membership.cancellation.processed"

type ICancellationService interface {
	RequestCancellation(ctx context.Context, userId uuid.UUID, req *dto.RequestCancellationRequest) (*dto.RequestCancellationResponse, error)
	ApproveCancellation(ctx context.Context, adminId, requestId uuid.UUID, req *dto.ApproveCancellationRequest) (*dto.ApproveCancellationResponse, error)
	RejectCancellation(ctx context.Context, adminId, requestId uuid.UUID, req *dto.RejectCancellationRequest) (*dto.RejectCancellationResponse, error)
	ConfirmTransfer(ctx context.Context, adminId, requestId uuid.UUID, req *dto.ConfirmTransferRequest) (*dto.ConfirmTransferResponse, error)
	GetRefundRequests(ctx context.Context, userId uuid.UUID) ([]*dto.CancellationListResponse, error)
	GetPendingCancellations(ctx context.Context) ([]*dto.AdminCancellationListResponse, error)
	GetCancellationHistory(ctx context.Context) ([]*dto.AdminCancellationListResponse, error)
}

type cancellationService struct {
	uowFactory   unitofwork.RepositoryFactory
	logger       logger.ILogger
	pubSub       *gochannel.GoChannel
	eventPub     *pktNats.Publisher
	queryTimeout time.Duration
	now          func() time.Time
}

func NewCancellationService(
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	pubSub *gochannel.GoChannel,
	eventPub *pktNats.Publisher,
	queryTimeout time.Duration,
) ICancellationService {
	return &cancellationService{
		uowFactory:   uowFactory,
		logger:       log,
		pubSub:       pubSub,
		eventPub:     eventPub,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

func (s *cancellationService) RequestCancellation(ctx context.Context, userId uuid.UUID, req *dto.RequestCancellationRequest) (*dto.RequestCancellationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.FromStore(err)
	}
	defer uow.Rollback()

	// Row lock: the ownership/state check and the insert below must be
	// atomic against a concurrent request for the same membership.
	m, err := uow.MembershipRepository().FindOne(ctx,
		specification.ByID{ID: req.MembershipId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if m == nil {
		return nil, apperror.NotFound("membership")
	}
	if m.UserId != userId {
		return nil, apperror.NotOwner()
	}
	if m.Status == entity.MembershipStatusPendingCancellation {
		return nil, apperror.AlreadyPending()
	}
	if m.Status != entity.MembershipStatusActive {
		return nil, apperror.MembershipNotActive()
	}

	existing, err := uow.CancellationRepository().FindOne(ctx,
		specification.Filter("membership_id", m.Id),
		specification.Filter("status", string(entity.CancellationStatusPending)),
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if existing != nil {
		return nil, apperror.AlreadyPending()
	}

	// The refund offer is always derived from the confirmed payment that
	// established this membership, never from client input alone.
	payment, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: m.PaymentId})
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if payment == nil || payment.Status != entity.PaymentStatusConfirmed {
		return nil, apperror.New(apperror.CodeInvariantViolation, "membership has no confirmed payment")
	}

	refundAmount := membership.DefaultRefundAmount(payment)
	if req.RequestedRefundAmount != nil {
		refundAmount = membership.ClampRefund(*req.RequestedRefundAmount, payment)
	}
	if !req.RequestRefund {
		refundAmount = 0
	}

	request := &entity.CancellationRequest{
		Id:                    uuid.New(),
		UserId:                userId,
		MembershipId:          m.Id,
		Reason:                req.Reason,
		Status:                entity.CancellationStatusPending,
		RequestedRefundAmount: refundAmount,
		Bank: entity.BankDetails{
			AccountNumber: req.BankAccountNumber,
			BankName:      req.BankName,
			HolderName:    req.AccountHolderName,
		},
	}
	if err := uow.CancellationRepository().Create(ctx, request); err != nil {
		// The partial unique index is the last line of defence when two
		// requests race past the check above.
		if storeErr := apperror.FromStore(err); storeErr.Code == apperror.CodeInvariantViolation {
			return nil, apperror.AlreadyPending()
		}
		return nil, apperror.FromStore(err)
	}

	rows, err := uow.MembershipRepository().TransitionStatus(ctx, m.Id,
		entity.MembershipStatusActive, entity.MembershipStatusPendingCancellation)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if rows == 0 {
		return nil, apperror.MembershipNotActive()
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.FromStore(err)
	}

	s.logger.Info("CANCELLATION", "Cancellation request filed", map[string]interface{}{
		"requestId":    request.Id.String(),
		"userId":       userId.String(),
		"membershipId": m.Id.String(),
		"refundAmount": refundAmount,
	})
	s.publishExternal(ctx, events.TypeCancellationRequested, map[string]interface{}{
		"request_id":    request.Id,
		"user_id":       userId,
		"membership_id": m.Id,
		"refund_amount": refundAmount,
	})

	return &dto.RequestCancellationResponse{
		CancellationRequestId: request.Id,
		RequestedRefundAmount: refundAmount,
		Status:                string(request.Status),
	}, nil
}

func (s *cancellationService) ApproveCancellation(ctx context.Context, adminId, requestId uuid.UUID, req *dto.ApproveCancellationRequest) (*dto.ApproveCancellationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.FromStore(err)
	}
	defer uow.Rollback()

	request, err := uow.CancellationRepository().FindOne(ctx,
		specification.ByID{ID: requestId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if request == nil {
		return nil, apperror.NotFound("cancellation request")
	}
	if request.Status != entity.CancellationStatusPending {
		return nil, apperror.AlreadyProcessed()
	}

	m, err := uow.MembershipRepository().FindOne(ctx,
		specification.ByID{ID: request.MembershipId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if m == nil {
		return nil, apperror.NotFound("membership")
	}

	payment, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: m.PaymentId})
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if payment == nil {
		return nil, apperror.New(apperror.CodeInvariantViolation, "membership has no payment record")
	}

	// The approved amount is server-clamped to what was actually paid.
	var approvedAmount float64
	if req.ApproveRefund {
		approvedAmount = request.RequestedRefundAmount
		if req.RefundAmount != nil {
			approvedAmount = *req.RefundAmount
		}
		approvedAmount = membership.ClampRefund(approvedAmount, payment)
	}

	now := s.now()
	request.Status = entity.CancellationStatusApproved
	request.RefundApproved = req.ApproveRefund
	request.ApprovedRefundAmount = approvedAmount
	request.ProcessedAt = &now
	request.ProcessedByAdminId = &adminId
	request.AdminNotes = req.AdminNotes

	// Conditional write: a second approval finds zero pending rows and
	// applies nothing.
	rows, err := uow.CancellationRepository().MarkProcessed(ctx, request)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if rows == 0 {
		return nil, apperror.AlreadyProcessed()
	}

	rows, err = uow.MembershipRepository().TransitionStatus(ctx, m.Id,
		entity.MembershipStatusPendingCancellation, entity.MembershipStatusCancelled)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if rows == 0 {
		return nil, apperror.New(apperror.CodeInvariantViolation, "membership is not awaiting cancellation")
	}

	// Money moves only on a refund approval; a plain approval cancels the
	// membership but leaves the payment's financial status untouched.
	if req.ApproveRefund {
		rows, err = uow.PaymentRepository().TransitionStatus(ctx, payment.Id,
			entity.PaymentStatusConfirmed, entity.PaymentStatusRejected, nil)
		if err != nil {
			return nil, apperror.FromStore(err)
		}
		if rows == 0 {
			return nil, apperror.New(apperror.CodeInvariantViolation, "originating payment is not confirmed")
		}
	}

	if _, err := projectAndStoreRole(ctx, uow, request.UserId, now); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, uow, adminId, entity.AdminActionApproveCancellation, request.Id, map[string]interface{}{
		"membership_id":   m.Id.String(),
		"refund_approved": req.ApproveRefund,
		"refund_amount":   approvedAmount,
		"admin_notes":     req.AdminNotes,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.FromStore(err)
	}

	s.logger.Info("ADMIN", "Approved cancellation request", map[string]interface{}{
		"requestId":      requestId.String(),
		"membershipId":   m.Id.String(),
		"refundApproved": req.ApproveRefund,
		"refundAmount":   approvedAmount,
	})
	s.notifyProcessed(request, true)
	s.publishExternal(ctx, events.TypeCancellationApproved, map[string]interface{}{
		"request_id":    requestId,
		"user_id":       request.UserId,
		"membership_id": m.Id,
		"refund_amount": approvedAmount,
	})

	return &dto.ApproveCancellationResponse{
		Status:           string(entity.CancellationStatusApproved),
		MembershipStatus: string(entity.MembershipStatusCancelled),
		RefundAmount:     approvedAmount,
		ProcessedAt:      now,
	}, nil
}

func (s *cancellationService) RejectCancellation(ctx context.Context, adminId, requestId uuid.UUID, req *dto.RejectCancellationRequest) (*dto.RejectCancellationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.FromStore(err)
	}
	defer uow.Rollback()

	request, err := uow.CancellationRepository().FindOne(ctx,
		specification.ByID{ID: requestId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if request == nil {
		return nil, apperror.NotFound("cancellation request")
	}
	if request.Status != entity.CancellationStatusPending {
		return nil, apperror.AlreadyProcessed()
	}

	now := s.now()
	request.Status = entity.CancellationStatusRejected
	request.RefundApproved = false
	request.ApprovedRefundAmount = 0
	request.ProcessedAt = &now
	request.ProcessedByAdminId = &adminId
	request.AdminNotes = req.AdminNotes

	rows, err := uow.CancellationRepository().MarkProcessed(ctx, request)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if rows == 0 {
		return nil, apperror.AlreadyProcessed()
	}

	// Request denied: the membership is restored exactly as it was. The
	// payment row is not touched.
	rows, err = uow.MembershipRepository().TransitionStatus(ctx, request.MembershipId,
		entity.MembershipStatusPendingCancellation, entity.MembershipStatusActive)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if rows == 0 {
		return nil, apperror.New(apperror.CodeInvariantViolation, "membership is not awaiting cancellation")
	}

	if _, err := projectAndStoreRole(ctx, uow, request.UserId, now); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, uow, adminId, entity.AdminActionRejectCancellation, request.Id, map[string]interface{}{
		"membership_id": request.MembershipId.String(),
		"admin_notes":   req.AdminNotes,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.FromStore(err)
	}

	s.logger.Info("ADMIN", "Rejected cancellation request", map[string]interface{}{
		"requestId":    requestId.String(),
		"membershipId": request.MembershipId.String(),
		"adminNotes":   req.AdminNotes,
	})
	s.notifyProcessed(request, false)
	s.publishExternal(ctx, events.TypeCancellationRejected, map[string]interface{}{
		"request_id":    requestId,
		"user_id":       request.UserId,
		"membership_id": request.MembershipId,
	})

	return &dto.RejectCancellationResponse{
		Status:           string(entity.CancellationStatusRejected),
		MembershipStatus: string(entity.MembershipStatusActive),
		ProcessedAt:      now,
	}, nil
}

func (s *cancellationService) ConfirmTransfer(ctx context.Context, adminId, requestId uuid.UUID, req *dto.ConfirmTransferRequest) (*dto.ConfirmTransferResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.FromStore(err)
	}
	defer uow.Rollback()

	request, err := uow.CancellationRepository().FindOne(ctx, specification.ByID{ID: requestId})
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if request == nil {
		return nil, apperror.NotFound("cancellation request")
	}
	if request.Status != entity.CancellationStatusApproved || !request.RefundApproved {
		return nil, apperror.Validation("transfer tracking applies only to approved refund requests")
	}

	receivedDate := s.now()
	if req.ReceivedDate != nil {
		receivedDate = *req.ReceivedDate
	}

	rows, err := uow.CancellationRepository().ConfirmTransfer(ctx, requestId, receivedDate)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("cancellation request")
	}

	if err := s.audit(ctx, uow, adminId, entity.AdminActionConfirmTransfer, requestId, map[string]interface{}{
		"received_date": receivedDate,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.FromStore(err)
	}

	return &dto.ConfirmTransferResponse{
		Status:            string(request.Status),
		TransferConfirmed: true,
		ReceivedDate:      receivedDate,
	}, nil
}

func (s *cancellationService) GetRefundRequests(ctx context.Context, userId uuid.UUID) ([]*dto.CancellationListResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	requests, err := uow.CancellationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	res := make([]*dto.CancellationListResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, &dto.CancellationListResponse{
			Id:                    r.Id,
			MembershipId:          r.MembershipId,
			Reason:                r.Reason,
			Status:                string(r.Status),
			RequestedRefundAmount: r.RequestedRefundAmount,
			RefundApproved:        r.RefundApproved,
			ApprovedRefundAmount:  r.ApprovedRefundAmount,
			TransferConfirmed:     r.TransferConfirmed,
			CreatedAt:             r.CreatedAt,
			ProcessedAt:           r.ProcessedAt,
		})
	}
	return res, nil
}

func (s *cancellationService) GetPendingCancellations(ctx context.Context) ([]*dto.AdminCancellationListResponse, error) {
	return s.listWithDetails(ctx,
		specification.Filter("status", string(entity.CancellationStatusPending)),
		specification.OrderBy{Field: "created_at", Desc: false},
	)
}

func (s *cancellationService) GetCancellationHistory(ctx context.Context) ([]*dto.AdminCancellationListResponse, error) {
	return s.listWithDetails(ctx,
		specification.StatusIn{Statuses: []string{
			string(entity.CancellationStatusApproved),
			string(entity.CancellationStatusRejected),
		}},
		specification.OrderBy{Field: "processed_at", Desc: true},
	)
}

func (s *cancellationService) listWithDetails(ctx context.Context, specs ...specification.Specification) ([]*dto.AdminCancellationListResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	requests, err := uow.CancellationRepository().FindAllWithDetails(ctx, specs...)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	res := make([]*dto.AdminCancellationListResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, &dto.AdminCancellationListResponse{
			Id: r.Id,
			User: dto.AdminCancellationUserInfo{
				Id:       r.User.Id,
				Email:    r.User.Email,
				FullName: r.User.FullName,
			},
			MembershipId:          r.MembershipId,
			MembershipStatus:      string(r.Membership.Status),
			MembershipEndDate:     r.Membership.EndDate,
			Reason:                r.Reason,
			Status:                string(r.Status),
			RequestedRefundAmount: r.RequestedRefundAmount,
			ApprovedRefundAmount:  r.ApprovedRefundAmount,
			BankName:              r.Bank.BankName,
			BankAccountNumber:     r.Bank.AccountNumber,
			AccountHolderName:     r.Bank.HolderName,
			AdminNotes:            r.AdminNotes,
			TransferConfirmed:     r.TransferConfirmed,
			ReceivedDate:          r.ReceivedDate,
			CreatedAt:             r.CreatedAt,
			ProcessedAt:           r.ProcessedAt,
		})
	}
	return res, nil
}

func (s *cancellationService) audit(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, action string, entityId uuid.UUID, details map[string]interface{}) error {
	err := uow.AuditRepository().Create(ctx, &entity.AdminActionLog{
		Id:         uuid.New(),
		AdminId:    adminId,
		Action:     action,
		EntityType: "cancellation_request",
		EntityId:   entityId,
		Details:    details,
	})
	if err != nil {
		return apperror.FromStore(err)
	}
	return nil
}

// notifyProcessed hands the decision to the notification consumer. Delivery
// is fire-and-forget: the transaction has already committed and a lost
// notification must never undo it.
func (s *cancellationService) notifyProcessed(request *entity.CancellationRequest, approved bool) {
	if s.pubSub == nil {
		return
	}
	payload, err := json.Marshal(dto.CancellationProcessedMessage{
		RequestId:      request.Id,
		UserId:         request.UserId,
		MembershipId:   request.MembershipId,
		Approved:       approved,
		RefundApproved: request.RefundApproved,
		RefundAmount:   request.ApprovedRefundAmount,
		AdminNotes:     request.AdminNotes,
		ProcessedAt:    *request.ProcessedAt,
	})
	if err != nil {
		s.logger.Warn("CANCELLATION", "Failed to marshal processed message", map[string]interface{}{"error": err.Error()})
		return
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := s.pubSub.Publish(TopicCancellationProcessed, msg); err != nil {
		s.logger.Warn("CANCELLATION", "Failed to publish processed message", map[string]interface{}{"error": err.Error()})
	}
}

func (s *cancellationService) publishExternal(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPub == nil {
		return
	}
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: s.now(),
	}
	if err := s.eventPub.Publish(ctx, evt); err != nil {
		s.logger.Warn("EVENTS", "Failed to publish external event", map[string]interface{}{
			"eventType": eventType,
			"error":     err.Error(),
		})
	}
}

// projectAndStoreRole recomputes the user's role from current membership and
// payment facts inside the caller's transaction and persists it when it
// changed. Every membership mutation path funnels through here.
func projectAndStoreRole(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, now time.Time) (entity.Role, error) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return "", apperror.FromStore(err)
	}
	if user == nil {
		return "", apperror.NotFound("user")
	}

	memberships, err := uow.MembershipRepository().FindAll(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return "", apperror.FromStore(err)
	}
	payments, err := uow.PaymentRepository().FindAll(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return "", apperror.FromStore(err)
	}

	role := membership.ProjectRole(user.Role, memberships, payments, now)
	if role != user.Role {
		if err := uow.UserRepository().UpdateRole(ctx, userId, role); err != nil {
			return "", apperror.FromStore(err)
		}
	}
	return role, nil
}
