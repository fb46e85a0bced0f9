package implementation

import (
	"context"
	"errors"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/model"
	"coach-membership-be/internal/repository/contract"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type cancellationRepositoryImpl struct {
	db *gorm.DB
}

// NewCancellationRepository creates a new cancellation repository
func NewCancellationRepository(db *gorm.DB) contract.CancellationRepository {
	return &cancellationRepositoryImpl{db: db}
}

func (r *cancellationRepositoryImpl) Create(ctx context.Context, request *entity.CancellationRequest) error {
	m := &model.CancellationRequest{
		Id:                    request.Id,
		UserId:                request.UserId,
		MembershipId:          request.MembershipId,
		Reason:                request.Reason,
		Status:                string(request.Status),
		RequestedRefundAmount: request.RequestedRefundAmount,
		BankAccountNumber:     request.Bank.AccountNumber,
		BankName:              request.Bank.BankName,
		AccountHolderName:     request.Bank.HolderName,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*request = *r.mapToEntity(m)
	return nil
}

func (r *cancellationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CancellationRequest, error) {
	var m model.CancellationRequest
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

func (r *cancellationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CancellationRequest, error) {
	var models []*model.CancellationRequest
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	requests := make([]*entity.CancellationRequest, 0, len(models))
	for _, m := range models {
		requests = append(requests, r.mapToEntity(m))
	}
	return requests, nil
}

// FindAllWithDetails returns requests with preloaded User and Membership relations
func (r *cancellationRepositoryImpl) FindAllWithDetails(ctx context.Context, specs ...specification.Specification) ([]*entity.CancellationRequest, error) {
	var models []*model.CancellationRequest
	query := r.db.WithContext(ctx).
		Preload("User").
		Preload("Membership")
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	requests := make([]*entity.CancellationRequest, 0, len(models))
	for _, m := range models {
		request := r.mapToEntity(m)
		request.User = entity.User{
			Id:       m.User.Id,
			Email:    m.User.Email,
			FullName: m.User.FullName,
			Role:     entity.Role(m.User.Role),
		}
		request.Membership = entity.UserMembership{
			Id:        m.Membership.Id,
			PlanId:    m.Membership.PlanId,
			PaymentId: m.Membership.PaymentId,
			Status:    entity.MembershipStatus(m.Membership.Status),
			EndDate:   m.Membership.EndDate,
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (r *cancellationRepositoryImpl) MarkProcessed(ctx context.Context, request *entity.CancellationRequest) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.CancellationRequest{}).
		Where("id = ? AND status = ?", request.Id, string(entity.CancellationStatusPending)).
		Updates(map[string]interface{}{
			"status":                 string(request.Status),
			"refund_approved":        request.RefundApproved,
			"approved_refund_amount": request.ApprovedRefundAmount,
			"processed_at":           request.ProcessedAt,
			"processed_by_admin_id":  request.ProcessedByAdminId,
			"admin_notes":            request.AdminNotes,
		})
	return res.RowsAffected, res.Error
}

func (r *cancellationRepositoryImpl) ConfirmTransfer(ctx context.Context, id uuid.UUID, receivedDate time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.CancellationRequest{}).
		Where("id = ? AND status = ?", id, string(entity.CancellationStatusApproved)).
		Updates(map[string]interface{}{
			"transfer_confirmed": true,
			"received_date":      receivedDate,
		})
	return res.RowsAffected, res.Error
}

// mapToEntity converts model.CancellationRequest to entity.CancellationRequest
func (r *cancellationRepositoryImpl) mapToEntity(m *model.CancellationRequest) *entity.CancellationRequest {
	return &entity.CancellationRequest{
		Id:                    m.Id,
		UserId:                m.UserId,
		MembershipId:          m.MembershipId,
		Reason:                m.Reason,
		Status:                entity.CancellationStatus(m.Status),
		RequestedRefundAmount: m.RequestedRefundAmount,
		RefundApproved:        m.RefundApproved,
		ApprovedRefundAmount:  m.ApprovedRefundAmount,
		ProcessedAt:           m.ProcessedAt,
		ProcessedByAdminId:    m.ProcessedByAdminId,
		AdminNotes:            m.AdminNotes,
		Bank: entity.BankDetails{
			AccountNumber: m.BankAccountNumber,
			BankName:      m.BankName,
			HolderName:    m.AccountHolderName,
		},
		TransferConfirmed: m.TransferConfirmed,
		ReceivedDate:      m.ReceivedDate,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
