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

type paymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) contract.PaymentRepository {
	return &paymentRepositoryImpl{db: db}
}

func (r *paymentRepositoryImpl) Create(ctx context.Context, payment *entity.Payment) error {
	m := r.mapToModel(payment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*payment = *r.mapToEntity(m)
	return nil
}

func (r *paymentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	var m model.Payment
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

func (r *paymentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	var models []*model.Payment
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	payments := make([]*entity.Payment, 0, len(models))
	for _, m := range models {
		payments = append(payments, r.mapToEntity(m))
	}
	return payments, nil
}

func (r *paymentRepositoryImpl) FindByTransactionId(ctx context.Context, transactionId string) (*entity.Payment, error) {
	return r.FindOne(ctx, specification.Filter("transaction_id", transactionId))
}

func (r *paymentRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus, endDate *time.Time) (int64, error) {
	updates := map[string]interface{}{"status": string(to)}
	if endDate != nil {
		updates["end_date"] = *endDate
	}
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *paymentRepositoryImpl) mapToModel(p *entity.Payment) *model.Payment {
	return &model.Payment{
		Id:            p.Id,
		UserId:        p.UserId,
		PlanId:        p.PlanId,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        string(p.Status),
		TransactionId: p.TransactionId,
		EndDate:       p.EndDate,
	}
}

func (r *paymentRepositoryImpl) mapToEntity(m *model.Payment) *entity.Payment {
	return &entity.Payment{
		Id:            m.Id,
		UserId:        m.UserId,
		PlanId:        m.PlanId,
		Amount:        m.Amount,
		Method:        m.Method,
		Status:        entity.PaymentStatus(m.Status),
		TransactionId: m.TransactionId,
		EndDate:       m.EndDate,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
