package memory

import (
	"context"
	"sort"
	"time"

	"coach-membership-be/internal/entity"
	"coach-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fieldGetter resolves a column name to a comparable value for one row.
type fieldGetter func(field string) interface{}

// matches interprets the query specifications against one row. Ordering,
// pagination and locking specs are handled by the callers.
func matches(specs []specification.Specification, id uuid.UUID, get fieldGetter) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if get("user_id") != interface{}(s.UserID) {
				return false
			}
		case specification.FilterBy:
			if get(s.Field) != s.Value {
				return false
			}
		case specification.StatusIn:
			status, _ := get("status").(string)
			found := false
			for _, want := range s.Statuses {
				if status == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func orderAndPage[T any](specs []specification.Specification, rows []T, get func(T, string) interface{}) []T {
	for _, spec := range specs {
		if ob, ok := spec.(specification.OrderBy); ok {
			sort.SliceStable(rows, func(i, j int) bool {
				l := lessValue(get(rows[i], ob.Field), get(rows[j], ob.Field))
				if ob.Desc {
					return !l
				}
				return l
			})
		}
	}
	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			if p.Offset >= len(rows) {
				return nil
			}
			rows = rows[p.Offset:]
			if p.Limit > 0 && p.Limit < len(rows) {
				rows = rows[:p.Limit]
			}
		}
	}
	return rows
}

func lessValue(a, b interface{}) bool {
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	case *time.Time:
		bv, _ := b.(*time.Time)
		if av == nil || bv == nil {
			return bv != nil
		}
		return av.Before(*bv)
	case int:
		bv, _ := b.(int)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return av < bv
	default:
		return false
	}
}

// --- users ---

type memUserRepository struct {
	u *memUnitOfWork
}

func userFields(u entity.User) fieldGetter {
	return func(field string) interface{} {
		switch field {
		case "user_id", "id":
			return u.Id
		case "email":
			return u.Email
		case "role":
			return string(u.Role)
		}
		return nil
	}
}

func (r *memUserRepository) Create(ctx context.Context, user *entity.User) error {
	defer r.u.lock()()
	r.u.store.users[user.Id] = *user
	return nil
}

func (r *memUserRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	defer r.u.lock()()
	for id, u := range r.u.store.users {
		if matches(specs, id, userFields(u)) {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memUserRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	defer r.u.lock()()
	var rows []*entity.User
	for id, u := range r.u.store.users {
		if matches(specs, id, userFields(u)) {
			out := u
			rows = append(rows, &out)
		}
	}
	return rows, nil
}

func (r *memUserRepository) UpdateRole(ctx context.Context, userId uuid.UUID, role entity.Role) error {
	defer r.u.lock()()
	u, ok := r.u.store.users[userId]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	r.u.store.users[userId] = u
	return nil
}

func (r *memUserRepository) DemoteToGuest(ctx context.Context, userIds []uuid.UUID) (int64, error) {
	defer r.u.lock()()
	var affected int64
	for _, id := range userIds {
		u, ok := r.u.store.users[id]
		if !ok {
			continue
		}
		if u.Role == entity.RoleGuest || u.Role.IsPrivileged() {
			continue
		}
		u.Role = entity.RoleGuest
		r.u.store.users[id] = u
		affected++
	}
	return affected, nil
}

// --- plans ---

type memPlanRepository struct {
	u *memUnitOfWork
}

func planFields(p entity.MembershipPlan) fieldGetter {
	return func(field string) interface{} {
		switch field {
		case "id":
			return p.Id
		case "slug":
			return p.Slug
		case "is_active":
			return p.IsActive
		case "sort_order":
			return p.SortOrder
		}
		return nil
	}
}

func (r *memPlanRepository) Create(ctx context.Context, plan *entity.MembershipPlan) error {
	defer r.u.lock()()
	r.u.store.plans[plan.Id] = *plan
	return nil
}

func (r *memPlanRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MembershipPlan, error) {
	defer r.u.lock()()
	for id, p := range r.u.store.plans {
		if matches(specs, id, planFields(p)) {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memPlanRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MembershipPlan, error) {
	defer r.u.lock()()
	var rows []*entity.MembershipPlan
	for id, p := range r.u.store.plans {
		if matches(specs, id, planFields(p)) {
			out := p
			rows = append(rows, &out)
		}
	}
	rows = orderAndPage(specs, rows, func(p *entity.MembershipPlan, field string) interface{} {
		return planFields(*p)(field)
	})
	return rows, nil
}

// --- payments ---

type memPaymentRepository struct {
	u *memUnitOfWork
}

func paymentFields(p entity.Payment) fieldGetter {
	return func(field string) interface{} {
		switch field {
		case "id":
			return p.Id
		case "user_id":
			return p.UserId
		case "status":
			return string(p.Status)
		case "transaction_id":
			return p.TransactionId
		case "created_at":
			return p.CreatedAt
		}
		return nil
	}
}

func (r *memPaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	defer r.u.lock()()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	r.u.store.payments[payment.Id] = *payment
	return nil
}

func (r *memPaymentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	defer r.u.lock()()
	for id, p := range r.u.store.payments {
		if matches(specs, id, paymentFields(p)) {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	defer r.u.lock()()
	var rows []*entity.Payment
	for id, p := range r.u.store.payments {
		if matches(specs, id, paymentFields(p)) {
			out := p
			rows = append(rows, &out)
		}
	}
	return rows, nil
}

func (r *memPaymentRepository) FindByTransactionId(ctx context.Context, transactionId string) (*entity.Payment, error) {
	defer r.u.lock()()
	for _, p := range r.u.store.payments {
		if p.TransactionId == transactionId {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus, endDate *time.Time) (int64, error) {
	defer r.u.lock()()
	p, ok := r.u.store.payments[id]
	if !ok || p.Status != from {
		return 0, nil
	}
	p.Status = to
	if endDate != nil {
		p.EndDate = endDate
	}
	p.UpdatedAt = time.Now()
	r.u.store.payments[id] = p
	return 1, nil
}

// --- memberships ---

type memMembershipRepository struct {
	u *memUnitOfWork
}

func membershipFields(m entity.UserMembership) fieldGetter {
	return func(field string) interface{} {
		switch field {
		case "id":
			return m.Id
		case "user_id":
			return m.UserId
		case "status":
			return string(m.Status)
		case "end_date":
			return m.EndDate
		case "created_at":
			return m.CreatedAt
		}
		return nil
	}
}

func (r *memMembershipRepository) Create(ctx context.Context, membership *entity.UserMembership) error {
	defer r.u.lock()()
	// ux_user_memberships_one_active
	if membership.Status == entity.MembershipStatusActive || membership.Status == entity.MembershipStatusPendingCancellation {
		for _, existing := range r.u.store.memberships {
			if existing.UserId == membership.UserId &&
				(existing.Status == entity.MembershipStatusActive || existing.Status == entity.MembershipStatusPendingCancellation) {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = time.Now()
	}
	r.u.store.memberships[membership.Id] = *membership
	return nil
}

func (r *memMembershipRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserMembership, error) {
	defer r.u.lock()()
	for id, m := range r.u.store.memberships {
		if matches(specs, id, membershipFields(m)) {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memMembershipRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserMembership, error) {
	defer r.u.lock()()
	var rows []*entity.UserMembership
	for id, m := range r.u.store.memberships {
		if matches(specs, id, membershipFields(m)) {
			out := m
			rows = append(rows, &out)
		}
	}
	return rows, nil
}

func (r *memMembershipRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.MembershipStatus) (int64, error) {
	defer r.u.lock()()
	m, ok := r.u.store.memberships[id]
	if !ok || m.Status != from {
		return 0, nil
	}
	m.Status = to
	m.UpdatedAt = time.Now()
	r.u.store.memberships[id] = m
	return 1, nil
}

func (r *memMembershipRepository) ExpireLapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	defer r.u.lock()()
	var userIds []uuid.UUID
	for id, m := range r.u.store.memberships {
		if m.Status == entity.MembershipStatusActive && m.EndDate.Before(now) {
			m.Status = entity.MembershipStatusExpired
			m.UpdatedAt = now
			r.u.store.memberships[id] = m
			userIds = append(userIds, m.UserId)
		}
	}
	return userIds, nil
}

// --- cancellation requests ---

type memCancellationRepository struct {
	u *memUnitOfWork
}

func cancellationFields(c entity.CancellationRequest) fieldGetter {
	return func(field string) interface{} {
		switch field {
		case "id":
			return c.Id
		case "user_id":
			return c.UserId
		case "membership_id":
			return c.MembershipId
		case "status":
			return string(c.Status)
		case "created_at":
			return c.CreatedAt
		case "processed_at":
			return c.ProcessedAt
		}
		return nil
	}
}

func (r *memCancellationRepository) Create(ctx context.Context, request *entity.CancellationRequest) error {
	defer r.u.lock()()
	// ux_cancellation_requests_one_pending
	if request.Status == entity.CancellationStatusPending {
		for _, existing := range r.u.store.cancellations {
			if existing.UserId == request.UserId &&
				existing.MembershipId == request.MembershipId &&
				existing.Status == entity.CancellationStatusPending {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	r.u.store.cancellations[request.Id] = *request
	return nil
}

func (r *memCancellationRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CancellationRequest, error) {
	defer r.u.lock()()
	for id, c := range r.u.store.cancellations {
		if matches(specs, id, cancellationFields(c)) {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memCancellationRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CancellationRequest, error) {
	defer r.u.lock()()
	var rows []*entity.CancellationRequest
	for id, c := range r.u.store.cancellations {
		if matches(specs, id, cancellationFields(c)) {
			out := c
			rows = append(rows, &out)
		}
	}
	rows = orderAndPage(specs, rows, func(c *entity.CancellationRequest, field string) interface{} {
		return cancellationFields(*c)(field)
	})
	return rows, nil
}

func (r *memCancellationRepository) FindAllWithDetails(ctx context.Context, specs ...specification.Specification) ([]*entity.CancellationRequest, error) {
	rows, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	defer r.u.lock()()
	for _, c := range rows {
		c.User = r.u.store.users[c.UserId]
		c.Membership = r.u.store.memberships[c.MembershipId]
	}
	return rows, nil
}

func (r *memCancellationRepository) MarkProcessed(ctx context.Context, request *entity.CancellationRequest) (int64, error) {
	defer r.u.lock()()
	c, ok := r.u.store.cancellations[request.Id]
	if !ok || c.Status != entity.CancellationStatusPending {
		return 0, nil
	}
	c.Status = request.Status
	c.RefundApproved = request.RefundApproved
	c.ApprovedRefundAmount = request.ApprovedRefundAmount
	c.ProcessedAt = request.ProcessedAt
	c.ProcessedByAdminId = request.ProcessedByAdminId
	c.AdminNotes = request.AdminNotes
	c.UpdatedAt = time.Now()
	r.u.store.cancellations[request.Id] = c
	return 1, nil
}

func (r *memCancellationRepository) ConfirmTransfer(ctx context.Context, id uuid.UUID, receivedDate time.Time) (int64, error) {
	defer r.u.lock()()
	c, ok := r.u.store.cancellations[id]
	if !ok || c.Status != entity.CancellationStatusApproved {
		return 0, nil
	}
	c.TransferConfirmed = true
	c.ReceivedDate = &receivedDate
	c.UpdatedAt = time.Now()
	r.u.store.cancellations[id] = c
	return 1, nil
}

// --- reconciliation ---

type memReconciliationRepository struct {
	u *memUnitOfWork
}

func (r *memReconciliationRepository) ExpiredCoverageCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	defer r.u.lock()()
	var out []uuid.UUID
	for id, u := range r.u.store.users {
		if u.Role != entity.RoleMember {
			continue
		}
		hasConfirmed := false
		hasFuture := false
		for _, p := range r.u.store.payments {
			if p.UserId != id || p.Status != entity.PaymentStatusConfirmed {
				continue
			}
			hasConfirmed = true
			if p.EndDate != nil && p.EndDate.After(now) {
				hasFuture = true
			}
		}
		if hasConfirmed && !hasFuture {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memReconciliationRepository) OrphanCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	defer r.u.lock()()
	var out []uuid.UUID
	for id, u := range r.u.store.users {
		if u.Role == entity.RoleGuest || u.Role.IsPrivileged() {
			continue
		}
		hasActiveMembership := false
		for _, m := range r.u.store.memberships {
			if m.UserId == id && m.Status == entity.MembershipStatusActive {
				hasActiveMembership = true
				break
			}
		}
		hasCoverage := false
		for _, p := range r.u.store.payments {
			if p.UserId == id && p.HasCoverageAt(now) {
				hasCoverage = true
				break
			}
		}
		if !hasActiveMembership && !hasCoverage {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memReconciliationRepository) LoadRoleFacts(ctx context.Context, userIds []uuid.UUID) (map[uuid.UUID]*entity.RoleFacts, error) {
	defer r.u.lock()()
	facts := make(map[uuid.UUID]*entity.RoleFacts, len(userIds))
	for _, id := range userIds {
		u, ok := r.u.store.users[id]
		if !ok {
			continue
		}
		f := &entity.RoleFacts{User: u}
		for _, m := range r.u.store.memberships {
			if m.UserId == id {
				out := m
				f.Memberships = append(f.Memberships, &out)
			}
		}
		for _, p := range r.u.store.payments {
			if p.UserId == id {
				out := p
				f.Payments = append(f.Payments, &out)
			}
		}
		facts[id] = f
	}
	return facts, nil
}

// --- notifications / audit ---

type memNotificationRepository struct {
	u *memUnitOfWork
}

func notificationFields(n entity.Notification) fieldGetter {
	return func(field string) interface{} {
		switch field {
		case "id":
			return n.Id
		case "user_id":
			return n.UserId
		case "created_at":
			return n.CreatedAt
		}
		return nil
	}
}

func (r *memNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	defer r.u.lock()()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	r.u.store.notifications[notification.Id] = *notification
	return nil
}

func (r *memNotificationRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notification, error) {
	defer r.u.lock()()
	var rows []*entity.Notification
	for id, n := range r.u.store.notifications {
		if matches(specs, id, notificationFields(n)) {
			out := n
			rows = append(rows, &out)
		}
	}
	rows = orderAndPage(specs, rows, func(n *entity.Notification, field string) interface{} {
		return notificationFields(*n)(field)
	})
	return rows, nil
}

func (r *memNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, userId uuid.UUID) error {
	defer r.u.lock()()
	n, ok := r.u.store.notifications[id]
	if !ok || n.UserId != userId {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	r.u.store.notifications[id] = n
	return nil
}

type memAuditRepository struct {
	u *memUnitOfWork
}

func (r *memAuditRepository) Create(ctx context.Context, log *entity.AdminActionLog) error {
	defer r.u.lock()()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.u.store.audits[log.Id] = *log
	return nil
}

func (r *memAuditRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AdminActionLog, error) {
	defer r.u.lock()()
	var rows []*entity.AdminActionLog
	for _, a := range r.u.store.audits {
		out := a
		rows = append(rows, &out)
	}
	return rows, nil
}
