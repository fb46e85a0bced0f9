package dto

import (
	"time"

	"github.com/google/uuid"
)

type PlanResponse struct {
	Id           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	DurationDays int       `json:"duration_days"`
}

type MembershipStatusResponse struct {
	MembershipId *uuid.UUID `json:"membership_id,omitempty"`
	PlanName     string     `json:"plan_name,omitempty"`
	Status       string     `json:"status"`
	Role         string     `json:"role"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// GatewayNotificationRequest is the payment-gateway webhook payload. Only
// the signature, order reference and transaction status are trusted after
// verification; amounts are echoed for signature input only.
type GatewayNotificationRequest struct {
	OrderId           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
}

type NotificationResponse struct {
	Id        uuid.UUID              `json:"id"`
	TypeCode  string                 `json:"type_code"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

// CancellationProcessedMessage is the payload published on the internal bus
// after an admin decision commits; the notification consumer fans it out.
type CancellationProcessedMessage struct {
	RequestId      uuid.UUID `json:"request_id"`
	UserId         uuid.UUID `json:"user_id"`
	MembershipId   uuid.UUID `json:"membership_id"`
	Approved       bool      `json:"approved"`
	RefundApproved bool      `json:"refund_approved"`
	RefundAmount   float64   `json:"refund_amount"`
	AdminNotes     string    `json:"admin_notes"`
	ProcessedAt    time.Time `json:"processed_at"`
}
