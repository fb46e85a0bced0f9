package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Member-Side Cancellation Request ---

// RequestCancellationRequest for a member filing a cancellation
type RequestCancellationRequest struct {
	MembershipId          uuid.UUID `json:"membership_id" validate:"required"`
	Reason                string    `json:"reason" validate:"required,min=10"`
	RequestRefund         bool      `json:"request_refund"`
	RequestedRefundAmount *float64  `json:"requested_refund_amount,omitempty" validate:"omitempty,gt=0"`
	BankAccountNumber     string    `json:"bank_account_number" validate:"required"`
	BankName              string    `json:"bank_name" validate:"required"`
	AccountHolderName     string    `json:"account_holder_name" validate:"required"`
}

// RequestCancellationResponse after the request was filed
type RequestCancellationResponse struct {
	CancellationRequestId uuid.UUID `json:"cancellation_request_id"`
	RequestedRefundAmount float64   `json:"requested_refund_amount"`
	Status                string    `json:"status"`
}

// --- Member's Request List ---

type CancellationListResponse struct {
	Id                    uuid.UUID  `json:"id"`
	MembershipId          uuid.UUID  `json:"membership_id"`
	Reason                string     `json:"reason"`
	Status                string     `json:"status"`
	RequestedRefundAmount float64    `json:"requested_refund_amount"`
	RefundApproved        bool       `json:"refund_approved"`
	ApprovedRefundAmount  float64    `json:"approved_refund_amount"`
	TransferConfirmed     bool       `json:"transfer_confirmed"`
	CreatedAt             time.Time  `json:"created_at"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty"`
}

// --- Admin-Side Cancellation Management ---

type AdminCancellationListResponse struct {
	Id                    uuid.UUID                 `json:"id"`
	User                  AdminCancellationUserInfo `json:"user"`
	MembershipId          uuid.UUID                 `json:"membership_id"`
	MembershipStatus      string                    `json:"membership_status"`
	MembershipEndDate     time.Time                 `json:"membership_end_date"`
	Reason                string                    `json:"reason"`
	Status                string                    `json:"status"`
	RequestedRefundAmount float64                   `json:"requested_refund_amount"`
	ApprovedRefundAmount  float64                   `json:"approved_refund_amount,omitempty"`
	BankName              string                    `json:"bank_name"`
	BankAccountNumber     string                    `json:"bank_account_number"`
	AccountHolderName     string                    `json:"account_holder_name"`
	AdminNotes            string                    `json:"admin_notes,omitempty"`
	TransferConfirmed     bool                      `json:"transfer_confirmed"`
	ReceivedDate          *time.Time                `json:"received_date,omitempty"`
	CreatedAt             time.Time                 `json:"created_at"`
	ProcessedAt           *time.Time                `json:"processed_at,omitempty"`
}

type AdminCancellationUserInfo struct {
	Id       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

type ApproveCancellationRequest struct {
	ApproveRefund bool     `json:"approve_refund"`
	RefundAmount  *float64 `json:"refund_amount,omitempty" validate:"omitempty,gt=0"`
	AdminNotes    string   `json:"admin_notes,omitempty"`
}

type ApproveCancellationResponse struct {
	Status           string    `json:"status"`
	MembershipStatus string    `json:"membership_status"`
	RefundAmount     float64   `json:"refund_amount"`
	ProcessedAt      time.Time `json:"processed_at"`
}

type RejectCancellationRequest struct {
	AdminNotes string `json:"admin_notes" validate:"required"`
}

type RejectCancellationResponse struct {
	Status           string    `json:"status"`
	MembershipStatus string    `json:"membership_status"`
	ProcessedAt      time.Time `json:"processed_at"`
}

type ConfirmTransferRequest struct {
	ReceivedDate *time.Time `json:"received_date,omitempty"`
}

type ConfirmTransferResponse struct {
	Status            string    `json:"status"`
	TransferConfirmed bool      `json:"transfer_confirmed"`
	ReceivedDate      time.Time `json:"received_date"`
}
