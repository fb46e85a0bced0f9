package entity

import (
	"time"

	"github.com/google/uuid"
)

// CancellationStatus represents the status of a cancellation request
type CancellationStatus string

const (
	CancellationStatusPending  CancellationStatus = "pending"
	CancellationStatusApproved CancellationStatus = "approved"
	CancellationStatusRejected CancellationStatus = "rejected"
)

// DefaultRefundRate is the policy fraction of the originating payment that
// is offered back when the member does not name an amount.
const DefaultRefundRate = 0.5

// BankDetails are captured at request time for the out-of-band transfer.
type BankDetails struct {
	AccountNumber string
	BankName      string
	HolderName    string
}

// CancellationRequest is one member's ask to terminate a membership and
// optionally receive a refund. pending → {approved, rejected} exactly once;
// after that only the settlement-tracking flags may change.
type CancellationRequest struct {
	Id                    uuid.UUID
	UserId                uuid.UUID
	MembershipId          uuid.UUID
	Reason                string
	Status                CancellationStatus
	RequestedRefundAmount float64
	RefundApproved        bool
	ApprovedRefundAmount  float64
	ProcessedAt           *time.Time
	ProcessedByAdminId    *uuid.UUID
	AdminNotes            string
	Bank                  BankDetails
	TransferConfirmed     bool
	ReceivedDate          *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Populated by detail queries only
	User       User
	Membership UserMembership
}
