// Package ap manages vendor bills, disbursements, and payables aging.
// Payment of a bill is gated on its approval workflow reaching an approved
// terminal outcome.
package ap

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus enumerates AP bill payment statuses.
type InvoiceStatus string

const (
	StatusOpen          InvoiceStatus = "OPEN"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
	StatusVoid          InvoiceStatus = "VOID"
)

// ApprovalStatus tracks the workflow outcome for a bill.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Invoice models a payable owed to a vendor.
type Invoice struct {
	ID         int64          `json:"id"`
	OrgID      int64          `json:"org_id"`
	Ref        uuid.UUID      `json:"ref"`
	Number     string         `json:"number"`
	VendorID   int64          `json:"vendor_id"`
	VendorName string         `json:"vendor_name"`
	Total      float64        `json:"total"`
	Paid       float64        `json:"paid"`
	DueDate    time.Time      `json:"due_date"`
	Status     InvoiceStatus  `json:"status"`
	Approval   ApprovalStatus `json:"approval"`
	CreatedBy  int64          `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Outstanding returns the unpaid remainder.
func (i Invoice) Outstanding() float64 {
	return i.Total - i.Paid
}

// Payment records cash disbursed against a bill.
type Payment struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	InvoiceID int64     `json:"invoice_id"`
	Amount    float64   `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
	Method    string    `json:"method"`
	Note      string    `json:"note"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
