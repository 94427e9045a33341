// Package expenses handles employee expense reports. Submission runs through
// the approval workflow; policy checks produce soft advisories that never
// block a report.
package expenses

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus enumerates the expense report lifecycle.
type ReportStatus string

const (
	StatusSubmitted  ReportStatus = "SUBMITTED"
	StatusApproved   ReportStatus = "APPROVED"
	StatusRejected   ReportStatus = "REJECTED"
	StatusReimbursed ReportStatus = "REIMBURSED"
)

// Line is one claimed expense within a report.
type Line struct {
	ID         int64     `json:"id"`
	ReportID   int64     `json:"report_id"`
	AccountID  int64     `json:"account_id"`
	Category   string    `json:"category"`
	Amount     float64   `json:"amount"`
	IncurredAt time.Time `json:"incurred_at"`
	Memo       string    `json:"memo"`
}

// Report is one employee's expense claim.
type Report struct {
	ID           int64        `json:"id"`
	OrgID        int64        `json:"org_id"`
	Ref          uuid.UUID    `json:"ref"`
	Number       string       `json:"number"`
	EmployeeID   int64        `json:"employee_id"`
	DepartmentID int64        `json:"department_id"`
	Status       ReportStatus `json:"status"`
	Total        float64      `json:"total"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Lines        []Line       `json:"lines"`
}

// Advisory is a soft policy finding. Advisories accompany a successful
// submission; they are informational and never a failure.
type Advisory struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LineIndex int    `json:"line_index"`
}
