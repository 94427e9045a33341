package journals

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	StatusDraft           EntryStatus = "DRAFT"
	StatusPendingApproval EntryStatus = "PENDING_APPROVAL"
	StatusApproved        EntryStatus = "APPROVED"
	StatusPosted          EntryStatus = "POSTED"
	StatusReversed        EntryStatus = "REVERSED"
)

// Entry captures a journal entry header.
type Entry struct {
	ID           int64
	OrgID        int64
	Number       int64
	Date         time.Time
	Memo         string
	Status       EntryStatus
	SourceModule string
	SourceRef    uuid.UUID
	CreatedBy    int64
	ApprovedBy   *int64
	ApprovedAt   *time.Time
	PostedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []Line
}

// Line stores a debit or credit amount for an account.
type Line struct {
	ID              int64
	EntryID         int64
	AccountID       int64
	Debit           float64
	Credit          float64
	Memo            string
	DimDepartmentID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
