package journals

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// BalanceTolerance is the maximum accepted |Σdebit - Σcredit| in currency units.
const BalanceTolerance = 0.01

// LineInput describes a journal line for an entry request.
type LineInput struct {
	AccountID    int64
	Debit        float64
	Credit       float64
	Memo         string
	DepartmentID *int64
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	OrgID        int64
	Date         time.Time
	Memo         string
	SourceModule string
	SourceRef    uuid.UUID
	CreatedBy    int64
	Lines        []LineInput
}

// Validate ensures the entry meets the balance invariant before any write.
func (in CreateInput) Validate() error {
	if in.OrgID == 0 {
		return internalshared.Validation("ledger: org required")
	}
	if in.CreatedBy == 0 {
		return internalshared.Validation("ledger: creator required")
	}
	if len(in.Lines) < 2 {
		return ledgershared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return internalshared.Validation(fmt.Sprintf("ledger: line %d missing account", idx))
		}
		if line.Debit < 0 || line.Credit < 0 {
			return internalshared.Validation(fmt.Sprintf("ledger: line %d negative amount", idx))
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > BalanceTolerance {
		return ledgershared.ErrUnbalanced
	}
	return nil
}

// TransitionAction names a requested status change.
type TransitionAction string

const (
	ActionSubmit  TransitionAction = "submit"
	ActionApprove TransitionAction = "approve"
	ActionPost    TransitionAction = "post"
	ActionReject  TransitionAction = "reject"
)

// nextStatus resolves the legal transition table. Any pair outside it is a
// state error naming both sides.
func nextStatus(current EntryStatus, action TransitionAction) (EntryStatus, error) {
	switch action {
	case ActionSubmit:
		if current == StatusDraft {
			return StatusPendingApproval, nil
		}
	case ActionApprove:
		if current == StatusDraft || current == StatusPendingApproval {
			return StatusApproved, nil
		}
	case ActionPost:
		if current == StatusApproved {
			return StatusPosted, nil
		}
	case ActionReject:
		if current == StatusDraft || current == StatusPendingApproval {
			return StatusDraft, nil
		}
	}
	return "", internalshared.State(fmt.Sprintf("ledger: cannot %s entry in status %s", action, current))
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	OrgID   int64
	EntryID int64
	ActorID int64
	Memo    string
	Date    *time.Time
}
