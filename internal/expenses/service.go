package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// WorkflowCode names the approval chain expense reports run through.
const WorkflowCode = "expense_approval"

// GLPort posts journal entries for reimbursements.
type GLPort interface {
	Create(ctx context.Context, in journals.CreateInput) (journals.Entry, error)
}

// WorkflowPort starts an approval run for a submitted report.
type WorkflowPort interface {
	StartForEntity(ctx context.Context, orgID int64, definitionCode string, entityRef uuid.UUID, startedBy int64) (int64, error)
}

// GLAccounts holds the control accounts reimbursements hit.
type GLAccounts struct {
	Cash int64
}

// Service handles expense report business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	gl       GLPort
	workflow WorkflowPort
	accounts GLAccounts
	policy   Policy
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, gl GLPort, workflow WorkflowPort, accounts GLAccounts, policy Policy) *Service {
	return &Service{logger: logger, repo: repo, gl: gl, workflow: workflow, accounts: accounts, policy: policy, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// LineItem is one claimed expense in a submission.
type LineItem struct {
	AccountID  int64
	Category   string
	Amount     float64
	IncurredAt time.Time
	Memo       string
}

// SubmitInput groups fields for a new expense report.
type SubmitInput struct {
	OrgID        int64
	Number       string
	EmployeeID   int64
	DepartmentID int64
	Lines        []LineItem
}

// Submit validates and stores a report, starts the approval workflow, and
// returns policy advisories alongside the created report. Advisories never
// fail the submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Report, []Advisory, error) {
	if strings.TrimSpace(in.Number) == "" {
		return Report{}, nil, shared.Validation("expenses: report number required")
	}
	if in.EmployeeID == 0 {
		return Report{}, nil, shared.Validation("expenses: employee required")
	}
	if len(in.Lines) == 0 {
		return Report{}, nil, shared.Validation("expenses: at least one line required")
	}
	report := Report{
		OrgID:        in.OrgID,
		Ref:          uuid.New(),
		Number:       strings.TrimSpace(in.Number),
		EmployeeID:   in.EmployeeID,
		DepartmentID: in.DepartmentID,
		Status:       StatusSubmitted,
		SubmittedAt:  s.now(),
	}
	for i, item := range in.Lines {
		if item.AccountID == 0 {
			return Report{}, nil, shared.Validation(fmt.Sprintf("expenses: line %d missing account", i))
		}
		if item.Amount <= 0 {
			return Report{}, nil, shared.Validation(fmt.Sprintf("expenses: line %d amount must be positive", i))
		}
		report.Total += item.Amount
		report.Lines = append(report.Lines, Line{
			AccountID:  item.AccountID,
			Category:   strings.TrimSpace(item.Category),
			Amount:     item.Amount,
			IncurredAt: item.IncurredAt,
			Memo:       item.Memo,
		})
	}
	created, err := s.repo.CreateReport(ctx, report)
	if err != nil {
		return Report{}, nil, err
	}
	if s.workflow != nil {
		if _, err := s.workflow.StartForEntity(ctx, in.OrgID, WorkflowCode, created.Ref, in.EmployeeID); err != nil {
			s.logger.Error("expense approval workflow start", slog.Any("error", err), slog.Int64("report_id", created.ID))
		}
	}
	return created, s.policy.Evaluate(s.now(), created), nil
}

// ApplyWorkflowOutcome records the terminal approval result for the report
// the workflow run referenced. Wired as an on-terminal listener.
func (s *Service) ApplyWorkflowOutcome(ctx context.Context, orgID int64, entityRef uuid.UUID, approved bool) error {
	rep, err := s.repo.GetReportByRef(ctx, orgID, entityRef)
	if err != nil {
		return err
	}
	status := StatusRejected
	if approved {
		status = StatusApproved
	}
	return s.repo.SetStatus(ctx, orgID, rep.ID, status)
}

// Reimburse pays out an approved report and posts the expense journal, each
// claimed account debited with the report's department dimension and cash
// credited for the total.
func (s *Service) Reimburse(ctx context.Context, orgID, reportID, actorID int64) (Report, error) {
	rep, err := s.repo.GetReport(ctx, orgID, reportID)
	if err != nil {
		return Report{}, err
	}
	switch rep.Status {
	case StatusApproved:
	case StatusReimbursed:
		return Report{}, shared.State("expenses: report already reimbursed")
	default:
		return Report{}, shared.State(fmt.Sprintf("expenses: report is %s, reimbursement requires APPROVED", rep.Status))
	}
	if err := s.repo.SetStatus(ctx, orgID, rep.ID, StatusReimbursed); err != nil {
		return Report{}, err
	}
	rep.Status = StatusReimbursed
	if s.gl != nil {
		lines := make([]journals.LineInput, 0, len(rep.Lines)+1)
		for _, line := range rep.Lines {
			dept := rep.DepartmentID
			input := journals.LineInput{AccountID: line.AccountID, Debit: line.Amount, Memo: line.Memo}
			if dept != 0 {
				input.DepartmentID = &dept
			}
			lines = append(lines, input)
		}
		lines = append(lines, journals.LineInput{AccountID: s.accounts.Cash, Credit: rep.Total})
		_, err := s.gl.Create(ctx, journals.CreateInput{
			OrgID:        orgID,
			Date:         s.now(),
			Memo:         fmt.Sprintf("Expense reimbursement %s", rep.Number),
			SourceModule: "expenses",
			SourceRef:    rep.Ref,
			CreatedBy:    actorID,
			Lines:        lines,
		})
		if err != nil {
			return Report{}, fmt.Errorf("expenses: reimbursement entry for report %s: %w", rep.Number, err)
		}
	}
	return rep, nil
}

// Get loads a report with its lines.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Report, error) {
	return s.repo.GetReport(ctx, orgID, id)
}

// List returns the org's reports, newest first.
func (s *Service) List(ctx context.Context, orgID int64) ([]Report, error) {
	return s.repo.ListReports(ctx, orgID)
}
