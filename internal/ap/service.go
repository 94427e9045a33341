package ap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/aging"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// WorkflowCode names the approval chain that gates AP payments.
const WorkflowCode = "ap_invoice_approval"

// GLPort posts journal entries for AP activity.
type GLPort interface {
	Create(ctx context.Context, in journals.CreateInput) (journals.Entry, error)
}

// WorkflowPort starts an approval run for a new bill.
type WorkflowPort interface {
	StartForEntity(ctx context.Context, orgID int64, definitionCode string, entityRef uuid.UUID, startedBy int64) (int64, error)
}

// GLAccounts holds the control accounts AP postings hit.
type GLAccounts struct {
	Payable int64
	Expense int64
	Cash    int64
}

// Service handles AP business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	gl       GLPort
	workflow WorkflowPort
	accounts GLAccounts
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, gl GLPort, workflow WorkflowPort, accounts GLAccounts) *Service {
	return &Service{logger: logger, repo: repo, gl: gl, workflow: workflow, accounts: accounts, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInvoiceInput groups fields for a new payable.
type CreateInvoiceInput struct {
	OrgID      int64
	Number     string
	VendorID   int64
	VendorName string
	Total      float64
	DueDate    time.Time
	CreatedBy  int64
}

// CreateInvoice validates and persists a payable, posts the accrual entry,
// and kicks off the approval workflow that gates payment.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	if in.VendorID == 0 {
		return Invoice{}, shared.Validation("ap: vendor required")
	}
	if strings.TrimSpace(in.Number) == "" {
		return Invoice{}, shared.Validation("ap: invoice number required")
	}
	if in.Total <= 0 {
		return Invoice{}, shared.Validation("ap: total must be positive")
	}
	if in.DueDate.IsZero() {
		return Invoice{}, shared.Validation("ap: due date required")
	}
	inv, err := s.repo.CreateInvoice(ctx, Invoice{
		OrgID:      in.OrgID,
		Ref:        uuid.New(),
		Number:     strings.TrimSpace(in.Number),
		VendorID:   in.VendorID,
		VendorName: strings.TrimSpace(in.VendorName),
		Total:      in.Total,
		DueDate:    in.DueDate,
		Status:     StatusOpen,
		Approval:   ApprovalPending,
		CreatedBy:  in.CreatedBy,
	})
	if err != nil {
		return Invoice{}, err
	}
	if s.gl != nil {
		_, err := s.gl.Create(ctx, journals.CreateInput{
			OrgID:        in.OrgID,
			Date:         s.now(),
			Memo:         fmt.Sprintf("AP invoice %s", inv.Number),
			SourceModule: "ap",
			SourceRef:    inv.Ref,
			CreatedBy:    in.CreatedBy,
			Lines: []journals.LineInput{
				{AccountID: s.accounts.Expense, Debit: in.Total},
				{AccountID: s.accounts.Payable, Credit: in.Total},
			},
		})
		if err != nil {
			// A payable without its accrual entry would silently diverge
			// from the GL, so the failure surfaces to the caller.
			return Invoice{}, fmt.Errorf("ap: accrual entry for invoice %s: %w", inv.Number, err)
		}
	}
	if s.workflow != nil {
		if _, err := s.workflow.StartForEntity(ctx, in.OrgID, WorkflowCode, inv.Ref, in.CreatedBy); err != nil {
			s.logger.Error("ap approval workflow start", slog.Any("error", err), slog.Int64("invoice_id", inv.ID))
		}
	}
	return inv, nil
}

// PaymentInput groups fields for a disbursement.
type PaymentInput struct {
	OrgID     int64
	InvoiceID int64
	Amount    float64
	Method    string
	Note      string
	PaidAt    time.Time
	CreatedBy int64
}

// PayInvoice disburses cash against an approved bill. Unapproved bills are a
// state error, overpayment a validation error.
func (s *Service) PayInvoice(ctx context.Context, in PaymentInput) (Payment, error) {
	if in.Amount <= 0 {
		return Payment{}, shared.Validation("ap: amount must be positive")
	}
	inv, err := s.repo.GetInvoice(ctx, in.OrgID, in.InvoiceID)
	if err != nil {
		return Payment{}, err
	}
	if inv.Approval != ApprovalApproved {
		return Payment{}, shared.State(fmt.Sprintf("ap: invoice approval is %s, payment requires APPROVED", inv.Approval))
	}
	switch inv.Status {
	case StatusPaid:
		return Payment{}, shared.State("ap: invoice already settled")
	case StatusVoid:
		return Payment{}, shared.State("ap: invoice is void")
	}
	if in.Amount > inv.Outstanding()+journals.BalanceTolerance {
		return Payment{}, shared.Validation(fmt.Sprintf("ap: payment %.2f exceeds outstanding %.2f", in.Amount, inv.Outstanding()))
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	newPaid := inv.Paid + in.Amount
	newStatus := StatusPartiallyPaid
	if inv.Total-newPaid <= journals.BalanceTolerance {
		newStatus = StatusPaid
	}
	payment, err := s.repo.ApplyPayment(ctx, Payment{
		OrgID:     in.OrgID,
		InvoiceID: in.InvoiceID,
		Amount:    in.Amount,
		PaidAt:    paidAt,
		Method:    in.Method,
		Note:      in.Note,
		CreatedBy: in.CreatedBy,
	}, newPaid, newStatus)
	if err != nil {
		return Payment{}, err
	}
	if s.gl != nil {
		_, err := s.gl.Create(ctx, journals.CreateInput{
			OrgID:        in.OrgID,
			Date:         paidAt,
			Memo:         fmt.Sprintf("AP disbursement for invoice %s", inv.Number),
			SourceModule: "ap_payment",
			SourceRef:    uuid.New(),
			CreatedBy:    in.CreatedBy,
			Lines: []journals.LineInput{
				{AccountID: s.accounts.Payable, Debit: in.Amount},
				{AccountID: s.accounts.Cash, Credit: in.Amount},
			},
		})
		if err != nil {
			return Payment{}, fmt.Errorf("ap: disbursement entry for invoice %s: %w", inv.Number, err)
		}
	}
	return payment, nil
}

// ApplyWorkflowOutcome records the terminal approval result for the bill the
// workflow run referenced. Wired as an on-terminal listener.
func (s *Service) ApplyWorkflowOutcome(ctx context.Context, orgID int64, entityRef uuid.UUID, approved bool) error {
	inv, err := s.repo.GetInvoiceByRef(ctx, orgID, entityRef)
	if err != nil {
		return err
	}
	approval := ApprovalRejected
	if approved {
		approval = ApprovalApproved
	}
	return s.repo.SetApproval(ctx, orgID, inv.ID, approval)
}

// ListInvoices returns the org's payables.
func (s *Service) ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, orgID)
}

// ListPayments returns disbursements for one bill.
func (s *Service) ListPayments(ctx context.Context, orgID, invoiceID int64) ([]Payment, error) {
	if _, err := s.repo.GetInvoice(ctx, orgID, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, orgID, invoiceID)
}

// Aging buckets open payables by days past due.
func (s *Service) Aging(ctx context.Context, orgID int64, asOf time.Time) (aging.Report, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	invoices, err := s.repo.ListOutstanding(ctx, orgID)
	if err != nil {
		return aging.Report{}, err
	}
	items := make([]aging.Item, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, aging.Item{
			PartyID:     inv.VendorID,
			PartyName:   inv.VendorName,
			InvoiceID:   inv.ID,
			Number:      inv.Number,
			DueDate:     inv.DueDate,
			Outstanding: inv.Outstanding(),
		})
	}
	return aging.Build(asOf, items), nil
}

// SnapshotAging persists today's aging schedule, used by the nightly job.
func (s *Service) SnapshotAging(ctx context.Context, orgID int64) error {
	report, err := s.Aging(ctx, orgID, s.now())
	if err != nil {
		return err
	}
	return s.repo.SaveAgingSnapshot(ctx, orgID, report)
}
