package ar

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

// GLPort posts journal entries for AR activity.
type GLPort interface {
	Create(ctx context.Context, in journals.CreateInput) (journals.Entry, error)
}

// GLAccounts holds the control accounts AR postings hit.
type GLAccounts struct {
	Receivable int64
	Revenue    int64
	Cash       int64
}

// Service handles AR business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	gl       GLPort
	accounts GLAccounts
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, gl GLPort, accounts GLAccounts) *Service {
	return &Service{logger: logger, repo: repo, gl: gl, accounts: accounts, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInvoiceInput groups fields for a new receivable.
type CreateInvoiceInput struct {
	OrgID        int64
	Number       string
	CustomerID   int64
	CustomerName string
	Total        float64
	DueDate      time.Time
	CreatedBy    int64
}

// CreateInvoice validates and persists a receivable, then raises the
// matching draft journal entry linked by the invoice ref.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	if in.CustomerID == 0 {
		return Invoice{}, shared.Validation("ar: customer required")
	}
	if strings.TrimSpace(in.Number) == "" {
		return Invoice{}, shared.Validation("ar: invoice number required")
	}
	if in.Total <= 0 {
		return Invoice{}, shared.Validation("ar: total must be positive")
	}
	if in.DueDate.IsZero() {
		return Invoice{}, shared.Validation("ar: due date required")
	}
	inv, err := s.repo.CreateInvoice(ctx, Invoice{
		OrgID:        in.OrgID,
		Ref:          uuid.New(),
		Number:       strings.TrimSpace(in.Number),
		CustomerID:   in.CustomerID,
		CustomerName: strings.TrimSpace(in.CustomerName),
		Total:        in.Total,
		DueDate:      in.DueDate,
		Status:       StatusOpen,
		CreatedBy:    in.CreatedBy,
	})
	if err != nil {
		return Invoice{}, err
	}
	if s.gl != nil {
		_, err := s.gl.Create(ctx, journals.CreateInput{
			OrgID:        in.OrgID,
			Date:         s.now(),
			Memo:         fmt.Sprintf("AR invoice %s", inv.Number),
			SourceModule: "ar",
			SourceRef:    inv.Ref,
			CreatedBy:    in.CreatedBy,
			Lines: []journals.LineInput{
				{AccountID: s.accounts.Receivable, Debit: in.Total},
				{AccountID: s.accounts.Revenue, Credit: in.Total},
			},
		})
		if err != nil {
			return Invoice{}, fmt.Errorf("ar: revenue entry for invoice %s: %w", inv.Number, err)
		}
	}
	return inv, nil
}

// PaymentInput groups fields for a receipt.
type PaymentInput struct {
	OrgID     int64
	InvoiceID int64
	Amount    float64
	Method    string
	Note      string
	PaidAt    time.Time
	CreatedBy int64
}

// RegisterPayment records cash received. Overpayment is refused, settled and
// void invoices stay untouched.
func (s *Service) RegisterPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	if in.Amount <= 0 {
		return Payment{}, shared.Validation("ar: amount must be positive")
	}
	inv, err := s.repo.GetInvoice(ctx, in.OrgID, in.InvoiceID)
	if err != nil {
		return Payment{}, err
	}
	switch inv.Status {
	case StatusPaid:
		return Payment{}, shared.State("ar: invoice already settled")
	case StatusVoid:
		return Payment{}, shared.State("ar: invoice is void")
	}
	if in.Amount > inv.Outstanding()+journals.BalanceTolerance {
		return Payment{}, shared.Validation(fmt.Sprintf("ar: payment %.2f exceeds outstanding %.2f", in.Amount, inv.Outstanding()))
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
			Memo:         fmt.Sprintf("AR receipt for invoice %s", inv.Number),
			SourceModule: "ar_payment",
			SourceRef:    uuid.New(),
			CreatedBy:    in.CreatedBy,
			Lines: []journals.LineInput{
				{AccountID: s.accounts.Cash, Debit: in.Amount},
				{AccountID: s.accounts.Receivable, Credit: in.Amount},
			},
		})
		if err != nil {
			return Payment{}, fmt.Errorf("ar: receipt entry for invoice %s: %w", inv.Number, err)
		}
	}
	return payment, nil
}

// ListInvoices returns the org's receivables.
func (s *Service) ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, orgID)
}

// ListPayments returns receipts for one invoice.
func (s *Service) ListPayments(ctx context.Context, orgID, invoiceID int64) ([]Payment, error) {
	if _, err := s.repo.GetInvoice(ctx, orgID, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, orgID, invoiceID)
}

// Aging buckets open receivables by days past due.
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
			PartyID:     inv.CustomerID,
			PartyName:   inv.CustomerName,
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
