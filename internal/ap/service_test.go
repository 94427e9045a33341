package ap

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/aging"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	invoices  map[int64]Invoice
	payments  []Payment
	snapshots []aging.Report
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[int64]Invoice)}
}

func (m *memoryRepo) CreateInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	m.nextID++
	inv.ID = m.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryRepo) GetInvoice(_ context.Context, orgID, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.OrgID != orgID {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryRepo) GetInvoiceByRef(_ context.Context, orgID int64, ref uuid.UUID) (Invoice, error) {
	for _, inv := range m.invoices {
		if inv.OrgID == orgID && inv.Ref == ref {
			return inv, nil
		}
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (m *memoryRepo) ListInvoices(_ context.Context, orgID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.OrgID == orgID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListOutstanding(_ context.Context, orgID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.OrgID == orgID && (inv.Status == StatusOpen || inv.Status == StatusPartiallyPaid) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetApproval(_ context.Context, orgID, id int64, approval ApprovalStatus) error {
	inv, ok := m.invoices[id]
	if !ok || inv.OrgID != orgID {
		return ErrInvoiceNotFound
	}
	inv.Approval = approval
	m.invoices[id] = inv
	return nil
}

func (m *memoryRepo) ApplyPayment(_ context.Context, payment Payment, newPaid float64, newStatus InvoiceStatus) (Payment, error) {
	inv, ok := m.invoices[payment.InvoiceID]
	if !ok {
		return Payment{}, ErrInvoiceNotFound
	}
	m.nextID++
	payment.ID = m.nextID
	payment.CreatedAt = time.Now()
	m.payments = append(m.payments, payment)
	inv.Paid = newPaid
	inv.Status = newStatus
	m.invoices[inv.ID] = inv
	return payment, nil
}

func (m *memoryRepo) ListPayments(_ context.Context, orgID, invoiceID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.OrgID == orgID && p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) SaveAgingSnapshot(_ context.Context, _ int64, report aging.Report) error {
	m.snapshots = append(m.snapshots, report)
	return nil
}

type recordingGL struct {
	inputs []journals.CreateInput
	err    error
}

func (g *recordingGL) Create(_ context.Context, in journals.CreateInput) (journals.Entry, error) {
	if g.err != nil {
		return journals.Entry{}, g.err
	}
	g.inputs = append(g.inputs, in)
	return journals.Entry{ID: int64(len(g.inputs))}, nil
}

type recordingWorkflow struct {
	starts []uuid.UUID
}

func (w *recordingWorkflow) StartForEntity(_ context.Context, _ int64, _ string, entityRef uuid.UUID, _ int64) (int64, error) {
	w.starts = append(w.starts, entityRef)
	return int64(len(w.starts)), nil
}

func newTestService(repo *memoryRepo) (*Service, *recordingGL, *recordingWorkflow) {
	gl := &recordingGL{}
	wf := &recordingWorkflow{}
	svc := NewService(slog.Default(), repo, gl, wf, GLAccounts{Payable: 20, Expense: 50, Cash: 10})
	return svc, gl, wf
}

func invoiceInput() CreateInvoiceInput {
	return CreateInvoiceInput{
		OrgID:      1,
		Number:     "AP-2001",
		VendorID:   8,
		VendorName: "Globex",
		Total:      600,
		DueDate:    time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC),
		CreatedBy:  3,
	}
}

func TestCreateInvoiceStartsWorkflow(t *testing.T) {
	repo := newMemoryRepo()
	svc, gl, wf := newTestService(repo)

	inv, err := svc.CreateInvoice(context.Background(), invoiceInput())
	require.NoError(t, err)
	require.Equal(t, ApprovalPending, inv.Approval)
	require.Len(t, wf.starts, 1)
	require.Equal(t, inv.Ref, wf.starts[0])
	require.Len(t, gl.inputs, 1)
	require.Equal(t, "ap", gl.inputs[0].SourceModule)
}

func TestCreateInvoiceSurfacesAccrualFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc, gl, wf := newTestService(repo)
	gl.err = errors.New("ledger unavailable")

	_, err := svc.CreateInvoice(context.Background(), invoiceInput())
	require.ErrorContains(t, err, "ledger unavailable")
	require.Empty(t, wf.starts, "no approval run for an invoice missing its accrual entry")
}

func TestPaymentBlockedUntilApproved(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, invoiceInput())
	require.NoError(t, err)

	_, err = svc.PayInvoice(ctx, PaymentInput{OrgID: 1, InvoiceID: inv.ID, Amount: 600, CreatedBy: 3})
	require.ErrorIs(t, err, shared.ErrState)
}

func TestWorkflowApprovalUnblocksPayment(t *testing.T) {
	repo := newMemoryRepo()
	svc, gl, _ := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, invoiceInput())
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWorkflowOutcome(ctx, 1, inv.Ref, true))

	payment, err := svc.PayInvoice(ctx, PaymentInput{OrgID: 1, InvoiceID: inv.ID, Amount: 600, CreatedBy: 3})
	require.NoError(t, err)
	require.Equal(t, 600.0, payment.Amount)

	updated, err := repo.GetInvoice(ctx, 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)
	// Accrual entry plus disbursement entry.
	require.Len(t, gl.inputs, 2)
}

func TestWorkflowRejectionKeepsPaymentBlocked(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, invoiceInput())
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWorkflowOutcome(ctx, 1, inv.Ref, false))

	updated, err := repo.GetInvoice(ctx, 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, ApprovalRejected, updated.Approval)

	_, err = svc.PayInvoice(ctx, PaymentInput{OrgID: 1, InvoiceID: inv.ID, Amount: 100, CreatedBy: 3})
	require.ErrorIs(t, err, shared.ErrState)
}

func TestOverpaymentRefused(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, invoiceInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApplyWorkflowOutcome(ctx, 1, inv.Ref, true))

	_, err = svc.PayInvoice(ctx, PaymentInput{OrgID: 1, InvoiceID: inv.ID, Amount: 700, CreatedBy: 3})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAgingBucketsPayables(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	in := invoiceInput()
	_, err := svc.CreateInvoice(ctx, in)
	require.NoError(t, err)

	report, err := svc.Aging(ctx, 1, in.DueDate.AddDate(0, 0, 95))
	require.NoError(t, err)
	require.Equal(t, 600.0, report.Totals[aging.BucketOver90])
}
