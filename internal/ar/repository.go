package ar

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/aging"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrInvoiceNotFound signals a missing or cross-org invoice.
var ErrInvoiceNotFound = shared.NotFound("ar: invoice not found")

// RepositoryPort defines data access methods for AR.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, orgID, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error)
	ListOutstanding(ctx context.Context, orgID int64) ([]Invoice, error)
	// ApplyPayment persists the payment and the invoice's new paid total and
	// status in one transaction.
	ApplyPayment(ctx context.Context, payment Payment, newPaid float64, newStatus InvoiceStatus) (Payment, error)
	ListPayments(ctx context.Context, orgID, invoiceID int64) ([]Payment, error)
	SaveAgingSnapshot(ctx context.Context, orgID int64, report aging.Report) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

const invoiceColumns = `id, org_id, ref, number, customer_id, customer_name, total, paid, due_date, status, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Ref, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.Total, &inv.Paid, &inv.DueDate, &inv.Status, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO ar_invoices (org_id, ref, number, customer_id, customer_name, total, paid, due_date, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,0,$7,$8,$9) RETURNING `+invoiceColumns,
		inv.OrgID, inv.Ref, inv.Number, inv.CustomerID, inv.CustomerName, inv.Total, inv.DueDate, inv.Status, inv.CreatedBy)
	return scanInvoice(row)
}

func (r *repository) GetInvoice(ctx context.Context, orgID, id int64) (Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE org_id=$1 AND id=$2`, orgID, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func (r *repository) ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error) {
	return r.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE org_id=$1 ORDER BY due_date, id`, orgID)
}

func (r *repository) ListOutstanding(ctx context.Context, orgID int64) ([]Invoice, error) {
	return r.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE org_id=$1 AND status IN ('OPEN','PARTIALLY_PAID') ORDER BY due_date, id`, orgID)
}

func (r *repository) queryInvoices(ctx context.Context, query string, args ...any) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) ApplyPayment(ctx context.Context, payment Payment, newPaid float64, newStatus InvoiceStatus) (Payment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Payment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `INSERT INTO ar_payments (org_id, invoice_id, amount, paid_at, method, note, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		payment.OrgID, payment.InvoiceID, payment.Amount, payment.PaidAt, payment.Method, payment.Note, payment.CreatedBy)
	if err := row.Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return Payment{}, err
	}
	cmd, err := tx.Exec(ctx, `UPDATE ar_invoices SET paid=$3, status=$4, updated_at=NOW() WHERE org_id=$1 AND id=$2`,
		payment.OrgID, payment.InvoiceID, newPaid, newStatus)
	if err != nil {
		return Payment{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Payment{}, ErrInvoiceNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

func (r *repository) ListPayments(ctx context.Context, orgID, invoiceID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, org_id, invoice_id, amount, paid_at, method, note, created_by, created_at
FROM ar_payments WHERE org_id=$1 AND invoice_id=$2 ORDER BY paid_at, id`, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrgID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.Method, &p.Note, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) SaveAgingSnapshot(ctx context.Context, orgID int64, report aging.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO aging_snapshots (org_id, ledger, as_of, payload, taken_at) VALUES ($1,'ar',$2,$3,$4)`,
		orgID, report.AsOf, payload, time.Now())
	return err
}
