package expenses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrReportNotFound signals a missing or cross-org report.
var ErrReportNotFound = shared.NotFound("expenses: report not found")

// RepositoryPort defines data access methods for expense reports.
type RepositoryPort interface {
	CreateReport(ctx context.Context, report Report) (Report, error)
	GetReport(ctx context.Context, orgID, id int64) (Report, error)
	GetReportByRef(ctx context.Context, orgID int64, ref uuid.UUID) (Report, error)
	ListReports(ctx context.Context, orgID int64) ([]Report, error)
	SetStatus(ctx context.Context, orgID, id int64, status ReportStatus) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

const reportColumns = `id, org_id, ref, number, employee_id, department_id, status, total, submitted_at, created_at, updated_at`

func scanReport(row pgx.Row) (Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.OrgID, &rep.Ref, &rep.Number, &rep.EmployeeID, &rep.DepartmentID, &rep.Status, &rep.Total, &rep.SubmittedAt, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}

func (r *repository) CreateReport(ctx context.Context, report Report) (Report, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `INSERT INTO expense_reports (org_id, ref, number, employee_id, department_id, status, total, submitted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+reportColumns,
		report.OrgID, report.Ref, report.Number, report.EmployeeID, report.DepartmentID, report.Status, report.Total, report.SubmittedAt)
	created, err := scanReport(row)
	if err != nil {
		return Report{}, err
	}
	for i := range report.Lines {
		line := &report.Lines[i]
		line.ReportID = created.ID
		row := tx.QueryRow(ctx, `INSERT INTO expense_lines (report_id, account_id, category, amount, incurred_at, memo)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			created.ID, line.AccountID, line.Category, line.Amount, line.IncurredAt, line.Memo)
		if err := row.Scan(&line.ID); err != nil {
			return Report{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Report{}, err
	}
	created.Lines = report.Lines
	return created, nil
}

func (r *repository) GetReport(ctx context.Context, orgID, id int64) (Report, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM expense_reports WHERE org_id=$1 AND id=$2`, orgID, id)
	return r.withLines(ctx, row)
}

func (r *repository) GetReportByRef(ctx context.Context, orgID int64, ref uuid.UUID) (Report, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM expense_reports WHERE org_id=$1 AND ref=$2`, orgID, ref)
	return r.withLines(ctx, row)
}

func (r *repository) withLines(ctx context.Context, row pgx.Row) (Report, error) {
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, ErrReportNotFound
		}
		return Report{}, err
	}
	lines, err := r.loadLines(ctx, rep.ID)
	if err != nil {
		return Report{}, err
	}
	rep.Lines = lines
	return rep, nil
}

func (r *repository) loadLines(ctx context.Context, reportID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx, `SELECT id, report_id, account_id, category, amount, incurred_at, memo
FROM expense_lines WHERE report_id=$1 ORDER BY id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.ReportID, &line.AccountID, &line.Category, &line.Amount, &line.IncurredAt, &line.Memo); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) ListReports(ctx context.Context, orgID int64) ([]Report, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reportColumns+` FROM expense_reports WHERE org_id=$1 ORDER BY submitted_at DESC, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *repository) SetStatus(ctx context.Context, orgID, id int64, status ReportStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE expense_reports SET status=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
