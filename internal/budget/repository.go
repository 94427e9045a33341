package budget

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var (
	// ErrDepartmentNotFound signals a missing or cross-org department.
	ErrDepartmentNotFound = shared.NotFound("budget: department not found")
	// ErrBudgetNotFound signals a missing or cross-org budget.
	ErrBudgetNotFound = shared.NotFound("budget: budget not found")
	// ErrDuplicateBudget signals a second budget for the same department
	// and fiscal year.
	ErrDuplicateBudget = shared.Conflict("budget: department already has a budget for that fiscal year")
)

// RepositoryPort defines data access methods for departments and budgets.
type RepositoryPort interface {
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	GetDepartment(ctx context.Context, orgID, id int64) (Department, error)
	ListDepartments(ctx context.Context, orgID int64) ([]Department, error)
	CreateBudget(ctx context.Context, b Budget) (Budget, error)
	GetBudget(ctx context.Context, orgID, id int64) (Budget, error)
	GetBudgetByYear(ctx context.Context, orgID, departmentID int64, fiscalYear int) (Budget, error)
	ListBudgets(ctx context.Context, orgID int64) ([]Budget, error)
	// DepartmentActuals sums posted activity per account over the window,
	// restricted to lines tagged with the department dimension and signed
	// toward each account's normal side.
	DepartmentActuals(ctx context.Context, orgID, departmentID int64, from, to time.Time) ([]ActualRow, error)
	// MonthlySpend buckets the department's posted spend by calendar month.
	MonthlySpend(ctx context.Context, orgID, departmentID int64, from, to time.Time) ([]MonthlySpend, error)
	SaveVarianceSnapshot(ctx context.Context, orgID int64, report VarianceReport) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

func (r *repository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO departments (org_id, name, headcount)
VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`, d.OrgID, d.Name, d.Headcount)
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Department{}, err
	}
	return d, nil
}

func (r *repository) GetDepartment(ctx context.Context, orgID, id int64) (Department, error) {
	row := r.db.QueryRow(ctx, `SELECT id, org_id, name, headcount, created_at, updated_at
FROM departments WHERE org_id=$1 AND id=$2`, orgID, id)
	var d Department
	if err := row.Scan(&d.ID, &d.OrgID, &d.Name, &d.Headcount, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, ErrDepartmentNotFound
		}
		return Department{}, err
	}
	return d, nil
}

func (r *repository) ListDepartments(ctx context.Context, orgID int64) ([]Department, error) {
	rows, err := r.db.Query(ctx, `SELECT id, org_id, name, headcount, created_at, updated_at
FROM departments WHERE org_id=$1 ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.OrgID, &d.Name, &d.Headcount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) CreateBudget(ctx context.Context, b Budget) (Budget, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Budget{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `INSERT INTO budgets (org_id, department_id, fiscal_year, created_by)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`,
		b.OrgID, b.DepartmentID, b.FiscalYear, b.CreatedBy)
	if err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_budgets_department_year" {
			return Budget{}, ErrDuplicateBudget
		}
		return Budget{}, err
	}
	for i := range b.Lines {
		b.Lines[i].BudgetID = b.ID
		line := &b.Lines[i]
		row := tx.QueryRow(ctx, `INSERT INTO budget_lines (budget_id, account_id, q1, q2, q3, q4, total)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			b.ID, line.AccountID, line.Q1, line.Q2, line.Q3, line.Q4, line.Total)
		if err := row.Scan(&line.ID); err != nil {
			return Budget{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Budget{}, err
	}
	return b, nil
}

const budgetColumns = `id, org_id, department_id, fiscal_year, created_by, created_at, updated_at`

func (r *repository) GetBudget(ctx context.Context, orgID, id int64) (Budget, error) {
	row := r.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE org_id=$1 AND id=$2`, orgID, id)
	return r.scanBudget(ctx, row)
}

func (r *repository) GetBudgetByYear(ctx context.Context, orgID, departmentID int64, fiscalYear int) (Budget, error) {
	row := r.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets
WHERE org_id=$1 AND department_id=$2 AND fiscal_year=$3`, orgID, departmentID, fiscalYear)
	return r.scanBudget(ctx, row)
}

func (r *repository) scanBudget(ctx context.Context, row pgx.Row) (Budget, error) {
	var b Budget
	if err := row.Scan(&b.ID, &b.OrgID, &b.DepartmentID, &b.FiscalYear, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, ErrBudgetNotFound
		}
		return Budget{}, err
	}
	lines, err := r.loadLines(ctx, b.ID)
	if err != nil {
		return Budget{}, err
	}
	b.Lines = lines
	return b, nil
}

func (r *repository) loadLines(ctx context.Context, budgetID int64) ([]BudgetLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, budget_id, account_id, q1, q2, q3, q4, total
FROM budget_lines WHERE budget_id=$1 ORDER BY id`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []BudgetLine
	for rows.Next() {
		var line BudgetLine
		if err := rows.Scan(&line.ID, &line.BudgetID, &line.AccountID, &line.Q1, &line.Q2, &line.Q3, &line.Q4, &line.Total); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) ListBudgets(ctx context.Context, orgID int64) ([]Budget, error) {
	rows, err := r.db.Query(ctx, `SELECT `+budgetColumns+` FROM budgets
WHERE org_id=$1 ORDER BY fiscal_year DESC, department_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var budgets []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.OrgID, &b.DepartmentID, &b.FiscalYear, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *repository) DepartmentActuals(ctx context.Context, orgID, departmentID int64, from, to time.Time) ([]ActualRow, error) {
	rows, err := r.db.Query(ctx, `SELECT a.id, a.code, a.name,
       COALESCE(SUM(CASE WHEN a.normal_balance = 'CREDIT' THEN l.credit - l.debit ELSE l.debit - l.credit END), 0)
FROM gl_accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.je_id
WHERE a.org_id = $1 AND e.org_id = $1 AND l.dim_department_id = $2
  AND e.status = 'POSTED' AND e.date >= $3 AND e.date <= $4
GROUP BY a.id, a.code, a.name ORDER BY a.code`, orgID, departmentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActualRow
	for rows.Next() {
		var row ActualRow
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) MonthlySpend(ctx context.Context, orgID, departmentID int64, from, to time.Time) ([]MonthlySpend, error) {
	rows, err := r.db.Query(ctx, `SELECT to_char(e.date, 'YYYY-MM'),
       COALESCE(SUM(l.debit - l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.je_id
JOIN gl_accounts a ON a.id = l.account_id
WHERE e.org_id = $1 AND l.dim_department_id = $2 AND a.classification = 'EXPENSE'
  AND e.status = 'POSTED' AND e.date >= $3 AND e.date <= $4
GROUP BY 1 ORDER BY 1`, orgID, departmentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlySpend
	for rows.Next() {
		var row MonthlySpend
		if err := rows.Scan(&row.Month, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) SaveVarianceSnapshot(ctx context.Context, orgID int64, report VarianceReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO budget_variance_snapshots (org_id, budget_id, payload, generated_at) VALUES ($1,$2,$3,$4)`,
		orgID, report.BudgetID, payload, report.GeneratedAt)
	return err
}
