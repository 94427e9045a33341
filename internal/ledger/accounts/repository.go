package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	Get(ctx context.Context, orgID, id int64) (Account, error)
	List(ctx context.Context, orgID int64) ([]Account, error)
	SetActive(ctx context.Context, orgID, id int64, active bool) error
	// OwnBalances sums posted debits and credits per account.
	OwnBalances(ctx context.Context, orgID int64) (map[int64]float64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, org_id, code, name, classification, normal_balance, parent_id, is_cash, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Classification, &a.NormalBalance, &a.ParentID, &a.IsCash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO gl_accounts (org_id, code, name, classification, normal_balance, parent_id, is_cash, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+accountColumns,
		a.OrgID, a.Code, a.Name, a.Classification, a.NormalBalance, a.ParentID, a.IsCash, a.IsActive)
	inserted, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err, "uq_gl_accounts_org_code") {
			return Account{}, ledgershared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE gl_accounts SET name=$3, classification=$4, normal_balance=$5, parent_id=$6, is_cash=$7, updated_at=NOW()
WHERE org_id=$1 AND id=$2 RETURNING `+accountColumns,
		a.OrgID, a.ID, a.Name, a.Classification, a.NormalBalance, a.ParentID, a.IsCash)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ledgershared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return updated, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM gl_accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ledgershared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM gl_accounts WHERE org_id=$1 ORDER BY code ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) SetActive(ctx context.Context, orgID, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE gl_accounts SET is_active=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledgershared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) OwnBalances(ctx context.Context, orgID int64) (map[int64]float64, error) {
	rows, err := r.db.Query(ctx, `SELECT l.account_id, COALESCE(SUM(l.debit - l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.je_id
WHERE e.org_id = $1 AND e.status = 'POSTED'
GROUP BY l.account_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var net float64
		if err := rows.Scan(&id, &net); err != nil {
			return nil, err
		}
		out[id] = net
	}
	return out, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == constraint || strings.Contains(pgErr.Message, constraint)
	}
	return false
}
