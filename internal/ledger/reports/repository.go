package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregated posted activity for report builders.
type Repository interface {
	// Activity sums posted debits and credits per account. A zero from
	// means life-to-date; to is inclusive.
	Activity(ctx context.Context, orgID int64, from, to time.Time) ([]AccountActivity, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Activity(ctx context.Context, orgID int64, from, to time.Time) ([]AccountActivity, error) {
	query := `SELECT a.id, a.code, a.name, a.classification, a.normal_balance, a.is_cash,
       COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM gl_accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.je_id
WHERE a.org_id = $1 AND e.org_id = $1 AND e.status = 'POSTED' AND e.date <= $2`
	args := []any{orgID, to}
	if !from.IsZero() {
		query += ` AND e.date >= $3`
		args = append(args, from)
	}
	query += ` GROUP BY a.id, a.code, a.name, a.classification, a.normal_balance, a.is_cash ORDER BY a.code`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var acc AccountActivity
		if err := rows.Scan(&acc.AccountID, &acc.Code, &acc.Name, &acc.Classification, &acc.NormalBalance, &acc.IsCash, &acc.Debit, &acc.Credit); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}
