package jobs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// resolveOrgs expands a payload org into the orgs a job should cover. A zero
// org means every org with a chart of accounts.
func resolveOrgs(ctx context.Context, pool *pgxpool.Pool, orgID int64) ([]int64, error) {
	if orgID != 0 {
		return []int64{orgID}, nil
	}
	rows, err := pool.Query(ctx, `SELECT DISTINCT org_id FROM gl_accounts ORDER BY org_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orgs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		orgs = append(orgs, id)
	}
	return orgs, rows.Err()
}
