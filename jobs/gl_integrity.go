package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
)

// LedgerIntegrityJob verifies that every org's posted ledger still balances:
// total posted debits must equal total posted credits within tolerance. A
// drift here means an invariant was violated somewhere upstream, so the job
// fails loudly instead of logging and moving on.
type LedgerIntegrityJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob constructs a job handler.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("ledger_integrity")
	var payload OrgPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	orgs, err := resolveOrgs(ctx, j.pool, payload.OrgID)
	if err != nil {
		return tracker.End(err)
	}
	for _, orgID := range orgs {
		var debit, credit float64
		err := j.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.je_id
WHERE e.org_id = $1 AND e.status = 'POSTED'`, orgID).Scan(&debit, &credit)
		if err != nil {
			return tracker.End(err)
		}
		if math.Abs(debit-credit) > journals.BalanceTolerance {
			j.logger.Error("ledger out of balance",
				slog.Int64("org_id", orgID),
				slog.Float64("debit", debit),
				slog.Float64("credit", credit))
			return tracker.End(fmt.Errorf("ledger integrity: org %d posted debits %.2f != credits %.2f", orgID, debit, credit))
		}
	}
	j.logger.Info("ledger integrity verified", slog.Int("orgs", len(orgs)))
	return tracker.End(nil)
}
