package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/budget"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// BudgetVarianceJob refreshes stored variance reports for each org.
type BudgetVarianceJob struct {
	service *budget.Service
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewBudgetVarianceJob constructs a job handler.
func NewBudgetVarianceJob(service *budget.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *BudgetVarianceJob {
	return &BudgetVarianceJob{service: service, pool: pool, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *BudgetVarianceJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("budget_variance_snapshot")
	var payload OrgPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	orgs, err := resolveOrgs(ctx, j.pool, payload.OrgID)
	if err != nil {
		return tracker.End(err)
	}
	for _, orgID := range orgs {
		if err := j.service.SnapshotAll(ctx, orgID); err != nil {
			j.logger.Error("budget variance snapshot", slog.Int64("org_id", orgID), slog.Any("error", err))
			return tracker.End(err)
		}
	}
	j.logger.Info("budget variance snapshots taken", slog.Int("orgs", len(orgs)))
	return tracker.End(nil)
}
