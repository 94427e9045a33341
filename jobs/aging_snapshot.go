package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// AgingSnapshotJob persists the AP and AR aging schedules for each org.
type AgingSnapshotJob struct {
	ap      *ap.Service
	ar      *ar.Service
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAgingSnapshotJob constructs a job handler.
func NewAgingSnapshotJob(apSvc *ap.Service, arSvc *ar.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AgingSnapshotJob {
	return &AgingSnapshotJob{ap: apSvc, ar: arSvc, pool: pool, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *AgingSnapshotJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("aging_snapshot")
	var payload OrgPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	orgs, err := resolveOrgs(ctx, j.pool, payload.OrgID)
	if err != nil {
		return tracker.End(err)
	}
	for _, orgID := range orgs {
		if err := j.ap.SnapshotAging(ctx, orgID); err != nil {
			j.logger.Error("ap aging snapshot", slog.Int64("org_id", orgID), slog.Any("error", err))
			return tracker.End(err)
		}
		if err := j.ar.SnapshotAging(ctx, orgID); err != nil {
			j.logger.Error("ar aging snapshot", slog.Int64("org_id", orgID), slog.Any("error", err))
			return tracker.End(err)
		}
	}
	j.logger.Info("aging snapshots taken", slog.Int("orgs", len(orgs)))
	return tracker.End(nil)
}
