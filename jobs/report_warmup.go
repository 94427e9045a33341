package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/ledger/reports"
)

// ReportWarmupJob pre-builds the cached financial statements for each org so
// the first morning request is served hot.
type ReportWarmupJob struct {
	service *reports.Service
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewReportWarmupJob constructs a job handler.
func NewReportWarmupJob(service *reports.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{service: service, pool: pool, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ReportWarmupJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("report_warmup")
	var payload OrgPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	orgs, err := resolveOrgs(ctx, j.pool, payload.OrgID)
	if err != nil {
		return tracker.End(err)
	}
	for _, orgID := range orgs {
		if err := j.service.Warm(ctx, orgID); err != nil {
			j.logger.Error("report warmup", slog.Int64("org_id", orgID), slog.Any("error", err))
			return tracker.End(err)
		}
	}
	j.logger.Info("report caches warmed", slog.Int("orgs", len(orgs)))
	return tracker.End(nil)
}
