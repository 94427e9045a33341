// Package jobs holds the background task definitions and the asynq worker
// plumbing around them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// QueueDefault is the default queue name for background jobs.
const QueueDefault = "default"

// Task types processed by the worker.
const (
	// TaskAgingSnapshot persists the nightly AP and AR aging schedules.
	TaskAgingSnapshot = "aging:snapshot"
	// TaskBudgetVarianceSnapshot refreshes stored budget variance reports.
	TaskBudgetVarianceSnapshot = "budget:variance_snapshot"
	// TaskReportWarmup pre-builds the cached financial statements.
	TaskReportWarmup = "reports:warmup"
	// TaskLedgerIntegrity verifies posted debits equal posted credits.
	TaskLedgerIntegrity = "ledger:integrity"
)

// OrgPayload scopes a task to one org, or to every org when OrgID is zero.
type OrgPayload struct {
	OrgID int64 `json:"org_id"`
}

func newOrgTask(taskType string, payload OrgPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

// NewAgingSnapshotTask constructs an aging snapshot task.
func NewAgingSnapshotTask(orgID int64) (*asynq.Task, error) {
	return newOrgTask(TaskAgingSnapshot, OrgPayload{OrgID: orgID})
}

// NewBudgetVarianceSnapshotTask constructs a variance snapshot task.
func NewBudgetVarianceSnapshotTask(orgID int64) (*asynq.Task, error) {
	return newOrgTask(TaskBudgetVarianceSnapshot, OrgPayload{OrgID: orgID})
}

// NewReportWarmupTask constructs a report warmup task.
func NewReportWarmupTask(orgID int64) (*asynq.Task, error) {
	return newOrgTask(TaskReportWarmup, OrgPayload{OrgID: orgID})
}

// NewLedgerIntegrityTask constructs a ledger integrity task.
func NewLedgerIntegrityTask(orgID int64) (*asynq.Task, error) {
	return newOrgTask(TaskLedgerIntegrity, OrgPayload{OrgID: orgID})
}
