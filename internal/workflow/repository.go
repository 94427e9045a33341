package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Sentinel lookups.
var (
	ErrTemplateNotFound = shared.NotFound("workflow: template not found")
	ErrInstanceNotFound = shared.NotFound("workflow: instance not found")
	ErrDuplicateCode    = shared.Conflict("workflow: template code already exists")
	ErrDuplicateActive  = shared.Conflict("workflow: resource already has an active instance")
	ErrStaleStep        = shared.State("workflow: step already processed")
)

// RepositoryPort defines data access methods for workflows.
type RepositoryPort interface {
	CreateTemplate(ctx context.Context, tpl Template) (Template, error)
	GetTemplate(ctx context.Context, orgID, id int64) (Template, error)
	GetTemplateByCode(ctx context.Context, orgID int64, code string) (Template, error)
	ListTemplates(ctx context.Context, orgID int64) ([]Template, error)
	// CreateInstance persists the instance and one PENDING action per
	// template step in a single transaction. An active instance already
	// bound to the same resource is ErrDuplicateActive.
	CreateInstance(ctx context.Context, inst Instance, stepCount int) (Instance, error)
	GetInstance(ctx context.Context, orgID, id int64) (Instance, error)
	// ApplyDecision records one approval decision in a single transaction:
	// the instance either advances by one step (final nil) or lands on the
	// terminal status *final, and the step action at expectedStep flips from
	// PENDING in the same commit. Both updates are guarded by the expected
	// step; a stale expectation returns ErrStaleStep and nothing persists.
	ApplyDecision(ctx context.Context, orgID, id int64, expectedStep int, final *InstanceStatus, action ActionRecord) error
	// CancelInstance moves an IN_PROGRESS instance to CANCELLED regardless
	// of the current step.
	CancelInstance(ctx context.Context, orgID, id int64, at time.Time) error
	ListActions(ctx context.Context, instanceID int64) ([]StepAction, error)
	ListPendingForRole(ctx context.Context, orgID int64, role string) ([]PendingItem, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

func (r *repository) CreateTemplate(ctx context.Context, tpl Template) (Template, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Template{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `INSERT INTO workflow_templates (org_id, code, name, active) VALUES ($1,$2,$3,$4)
ON CONFLICT (org_id, code) DO NOTHING RETURNING id, created_at, updated_at`, tpl.OrgID, tpl.Code, tpl.Name, tpl.Active)
	if err := row.Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrDuplicateCode
		}
		return Template{}, err
	}
	for i := range tpl.Steps {
		tpl.Steps[i].TemplateID = tpl.ID
		tpl.Steps[i].Order = i + 1
		row := tx.QueryRow(ctx, `INSERT INTO workflow_steps (template_id, step_order, name, role) VALUES ($1,$2,$3,$4) RETURNING id`,
			tpl.ID, tpl.Steps[i].Order, tpl.Steps[i].Name, tpl.Steps[i].Role)
		if err := row.Scan(&tpl.Steps[i].ID); err != nil {
			return Template{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

const templateColumns = `id, org_id, code, name, active, created_at, updated_at`

func (r *repository) GetTemplate(ctx context.Context, orgID, id int64) (Template, error) {
	row := r.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM workflow_templates WHERE org_id=$1 AND id=$2`, orgID, id)
	return r.scanTemplateWithSteps(ctx, row)
}

func (r *repository) GetTemplateByCode(ctx context.Context, orgID int64, code string) (Template, error) {
	row := r.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM workflow_templates WHERE org_id=$1 AND code=$2`, orgID, code)
	return r.scanTemplateWithSteps(ctx, row)
}

func (r *repository) scanTemplateWithSteps(ctx context.Context, row pgx.Row) (Template, error) {
	var tpl Template
	if err := row.Scan(&tpl.ID, &tpl.OrgID, &tpl.Code, &tpl.Name, &tpl.Active, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	steps, err := r.loadSteps(ctx, tpl.ID)
	if err != nil {
		return Template{}, err
	}
	tpl.Steps = steps
	return tpl, nil
}

func (r *repository) loadSteps(ctx context.Context, templateID int64) ([]Step, error) {
	rows, err := r.db.Query(ctx, `SELECT id, template_id, step_order, name, role FROM workflow_steps WHERE template_id=$1 ORDER BY step_order`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []Step
	for rows.Next() {
		var s Step
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.Order, &s.Name, &s.Role); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func (r *repository) ListTemplates(ctx context.Context, orgID int64) ([]Template, error) {
	rows, err := r.db.Query(ctx, `SELECT `+templateColumns+` FROM workflow_templates WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var templates []Template
	for rows.Next() {
		var tpl Template
		if err := rows.Scan(&tpl.ID, &tpl.OrgID, &tpl.Code, &tpl.Name, &tpl.Active, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range templates {
		steps, err := r.loadSteps(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].Steps = steps
	}
	return templates, nil
}

const instanceColumns = `id, org_id, template_id, resource_type, resource_ref, status, current_step, submitted_by, started_at, completed_at`

func scanInstance(row pgx.Row) (Instance, error) {
	var inst Instance
	err := row.Scan(&inst.ID, &inst.OrgID, &inst.TemplateID, &inst.ResourceType, &inst.ResourceRef, &inst.Status, &inst.CurrentStep, &inst.SubmittedBy, &inst.StartedAt, &inst.CompletedAt)
	return inst, err
}

func (r *repository) CreateInstance(ctx context.Context, inst Instance, stepCount int) (Instance, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Instance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing int64
	err = tx.QueryRow(ctx, `SELECT id FROM workflow_instances
WHERE org_id=$1 AND resource_type=$2 AND resource_ref=$3 AND status='IN_PROGRESS'`,
		inst.OrgID, inst.ResourceType, inst.ResourceRef).Scan(&existing)
	if err == nil {
		return Instance{}, ErrDuplicateActive
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Instance{}, err
	}

	row := tx.QueryRow(ctx, `INSERT INTO workflow_instances (org_id, template_id, resource_type, resource_ref, status, current_step, submitted_by, started_at)
VALUES ($1,$2,$3,$4,$5,1,$6,$7) RETURNING `+instanceColumns,
		inst.OrgID, inst.TemplateID, inst.ResourceType, inst.ResourceRef, inst.Status, inst.SubmittedBy, inst.StartedAt)
	created, err := scanInstance(row)
	if err != nil {
		return Instance{}, err
	}
	for order := 1; order <= stepCount; order++ {
		if _, err := tx.Exec(ctx, `INSERT INTO workflow_step_actions (instance_id, step_order, status) VALUES ($1,$2,'PENDING')`,
			created.ID, order); err != nil {
			return Instance{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Instance{}, err
	}
	return created, nil
}

func (r *repository) GetInstance(ctx context.Context, orgID, id int64) (Instance, error) {
	row := r.db.QueryRow(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE org_id=$1 AND id=$2`, orgID, id)
	inst, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Instance{}, ErrInstanceNotFound
	}
	return inst, err
}

// ActionRecord carries the per-step outcome written alongside the instance
// update in ApplyDecision.
type ActionRecord struct {
	Status    ActionStatus
	ActorID   int64
	ActorRole string
	Comment   string
	At        time.Time
}

func (r *repository) ApplyDecision(ctx context.Context, orgID, id int64, expectedStep int, final *InstanceStatus, action ActionRecord) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cmd pgconn.CommandTag
	if final == nil {
		cmd, err = tx.Exec(ctx, `UPDATE workflow_instances SET current_step=current_step+1
WHERE org_id=$1 AND id=$2 AND status='IN_PROGRESS' AND current_step=$3`, orgID, id, expectedStep)
	} else {
		cmd, err = tx.Exec(ctx, `UPDATE workflow_instances SET status=$4, completed_at=$5
WHERE org_id=$1 AND id=$2 AND status='IN_PROGRESS' AND current_step=$3`, orgID, id, expectedStep, *final, action.At)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStep
	}

	cmd, err = tx.Exec(ctx, `UPDATE workflow_step_actions SET status=$3, actor_id=$4, actor_role=$5, comment=$6, acted_at=$7
WHERE instance_id=$1 AND step_order=$2 AND status='PENDING'`, id, expectedStep, action.Status, action.ActorID, action.ActorRole, action.Comment, action.At)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStep
	}
	return tx.Commit(ctx)
}

func (r *repository) CancelInstance(ctx context.Context, orgID, id int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE workflow_instances SET status='CANCELLED', completed_at=$3
WHERE org_id=$1 AND id=$2 AND status='IN_PROGRESS'`, orgID, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStep
	}
	return nil
}

func (r *repository) ListActions(ctx context.Context, instanceID int64) ([]StepAction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, instance_id, step_order, status, actor_id, actor_role, comment, acted_at
FROM workflow_step_actions WHERE instance_id=$1 ORDER BY step_order`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StepAction
	for rows.Next() {
		var action StepAction
		if err := rows.Scan(&action.ID, &action.InstanceID, &action.StepOrder, &action.Status, &action.ActorID, &action.ActorRole, &action.Comment, &action.ActedAt); err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, rows.Err()
}

// ListPendingForRole matches the current step's role by exact string
// comparison. No hierarchy or prefix matching is applied.
func (r *repository) ListPendingForRole(ctx context.Context, orgID int64, role string) ([]PendingItem, error) {
	rows, err := r.db.Query(ctx, `SELECT i.id, i.org_id, i.template_id, i.resource_type, i.resource_ref, i.status, i.current_step, i.submitted_by, i.started_at, i.completed_at,
       s.id, s.template_id, s.step_order, s.name, s.role
FROM workflow_instances i
JOIN workflow_steps s ON s.template_id = i.template_id AND s.step_order = i.current_step
WHERE i.org_id=$1 AND i.status='IN_PROGRESS' AND s.role=$2
ORDER BY i.started_at, i.id`, orgID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PendingItem
	for rows.Next() {
		var item PendingItem
		if err := rows.Scan(&item.Instance.ID, &item.Instance.OrgID, &item.Instance.TemplateID, &item.Instance.ResourceType, &item.Instance.ResourceRef, &item.Instance.Status, &item.Instance.CurrentStep, &item.Instance.SubmittedBy, &item.Instance.StartedAt, &item.Instance.CompletedAt,
			&item.Step.ID, &item.Step.TemplateID, &item.Step.Order, &item.Step.Name, &item.Step.Role); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
