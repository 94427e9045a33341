package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// TerminalListener is invoked after an instance reaches a terminal status.
// The instance carries the resource type and ref the caller bound at start.
type TerminalListener func(ctx context.Context, inst Instance, finalStatus InstanceStatus)

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service owns workflow rules: strict step order, exact role match, and a
// single terminal outcome per run.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditPort
	now    func() time.Time

	mu        sync.RWMutex
	listeners []TerminalListener
}

// NewService builds the workflow service.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// OnTerminal registers a listener fired after every terminal transition.
// Listeners run synchronously in registration order, after the state change
// is durable. The resource's own status flip happens here, not inside the
// engine.
func (s *Service) OnTerminal(listener TerminalListener) {
	if listener == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
}

func (s *Service) notifyTerminal(ctx context.Context, inst Instance) {
	s.mu.RLock()
	listeners := append([]TerminalListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, listener := range listeners {
		listener(ctx, inst, inst.Status)
	}
}

// StepInput describes one step of a new template.
type StepInput struct {
	Name string
	Role string
}

// TemplateInput groups fields for a new approval chain.
type TemplateInput struct {
	OrgID   int64
	Code    string
	Name    string
	Steps   []StepInput
	ActorID int64
}

// CreateTemplate validates and stores an approval chain.
func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (Template, error) {
	if in.OrgID == 0 {
		return Template{}, internalshared.Validation("workflow: org required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return Template{}, internalshared.Validation("workflow: code required")
	}
	if len(in.Steps) == 0 {
		return Template{}, internalshared.Validation("workflow: at least one step required")
	}
	tpl := Template{OrgID: in.OrgID, Code: strings.TrimSpace(in.Code), Name: strings.TrimSpace(in.Name), Active: true}
	for i, step := range in.Steps {
		if strings.TrimSpace(step.Role) == "" {
			return Template{}, internalshared.Validation(fmt.Sprintf("workflow: step %d missing role", i+1))
		}
		tpl.Steps = append(tpl.Steps, Step{Order: i + 1, Name: strings.TrimSpace(step.Name), Role: strings.TrimSpace(step.Role)})
	}
	created, err := s.repo.CreateTemplate(ctx, tpl)
	if err != nil {
		return Template{}, err
	}
	s.recordAudit(ctx, in.OrgID, in.ActorID, "workflow.template.create", created.ID, map[string]any{"code": created.Code, "steps": len(created.Steps)})
	return created, nil
}

// ListTemplates returns the org's approval chains.
func (s *Service) ListTemplates(ctx context.Context, orgID int64) ([]Template, error) {
	return s.repo.ListTemplates(ctx, orgID)
}

// StartInput groups fields for launching a run.
type StartInput struct {
	OrgID        int64
	Template     string
	ResourceType string
	ResourceRef  uuid.UUID
	SubmittedBy  int64
}

// Start launches a run at step one with every step action PENDING.
func (s *Service) Start(ctx context.Context, in StartInput) (Instance, error) {
	if in.OrgID == 0 {
		return Instance{}, internalshared.Validation("workflow: org required")
	}
	tpl, err := s.repo.GetTemplateByCode(ctx, in.OrgID, in.Template)
	if err != nil {
		return Instance{}, err
	}
	if !tpl.Active {
		return Instance{}, internalshared.State(fmt.Sprintf("workflow: template %s is inactive", tpl.Code))
	}
	if len(tpl.Steps) == 0 {
		return Instance{}, internalshared.State("workflow: template has no steps")
	}
	inst, err := s.repo.CreateInstance(ctx, Instance{
		OrgID:        in.OrgID,
		TemplateID:   tpl.ID,
		ResourceType: in.ResourceType,
		ResourceRef:  in.ResourceRef,
		Status:       StatusInProgress,
		SubmittedBy:  in.SubmittedBy,
		StartedAt:    s.now(),
	}, len(tpl.Steps))
	if err != nil {
		return Instance{}, err
	}
	s.recordAudit(ctx, in.OrgID, in.SubmittedBy, "workflow.start", inst.ID, map[string]any{"template": tpl.Code, "resource": in.ResourceType})
	return inst, nil
}

// StartForEntity adapts Start for module ports that track resources by ref.
func (s *Service) StartForEntity(ctx context.Context, orgID int64, templateCode string, resourceRef uuid.UUID, submittedBy int64) (int64, error) {
	inst, err := s.Start(ctx, StartInput{
		OrgID:        orgID,
		Template:     templateCode,
		ResourceType: templateCode,
		ResourceRef:  resourceRef,
		SubmittedBy:  submittedBy,
	})
	if err != nil {
		return 0, err
	}
	return inst.ID, nil
}

// ApprovalInput groups fields for processing one step.
type ApprovalInput struct {
	OrgID      int64
	InstanceID int64
	StepOrder  int
	ActorID    int64
	ActorRole  string
	Decision   Decision
	Comment    string
}

// ProcessApproval applies one actor's verdict to the current step. The actor
// must name the step it believes is current; a stale step order is refused.
// The actor's role must equal the step's role exactly. Approval of the final
// step or any rejection is terminal and notifies listeners.
func (s *Service) ProcessApproval(ctx context.Context, in ApprovalInput) (Instance, error) {
	inst, err := s.repo.GetInstance(ctx, in.OrgID, in.InstanceID)
	if err != nil {
		return Instance{}, err
	}
	if inst.Status.Terminal() {
		return Instance{}, internalshared.State(fmt.Sprintf("workflow: instance is already %s", inst.Status))
	}
	tpl, err := s.repo.GetTemplate(ctx, in.OrgID, inst.TemplateID)
	if err != nil {
		return Instance{}, err
	}
	if inst.CurrentStep < 1 || inst.CurrentStep > len(tpl.Steps) {
		return Instance{}, internalshared.State("workflow: current step outside template")
	}
	if in.StepOrder != inst.CurrentStep {
		return Instance{}, internalshared.Validation(fmt.Sprintf("workflow: step %d is not current, instance is at step %d", in.StepOrder, inst.CurrentStep))
	}
	step := tpl.Steps[inst.CurrentStep-1]
	if in.ActorRole != step.Role {
		return Instance{}, internalshared.Validation(fmt.Sprintf("workflow: step %d requires role %q, actor has %q", step.Order, step.Role, in.ActorRole))
	}

	action := ActionRecord{
		ActorID:   in.ActorID,
		ActorRole: in.ActorRole,
		Comment:   in.Comment,
		At:        s.now(),
	}
	var final *InstanceStatus
	switch in.Decision {
	case DecisionApprove:
		action.Status = ActionApproved
		if inst.CurrentStep == len(tpl.Steps) {
			approved := StatusApproved
			final = &approved
		}
	case DecisionReject:
		action.Status = ActionRejected
		rejected := StatusRejected
		final = &rejected
	default:
		return Instance{}, internalshared.Validation(fmt.Sprintf("workflow: unknown decision %q", in.Decision))
	}
	// Instance advance and step action land in one transaction so a lost
	// action write cannot leave the run ahead of its audit trail.
	if err := s.repo.ApplyDecision(ctx, in.OrgID, inst.ID, inst.CurrentStep, final, action); err != nil {
		return Instance{}, err
	}
	s.recordAudit(ctx, in.OrgID, in.ActorID, "workflow."+string(in.Decision), inst.ID, map[string]any{"step": step.Order})

	updated, err := s.repo.GetInstance(ctx, in.OrgID, inst.ID)
	if err != nil {
		return Instance{}, err
	}
	if updated.Status.Terminal() {
		s.notifyTerminal(ctx, updated)
	}
	return updated, nil
}

// Cancel lets the submitter withdraw an in-progress run.
func (s *Service) Cancel(ctx context.Context, orgID, instanceID, actorID int64) (Instance, error) {
	inst, err := s.repo.GetInstance(ctx, orgID, instanceID)
	if err != nil {
		return Instance{}, err
	}
	if inst.Status.Terminal() {
		return Instance{}, internalshared.State(fmt.Sprintf("workflow: instance is already %s", inst.Status))
	}
	if inst.SubmittedBy != actorID {
		return Instance{}, internalshared.Validation("workflow: only the submitter may cancel")
	}
	if err := s.repo.CancelInstance(ctx, orgID, inst.ID, s.now()); err != nil {
		return Instance{}, err
	}
	s.recordAudit(ctx, orgID, actorID, "workflow.cancel", inst.ID, nil)
	updated, err := s.repo.GetInstance(ctx, orgID, inst.ID)
	if err != nil {
		return Instance{}, err
	}
	s.notifyTerminal(ctx, updated)
	return updated, nil
}

// Get loads an instance with its step actions.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Instance, []StepAction, error) {
	inst, err := s.repo.GetInstance(ctx, orgID, id)
	if err != nil {
		return Instance{}, nil, err
	}
	actions, err := s.repo.ListActions(ctx, inst.ID)
	if err != nil {
		return Instance{}, nil, err
	}
	return inst, actions, nil
}

// PendingForRole lists runs waiting on the given role, matched exactly.
func (s *Service) PendingForRole(ctx context.Context, orgID int64, role string) ([]PendingItem, error) {
	if strings.TrimSpace(role) == "" {
		return nil, internalshared.Validation("workflow: role required")
	}
	return s.repo.ListPendingForRole(ctx, orgID, role)
}

func (s *Service) recordAudit(ctx context.Context, orgID, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		OrgID:    orgID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "workflow_instance",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
