// Package workflow runs sequential approval chains. A template fixes an
// ordered list of steps, each requiring a role; an instance walks the steps
// strictly in order and ends in exactly one terminal status.
package workflow

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus enumerates the run lifecycle.
type InstanceStatus string

const (
	StatusInProgress InstanceStatus = "IN_PROGRESS"
	StatusApproved   InstanceStatus = "APPROVED"
	StatusRejected   InstanceStatus = "REJECTED"
	StatusCancelled  InstanceStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further decisions.
func (s InstanceStatus) Terminal() bool {
	return s != StatusInProgress
}

// ActionStatus enumerates per-step action states.
type ActionStatus string

const (
	ActionPending  ActionStatus = "PENDING"
	ActionApproved ActionStatus = "APPROVED"
	ActionRejected ActionStatus = "REJECTED"
)

// Decision names the verdict an approver hands down.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Step is one rung of an approval chain. Order is 1-indexed and dense.
type Step struct {
	ID         int64  `json:"id"`
	TemplateID int64  `json:"template_id"`
	Order      int    `json:"order"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

// Template is a reusable approval chain for one kind of resource. Steps are
// immutable once instances reference the template.
type Template struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Steps     []Step    `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instance is one run of a template against a business resource.
type Instance struct {
	ID           int64          `json:"id"`
	OrgID        int64          `json:"org_id"`
	TemplateID   int64          `json:"template_id"`
	ResourceType string         `json:"resource_type"`
	ResourceRef  uuid.UUID      `json:"resource_ref"`
	Status       InstanceStatus `json:"status"`
	CurrentStep  int            `json:"current_step"`
	SubmittedBy  int64          `json:"submitted_by"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
}

// StepAction records one step's state within an instance. All actions start
// PENDING when the instance is created.
type StepAction struct {
	ID         int64        `json:"id"`
	InstanceID int64        `json:"instance_id"`
	StepOrder  int          `json:"step_order"`
	Status     ActionStatus `json:"status"`
	ActorID    *int64       `json:"actor_id"`
	ActorRole  string       `json:"actor_role"`
	Comment    string       `json:"comment"`
	ActedAt    *time.Time   `json:"acted_at"`
}

// PendingItem is a running instance waiting on a given role.
type PendingItem struct {
	Instance Instance `json:"instance"`
	Step     Step     `json:"step"`
}
