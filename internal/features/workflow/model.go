package workflow

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkflowConfig statuses.
const (
	ConfigStatusActive   = "active"
	ConfigStatusInactive = "inactive"
	ConfigStatusDraft    = "draft"
)

// Step types.
const (
	StepTypeApproval     = "approval"
	StepTypeNotification = "notification"
)

// Assignment rule types.
const (
	AssignRole       = "role"
	AssignUser       = "user"
	AssignGroup      = "group"
	AssignRoundRobin = "round_robin"
)

// OnboardingRequest statuses. approved, rejected and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// AssignmentRule decides who acts on a step. EscalateTo names a role the
// step is reassigned to when its timeout elapses; ForceAdvance instead lets
// the sweeper approve the step as the system actor.
type AssignmentRule struct {
	Type         string `bson:"type" json:"type"` // role | user | group | round_robin
	RoleID       string `bson:"role_id,omitempty" json:"role_id,omitempty"`
	UserID       string `bson:"user_id,omitempty" json:"user_id,omitempty"`
	GroupID      string `bson:"group_id,omitempty" json:"group_id,omitempty"`
	TimeoutHours int    `bson:"timeout_hours,omitempty" json:"timeout_hours,omitempty"`
	EscalateTo   string `bson:"escalate_to,omitempty" json:"escalate_to,omitempty"`
	ForceAdvance bool   `bson:"force_advance,omitempty" json:"force_advance,omitempty"`
}

// WorkflowStep is one stage of a config. Conditions is a branch predicate in
// the same expression language rules use; a step whose predicate is false
// for a request's context is skipped unless Required.
type WorkflowStep struct {
	StepNumber     int                    `bson:"step_number" json:"step_number"`
	Name           string                 `bson:"name" json:"name"`
	StepType       string                 `bson:"step_type" json:"step_type"` // approval | notification
	AssignmentRule AssignmentRule         `bson:"assignment_rule" json:"assignment_rule"`
	Required       bool                   `bson:"required" json:"required"`
	CanSkip        bool                   `bson:"can_skip" json:"can_skip"`
	Conditions     string                 `bson:"conditions,omitempty" json:"conditions,omitempty"`
	StageSettings  map[string]interface{} `bson:"stage_settings,omitempty" json:"stage_settings,omitempty"`
}

// WorkflowConditions is a config's applicability filter. Empty lists are
// wildcards.
type WorkflowConditions struct {
	AgentTypes []string `bson:"agent_types,omitempty" json:"agent_types,omitempty"`
	RiskLevels []string `bson:"risk_levels,omitempty" json:"risk_levels,omitempty"`
	Priority   []string `bson:"priority,omitempty" json:"priority,omitempty"`
}

// WorkflowConfig defines an approval flow. At most one active config per
// tenant may be the default; the invariant is repaired on every write that
// sets is_default.
type WorkflowConfig struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID     string             `bson:"tenant_id" json:"tenant_id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Status       string             `bson:"status" json:"status"` // active | inactive | draft
	IsDefault    bool               `bson:"is_default" json:"is_default"`
	Steps        []WorkflowStep     `bson:"steps" json:"steps"`
	Conditions   WorkflowConditions `bson:"conditions,omitempty" json:"conditions,omitempty"`
	TriggerRules []string           `bson:"trigger_rules,omitempty" json:"trigger_rules,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// HistoryEntry records one transition of a request.
type HistoryEntry struct {
	StepNumber int       `bson:"step_number" json:"step_number"`
	Action     string    `bson:"action" json:"action"` // created | approved | rejected | cancelled | escalated | reassigned
	ActorID    string    `bson:"actor_id" json:"actor_id"`
	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// OnboardingRequest is one live instance of a workflow. Version guards every
// transition: a stale writer loses with ConflictError.
type OnboardingRequest struct {
	ID               primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	TenantID         string                 `bson:"tenant_id" json:"tenant_id"`
	WorkflowConfigID string                 `bson:"workflow_config_id" json:"workflow_config_id"`
	Status           string                 `bson:"status" json:"status"`
	CurrentStep      int                    `bson:"current_step" json:"current_step"`
	AssignedTo       string                 `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	AssignedRole     string                 `bson:"assigned_role,omitempty" json:"assigned_role,omitempty"`
	Context          map[string]interface{} `bson:"context" json:"context"`
	History          []HistoryEntry         `bson:"history" json:"history"`
	Version          int64                  `bson:"version" json:"version"`
	RequestedBy      string                 `bson:"requested_by" json:"requested_by"`
	ApprovedBy       string                 `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time             `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	RejectedBy       string                 `bson:"rejected_by,omitempty" json:"rejected_by,omitempty"`
	RejectedAt       *time.Time             `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`
	RejectionReason  string                 `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CancelledBy      string                 `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time             `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time              `bson:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether no further transitions are allowed.
func (r *OnboardingRequest) IsTerminal() bool {
	switch r.Status {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Assignment is the result of resolving an assignment rule. Either a single
// user, or a role queue with its current holders.
type Assignment struct {
	UserID     string   `json:"user_id,omitempty"`
	Role       string   `json:"role,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// TenantHealth is the read-only per-tenant consistency report.
type TenantHealth struct {
	TenantID   string         `json:"tenant_id"`
	HasDefault bool           `json:"has_default"`
	HasActive  bool           `json:"has_active"`
	Configs    []ConfigHealth `json:"configs"`
}

type ConfigHealth struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	IsDefault  bool   `json:"is_default"`
	StepCount  int    `json:"step_count"`
	Contiguous bool   `json:"contiguous"`
}
