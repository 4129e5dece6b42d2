package rule

import (
	"time"

	"go-onboard/pkg/expr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rule is a prioritized condition -> action pair evaluated against a caller
// supplied context. Rules are compiled at create/update time; the engine
// never mutates them.
type Rule struct {
	ID                  primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	TenantID            string                 `bson:"tenant_id" json:"tenant_id"`
	RuleID              string                 `bson:"rule_id" json:"rule_id"` // unique per tenant
	Name                string                 `bson:"name" json:"name"`
	ConditionExpression string                 `bson:"condition_expression" json:"condition_expression"`
	ActionExpression    string                 `bson:"action_expression,omitempty" json:"action_expression,omitempty"`
	ActionType          string                 `bson:"action_type,omitempty" json:"action_type,omitempty"`
	ActionConfig        map[string]interface{} `bson:"action_config,omitempty" json:"action_config,omitempty"`
	RuleType            string                 `bson:"rule_type" json:"rule_type"`
	ApplicableEntities  []string               `bson:"applicable_entities" json:"applicable_entities"` // empty = wildcard
	ApplicableScreens   []string               `bson:"applicable_screens" json:"applicable_screens"`   // empty = wildcard
	Priority            int                    `bson:"priority" json:"priority"`                       // lower = higher precedence
	IsActive            bool                   `bson:"is_active" json:"is_active"`
	IsAutomatic         bool                   `bson:"is_automatic" json:"is_automatic"`
	CreatedAt           time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time              `bson:"updated_at" json:"updated_at"`
}

// CompiledRule pairs a rule with its parsed condition and action. Derived,
// cached, and invalidated whenever the rule is updated.
type CompiledRule struct {
	Rule      Rule
	Condition expr.Node
	Action    *expr.ActionSpec
}

// RuleResult is the per-rule outcome of one evaluation pass.
type RuleResult struct {
	RuleID  string `json:"rule_id"`
	Matched bool   `json:"matched"`
	Error   string `json:"error,omitempty"`
}

// ActionOutcome records one executed or suggested action.
type ActionOutcome struct {
	RuleID string      `json:"rule_id"`
	Action expr.Action `json:"action"`
	Status string      `json:"status"` // ok | failed
	Error  string      `json:"error,omitempty"`
}

// ActionResults partitions matched-rule actions by whether they ran.
type ActionResults struct {
	Executed  []ActionOutcome `json:"executed"`
	Suggested []ActionOutcome `json:"suggested"`
}

// EvaluateRequest is the caller-facing evaluation input. Context is an
// ephemeral snapshot of the entity being evaluated; it is never persisted.
type EvaluateRequest struct {
	Context     map[string]interface{} `json:"context"`
	EntityType  string                 `json:"entity_type"`
	Screen      string                 `json:"screen,omitempty"`
	RuleType    string                 `json:"rule_type,omitempty"`
	AutoExecute bool                   `json:"auto_execute"`
}

// EvaluateResponse is returned to the caller for the whole pass.
type EvaluateResponse struct {
	MatchedRules  int           `json:"matched_rules"`
	RuleResults   []RuleResult  `json:"rule_results"`
	ActionResults ActionResults `json:"action_results"`
}
