package rule

import (
	"context"
	"strings"
	"testing"

	common_models "go-onboard/internal/common/models"
	"go-onboard/pkg/expr"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type fakeRuleRepo struct {
	rules   []Rule
	created []*Rule
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *Rule) error {
	f.created = append(f.created, rule)
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, id string) (*Rule, error) {
	for i := range f.rules {
		if f.rules[i].ID.Hex() == id {
			return &f.rules[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRuleRepo) GetByRuleID(ctx context.Context, tenantID, ruleID string) (*Rule, error) {
	for i := range f.rules {
		if f.rules[i].TenantID == tenantID && f.rules[i].RuleID == ruleID {
			return &f.rules[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRuleRepo) List(ctx context.Context, tenantID string) ([]Rule, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) ListActive(ctx context.Context, tenantID string) ([]Rule, error) {
	var active []Rule
	for _, r := range f.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (f *fakeRuleRepo) Update(ctx context.Context, id string, rule *Rule) error { return nil }
func (f *fakeRuleRepo) Delete(ctx context.Context, id string) error             { return nil }
func (f *fakeRuleRepo) EnsureIndexes(ctx context.Context) error                 { return nil }

type executedCall struct {
	ruleAction expr.Action
	entityType string
}

type fakeExecutor struct {
	calls   []executedCall
	failFor string // action type that should fail
}

func (f *fakeExecutor) ValidateSpec(spec *expr.ActionSpec) error {
	impl := &ActionExecutorImpl{}
	return impl.ValidateSpec(spec)
}

func (f *fakeExecutor) Execute(ctx context.Context, tenantID, actorID, entityType string, evalContext map[string]interface{}, action expr.Action) error {
	f.calls = append(f.calls, executedCall{ruleAction: action, entityType: entityType})
	if f.failFor != "" && action.Type == f.failFor {
		return context.DeadlineExceeded
	}
	return nil
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action common_models.AuditAction, entity, recordID string, changes map[string]common_models.Change) {
}

func (noopAudit) ListLogs(ctx context.Context, tenantID string, filters bson.M, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestService(repo *fakeRuleRepo, exec *fakeExecutor) *RuleServiceImpl {
	return &RuleServiceImpl{
		Repo:         repo,
		Executor:     exec,
		Cache:        NewCompiledCache(),
		AuditService: noopAudit{},
		Log:          zap.NewNop(),
	}
}

func TestEvaluatePartitionsExecutedAndSuggested(t *testing.T) {
	repo := &fakeRuleRepo{rules: []Rule{
		{
			RuleID:              "require-review-high-risk",
			ConditionExpression: "risk_level == 'high'",
			ActionType:          "require_additional_approval",
			Priority:            10,
			IsActive:            true,
			IsAutomatic:         false,
		},
		{
			RuleID:              "flag-large-volume",
			ConditionExpression: "monthly_volume > 100000",
			ActionExpression:    "update_field(field: 'needs_review', value: true)",
			Priority:            5,
			IsActive:            true,
			IsAutomatic:         true,
		},
	}}
	exec := &fakeExecutor{}
	svc := newTestService(repo, exec)

	resp, err := svc.Evaluate(context.Background(), "t1", "u1", &EvaluateRequest{
		EntityType:  "merchant",
		AutoExecute: true,
		Context: map[string]interface{}{
			"risk_level":     "high",
			"monthly_volume": 250000,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.MatchedRules != 2 {
		t.Fatalf("matched = %d, want 2", resp.MatchedRules)
	}
	if len(resp.ActionResults.Executed) != 1 {
		t.Fatalf("executed = %d, want 1", len(resp.ActionResults.Executed))
	}
	if len(resp.ActionResults.Suggested) != 1 {
		t.Fatalf("suggested = %d, want 1", len(resp.ActionResults.Suggested))
	}
	if resp.ActionResults.Executed[0].RuleID != "flag-large-volume" {
		t.Errorf("executed rule = %q", resp.ActionResults.Executed[0].RuleID)
	}
	if resp.ActionResults.Suggested[0].Action.Type != ActionRequireApproval {
		t.Errorf("suggested action = %q", resp.ActionResults.Suggested[0].Action.Type)
	}

	// Only the automatic rule reached the executor.
	if len(exec.calls) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(exec.calls))
	}
	if exec.calls[0].ruleAction.Config["field"] != "needs_review" {
		t.Errorf("executed config = %v", exec.calls[0].ruleAction.Config)
	}
}

func TestEvaluateWithoutAutoExecuteOnlySuggests(t *testing.T) {
	repo := &fakeRuleRepo{rules: []Rule{
		{
			RuleID:              "flag-large-volume",
			ConditionExpression: "monthly_volume > 100000",
			ActionExpression:    "update_field(field: 'needs_review', value: true)",
			IsActive:            true,
			IsAutomatic:         true,
		},
	}}
	exec := &fakeExecutor{}
	svc := newTestService(repo, exec)

	req := &EvaluateRequest{
		EntityType:  "merchant",
		AutoExecute: false,
		Context:     map[string]interface{}{"monthly_volume": 250000},
	}

	first, err := svc.Evaluate(context.Background(), "t1", "u1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Evaluate(context.Background(), "t1", "u1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(exec.calls) != 0 {
		t.Fatalf("executor was called %d times without auto_execute", len(exec.calls))
	}
	if len(first.ActionResults.Suggested) != 1 || len(second.ActionResults.Suggested) != 1 {
		t.Fatalf("suggested counts = %d, %d; want 1, 1", len(first.ActionResults.Suggested), len(second.ActionResults.Suggested))
	}
	if first.MatchedRules != second.MatchedRules {
		t.Errorf("repeat evaluation diverged: %d vs %d", first.MatchedRules, second.MatchedRules)
	}
}

func TestEvaluateFailsOpenPerRule(t *testing.T) {
	repo := &fakeRuleRepo{rules: []Rule{
		{
			RuleID:              "broken-syntax",
			ConditionExpression: "risk_level ==",
			ActionType:          "require_additional_approval",
			Priority:            1,
			IsActive:            true,
		},
		{
			RuleID:              "type-mismatch",
			ConditionExpression: "name > 10",
			ActionType:          "require_additional_approval",
			Priority:            2,
			IsActive:            true,
		},
		{
			RuleID:              "healthy-rule",
			ConditionExpression: "status == 'pending'",
			ActionType:          "require_additional_approval",
			Priority:            3,
			IsActive:            true,
		},
	}}
	exec := &fakeExecutor{}
	svc := newTestService(repo, exec)

	resp, err := svc.Evaluate(context.Background(), "t1", "u1", &EvaluateRequest{
		EntityType: "merchant",
		Context:    map[string]interface{}{"name": "acme", "status": "pending"},
	})
	if err != nil {
		t.Fatalf("pass aborted: %v", err)
	}

	if len(resp.RuleResults) != 3 {
		t.Fatalf("rule results = %d, want 3", len(resp.RuleResults))
	}
	if resp.RuleResults[0].Error == "" || !strings.Contains(resp.RuleResults[0].Error, "broken-syntax") {
		t.Errorf("compile error not attributed: %q", resp.RuleResults[0].Error)
	}
	if resp.RuleResults[1].Error == "" {
		t.Errorf("type mismatch not reported")
	}
	if !resp.RuleResults[2].Matched {
		t.Errorf("healthy rule did not match")
	}
	if resp.MatchedRules != 1 {
		t.Errorf("matched = %d, want 1", resp.MatchedRules)
	}
}

func TestEvaluateExecutorFailureMarksOutcome(t *testing.T) {
	repo := &fakeRuleRepo{rules: []Rule{
		{
			RuleID:              "flag-large-volume",
			ConditionExpression: "monthly_volume > 100000",
			ActionExpression:    "update_field(field: 'needs_review', value: true)",
			IsActive:            true,
			IsAutomatic:         true,
		},
	}}
	exec := &fakeExecutor{failFor: ActionUpdateField}
	svc := newTestService(repo, exec)

	resp, err := svc.Evaluate(context.Background(), "t1", "u1", &EvaluateRequest{
		EntityType:  "merchant",
		AutoExecute: true,
		Context:     map[string]interface{}{"monthly_volume": 250000},
	})
	if err != nil {
		t.Fatalf("pass aborted: %v", err)
	}
	if len(resp.ActionResults.Executed) != 1 {
		t.Fatalf("executed = %d, want 1", len(resp.ActionResults.Executed))
	}
	outcome := resp.ActionResults.Executed[0]
	if outcome.Status != "failed" || outcome.Error == "" {
		t.Errorf("outcome = %+v, want failed with error", outcome)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	repo := &fakeRuleRepo{}
	svc := newTestService(repo, &fakeExecutor{})
	ctx := context.Background()

	err := svc.CreateRule(ctx, &Rule{
		TenantID:            "t1",
		RuleID:              "bad-condition",
		ConditionExpression: "status == ",
		ActionType:          "require_additional_approval",
	})
	if err == nil {
		t.Fatal("expected compile error for bad condition")
	}

	err = svc.CreateRule(ctx, &Rule{
		TenantID:            "t1",
		RuleID:              "missing-params",
		ConditionExpression: "status == 'pending'",
		ActionType:          "update_field",
	})
	if err == nil {
		t.Fatal("expected validation error for missing action params")
	}

	good := &Rule{
		TenantID:            "t1",
		RuleID:              "good-rule",
		ConditionExpression: "status == 'pending'",
		ActionType:          "require_additional_approval",
	}
	if err := svc.CreateRule(ctx, good); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}
	if err := svc.CreateRule(ctx, good); err == nil {
		t.Fatal("duplicate rule_id accepted")
	}
	if len(repo.created) != 1 {
		t.Fatalf("created = %d, want 1", len(repo.created))
	}
}
