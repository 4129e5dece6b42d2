package rule

import (
	"context"
	"fmt"

	common_models "go-onboard/internal/common/models"
	"go-onboard/internal/features/audit"
	"go-onboard/pkg/expr"

	"go.uber.org/zap"
)

type RuleService interface {
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id string) (*Rule, error)
	ListRules(ctx context.Context, tenantID string) ([]Rule, error)
	UpdateRule(ctx context.Context, id string, rule *Rule) error
	DeleteRule(ctx context.Context, id string) error
	Evaluate(ctx context.Context, tenantID, actorID string, req *EvaluateRequest) (*EvaluateResponse, error)
}

type RuleServiceImpl struct {
	Repo         RuleRepository
	Executor     ActionExecutor
	Cache        *CompiledCache
	AuditService audit.AuditService
	Log          *zap.Logger
}

func NewRuleService(repo RuleRepository, executor ActionExecutor, auditService audit.AuditService, log *zap.Logger) RuleService {
	return &RuleServiceImpl{
		Repo:         repo,
		Executor:     executor,
		Cache:        NewCompiledCache(),
		AuditService: auditService,
		Log:          log,
	}
}

// compileAndValidate rejects a rule whose condition or action would fail at
// evaluation time, so only compilable rules ever persist.
func (s *RuleServiceImpl) compileAndValidate(rule *Rule) error {
	if rule.RuleID == "" {
		return fmt.Errorf("rule_id is required")
	}
	compiled, err := Compile(rule)
	if err != nil {
		return err
	}
	return s.Executor.ValidateSpec(compiled.Action)
}

func (s *RuleServiceImpl) CreateRule(ctx context.Context, rule *Rule) error {
	if err := s.compileAndValidate(rule); err != nil {
		return err
	}

	existing, err := s.Repo.GetByRuleID(ctx, rule.TenantID, rule.RuleID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("rule with id %q already exists", rule.RuleID)
	}

	if err := s.Repo.Create(ctx, rule); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rules", rule.RuleID, map[string]common_models.Change{
		"rule": {New: rule},
	})
	return nil
}

func (s *RuleServiceImpl) GetRule(ctx context.Context, id string) (*Rule, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *RuleServiceImpl) ListRules(ctx context.Context, tenantID string) ([]Rule, error) {
	return s.Repo.List(ctx, tenantID)
}

func (s *RuleServiceImpl) UpdateRule(ctx context.Context, id string, rule *Rule) error {
	if err := s.compileAndValidate(rule); err != nil {
		return err
	}

	oldRule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if oldRule == nil {
		return fmt.Errorf("rule not found")
	}

	if err := s.Repo.Update(ctx, id, rule); err != nil {
		return err
	}
	s.Cache.Invalidate(id)

	s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rules", oldRule.RuleID, map[string]common_models.Change{
		"rule": {Old: oldRule, New: rule},
	})
	return nil
}

func (s *RuleServiceImpl) DeleteRule(ctx context.Context, id string) error {
	oldRule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if oldRule == nil {
		return fmt.Errorf("rule not found")
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Cache.Invalidate(id)

	s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rules", oldRule.RuleID, map[string]common_models.Change{
		"rule": {Old: oldRule, New: "DELETED"},
	})
	return nil
}

// Evaluate runs one pass over the tenant's active rules against a context
// snapshot. A rule that fails to compile or evaluate is reported in its
// RuleResult and skipped; the pass itself never aborts for a bad rule.
func (s *RuleServiceImpl) Evaluate(ctx context.Context, tenantID, actorID string, req *EvaluateRequest) (*EvaluateResponse, error) {
	rules, err := s.Repo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	candidates := MatchRules(rules, req.EntityType, req.Screen, req.RuleType)

	resp := &EvaluateResponse{
		RuleResults: []RuleResult{},
		ActionResults: ActionResults{
			Executed:  []ActionOutcome{},
			Suggested: []ActionOutcome{},
		},
	}

	for i := range candidates {
		r := &candidates[i]

		compiled := s.Cache.Get(r)
		if compiled == nil {
			compiled, err = Compile(r)
			if err != nil {
				resp.RuleResults = append(resp.RuleResults, RuleResult{RuleID: r.RuleID, Error: err.Error()})
				s.Log.Warn("rule failed to compile", zap.String("rule_id", r.RuleID), zap.Error(err))
				continue
			}
			s.Cache.Put(r, compiled)
		}

		matched, evalErr := expr.EvalCondition(compiled.Condition, req.Context)
		if evalErr != nil {
			resp.RuleResults = append(resp.RuleResults, RuleResult{RuleID: r.RuleID, Error: evalErr.Error()})
			continue
		}
		resp.RuleResults = append(resp.RuleResults, RuleResult{RuleID: r.RuleID, Matched: matched})
		if !matched {
			continue
		}
		resp.MatchedRules++

		outcome := ActionOutcome{RuleID: r.RuleID, Status: "ok"}
		action, err := compiled.Action.Materialize(req.Context)
		if err != nil {
			outcome.Status = "failed"
			outcome.Error = err.Error()
			outcome.Action = expr.Action{Type: compiled.Action.Type}
		} else {
			outcome.Action = action
		}

		execute := req.AutoExecute && r.IsAutomatic
		if execute && outcome.Status == "ok" {
			if err := s.Executor.Execute(ctx, tenantID, actorID, req.EntityType, req.Context, action); err != nil {
				outcome.Status = "failed"
				outcome.Error = err.Error()
				s.Log.Warn("rule action failed",
					zap.String("rule_id", r.RuleID),
					zap.String("action", action.Type),
					zap.Error(err))
			}
		}

		if execute {
			resp.ActionResults.Executed = append(resp.ActionResults.Executed, outcome)
		} else {
			resp.ActionResults.Suggested = append(resp.ActionResults.Suggested, outcome)
		}
	}

	return resp, nil
}
