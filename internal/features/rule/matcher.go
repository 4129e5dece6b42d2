package rule

import (
	"slices"
	"strings"
)

// MatchRules filters a rule set down to the candidates for one evaluation
// pass and fixes their order: active rules whose type matches the request
// (when a filter was given) and whose entity/screen sets are empty (wildcard)
// or contain the request's values. Survivors are sorted ascending by
// priority, ties broken by rule_id so the order is deterministic.
func MatchRules(rules []Rule, entityType, screen, ruleType string) []Rule {
	var matched []Rule
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		if ruleType != "" && r.RuleType != ruleType {
			continue
		}
		if len(r.ApplicableEntities) > 0 && !slices.Contains(r.ApplicableEntities, entityType) {
			continue
		}
		if len(r.ApplicableScreens) > 0 && !slices.Contains(r.ApplicableScreens, screen) {
			continue
		}
		matched = append(matched, r)
	}

	slices.SortFunc(matched, func(a, b Rule) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return strings.Compare(a.RuleID, b.RuleID)
	})

	return matched
}
