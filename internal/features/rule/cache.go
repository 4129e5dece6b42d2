package rule

import (
	"sync"
	"time"

	"go-onboard/pkg/expr"
)

// CompiledCache holds compiled rules keyed by rule document id. An entry is
// only served while its UpdatedAt matches the stored rule, so updates
// invalidate naturally without coordination.
type CompiledCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	compiled  *CompiledRule
	updatedAt time.Time
}

func NewCompiledCache() *CompiledCache {
	return &CompiledCache{
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the cached compilation for a rule, or nil if the cache holds
// no entry or a stale one.
func (c *CompiledCache) Get(r *Rule) *CompiledRule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[r.ID.Hex()]
	if !ok || !entry.updatedAt.Equal(r.UpdatedAt) {
		return nil
	}
	return entry.compiled
}

func (c *CompiledCache) Put(r *Rule, compiled *CompiledRule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[r.ID.Hex()] = &cacheEntry{
		compiled:  compiled,
		updatedAt: r.UpdatedAt,
	}
}

func (c *CompiledCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Compile parses a rule's condition and action into a CompiledRule. The
// returned *expr.CompileError carries the rule identity.
func Compile(r *Rule) (*CompiledRule, error) {
	condition, err := expr.ParseCondition(r.ConditionExpression)
	if err != nil {
		return nil, tagRule(err, r.RuleID)
	}

	var action *expr.ActionSpec
	switch {
	case r.ActionExpression != "":
		action, err = expr.ParseAction(r.ActionExpression)
		if err != nil {
			return nil, tagRule(err, r.RuleID)
		}
	case r.ActionType != "":
		action = expr.FromConfig(r.ActionType, r.ActionConfig)
	default:
		return nil, &expr.CompileError{RuleID: r.RuleID, Message: "rule has neither action_expression nor action_type"}
	}

	return &CompiledRule{Rule: *r, Condition: condition, Action: action}, nil
}

func tagRule(err error, ruleID string) error {
	if ce, ok := err.(*expr.CompileError); ok {
		ce.RuleID = ruleID
		return ce
	}
	return err
}
