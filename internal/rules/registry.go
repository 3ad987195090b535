package rules

import (
	"fmt"
	"sync"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
)

// DefaultRuleRegistry is a simple, ordered, in-memory registry.
// Register panics on duplicate rule IDs to catch wiring mistakes at startup.
type DefaultRuleRegistry struct {
	rules []Rule
	index map[string]struct{}
}

// NewDefaultRuleRegistry returns an empty registry ready for rule registration.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{
		index: make(map[string]struct{}),
	}
}

// Register adds rule to the registry. Panics if the same ID is registered twice.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	if _, exists := r.index[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	r.rules = append(r.rules, rule)
	r.index[rule.ID()] = struct{}{}
}

// All returns all registered rules in registration order.
func (r *DefaultRuleRegistry) All() []Rule {
	return r.rules
}

// RuleIDs returns the registered rule IDs in registration order, for policy
// validation.
func (r *DefaultRuleRegistry) RuleIDs() []string {
	ids := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		ids = append(ids, rule.ID())
	}
	return ids
}

// EvaluateAll runs every enabled rule against ctx. Rules are independent and
// read-only, so they run concurrently; results are merged in registration
// order to keep output deterministic, then per-resource ties are resolved.
func (r *DefaultRuleRegistry) EvaluateAll(ctx RuleContext) []models.Recommendation {
	results := make([][]models.Recommendation, len(r.rules))

	var wg sync.WaitGroup
	for i, rule := range r.rules {
		if !policy.RuleEnabled(rule.ID(), ctx.Policy) {
			continue
		}
		wg.Add(1)
		go func(i int, rule Rule) {
			defer wg.Done()
			results[i] = rule.Evaluate(ctx)
		}(i, rule)
	}
	wg.Wait()

	var drafts []models.Recommendation
	for _, recs := range results {
		drafts = append(drafts, recs...)
	}
	return ResolveConflicts(drafts)
}
