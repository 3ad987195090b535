package policy

// PolicyConfig is the operator-supplied optimization policy file.
// It carries per-rule enablement and threshold overrides, the auto-approve
// criteria, and per-dimension monthly budgets.
type PolicyConfig struct {
	Version int                   `yaml:"version"`
	Rules   map[string]RuleConfig `yaml:"rules"`

	AutoApprove AutoApproveConfig `yaml:"auto_approve"`

	// Budgets maps a dimension key (e.g. "account:111122223333") to its
	// monthly budget in the reporting currency. Consumed by the
	// budget-risk rule.
	Budgets map[string]float64 `yaml:"budgets"`
}

// RuleConfig overrides a single rule's behaviour.
type RuleConfig struct {
	// Enabled disables the rule when set to false. Nil means enabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Params are rule-specific numeric thresholds, looked up through
	// GetThreshold with rule-defined defaults.
	Params map[string]float64 `yaml:"params,omitempty"`
}

// AutoApproveConfig defines the criteria under which a recommendation skips
// human approval. Auto-approved recommendations still pass through Approved
// as a logged state, never directly to Executing.
type AutoApproveConfig struct {
	Enabled bool `yaml:"enabled"`

	// SavingsCapUSD auto-approves only recommendations whose estimated
	// monthly savings are at or below this cap.
	SavingsCapUSD float64 `yaml:"savings_cap_usd"`

	// Actions restricts auto-approval to these action types. Empty means
	// the low-risk default set: stop, rightsize, schedule. Delete is never
	// in the implicit set.
	Actions []string `yaml:"actions,omitempty"`
}

// RuleEnabled reports whether ruleID is enabled under cfg.
// Safe to call with cfg == nil: rules default to enabled.
func RuleEnabled(ruleID string, cfg *PolicyConfig) bool {
	if cfg == nil {
		return true
	}
	rc, ok := cfg.Rules[ruleID]
	if !ok || rc.Enabled == nil {
		return true
	}
	return *rc.Enabled
}

// Budget returns the configured monthly budget for a dimension key, and
// whether one is configured. Safe to call with cfg == nil.
func Budget(dimensionKey string, cfg *PolicyConfig) (float64, bool) {
	if cfg == nil {
		return 0, false
	}
	b, ok := cfg.Budgets[dimensionKey]
	return b, ok
}
