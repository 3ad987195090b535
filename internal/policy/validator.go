package policy

import (
	"fmt"
	"strings"
)

// validActionTypes is the set of recognised action type names for the
// auto-approve allowlist.
var validActionTypes = map[string]struct{}{
	"stop":      {},
	"rightsize": {},
	"delete":    {},
	"schedule":  {},
}

// Validate checks cfg for semantic correctness and returns all validation
// errors found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - rule IDs must appear in availableRuleIDs
//   - rule params must be non-negative
//   - auto_approve savings cap must be non-negative
//   - auto_approve actions must be recognised action types
//   - budgets must be positive and keyed as "kind:key"
//
// All errors are collected before returning; Validate never stops at the
// first error.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for id, rc := range cfg.Rules {
		if _, ok := knownIDs[id]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", id))
		}
		for param, v := range rc.Params {
			if v < 0 {
				errs = append(errs, fmt.Errorf("rules.%s.params.%s: negative value %v", id, param, v))
			}
		}
	}

	if cfg.AutoApprove.SavingsCapUSD < 0 {
		errs = append(errs, fmt.Errorf("auto_approve.savings_cap_usd: negative value %v", cfg.AutoApprove.SavingsCapUSD))
	}
	for _, a := range cfg.AutoApprove.Actions {
		if _, ok := validActionTypes[a]; !ok {
			errs = append(errs, fmt.Errorf("auto_approve.actions: unknown action type %q; valid values: stop, rightsize, delete, schedule", a))
		}
	}

	for key, budget := range cfg.Budgets {
		if budget <= 0 {
			errs = append(errs, fmt.Errorf("budgets.%s: budget must be positive, got %v", key, budget))
		}
		if !strings.Contains(key, ":") {
			errs = append(errs, fmt.Errorf("budgets.%s: key must be of the form kind:key (e.g. account:111122223333)", key))
		}
	}

	return errs
}
