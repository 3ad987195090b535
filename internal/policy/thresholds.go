package policy

// GetThreshold returns the policy override for a rule parameter, or
// defaultValue when cfg is nil or carries no override for (ruleID, key).
// Rules call this with their built-in defaults so an absent policy file
// changes nothing.
func GetThreshold(ruleID, key string, defaultValue float64, cfg *PolicyConfig) float64 {
	if cfg == nil {
		return defaultValue
	}
	if v, ok := cfg.Rules[ruleID].Params[key]; ok {
		return v
	}
	return defaultValue
}
