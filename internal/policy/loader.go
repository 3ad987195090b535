package policy

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicy reads and parses the policy file at path.
// Absent maps are initialised so callers can index without nil checks.
func LoadPolicy(path string) (*PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, errors.New("unsupported policy version")
	}

	if cfg.Rules == nil {
		cfg.Rules = make(map[string]RuleConfig)
	}
	if cfg.Budgets == nil {
		cfg.Budgets = make(map[string]float64)
	}

	return &cfg, nil
}
