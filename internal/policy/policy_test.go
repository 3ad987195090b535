package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestGetThreshold(t *testing.T) {
	cfg := &PolicyConfig{
		Version: 1,
		Rules: map[string]RuleConfig{
			"IDLE_RESOURCE": {Params: map[string]float64{"utilization_percent": 3.0}},
		},
	}

	tests := []struct {
		name   string
		cfg    *PolicyConfig
		ruleID string
		key    string
		want   float64
	}{
		{"nil config returns default", nil, "IDLE_RESOURCE", "utilization_percent", 5.0},
		{"missing rule returns default", cfg, "RIGHTSIZE", "utilization_percent", 5.0},
		{"missing param returns default", cfg, "IDLE_RESOURCE", "sustained_periods", 5.0},
		{"configured value wins", cfg, "IDLE_RESOURCE", "utilization_percent", 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetThreshold(tt.ruleID, tt.key, 5.0, tt.cfg); got != tt.want {
				t.Errorf("GetThreshold = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestRuleEnabled(t *testing.T) {
	cfg := &PolicyConfig{
		Version: 1,
		Rules: map[string]RuleConfig{
			"OFF": {Enabled: boolPtr(false)},
			"ON":  {Enabled: boolPtr(true)},
		},
	}

	if !RuleEnabled("ANY", nil) {
		t.Error("nil config must default to enabled")
	}
	if !RuleEnabled("UNLISTED", cfg) {
		t.Error("unlisted rule must default to enabled")
	}
	if RuleEnabled("OFF", cfg) {
		t.Error("explicitly disabled rule reported enabled")
	}
	if !RuleEnabled("ON", cfg) {
		t.Error("explicitly enabled rule reported disabled")
	}
}

func TestShouldAutoApprove(t *testing.T) {
	cfg := &PolicyConfig{
		Version:     1,
		AutoApprove: AutoApproveConfig{Enabled: true, SavingsCapUSD: 50},
	}

	rec := func(action models.ActionType, savings float64) *models.Recommendation {
		return &models.Recommendation{ActionType: action, EstimatedMonthlySavings: savings}
	}

	t.Run("below cap approves", func(t *testing.T) {
		if !ShouldAutoApprove(rec(models.ActionStop, 30), cfg) {
			t.Error("$30 stop under $50 cap must auto-approve")
		}
	})
	t.Run("above cap stays pending", func(t *testing.T) {
		if ShouldAutoApprove(rec(models.ActionStop, 500), cfg) {
			t.Error("$500 stop over $50 cap must not auto-approve")
		}
	})
	t.Run("delete never auto-approves implicitly", func(t *testing.T) {
		if ShouldAutoApprove(rec(models.ActionDelete, 10), cfg) {
			t.Error("delete must not be in the implicit auto-approve set")
		}
	})
	t.Run("explicit action list is honored", func(t *testing.T) {
		custom := &PolicyConfig{
			AutoApprove: AutoApproveConfig{Enabled: true, SavingsCapUSD: 50, Actions: []string{"delete"}},
		}
		if !ShouldAutoApprove(rec(models.ActionDelete, 10), custom) {
			t.Error("explicitly listed delete must auto-approve")
		}
		if ShouldAutoApprove(rec(models.ActionStop, 10), custom) {
			t.Error("stop is not in the explicit list and must not auto-approve")
		}
	})
	t.Run("disabled policy never approves", func(t *testing.T) {
		off := &PolicyConfig{AutoApprove: AutoApproveConfig{Enabled: false, SavingsCapUSD: 50}}
		if ShouldAutoApprove(rec(models.ActionStop, 10), off) {
			t.Error("disabled auto-approve must not approve")
		}
		if ShouldAutoApprove(rec(models.ActionStop, 10), nil) {
			t.Error("nil config must not approve")
		}
	})
}

func TestLoadPolicy(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		content := `
version: 1
rules:
  IDLE_RESOURCE:
    enabled: true
    params:
      utilization_percent: 3.0
auto_approve:
  enabled: true
  savings_cap_usd: 50
budgets:
  account:111122223333: 2000
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadPolicy(path)
		if err != nil {
			t.Fatalf("LoadPolicy: %v", err)
		}
		if got := GetThreshold("IDLE_RESOURCE", "utilization_percent", 5.0, cfg); got != 3.0 {
			t.Errorf("param = %v; want 3.0", got)
		}
		if b, ok := Budget("account:111122223333", cfg); !ok || b != 2000 {
			t.Errorf("budget = %v ok=%v; want 2000", b, ok)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		if err := os.WriteFile(path, []byte("version: 2\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPolicy(path); err == nil {
			t.Error("expected error for version 2")
		}
	})
}

func TestValidate(t *testing.T) {
	available := []string{"IDLE_RESOURCE", "RIGHTSIZE", "BUDGET_RISK"}

	t.Run("valid config has no errors", func(t *testing.T) {
		cfg := &PolicyConfig{
			Version: 1,
			Rules: map[string]RuleConfig{
				"IDLE_RESOURCE": {Params: map[string]float64{"utilization_percent": 5}},
			},
			AutoApprove: AutoApproveConfig{Enabled: true, SavingsCapUSD: 50, Actions: []string{"stop"}},
			Budgets:     map[string]float64{"account:1": 1000},
		}
		if errs := Validate(cfg, available); len(errs) != 0 {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("all problems are collected", func(t *testing.T) {
		cfg := &PolicyConfig{
			Version: 7,
			Rules: map[string]RuleConfig{
				"NO_SUCH_RULE": {Params: map[string]float64{"x": -1}},
			},
			AutoApprove: AutoApproveConfig{SavingsCapUSD: -5, Actions: []string{"detonate"}},
			Budgets:     map[string]float64{"badkey": -100},
		}
		errs := Validate(cfg, available)
		// version, unknown rule, negative param, negative cap, unknown
		// action, non-positive budget, malformed budget key.
		if len(errs) != 7 {
			t.Errorf("got %d errors, want 7: %v", len(errs), errs)
		}
	})

	t.Run("nil config", func(t *testing.T) {
		if errs := Validate(nil, available); len(errs) != 1 {
			t.Errorf("got %d errors for nil config, want 1", len(errs))
		}
	})
}
