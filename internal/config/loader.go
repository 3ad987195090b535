package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath, when set, overrides the default configuration file location.
const EnvConfigPath = "CCO_CONFIG"

// UnmarshalYAML implements yaml.Unmarshaler for Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Analytics: AnalyticsConfig{
			DaysBack:    30,
			HorizonDays: 30,
		},
		Workflow: WorkflowConfig{
			EvidenceMaxAge: Duration(24 * time.Hour),
			LockTimeout:    Duration(30 * time.Second),
			MaxAttempts:    3,
			RetryBackoff:   Duration(2 * time.Second),
		},
	}
}

// DefaultLoader reads the YAML configuration file from disk.
type DefaultLoader struct {
	path string
}

// NewDefaultLoader resolves the configuration path: the CCO_CONFIG
// environment variable when set, otherwise ~/.config/cco/config.yaml.
func NewDefaultLoader() *DefaultLoader {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return &DefaultLoader{path: p}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return &DefaultLoader{path: "config.yaml"}
	}
	return &DefaultLoader{path: filepath.Join(home, ".config", "cco", "config.yaml")}
}

// ConfigPath implements Loader.
func (l *DefaultLoader) ConfigPath() string { return l.path }

// Load implements Loader. A missing file is not an error: defaults apply so
// the CLI works out of the box against the default AWS profile.
func (l *DefaultLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", l.path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", l.path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analytics.DaysBack < 0 {
		return fmt.Errorf("analytics.days_back must not be negative, got %d", c.Analytics.DaysBack)
	}
	if c.Analytics.HorizonDays < 0 {
		return fmt.Errorf("analytics.horizon_days must not be negative, got %d", c.Analytics.HorizonDays)
	}
	if c.Workflow.MaxAttempts < 0 {
		return fmt.Errorf("workflow.max_attempts must not be negative, got %d", c.Workflow.MaxAttempts)
	}
	if c.Analytics.AnomalyWarningThreshold < 0 || c.Analytics.AnomalyCriticalThreshold < 0 {
		return errors.New("anomaly thresholds must not be negative")
	}
	if w, crit := c.Analytics.AnomalyWarningThreshold, c.Analytics.AnomalyCriticalThreshold; w > 0 && crit > 0 && crit < w {
		return fmt.Errorf("anomaly_critical_threshold (%v) must be >= anomaly_warning_threshold (%v)", crit, w)
	}
	return nil
}
