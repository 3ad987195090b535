package config

import "time"

// Config is the top-level application configuration.
// It is loaded from ~/.config/cco/config.yaml and must never be committed
// with real secrets.
type Config struct {
	AWS        AWSConfig        `yaml:"aws"        json:"aws"`
	Analytics  AnalyticsConfig  `yaml:"analytics"  json:"analytics"`
	Workflow   WorkflowConfig   `yaml:"workflow"   json:"workflow"`
	Storage    StorageConfig    `yaml:"storage"    json:"storage"`
	Prometheus PrometheusConfig `yaml:"prometheus" json:"prometheus"`

	// PolicyPath points at the optimization policy file. Empty means no
	// policy: every rule runs with defaults and nothing auto-approves.
	PolicyPath string `yaml:"policy_path" json:"policy_path"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultRegion is used when no region flag or profile region is set.
	DefaultRegion string `yaml:"default_region" json:"default_region"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `yaml:"default_profile" json:"default_profile"`

	// Regions restricts inventory collection to these regions. Empty means
	// every active region in the account.
	Regions []string `yaml:"regions,omitempty" json:"regions,omitempty"`
}

// AnalyticsConfig tunes the analysis pipeline.
type AnalyticsConfig struct {
	// DaysBack is the billing lookback window. Defaults to 30.
	DaysBack int `yaml:"days_back" json:"days_back"`

	// HorizonDays is the forecast projection length. Defaults to 30.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// AnomalyWarningThreshold and AnomalyCriticalThreshold override the
	// detector's deviation-score cut-offs when positive.
	AnomalyWarningThreshold  float64 `yaml:"anomaly_warning_threshold" json:"anomaly_warning_threshold"`
	AnomalyCriticalThreshold float64 `yaml:"anomaly_critical_threshold" json:"anomaly_critical_threshold"`
}

// WorkflowConfig tunes the approval and execution workflow.
type WorkflowConfig struct {
	// EvidenceMaxAge is how old supporting evidence may be at submission.
	EvidenceMaxAge Duration `yaml:"evidence_max_age" json:"evidence_max_age"`

	// LockTimeout bounds the wait for a per-resource execution lock.
	LockTimeout Duration `yaml:"lock_timeout" json:"lock_timeout"`

	// MaxAttempts bounds provider call retries per execution.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// RetryBackoff is the initial retry delay; it doubles per attempt.
	RetryBackoff Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "24h".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// PostgresDSN connects the durable store. Empty selects the in-memory
	// store, which loses all state on exit.
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// PrometheusConfig configures the optional utilization datasource.
type PrometheusConfig struct {
	// URL is the Prometheus base URL. Empty disables the source and
	// utilization comes from CloudWatch alone.
	URL string `yaml:"url" json:"url"`

	// Query overrides the default per-instance CPU busy-percent query.
	Query string `yaml:"query,omitempty" json:"query,omitempty"`
}

// Loader is the interface for reading Config from disk.
// Default implementation reads from ~/.config/cco/config.yaml.
type Loader interface {
	// Load reads, parses, and validates the configuration file.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}
