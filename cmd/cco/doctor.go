package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/config"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/datasource"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/rules"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/storage"
)

// DoctorResult is the structured output of cco doctor. It can be serialised
// to JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Storage struct {
		Backend   string `json:"backend"`
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"storage"`

	Prometheus struct {
		Configured bool   `json:"configured"`
		Reachable  bool   `json:"reachable"`
		Error      string `json:"error,omitempty"`
	} `json:"prometheus"`

	Policy struct {
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")

			cfg, err := config.NewDefaultLoader().Load()
			if err != nil {
				return err
			}

			result, err := runDoctor(
				cmd.Context(),
				common.NewDefaultAWSClientProvider(),
				cfg,
				cmd.OutOrStdout(),
				format,
				profile,
			)
			if err != nil {
				// Rendering failure — let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to use (default: credential chain)")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy; runDoctor itself never returns an error for an
// unhealthy result so that no error text leaks to callers (such as main).
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, cfg *config.Config, w io.Writer, format, profile string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, cfg, profile)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, cfg *config.Config, profile string) DoctorResult {
	var result DoctorResult

	// AWS: credentials → STS account ID → region discovery.
	// An empty profile string selects the default credential chain.
	if profile != "" {
		result.AWS.Profile = profile
	}
	profileCfg, err := awsProvider.LoadProfile(ctx, profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		_, err = awsProvider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
		}
	}

	// Storage: connect and ping when a DSN is configured. The in-memory
	// backend is always reachable but loses state on exit.
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		result.Storage.Backend = "postgres"
		pg, err := storage.NewPostgresStore(ctx, dsn)
		if err != nil {
			result.Storage.Error = err.Error()
		} else {
			result.Storage.Reachable = true
			_ = pg.Close()
		}
	} else {
		result.Storage.Backend = "memory"
		result.Storage.Reachable = true
	}

	// Prometheus: optional utilization source; probe only when configured.
	if cfg.Prometheus.URL != "" {
		result.Prometheus.Configured = true
		src, err := datasource.NewPrometheusSource(cfg.Prometheus.URL, cfg.Prometheus.Query, nil)
		if err != nil {
			result.Prometheus.Error = err.Error()
		} else if src.Available(ctx) {
			result.Prometheus.Reachable = true
		} else {
			result.Prometheus.Error = "prometheus query endpoint not reachable"
		}
	}

	// Policy: stat → load → validate (file is optional).
	if cfg.PolicyPath != "" {
		_, statErr := os.Stat(cfg.PolicyPath)
		if statErr == nil {
			result.Policy.Present = true
			pol, loadErr := policy.LoadPolicy(cfg.PolicyPath)
			if loadErr != nil {
				result.Policy.Errors = []string{loadErr.Error()}
			} else {
				errs := policy.Validate(pol, doctorAllRuleIDs())
				if len(errs) == 0 {
					result.Policy.Valid = true
				} else {
					for _, e := range errs {
						result.Policy.Errors = append(result.Policy.Errors, e.Error())
					}
				}
			}
		} else if !os.IsNotExist(statErr) {
			// Stat error other than "not found" — treat as present but unreadable.
			result.Policy.Present = true
			result.Policy.Errors = []string{statErr.Error()}
		}
	}

	result.OverallHealthy = result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		result.Storage.Reachable &&
		(!result.Prometheus.Configured || result.Prometheus.Reachable) &&
		(!result.Policy.Present || result.Policy.Valid)

	return result
}

// doctorAllRuleIDs returns the rule IDs known to the default registry, used
// to validate per-rule policy overrides.
func doctorAllRuleIDs() []string {
	registry := rules.NewDefaultRuleRegistry()
	registry.Register(rules.IdleResourceRule{})
	registry.Register(rules.RightsizeRule{})
	registry.Register(rules.BudgetRiskRule{})

	return registry.RuleIDs()
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", "")
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nStorage:")
	if result.Storage.Reachable {
		doctorPrint(w, result.Storage.Backend, "OK", "")
	} else {
		doctorPrint(w, result.Storage.Backend, "FAIL", result.Storage.Error)
	}

	if result.Prometheus.Configured {
		fmt.Fprintln(w, "\nPrometheus:")
		if result.Prometheus.Reachable {
			doctorPrint(w, "Query API", "OK", "")
		} else {
			doctorPrint(w, "Query API", "FAIL", result.Prometheus.Error)
		}
	}

	fmt.Fprintln(w, "\nPolicy:")
	switch {
	case !result.Policy.Present:
		doctorPrint(w, "Policy file", "OK", "not configured (defaults apply)")
	case result.Policy.Valid:
		doctorPrint(w, "Policy file", "OK", "")
	default:
		detail := ""
		if len(result.Policy.Errors) > 0 {
			detail = result.Policy.Errors[0]
		}
		doctorPrint(w, "Policy file", "FAIL", detail)
	}

	fmt.Fprintln(w)
	if result.OverallHealthy {
		fmt.Fprintln(w, "Overall: HEALTHY")
	} else {
		fmt.Fprintln(w, "Overall: UNHEALTHY")
	}
}

// doctorPrint writes one aligned diagnostic line.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %-14s %-5s %s\n", label, status, detail)
		return
	}
	fmt.Fprintf(w, "  %-14s %s\n", label, status)
}
