package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/anomaly"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/datasource"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/engine"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/forecast"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/normalizer"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/output"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/billing"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/rules"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/version"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/workflow"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cco",
		Short: "Cloud Cost Optimizer — cost analytics and optimization decision engine",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newRecommendCmd())
	root.AddCommand(newWorkflowCmd())
	root.AddCommand(newAuditTrailCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		profile   string
		regions   []string
		days      int
		horizon   int
		submit    bool
		reportFmt string
		outFile   string
		colored   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the analysis pipeline: collect, detect, forecast, recommend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var wf *workflow.Workflow
			if submit {
				wf = a.workflowWithoutInvoker()
			}

			registry := rules.NewDefaultRuleRegistry()
			registry.Register(rules.IdleResourceRule{})
			registry.Register(rules.RightsizeRule{})
			registry.Register(rules.BudgetRiskRule{})

			utilization, err := a.utilizationSource()
			if err != nil {
				return err
			}

			eng := engine.NewDefaultEngine(
				a.provider,
				billing.NewDefaultCollector(a.logger),
				normalizer.New(nil, a.logger),
				forecast.New(forecast.Config{HorizonDays: a.cfg.Analytics.HorizonDays}, a.logger),
				registry,
				a.store,
				wf,
				a.policy,
				anomaly.Config{
					WarningThreshold:  a.cfg.Analytics.AnomalyWarningThreshold,
					CriticalThreshold: a.cfg.Analytics.AnomalyCriticalThreshold,
				},
				utilization,
				a.logger,
			)

			if days <= 0 {
				days = a.cfg.Analytics.DaysBack
			}
			if len(regions) == 0 {
				regions = a.cfg.AWS.Regions
			}

			report, err := eng.Run(ctx, engine.RunOptions{
				Profile:      a.defaultProfile(profile),
				Regions:      regions,
				DaysBack:     days,
				HorizonDays:  horizon,
				Submit:       submit,
				ReportFormat: engine.ReportFormat(reportFmt),
			})
			if err != nil {
				return fmt.Errorf("analysis run failed: %w", err)
			}

			if outFile != "" {
				if err := writeReportToFile(outFile, report); err != nil {
					return err
				}
			}

			if reportFmt == "json" {
				return printJSON(cmd.OutOrStdout(), report)
			}
			output.RenderReport(cmd.OutOrStdout(), report, output.TableOptions{Colored: colored})
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "AWS region(s) to collect from (default: all active regions)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days for cost and metric queries")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Forecast horizon in days")
	cmd.Flags().BoolVar(&submit, "submit", false, "Submit produced recommendations into the approval workflow")
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().StringVar(&outFile, "output", "", "Write full JSON report to this file path (in addition to stdout output)")
	cmd.Flags().BoolVar(&colored, "color", false, "Colorize severity labels")

	return cmd
}

func newIngestCmd() *cobra.Command {
	var (
		profile string
		regions []string
		days    int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Collect and normalize billing data without running the analysis stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			profileCfg, err := a.provider.LoadProfile(ctx, a.defaultProfile(profile))
			if err != nil {
				return fmt.Errorf("loading AWS profile: %w", err)
			}

			if len(regions) == 0 {
				regions = a.cfg.AWS.Regions
			}
			if len(regions) == 0 {
				regions, err = a.provider.GetActiveRegions(ctx, profileCfg)
				if err != nil {
					return fmt.Errorf("resolving regions: %w", err)
				}
			}
			if days <= 0 {
				days = a.cfg.Analytics.DaysBack
			}

			collector := billing.NewDefaultCollector(a.logger)
			dataset, err := collector.CollectAll(ctx, profileCfg, a.provider, regions, days)
			if err != nil {
				return fmt.Errorf("collection failed: %w", err)
			}

			batch := normalizer.New(nil, a.logger).NormalizeBatch(models.ProviderAWS, profileCfg.AccountID, dataset.RawRecords)
			billing.AttributeMonthlyCost(dataset.Resources, batch.Records, days)

			if utilization, err := a.utilizationSource(); err != nil {
				return err
			} else if utilization != nil {
				datasource.FillSamples(ctx, utilization, dataset.Resources,
					time.Duration(days)*24*time.Hour, a.logger)
			}

			for _, res := range dataset.Resources {
				if err := a.store.SaveResource(ctx, res); err != nil {
					return fmt.Errorf("persisting resource %s: %w", res.ResourceID, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Ingested %d billing records (%d skipped) and %d resources across %d region(s)\n",
				len(batch.Records), len(batch.Skipped), len(dataset.Resources), len(regions))
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "AWS region(s) to collect from (default: all active regions)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days for cost queries")

	return cmd
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Inspect stored recommendations",
	}
	cmd.AddCommand(newRecommendListCmd())
	return cmd
}

func newRecommendListCmd() *cobra.Command {
	var (
		statuses  []string
		reportFmt string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored recommendations, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			filter := make([]models.RecommendationStatus, 0, len(statuses))
			for _, s := range statuses {
				filter = append(filter, models.RecommendationStatus(s))
			}

			recs, err := a.store.ListRecommendations(ctx, filter...)
			if err != nil {
				return fmt.Errorf("listing recommendations: %w", err)
			}

			if reportFmt == "json" {
				return printJSON(cmd.OutOrStdout(), recs)
			}
			flat := make([]models.Recommendation, len(recs))
			for i, r := range recs {
				flat[i] = *r
			}
			output.RenderRecommendations(cmd.OutOrStdout(), flat, output.TableOptions{MaxRows: limit})
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (e.g. Proposed, PendingApproval, Approved)")
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to print (0 = all)")

	return cmd
}

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Drive recommendations through the approval and execution workflow",
	}
	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newApproveCmd())
	cmd.AddCommand(newRejectCmd())
	cmd.AddCommand(newWithdrawCmd())
	cmd.AddCommand(newExecuteCmd())
	cmd.AddCommand(newRollbackCmd())
	cmd.AddCommand(newReconcileCmd())
	return cmd
}

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <recommendation-id>",
		Short: "Submit a proposed recommendation for approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.workflowWithoutInvoker().Submit(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", rec.ID, rec.Status)
			return nil
		},
	}
}

func newApproveCmd() *cobra.Command {
	var (
		actor     string
		rationale string
	)
	cmd := &cobra.Command{
		Use:   "approve <recommendation-id>",
		Short: "Approve a pending recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decide(cmd, args[0], models.DecisionApprove, actor, rationale)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "Identity recorded on the decision (required)")
	cmd.Flags().StringVar(&rationale, "rationale", "", "Why the recommendation is approved")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newRejectCmd() *cobra.Command {
	var (
		actor     string
		rationale string
	)
	cmd := &cobra.Command{
		Use:   "reject <recommendation-id>",
		Short: "Reject a pending recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decide(cmd, args[0], models.DecisionReject, actor, rationale)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "Identity recorded on the decision (required)")
	cmd.Flags().StringVar(&rationale, "rationale", "", "Why the recommendation is rejected")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func decide(cmd *cobra.Command, recID string, decision models.Decision, actor, rationale string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.workflowWithoutInvoker().Decide(ctx, models.ApprovalDecision{
		RecommendationID: recID,
		Decision:         decision,
		Actor:            actor,
		Rationale:        rationale,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", rec.ID, rec.Status)
	return nil
}

func newWithdrawCmd() *cobra.Command {
	var (
		actor  string
		reason string
	)
	cmd := &cobra.Command{
		Use:   "withdraw <recommendation-id>",
		Short: "Withdraw a pending recommendation back to proposed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.workflowWithoutInvoker().Withdraw(ctx, args[0], actor, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", rec.ID, rec.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "Identity recorded on the withdrawal (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the recommendation is withdrawn")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newExecuteCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "execute <recommendation-id>",
		Short: "Execute an approved recommendation against the provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			wf, err := a.workflowFor(ctx, a.defaultProfile(profile))
			if err != nil {
				return err
			}
			rec, err := wf.Execute(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s after %d attempt(s)\n", rec.ID, rec.Status, rec.Attempts)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name")
	return cmd
}

func newRollbackCmd() *cobra.Command {
	var (
		profile string
		actor   string
	)
	cmd := &cobra.Command{
		Use:   "rollback <recommendation-id>",
		Short: "Apply the inverse action of a completed recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			wf, err := a.workflowFor(ctx, a.defaultProfile(profile))
			if err != nil {
				return err
			}
			rec, err := wf.Rollback(ctx, args[0], actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", rec.ID, rec.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name")
	cmd.Flags().StringVar(&actor, "actor", "", "Identity recorded on the rollback (required)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Resolve recommendations left Executing by an interrupted run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			wf, err := a.workflowFor(ctx, a.defaultProfile(profile))
			if err != nil {
				return err
			}
			return wf.Reconcile(ctx)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name")
	return cmd
}

func newAuditTrailCmd() *cobra.Command {
	var (
		recID     string
		reportFmt string
	)
	cmd := &cobra.Command{
		Use:   "audit [resource-id]",
		Short: "Show the audit trail for a resource partition or a recommendation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && recID == "" {
				return fmt.Errorf("provide a resource ID or --recommendation")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var entries []models.AuditEntry
			if recID != "" {
				entries, err = a.ledger.EntriesByEntity(ctx, models.EntityRecommendation, recID)
			} else {
				entries, err = a.ledger.Entries(ctx, args[0])
			}
			if err != nil {
				return fmt.Errorf("reading audit trail: %w", err)
			}

			if reportFmt == "json" {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			output.RenderAuditTrail(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&recID, "recommendation", "", "Show entries for this recommendation ID instead of a resource partition")
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")
	return cmd
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReportToFile serialises report as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.DecisionReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}
