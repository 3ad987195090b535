package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/audit"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/config"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/datasource"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/actions"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/storage"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/workflow"
)

// app bundles the wired collaborators shared by all commands. Construction is
// config-driven: a Postgres DSN selects the durable store, otherwise state
// lives in memory for the duration of the process.
type app struct {
	cfg      *config.Config
	store    storage.Store
	ledger   audit.Ledger
	policy   *policy.PolicyConfig
	provider common.AWSClientProvider
	logger   *zap.Logger

	// closer releases the store when it holds external connections.
	closer func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.NewDefaultLoader().Load()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("initialising logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		provider: common.NewDefaultAWSClientProvider(),
		logger:   logger,
		closer:   func() error { return nil },
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := storage.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.store = pg
		a.ledger = pg
		a.closer = pg.Close
	} else {
		a.store = storage.NewMemoryStore()
		a.ledger = audit.NewMemoryLedger()
	}

	if cfg.PolicyPath != "" {
		pol, err := policy.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("loading policy %s: %w", cfg.PolicyPath, err)
		}
		a.policy = pol
	}

	return a, nil
}

func (a *app) close() {
	if err := a.closer(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) workflowConfig() workflow.Config {
	return workflow.Config{
		EvidenceMaxAge: a.cfg.Workflow.EvidenceMaxAge.Std(),
		LockTimeout:    a.cfg.Workflow.LockTimeout.Std(),
		MaxAttempts:    a.cfg.Workflow.MaxAttempts,
		RetryBackoff:   a.cfg.Workflow.RetryBackoff.Std(),
	}
}

// workflowWithoutInvoker wires the approval-side workflow. Submission,
// approval and rejection never reach the cloud provider, so no profile load
// is required.
func (a *app) workflowWithoutInvoker() *workflow.Workflow {
	return workflow.New(a.store, a.ledger, a.policy, nil, a.logger, a.workflowConfig())
}

// workflowFor wires a fully executable workflow against the named AWS
// profile. Execution, rollback and reconciliation need provider access.
func (a *app) workflowFor(ctx context.Context, profileName string) (*workflow.Workflow, error) {
	profile, err := a.provider.LoadProfile(ctx, profileName)
	if err != nil {
		return nil, fmt.Errorf("loading AWS profile %q: %w", profileName, err)
	}
	invoker := actions.NewInvoker(profile, a.provider, common.NewClientSet, a.store, a.logger)
	return workflow.New(a.store, a.ledger, a.policy, invoker, a.logger, a.workflowConfig()), nil
}

// utilizationSource builds the supplemental metrics source when one is
// configured. Returns nil with no error when the config carries no
// Prometheus URL.
func (a *app) utilizationSource() (datasource.UtilizationSource, error) {
	if a.cfg.Prometheus.URL == "" {
		return nil, nil
	}
	src, err := datasource.NewPrometheusSource(a.cfg.Prometheus.URL, a.cfg.Prometheus.Query, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to prometheus: %w", err)
	}
	return src, nil
}

func (a *app) defaultProfile(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.cfg.AWS.DefaultProfile
}
