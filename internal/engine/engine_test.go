package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/anomaly"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/audit"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/forecast"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/normalizer"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/billing"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/rules"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/storage"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/workflow"
)

type stubProvider struct {
	profile *common.ProfileConfig
	regions []string

	loadedProfile string
}

func (s *stubProvider) LoadProfile(_ context.Context, profile string) (*common.ProfileConfig, error) {
	s.loadedProfile = profile
	return s.profile, nil
}

func (s *stubProvider) LoadAllProfiles(context.Context) ([]*common.ProfileConfig, error) {
	return []*common.ProfileConfig{s.profile}, nil
}

func (s *stubProvider) GetActiveRegions(context.Context, *common.ProfileConfig) ([]string, error) {
	return s.regions, nil
}

func (s *stubProvider) ConfigForRegion(*common.ProfileConfig, string) aws.Config {
	return aws.Config{}
}

type stubCollector struct {
	dataset *billing.Dataset
	err     error

	gotRegions  []string
	gotDaysBack int
}

func (s *stubCollector) CollectAll(_ context.Context, _ *common.ProfileConfig, _ common.AWSClientProvider, regions []string, daysBack int) (*billing.Dataset, error) {
	s.gotRegions = regions
	s.gotDaysBack = daysBack
	return s.dataset, s.err
}

func (s *stubCollector) CollectBillingRecords(context.Context, common.CostExplorerClient, billing.CollectOptions) ([]normalizer.RawRecord, error) {
	return nil, nil
}

func (s *stubCollector) CollectRegion(context.Context, aws.Config, billing.CollectOptions) ([]*models.ResourceEntity, error) {
	return nil, nil
}

type stubRegistry struct {
	recs []models.Recommendation

	gotCtx rules.RuleContext
}

func (s *stubRegistry) Register(rules.Rule) {}

func (s *stubRegistry) All() []rules.Rule { return nil }

func (s *stubRegistry) EvaluateAll(ctx rules.RuleContext) []models.Recommendation {
	s.gotCtx = ctx
	return append([]models.Recommendation(nil), s.recs...)
}

// dailyRecords produces days of steady per-service spend ending yesterday,
// in the raw shape the Cost Explorer collector emits.
func dailyRecords(days int, perService map[string]float64) []normalizer.RawRecord {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -days)
	var out []normalizer.RawRecord
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		for service, cost := range perService {
			out = append(out, normalizer.RawRecord{
				"resource_id":    "svc/" + service,
				"service":        service,
				"timestamp":      day.Format("2006-01-02"),
				"unblended_cost": fmt.Sprintf("%.2f", cost),
				"currency":       "USD",
			})
		}
	}
	return out
}

type engineFixture struct {
	engine    *DefaultEngine
	store     *storage.MemoryStore
	ledger    *audit.MemoryLedger
	provider  *stubProvider
	collector *stubCollector
	registry  *stubRegistry
}

func newFixture(t *testing.T, dataset *billing.Dataset, pol *policy.PolicyConfig, withWorkflow bool) *engineFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	ledger := audit.NewMemoryLedger()
	provider := &stubProvider{
		profile: &common.ProfileConfig{ProfileName: "default", AccountID: "111122223333", Region: "us-east-1"},
		regions: []string{"us-east-1"},
	}
	collector := &stubCollector{dataset: dataset}
	registry := &stubRegistry{}

	var wf *workflow.Workflow
	if withWorkflow {
		wf = workflow.New(store, ledger, pol, nil, zap.NewNop(), workflow.Config{})
	}

	eng := NewDefaultEngine(
		provider,
		collector,
		normalizer.New(nil, zap.NewNop()),
		forecast.New(forecast.Config{HorizonDays: 7}, zap.NewNop()),
		registry,
		store,
		wf,
		pol,
		anomaly.Config{},
		nil,
		zap.NewNop(),
	)
	return &engineFixture{engine: eng, store: store, ledger: ledger, provider: provider, collector: collector, registry: registry}
}

func TestRunProducesReport(t *testing.T) {
	ctx := context.Background()

	records := dailyRecords(20, map[string]float64{
		"Amazon Elastic Compute Cloud - Compute": 10,
		"Amazon Relational Database Service":     5,
	})
	// Spike the final EC2 day well past the critical threshold.
	records = append(records, normalizer.RawRecord{
		"resource_id":    "svc/Amazon Elastic Compute Cloud - Compute",
		"service":        "Amazon Elastic Compute Cloud - Compute",
		"timestamp":      time.Now().UTC().Truncate(24 * time.Hour).Format("2006-01-02"),
		"unblended_cost": "500.00",
		"currency":       "USD",
	})

	resource := &models.ResourceEntity{
		ResourceID: "i-0001",
		Provider:   models.ProviderAWS,
		Type:       "ec2-instance",
		Region:     "us-east-1",
		State:      models.ResourceActive,
		LastSeenAt: time.Now().UTC(),
	}

	fx := newFixture(t, &billing.Dataset{RawRecords: records, Resources: []*models.ResourceEntity{resource}}, nil, false)
	fx.registry.recs = []models.Recommendation{{
		ID:                      "rec-1",
		RuleID:                  "IDLE_RESOURCE",
		ResourceID:              "i-0001",
		ActionType:              models.ActionStop,
		EstimatedMonthlySavings: 42.5,
		Status:                  models.StatusProposed,
	}}

	report, err := fx.engine.Run(ctx, RunOptions{Profile: "default", DaysBack: 21})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.ReportID == "" {
		t.Error("expected a report ID")
	}
	if report.AccountID != "111122223333" {
		t.Errorf("account ID = %q", report.AccountID)
	}
	if got := report.Summary.RecordCount; got != len(records) {
		t.Errorf("record count = %d, want %d", got, len(records))
	}
	if report.Summary.AnomalyCount == 0 {
		t.Error("expected the spiked day to register as an anomaly")
	}
	if report.Summary.CriticalAnomalies == 0 {
		t.Error("expected the spike to score critical")
	}
	// Account plus two service dimensions all carry enough history.
	if got := report.Summary.ForecastedDimensions; got != 3 {
		t.Errorf("forecasted dimensions = %d, want 3", got)
	}
	if got := report.Summary.RecommendationCount; got != 1 {
		t.Errorf("recommendation count = %d, want 1", got)
	}
	if got := report.Summary.TotalEstimatedMonthlySavings; got != 42.5 {
		t.Errorf("total savings = %v, want 42.5", got)
	}
	if report.Trend == nil {
		t.Fatal("expected a trend summary")
	}
	if report.Breakdown == nil || report.Breakdown.TotalCostUSD == 0 {
		t.Error("expected a non-empty cost breakdown")
	}

	// Everything in the report must also have been persisted.
	if _, err := fx.store.GetResource(ctx, "i-0001"); err != nil {
		t.Errorf("resource not persisted: %v", err)
	}
	if _, err := fx.store.GetRecommendation(ctx, "rec-1"); err != nil {
		t.Errorf("recommendation not persisted: %v", err)
	}
	accountDim := models.Dimension{Kind: models.DimensionAccount, Key: "111122223333"}
	if _, err := fx.store.CurrentForecast(ctx, accountDim); err != nil {
		t.Errorf("account forecast not persisted: %v", err)
	}
	for _, ev := range report.Anomalies {
		if _, err := fx.store.GetAnomaly(ctx, ev.ID); err != nil {
			t.Errorf("anomaly %s not persisted: %v", ev.ID, err)
		}
	}

	if fx.collector.gotDaysBack != 21 {
		t.Errorf("collector daysBack = %d, want 21", fx.collector.gotDaysBack)
	}
	if len(fx.collector.gotRegions) != 1 || fx.collector.gotRegions[0] != "us-east-1" {
		t.Errorf("collector regions = %v", fx.collector.gotRegions)
	}
	if fx.registry.gotCtx.AccountID != "111122223333" {
		t.Errorf("rule context account = %q", fx.registry.gotCtx.AccountID)
	}
	if len(fx.registry.gotCtx.Resources) != 1 {
		t.Errorf("rule context resources = %d, want 1", len(fx.registry.gotCtx.Resources))
	}
}

func TestRunSkipsShortHistoryForecasts(t *testing.T) {
	records := dailyRecords(5, map[string]float64{"AWS Lambda": 3})
	fx := newFixture(t, &billing.Dataset{RawRecords: records}, nil, false)

	report, err := fx.engine.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Summary.ForecastedDimensions; got != 0 {
		t.Errorf("forecasted dimensions = %d, want 0 with 5 days of history", got)
	}
}

func TestRunSubmitsRecommendations(t *testing.T) {
	ctx := context.Background()
	records := dailyRecords(3, map[string]float64{"AWS Lambda": 3})

	fx := newFixture(t, &billing.Dataset{RawRecords: records}, nil, true)
	if err := fx.store.SaveAnomaly(ctx, &models.AnomalyEvent{
		ID:         "anom-1",
		Dimension:  models.Dimension{Kind: models.DimensionService, Key: "AWS Lambda"},
		Metric:     "cost_usd",
		Severity:   models.SeverityWarning,
		DetectedAt: time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("seeding anomaly: %v", err)
	}
	fx.registry.recs = []models.Recommendation{{
		ID:         "rec-fresh",
		RuleID:     "IDLE_RESOURCE",
		ResourceID: "i-0001",
		ActionType: models.ActionStop,
		Status:     models.StatusProposed,
		Evidence: []models.EvidenceRef{{
			Kind:        models.EvidenceAnomaly,
			ID:          "anom-1",
			GeneratedAt: time.Now().UTC().Add(-time.Hour),
		}},
	}}

	report, err := fx.engine.Run(ctx, RunOptions{Submit: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec, err := fx.store.GetRecommendation(ctx, "rec-fresh")
	if err != nil {
		t.Fatalf("GetRecommendation: %v", err)
	}
	if rec.Status != models.StatusPendingApproval {
		t.Errorf("status = %s, want PendingApproval", rec.Status)
	}
	if got := report.Recommendations[0].Status; got != models.StatusPendingApproval {
		t.Errorf("report carries status %s, want the submitted state", got)
	}
}

func TestRunToleratesStaleEvidenceOnSubmit(t *testing.T) {
	ctx := context.Background()
	records := dailyRecords(3, map[string]float64{"AWS Lambda": 3})

	fx := newFixture(t, &billing.Dataset{RawRecords: records}, nil, true)
	fx.registry.recs = []models.Recommendation{{
		ID:         "rec-stale",
		RuleID:     "IDLE_RESOURCE",
		ResourceID: "i-0001",
		ActionType: models.ActionStop,
		Status:     models.StatusProposed,
		Evidence: []models.EvidenceRef{{
			Kind:        models.EvidenceAnomaly,
			ID:          "anom-1",
			GeneratedAt: time.Now().UTC().Add(-48 * time.Hour),
		}},
	}}

	if _, err := fx.engine.Run(ctx, RunOptions{Submit: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec, err := fx.store.GetRecommendation(ctx, "rec-stale")
	if err != nil {
		t.Fatalf("GetRecommendation: %v", err)
	}
	if rec.Status != models.StatusProposed {
		t.Errorf("status = %s, want Proposed for stale evidence", rec.Status)
	}
}

// idleEC2Resource is an active instance whose trailing samples sit far below
// the idle threshold.
func idleEC2Resource(id string, capacity float64, samples int) *models.ResourceEntity {
	now := time.Now().UTC()
	res := &models.ResourceEntity{
		ResourceID:          id,
		Provider:            models.ProviderAWS,
		Type:                "ec2-instance",
		Region:              "us-east-1",
		State:               models.ResourceActive,
		ProvisionedCapacity: capacity,
		LastSeenAt:          now,
	}
	for i := 0; i < samples; i++ {
		res.Samples = append(res.Samples, models.UtilizationSample{
			Timestamp: now.Add(time.Duration(i-samples) * time.Hour),
			Percent:   0.5,
		})
	}
	return res
}

func TestRunAttributesCostsToIdleResources(t *testing.T) {
	ctx := context.Background()

	// Service-grain billing plus an inventory entity, exactly what the
	// collector produces: no per-resource cost anywhere in the input.
	records := dailyRecords(21, map[string]float64{
		"Amazon Elastic Compute Cloud - Compute": 24,
	})
	resource := idleEC2Resource("i-idle", 2, 12)

	fx := newFixture(t, &billing.Dataset{
		RawRecords: records,
		Resources:  []*models.ResourceEntity{resource},
	}, nil, false)

	registry := rules.NewDefaultRuleRegistry()
	registry.Register(rules.IdleResourceRule{})
	registry.Register(rules.RightsizeRule{})
	registry.Register(rules.BudgetRiskRule{})
	fx.engine.registry = registry

	report, err := fx.engine.Run(ctx, RunOptions{Profile: "default", DaysBack: 21})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var stop *models.Recommendation
	for i := range report.Recommendations {
		if report.Recommendations[i].ResourceID == "i-idle" && report.Recommendations[i].ActionType == models.ActionStop {
			stop = &report.Recommendations[i]
		}
	}
	if stop == nil {
		t.Fatalf("expected a stop recommendation for the idle resource, got %+v", report.Recommendations)
	}
	if stop.EstimatedMonthlySavings <= 0 {
		t.Fatalf("savings = %v, want > 0 from attributed service spend", stop.EstimatedMonthlySavings)
	}

	// The attributed run rate is the persisted, queryable view too.
	res, err := fx.store.GetResource(ctx, "i-idle")
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if res.MonthlyCostUSD <= 0 {
		t.Fatalf("MonthlyCostUSD = %v, want > 0", res.MonthlyCostUSD)
	}
}

// stubUtilization is a fixed-answer supplemental metrics source.
type stubUtilization struct {
	samples []models.UtilizationSample
	queried []string
}

func (s *stubUtilization) Samples(_ context.Context, resourceID string, _ time.Duration) ([]models.UtilizationSample, error) {
	s.queried = append(s.queried, resourceID)
	return s.samples, nil
}

func (s *stubUtilization) Available(context.Context) bool { return true }

func (s *stubUtilization) Name() string { return "stub" }

func TestRunFillsUtilizationFromSupplementalSource(t *testing.T) {
	ctx := context.Background()

	records := dailyRecords(21, map[string]float64{
		"Amazon Elastic Compute Cloud - Compute": 24,
	})
	// The cloud collector found the instance but no CloudWatch samples.
	resource := idleEC2Resource("i-unsampled", 2, 0)

	fx := newFixture(t, &billing.Dataset{
		RawRecords: records,
		Resources:  []*models.ResourceEntity{resource},
	}, nil, false)

	src := &stubUtilization{}
	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		src.samples = append(src.samples, models.UtilizationSample{
			Timestamp: now.Add(time.Duration(i-12) * time.Hour),
			Percent:   0.5,
		})
	}
	fx.engine.utilization = src

	registry := rules.NewDefaultRuleRegistry()
	registry.Register(rules.IdleResourceRule{})
	fx.engine.registry = registry

	report, err := fx.engine.Run(ctx, RunOptions{Profile: "default", DaysBack: 21})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(src.queried) != 1 || src.queried[0] != "i-unsampled" {
		t.Fatalf("source queried for %v, want the unsampled instance", src.queried)
	}
	res, _ := fx.store.GetResource(ctx, "i-unsampled")
	if len(res.Samples) != 12 {
		t.Fatalf("persisted samples = %d, want 12 from the supplemental source", len(res.Samples))
	}
	if got := len(report.Recommendations); got != 1 {
		t.Fatalf("recommendations = %d, want the idle stop driven by filled samples", got)
	}
}

func TestRunPropagatesCollectorError(t *testing.T) {
	fx := newFixture(t, nil, nil, false)
	fx.collector.err = errors.New("cost explorer throttled")

	if _, err := fx.engine.Run(context.Background(), RunOptions{}); err == nil {
		t.Fatal("expected collection failure to abort the run")
	}
}
