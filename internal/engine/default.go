package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/analytics"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/anomaly"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/datasource"
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

// DefaultEngine is the production Engine. It coordinates the pipeline stages
// and never calls the cloud SDK directly.
type DefaultEngine struct {
	provider   common.AWSClientProvider
	collector  billing.Collector
	normalizer *normalizer.Normalizer
	forecaster *forecast.Forecaster
	registry   rules.RuleRegistry
	store      storage.Store
	wf         *workflow.Workflow
	policy     *policy.PolicyConfig
	anomalyCfg anomaly.Config
	// utilization is an optional supplemental metrics source; resources the
	// cloud collector could not sample are filled from it.
	utilization datasource.UtilizationSource
	logger      *zap.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewDefaultEngine wires a DefaultEngine from its collaborators. wf may be
// nil when workflow submission is disabled; pol may be nil when no policy
// file is loaded; utilization may be nil when no supplemental metrics source
// is configured.
func NewDefaultEngine(
	provider common.AWSClientProvider,
	collector billing.Collector,
	norm *normalizer.Normalizer,
	forecaster *forecast.Forecaster,
	registry rules.RuleRegistry,
	store storage.Store,
	wf *workflow.Workflow,
	pol *policy.PolicyConfig,
	anomalyCfg anomaly.Config,
	utilization datasource.UtilizationSource,
	logger *zap.Logger,
) *DefaultEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultEngine{
		provider:    provider,
		collector:   collector,
		normalizer:  norm,
		forecaster:  forecaster,
		registry:    registry,
		store:       store,
		wf:          wf,
		policy:      pol,
		anomalyCfg:  anomalyCfg,
		utilization: utilization,
		logger:      logger,
		now:         time.Now,
	}
}

// Run implements Engine.
func (e *DefaultEngine) Run(ctx context.Context, opts RunOptions) (*models.DecisionReport, error) {
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}

	profile, err := e.provider.LoadProfile(ctx, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}

	regions := opts.Regions
	if len(regions) == 0 {
		regions, err = e.provider.GetActiveRegions(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("resolve regions for profile %q: %w", profile.ProfileName, err)
		}
	}

	dataset, err := e.collector.CollectAll(ctx, profile, e.provider, regions, daysBack)
	if err != nil {
		return nil, fmt.Errorf("collect data for profile %q: %w", profile.ProfileName, err)
	}

	batch := e.normalizer.NormalizeBatch(models.ProviderAWS, profile.AccountID, dataset.RawRecords)
	e.logger.Info("normalized billing batch",
		zap.String("account_id", profile.AccountID),
		zap.Int("records", len(batch.Records)),
		zap.Int("skipped", len(batch.Skipped)))

	// Service-grain spend apportioned onto the inventory; rules need a
	// per-resource run rate to estimate savings.
	billing.AttributeMonthlyCost(dataset.Resources, batch.Records, daysBack)

	if e.utilization != nil {
		datasource.FillSamples(ctx, e.utilization, dataset.Resources,
			time.Duration(daysBack)*24*time.Hour, e.logger)
	}

	for _, res := range dataset.Resources {
		if err := e.store.SaveResource(ctx, res); err != nil {
			return nil, fmt.Errorf("persisting resource %s: %w", res.ResourceID, err)
		}
	}

	anomalies, err := e.detectAnomalies(ctx, batch.Records)
	if err != nil {
		return nil, err
	}

	forecasts, err := e.forecastDimensions(ctx, batch.Records, opts.HorizonDays)
	if err != nil {
		return nil, err
	}

	recommendations, err := e.recommend(ctx, profile.AccountID, dataset.Resources, batch.Records, anomalies, forecasts, opts.Submit)
	if err != nil {
		return nil, err
	}

	return e.buildReport(profile.AccountID, daysBack, batch, anomalies, forecasts, recommendations), nil
}

// detectAnomalies replays the account and per-service daily series through
// the detector and persists every emitted event. Series run sequentially:
// the detector owns keyed state and is not safe for concurrent use.
func (e *DefaultEngine) detectAnomalies(ctx context.Context, records []models.CostRecord) ([]models.AnomalyEvent, error) {
	detector := anomaly.NewDetector(e.anomalyCfg, e.logger)

	var events []models.AnomalyEvent
	for _, kind := range []models.DimensionKind{models.DimensionAccount, models.DimensionService} {
		for _, series := range analytics.BuildDailySeries(records, kind) {
			for period, value := range series.Values {
				ev := detector.Observe(series.Dimension, "cost_usd", period, value)
				if ev == nil {
					continue
				}
				if err := e.store.SaveAnomaly(ctx, ev); err != nil {
					return nil, fmt.Errorf("persisting anomaly %s: %w", ev.ID, err)
				}
				events = append(events, *ev)
			}
		}
	}
	return events, nil
}

// forecastDimensions projects the account and per-service series and
// persists each new current series. Dimensions are independent, so they run
// concurrently; the first error wins. Dimensions with too little history are
// skipped, not fatal.
func (e *DefaultEngine) forecastDimensions(ctx context.Context, records []models.CostRecord, horizonDays int) (map[string]*models.ForecastSeries, error) {
	var all []analytics.DailySeries
	for _, kind := range []models.DimensionKind{models.DimensionAccount, models.DimensionService} {
		all = append(all, analytics.BuildDailySeries(records, kind)...)
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		firstErr  error
		forecasts = make(map[string]*models.ForecastSeries)
	)
	for _, series := range all {
		wg.Add(1)
		go func(series analytics.DailySeries) {
			defer wg.Done()
			fs, err := e.forecaster.Forecast(series.Dimension, series.Values, series.LastPeriod())
			if errors.Is(err, models.ErrInsufficientHistory) {
				e.logger.Debug("skipping forecast",
					zap.String("dimension", series.Dimension.String()),
					zap.Int("history", len(series.Values)))
				return
			}
			if err == nil {
				if horizonDays > 0 && horizonDays < len(fs.Points) {
					fs.Points = fs.Points[:horizonDays]
					fs.HorizonDays = horizonDays
				}
				err = e.store.SaveForecast(ctx, fs)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("forecasting %s: %w", series.Dimension, err)
				}
				return
			}
			forecasts[series.Dimension.String()] = fs
		}(series)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return forecasts, nil
}

// recommend evaluates the rule registry, persists the surviving
// recommendations and optionally submits them into the approval workflow.
func (e *DefaultEngine) recommend(
	ctx context.Context,
	accountID string,
	resources []*models.ResourceEntity,
	records []models.CostRecord,
	anomalies []models.AnomalyEvent,
	forecasts map[string]*models.ForecastSeries,
	submit bool,
) ([]models.Recommendation, error) {
	rctx := rules.RuleContext{
		AccountID:      accountID,
		Resources:      resources,
		CostByResource: analytics.CostByResource(records),
		Anomalies:      anomalies,
		Forecasts:      forecasts,
		Policy:         e.policy,
		Now:            e.now().UTC(),
	}

	recommendations := e.registry.EvaluateAll(rctx)
	for i := range recommendations {
		rec := &recommendations[i]
		if err := e.store.SaveRecommendation(ctx, rec); err != nil {
			return nil, fmt.Errorf("persisting recommendation %s: %w", rec.ID, err)
		}
		if !submit || e.wf == nil {
			continue
		}
		updated, err := e.wf.Submit(ctx, rec.ID)
		if err != nil && !errors.Is(err, models.ErrEvidenceStale) {
			return nil, fmt.Errorf("submitting recommendation %s: %w", rec.ID, err)
		}
		if updated != nil {
			recommendations[i] = *updated
		}
	}
	return recommendations, nil
}

func (e *DefaultEngine) buildReport(
	accountID string,
	daysBack int,
	batch normalizer.BatchResult,
	anomalies []models.AnomalyEvent,
	forecasts map[string]*models.ForecastSeries,
	recommendations []models.Recommendation,
) *models.DecisionReport {
	now := e.now().UTC()

	summary := models.DecisionSummary{
		RecordCount:          len(batch.Records),
		SkippedRecords:       len(batch.Skipped),
		AnomalyCount:         len(anomalies),
		ForecastedDimensions: len(forecasts),
		RecommendationCount:  len(recommendations),
	}
	for _, ev := range anomalies {
		if ev.Severity == models.SeverityCritical {
			summary.CriticalAnomalies++
		}
	}
	for _, rec := range recommendations {
		summary.TotalEstimatedMonthlySavings += rec.EstimatedMonthlySavings
	}
	for _, rec := range batch.Records {
		summary.TotalCostUSD += rec.AmountUSD
	}

	// Account-level trend over the analysed window.
	var trend *models.CostTrend
	if account := analytics.BuildDailySeries(batch.Records, models.DimensionAccount); len(account) > 0 {
		trend = analytics.AnalyzeTrend(account[0].Values)
	}

	forecastList := make([]models.ForecastSeries, 0, len(forecasts))
	for _, fs := range forecasts {
		forecastList = append(forecastList, *fs)
	}

	return &models.DecisionReport{
		ReportID:        uuid.NewString(),
		GeneratedAt:     now,
		AccountID:       accountID,
		PeriodStart:     now.AddDate(0, 0, -daysBack),
		PeriodEnd:       now,
		Summary:         summary,
		Anomalies:       anomalies,
		Forecasts:       forecastList,
		Recommendations: recommendations,
		Trend:           trend,
		Breakdown:       analytics.BuildBreakdown(batch.Records, analytics.DefaultTopContributors),
	}
}
