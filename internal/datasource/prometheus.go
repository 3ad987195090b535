package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// QueryAPI is the slice of the Prometheus v1 API this source uses.
// Satisfied by v1.API and by test stubs.
type QueryAPI interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error)
	QueryRange(ctx context.Context, query string, r v1.Range, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

// PrometheusSource reads CPU utilization from a Prometheus server. The
// query template receives the resource ID and must yield a 0-100 percentage
// series, e.g.
//
//	100 - (avg by (instance) (rate(node_cpu_seconds_total{mode="idle",instance="%s"}[5m])) * 100)
type PrometheusSource struct {
	client QueryAPI
	query  string
	logger *zap.Logger
}

// DefaultUtilizationQuery is the node-exporter CPU busy percentage keyed by
// instance label.
const DefaultUtilizationQuery = `100 - (avg by (instance) (rate(node_cpu_seconds_total{mode="idle",instance=%q}[5m])) * 100)`

// NewPrometheusSource connects to the Prometheus server at url. An empty
// queryTemplate selects DefaultUtilizationQuery.
func NewPrometheusSource(url, queryTemplate string, logger *zap.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client for %s: %w", url, err)
	}
	if queryTemplate == "" {
		queryTemplate = DefaultUtilizationQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrometheusSource{
		client: v1.NewAPI(client),
		query:  queryTemplate,
		logger: logger,
	}, nil
}

// NewPrometheusSourceWithAPI injects a prepared query API. Used by tests.
func NewPrometheusSourceWithAPI(api QueryAPI, queryTemplate string, logger *zap.Logger) *PrometheusSource {
	if queryTemplate == "" {
		queryTemplate = DefaultUtilizationQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrometheusSource{client: api, query: queryTemplate, logger: logger}
}

// Samples implements UtilizationSource with an hourly-step range query.
func (p *PrometheusSource) Samples(ctx context.Context, resourceID string, window time.Duration) ([]models.UtilizationSample, error) {
	end := time.Now().UTC()
	result, warnings, err := p.client.QueryRange(ctx, fmt.Sprintf(p.query, resourceID), v1.Range{
		Start: end.Add(-window),
		End:   end,
		Step:  time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("prometheus range query for %s: %w", resourceID, err)
	}
	if len(warnings) > 0 {
		p.logger.Warn("prometheus query warnings",
			zap.String("resource_id", resourceID),
			zap.Strings("warnings", warnings))
	}

	matrix, ok := result.(model.Matrix)
	if !ok || len(matrix) == 0 {
		return nil, nil
	}

	// One resource maps to one series; extra series from a loose query are
	// ignored beyond the first.
	series := matrix[0]
	samples := make([]models.UtilizationSample, 0, len(series.Values))
	for _, pair := range series.Values {
		samples = append(samples, models.UtilizationSample{
			Timestamp: pair.Timestamp.Time().UTC(),
			Percent:   float64(pair.Value),
		})
	}
	return samples, nil
}

// Available implements UtilizationSource via a trivial instant query.
func (p *PrometheusSource) Available(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}

// Name implements UtilizationSource.
func (p *PrometheusSource) Name() string { return "prometheus" }
