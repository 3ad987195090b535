// Package datasource provides supplemental utilization metrics for tracked
// resources. The AWS connector covers CloudWatch; this package covers
// self-hosted Prometheus for fleets that export node and service metrics
// outside the cloud provider's monitoring.
package datasource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// UtilizationSource supplies utilization samples for a resource over a
// lookback window. Sources are optional: a pipeline run proceeds without
// one, leaving rule evaluation to CloudWatch-derived samples only.
type UtilizationSource interface {
	// Samples returns hourly utilization percentages for resourceID over
	// the trailing window, oldest first.
	Samples(ctx context.Context, resourceID string, window time.Duration) ([]models.UtilizationSample, error)

	// Available reports whether the source can currently be queried.
	Available(ctx context.Context) bool

	// Name identifies the source in logs.
	Name() string
}

// FillSamples queries src for every active resource the cloud collector left
// without utilization samples and attaches what it finds. Per-resource query
// failures are logged and skipped; an unreachable source skips the whole
// pass. Resources that already carry samples keep them — the cloud
// provider's own monitoring stays authoritative.
func FillSamples(ctx context.Context, src UtilizationSource, resources []*models.ResourceEntity, window time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !src.Available(ctx) {
		logger.Warn("utilization source unreachable, skipping sample fill",
			zap.String("source", src.Name()))
		return
	}

	var filled int
	for _, res := range resources {
		if res.State != models.ResourceActive || len(res.Samples) > 0 {
			continue
		}
		samples, err := src.Samples(ctx, res.ResourceID, window)
		if err != nil {
			logger.Warn("utilization query failed",
				zap.String("source", src.Name()),
				zap.String("resource_id", res.ResourceID),
				zap.Error(err))
			continue
		}
		if len(samples) == 0 {
			continue
		}
		res.Samples = samples
		filled++
	}
	logger.Info("filled utilization samples",
		zap.String("source", src.Name()),
		zap.Int("resources", filled))
}
