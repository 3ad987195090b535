// Package storage persists decision-engine entities: resources,
// recommendations, anomaly events, forecast series, and approval decisions.
//
// Entities are never hard-deleted. Obsolete forecasts are superseded but
// retained for backtesting; terminal recommendations stay queryable forever.
package storage

import (
	"context"
	"errors"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store is the durable state behind the pipeline and the workflow.
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveResource upserts a resource entity by resource ID.
	SaveResource(ctx context.Context, res *models.ResourceEntity) error
	GetResource(ctx context.Context, resourceID string) (*models.ResourceEntity, error)
	ListResources(ctx context.Context) ([]*models.ResourceEntity, error)

	// SaveRecommendation upserts a recommendation by ID.
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error)
	// ListRecommendations returns recommendations filtered to the given
	// statuses; no filter returns everything.
	ListRecommendations(ctx context.Context, statuses ...models.RecommendationStatus) ([]*models.Recommendation, error)

	// SaveAnomaly records an immutable anomaly event.
	SaveAnomaly(ctx context.Context, ev *models.AnomalyEvent) error
	GetAnomaly(ctx context.Context, id string) (*models.AnomalyEvent, error)

	// SaveForecast stores a new series as current for its dimension.
	// The previously current series is superseded, not mutated, and stays
	// retrievable through ForecastHistory.
	SaveForecast(ctx context.Context, series *models.ForecastSeries) error
	CurrentForecast(ctx context.Context, dim models.Dimension) (*models.ForecastSeries, error)
	// ForecastHistory returns all series ever stored for a dimension in
	// generation order, current last.
	ForecastHistory(ctx context.Context, dim models.Dimension) ([]*models.ForecastSeries, error)

	// SaveDecision records an immutable approval decision.
	SaveDecision(ctx context.Context, dec *models.ApprovalDecision) error
	DecisionsFor(ctx context.Context, recommendationID string) ([]*models.ApprovalDecision, error)
}
