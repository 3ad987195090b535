package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// MemoryStore is the in-process Store used by tests and single-node runs.
// Returned values are copies; callers mutate their copy and Save it back.
type MemoryStore struct {
	mu              sync.RWMutex
	resources       map[string]models.ResourceEntity
	recommendations map[string]models.Recommendation
	anomalies       map[string]models.AnomalyEvent
	forecasts       map[string][]models.ForecastSeries // dimension key → versions, current last
	decisions       map[string][]models.ApprovalDecision
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources:       make(map[string]models.ResourceEntity),
		recommendations: make(map[string]models.Recommendation),
		anomalies:       make(map[string]models.AnomalyEvent),
		forecasts:       make(map[string][]models.ForecastSeries),
		decisions:       make(map[string][]models.ApprovalDecision),
	}
}

func (s *MemoryStore) SaveResource(_ context.Context, res *models.ResourceEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[res.ResourceID] = *res
	return nil
}

func (s *MemoryStore) GetResource(_ context.Context, resourceID string) (*models.ResourceEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[resourceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (s *MemoryStore) ListResources(_ context.Context) ([]*models.ResourceEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ResourceEntity, 0, len(s.resources))
	for _, res := range s.resources {
		res := res
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func (s *MemoryStore) SaveRecommendation(_ context.Context, rec *models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendations[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) GetRecommendation(_ context.Context, id string) (*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recommendations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListRecommendations(_ context.Context, statuses ...models.RecommendationStatus) ([]*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[models.RecommendationStatus]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}

	var out []*models.Recommendation
	for _, rec := range s.recommendations {
		if len(wanted) > 0 {
			if _, ok := wanted[rec.Status]; !ok {
				continue
			}
		}
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveAnomaly(_ context.Context, ev *models.AnomalyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies[ev.ID] = *ev
	return nil
}

func (s *MemoryStore) GetAnomaly(_ context.Context, id string) (*models.AnomalyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.anomalies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ev, nil
}

func (s *MemoryStore) SaveForecast(_ context.Context, series *models.ForecastSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := series.Dimension.String()
	s.forecasts[key] = append(s.forecasts[key], *series)
	return nil
}

func (s *MemoryStore) CurrentForecast(_ context.Context, dim models.Dimension) (*models.ForecastSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.forecasts[dim.String()]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	current := versions[len(versions)-1]
	return &current, nil
}

func (s *MemoryStore) ForecastHistory(_ context.Context, dim models.Dimension) ([]*models.ForecastSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.forecasts[dim.String()]
	out := make([]*models.ForecastSeries, len(versions))
	for i := range versions {
		v := versions[i]
		out[i] = &v
	}
	return out, nil
}

func (s *MemoryStore) SaveDecision(_ context.Context, dec *models.ApprovalDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[dec.RecommendationID] = append(s.decisions[dec.RecommendationID], *dec)
	return nil
}

func (s *MemoryStore) DecisionsFor(_ context.Context, recommendationID string) ([]*models.ApprovalDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decisions := s.decisions[recommendationID]
	out := make([]*models.ApprovalDecision, len(decisions))
	for i := range decisions {
		d := decisions[i]
		out[i] = &d
	}
	return out, nil
}
