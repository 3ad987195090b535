package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

func TestMemoryStoreResources(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetResource(ctx, "i-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	res := &models.ResourceEntity{
		ResourceID: "i-0001",
		Provider:   models.ProviderAWS,
		Type:       "ec2-instance",
		State:      models.ResourceActive,
		LastSeenAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.SaveResource(ctx, res); err != nil {
		t.Fatalf("SaveResource: %v", err)
	}

	got, err := s.GetResource(ctx, "i-0001")
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}

	// Returned value must be a copy: mutating it must not leak into the store.
	got.State = models.ResourceStopped
	again, err := s.GetResource(ctx, "i-0001")
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if again.State != models.ResourceActive {
		t.Fatalf("store leaked caller mutation: state = %q", again.State)
	}

	// Upsert replaces.
	res.State = models.ResourceStopped
	if err := s.SaveResource(ctx, res); err != nil {
		t.Fatalf("SaveResource upsert: %v", err)
	}
	again, _ = s.GetResource(ctx, "i-0001")
	if again.State != models.ResourceStopped {
		t.Fatalf("upsert did not replace: state = %q", again.State)
	}
}

func TestMemoryStoreListResourcesSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, id := range []string{"i-0003", "i-0001", "i-0002"} {
		if err := s.SaveResource(ctx, &models.ResourceEntity{ResourceID: id}); err != nil {
			t.Fatalf("SaveResource %s: %v", id, err)
		}
	}

	list, err := s.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	want := []string{"i-0001", "i-0002", "i-0003"}
	if len(list) != len(want) {
		t.Fatalf("got %d resources, want %d", len(list), len(want))
	}
	for i, id := range want {
		if list[i].ResourceID != id {
			t.Errorf("list[%d] = %q, want %q", i, list[i].ResourceID, id)
		}
	}
}

func TestMemoryStoreRecommendationStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	recs := []*models.Recommendation{
		{ID: "r1", ResourceID: "i-1", Status: models.StatusProposed},
		{ID: "r2", ResourceID: "i-2", Status: models.StatusPendingApproval},
		{ID: "r3", ResourceID: "i-3", Status: models.StatusExecuting},
	}
	for _, r := range recs {
		if err := s.SaveRecommendation(ctx, r); err != nil {
			t.Fatalf("SaveRecommendation %s: %v", r.ID, err)
		}
	}

	all, err := s.ListRecommendations(ctx)
	if err != nil {
		t.Fatalf("ListRecommendations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unfiltered list has %d entries, want 3", len(all))
	}

	pending, err := s.ListRecommendations(ctx, models.StatusPendingApproval, models.StatusExecuting)
	if err != nil {
		t.Fatalf("ListRecommendations filtered: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("filtered list has %d entries, want 2", len(pending))
	}
	if pending[0].ID != "r2" || pending[1].ID != "r3" {
		t.Fatalf("filtered list = [%s %s], want [r2 r3]", pending[0].ID, pending[1].ID)
	}
}

func TestMemoryStoreForecastSupersedes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	dim := models.Dimension{Kind: models.DimensionAccount, Key: "123456789012"}

	if _, err := s.CurrentForecast(ctx, dim); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any save, got %v", err)
	}

	first := &models.ForecastSeries{
		Dimension:    dim,
		HorizonDays:  30,
		GeneratedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		ModelVersion: "holt-winters-add-v1",
	}
	second := &models.ForecastSeries{
		Dimension:    dim,
		HorizonDays:  30,
		GeneratedAt:  time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		ModelVersion: "holt-winters-add-v1",
	}
	if err := s.SaveForecast(ctx, first); err != nil {
		t.Fatalf("SaveForecast first: %v", err)
	}
	if err := s.SaveForecast(ctx, second); err != nil {
		t.Fatalf("SaveForecast second: %v", err)
	}

	current, err := s.CurrentForecast(ctx, dim)
	if err != nil {
		t.Fatalf("CurrentForecast: %v", err)
	}
	if !current.GeneratedAt.Equal(second.GeneratedAt) {
		t.Fatalf("current forecast generated at %v, want %v", current.GeneratedAt, second.GeneratedAt)
	}

	// Superseded series stay retrievable, in generation order.
	history, err := s.ForecastHistory(ctx, dim)
	if err != nil {
		t.Fatalf("ForecastHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if !history[0].GeneratedAt.Equal(first.GeneratedAt) {
		t.Fatalf("history[0] generated at %v, want the superseded series", history[0].GeneratedAt)
	}
}

func TestMemoryStoreDecisionsOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	for i, d := range []models.Decision{models.DecisionReject, models.DecisionApprove} {
		dec := &models.ApprovalDecision{
			RecommendationID: "r1",
			Decision:         d,
			Actor:            "alice",
			Timestamp:        base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveDecision(ctx, dec); err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
	}

	got, err := s.DecisionsFor(ctx, "r1")
	if err != nil {
		t.Fatalf("DecisionsFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions, want 2", len(got))
	}
	if got[0].Decision != models.DecisionReject || got[1].Decision != models.DecisionApprove {
		t.Fatalf("decisions out of insertion order: [%s %s]", got[0].Decision, got[1].Decision)
	}

	none, err := s.DecisionsFor(ctx, "r-absent")
	if err != nil {
		t.Fatalf("DecisionsFor absent: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no decisions for absent recommendation, got %d", len(none))
	}
}
