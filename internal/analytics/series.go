// Package analytics aggregates canonical cost records into the per-dimension
// series consumed by the anomaly detector and the forecaster, and computes
// the trend and breakdown summaries shown in decision reports.
package analytics

import (
	"sort"
	"time"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// DailySeries is a contiguous run of daily cost totals for one dimension.
// Days without spend inside the covered range are zero-filled so downstream
// consumers see every period.
type DailySeries struct {
	Dimension models.Dimension
	// Start is the first day (UTC midnight) covered by Values.
	Start  time.Time
	Values []float64
}

// LastPeriod returns the day of the final value in the series.
func (s DailySeries) LastPeriod() time.Time {
	return s.Start.AddDate(0, 0, len(s.Values)-1)
}

// BuildDailySeries groups records by the given dimension kind and returns
// one zero-filled daily series per dimension, sorted by dimension key for
// deterministic iteration.
func BuildDailySeries(records []models.CostRecord, kind models.DimensionKind) []DailySeries {
	type bounds struct {
		totals   map[time.Time]float64
		min, max time.Time
	}
	grouped := make(map[string]*bounds)

	for _, rec := range records {
		key := dimensionKey(rec, kind)
		day := rec.Timestamp.UTC().Truncate(24 * time.Hour)

		b, ok := grouped[key]
		if !ok {
			b = &bounds{totals: make(map[time.Time]float64), min: day, max: day}
			grouped[key] = b
		}
		b.totals[day] += rec.AmountUSD
		if day.Before(b.min) {
			b.min = day
		}
		if day.After(b.max) {
			b.max = day
		}
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DailySeries, 0, len(keys))
	for _, key := range keys {
		b := grouped[key]
		days := int(b.max.Sub(b.min).Hours()/24) + 1
		values := make([]float64, days)
		for i := 0; i < days; i++ {
			values[i] = b.totals[b.min.AddDate(0, 0, i)]
		}
		out = append(out, DailySeries{
			Dimension: models.Dimension{Kind: kind, Key: key},
			Start:     b.min,
			Values:    values,
		})
	}
	return out
}

func dimensionKey(rec models.CostRecord, kind models.DimensionKind) string {
	switch kind {
	case models.DimensionService:
		return rec.Service
	case models.DimensionResource:
		return rec.ResourceID
	default:
		return rec.AccountID
	}
}

// CostByResource sums spend per resource ID across the record set. Used by
// rules as the fallback when a resource entity carries no monthly run rate.
func CostByResource(records []models.CostRecord) map[string]float64 {
	totals := make(map[string]float64)
	for _, rec := range records {
		totals[rec.ResourceID] += rec.AmountUSD
	}
	return totals
}
