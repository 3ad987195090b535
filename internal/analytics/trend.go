package analytics

import (
	"fmt"
	"math"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// stableBandPercent is the change threshold below which spend counts as flat.
const stableBandPercent = 5.0

// AnalyzeTrend compares the first and second half of a daily cost series and
// classifies the direction of spend. Fewer than 4 data points cannot be
// split meaningfully and yield a stable trend with an explanatory insight.
func AnalyzeTrend(values []float64) *models.CostTrend {
	trend := &models.CostTrend{
		Direction:  "stable",
		DataPoints: len(values),
	}
	if len(values) < 4 {
		trend.Insights = append(trend.Insights, "not enough history for trend analysis")
		return trend
	}

	mid := len(values) / 2
	firstAvg := mean(values[:mid])
	secondAvg := mean(values[mid:])

	var changePct float64
	switch {
	case firstAvg != 0:
		changePct = (secondAvg - firstAvg) / firstAvg * 100
	case secondAvg != 0:
		// Spend appeared from nothing.
		changePct = 100
	}
	trend.ChangePercent = round2(changePct)

	switch {
	case changePct > stableBandPercent:
		trend.Direction = "increasing"
		trend.Insights = append(trend.Insights,
			fmt.Sprintf("daily spend is up %.1f%% versus the first half of the window", changePct))
	case changePct < -stableBandPercent:
		trend.Direction = "decreasing"
		trend.Insights = append(trend.Insights,
			fmt.Sprintf("daily spend is down %.1f%% versus the first half of the window", -changePct))
	default:
		trend.Insights = append(trend.Insights, "daily spend is holding steady")
	}

	if peak, day := peakValue(values); peak > 2*secondAvg && secondAvg > 0 {
		trend.Insights = append(trend.Insights,
			fmt.Sprintf("spend spiked to %.2f on day %d, more than double the recent average", peak, day+1))
	}
	return trend
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func peakValue(values []float64) (float64, int) {
	peak, at := math.Inf(-1), 0
	for i, v := range values {
		if v > peak {
			peak, at = v, i
		}
	}
	return peak, at
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
