// Package anomaly maintains rolling statistical baselines per cost dimension
// and flags observations that deviate beyond configured thresholds.
package anomaly

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

const (
	// DefaultWindowLength covers 30 prior aggregation periods.
	DefaultWindowLength = 30

	// DefaultWarningThreshold and DefaultCriticalThreshold are absolute
	// deviation-score cut-offs for event severity.
	DefaultWarningThreshold  = 2.0
	DefaultCriticalThreshold = 3.5

	// DefaultCooldownPeriods suppresses re-emission for a sustained anomaly.
	DefaultCooldownPeriods = 1

	// DefaultMinObservations is the warm-up size a baseline window must
	// reach before observations are scored. A one- or two-sample baseline
	// has a meaningless stddev and would flag ordinary variation.
	DefaultMinObservations = 5

	// stddevEpsilon floors the baseline stddev so near-constant series do
	// not divide by zero. Any real deviation on such a series scores huge,
	// which is the intended behaviour.
	stddevEpsilon = 1e-9
)

// Config controls detector behaviour. Zero values select defaults.
type Config struct {
	// WindowLength is the number of prior periods in each baseline window.
	WindowLength int

	// WarningThreshold and CriticalThreshold are the |deviation_score|
	// cut-offs for WARNING and CRITICAL events.
	WarningThreshold  float64
	CriticalThreshold float64

	// CooldownPeriods is the number of periods after an emission during
	// which the same series emits nothing, even if the anomaly clears and
	// re-trips.
	CooldownPeriods int

	// MinObservations is the baseline warm-up: windows smaller than this
	// score every observation as 0.
	MinObservations int

	// SeasonalPeriod maps a dimension key (Dimension.String()) to its
	// periodicity in aggregation periods (e.g. 7 for weekly seasonality on
	// daily periods). Series with an entry score each observation against
	// the same phase in prior cycles instead of a flat window.
	SeasonalPeriod map[string]int
}

func (c Config) withDefaults() Config {
	if c.WindowLength <= 0 {
		c.WindowLength = DefaultWindowLength
	}
	if c.WarningThreshold <= 0 {
		c.WarningThreshold = DefaultWarningThreshold
	}
	if c.CriticalThreshold <= 0 {
		c.CriticalThreshold = DefaultCriticalThreshold
	}
	if c.CooldownPeriods <= 0 {
		c.CooldownPeriods = DefaultCooldownPeriods
	}
	if c.MinObservations <= 0 {
		c.MinObservations = DefaultMinObservations
	}
	return c
}

// seriesState is the per-(dimension, metric) baseline state.
type seriesState struct {
	// seasonLen is 0 for flat series; otherwise the configured periodicity.
	seasonLen int
	// phases holds one window for flat series, or seasonLen phase windows.
	phases []*window

	// lastPeriod is the most recent observed period index; -1 before the
	// first observation. Gaps are back-filled as zero-usage periods.
	lastPeriod int

	inAnomaly    bool
	cooldownLeft int
}

// Detector scores new observations against rolling baselines and emits
// AnomalyEvents on onset transitions. State is keyed per (dimension, metric)
// and owned by the instance, so parallel test detectors never interfere.
//
// Detector is not safe for concurrent use; the pipeline runs one detector
// per account shard.
type Detector struct {
	cfg    Config
	series map[string]*seriesState
	logger *zap.Logger
	now    func() time.Time
}

// NewDetector returns a Detector with the supplied configuration.
// A nil logger is replaced with zap.NewNop().
func NewDetector(cfg Config, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		cfg:    cfg.withDefaults(),
		series: make(map[string]*seriesState),
		logger: logger,
		now:    time.Now,
	}
}

// Observe scores one aggregation-period observation for (dim, metric) and
// returns an AnomalyEvent when the deviation crosses a threshold at onset,
// or nil otherwise.
//
// period is the caller's monotonically increasing period index. Skipped
// indexes are treated as zero-usage periods and folded into the baseline
// before the current value is scored. The current value never contributes to
// the baseline it is scored against.
func (d *Detector) Observe(dim models.Dimension, metric string, period int, value float64) *models.AnomalyEvent {
	key := dim.String() + "|" + metric
	st, ok := d.series[key]
	if !ok {
		st = d.newSeries(dim)
		d.series[key] = st
	}

	// Back-fill missing periods as zero usage. Each filled period also
	// advances the cooldown clock.
	if st.lastPeriod >= 0 {
		for p := st.lastPeriod + 1; p < period; p++ {
			st.windowFor(p).push(0)
			st.tickCooldown()
		}
	}

	win := st.windowFor(period)
	mean := win.mean()
	stddev := win.stddev()

	var score float64
	if win.size >= d.cfg.MinObservations {
		score = (value - mean) / math.Max(stddev, stddevEpsilon)
	}

	severity, anomalous := d.classify(score)

	var event *models.AnomalyEvent
	switch {
	case !anomalous:
		st.inAnomaly = false
	case st.inAnomaly || st.cooldownLeft > 0:
		// Sustained anomaly or still cooling down: onset already emitted.
		st.inAnomaly = true
	default:
		st.inAnomaly = true
		st.cooldownLeft = d.cfg.CooldownPeriods + 1 // +1: consumed by tick below
		event = &models.AnomalyEvent{
			ID:             uuid.New().String(),
			Dimension:      dim,
			Metric:         metric,
			BaselineMean:   mean,
			BaselineStddev: stddev,
			Observed:       value,
			DeviationScore: score,
			Severity:       severity,
			DetectedAt:     d.now().UTC(),
		}
		d.logger.Info("anomaly detected",
			zap.String("dimension", dim.String()),
			zap.String("metric", metric),
			zap.Float64("deviation_score", score),
			zap.String("severity", string(severity)),
		)
	}

	win.push(value)
	st.tickCooldown()
	st.lastPeriod = period
	return event
}

// Baseline returns the current mean and stddev for (dim, metric) at the given
// period's phase, and whether any baseline exists yet.
func (d *Detector) Baseline(dim models.Dimension, metric string, period int) (mean, stddev float64, ok bool) {
	st, exists := d.series[dim.String()+"|"+metric]
	if !exists {
		return 0, 0, false
	}
	win := st.windowFor(period)
	if win.size == 0 {
		return 0, 0, false
	}
	return win.mean(), win.stddev(), true
}

// classify maps a deviation score to severity. The absolute value is used so
// unexplained cost drops alert as well as spikes.
func (d *Detector) classify(score float64) (models.Severity, bool) {
	abs := math.Abs(score)
	switch {
	case abs >= d.cfg.CriticalThreshold:
		return models.SeverityCritical, true
	case abs >= d.cfg.WarningThreshold:
		return models.SeverityWarning, true
	default:
		return "", false
	}
}

func (d *Detector) newSeries(dim models.Dimension) *seriesState {
	seasonLen := d.cfg.SeasonalPeriod[dim.String()]
	st := &seriesState{seasonLen: seasonLen, lastPeriod: -1}
	if seasonLen > 1 {
		st.phases = make([]*window, seasonLen)
		for i := range st.phases {
			st.phases[i] = newWindow(d.cfg.WindowLength)
		}
	} else {
		st.seasonLen = 0
		st.phases = []*window{newWindow(d.cfg.WindowLength)}
	}
	return st
}

// windowFor selects the phase window for a period index.
func (s *seriesState) windowFor(period int) *window {
	if s.seasonLen == 0 {
		return s.phases[0]
	}
	phase := period % s.seasonLen
	if phase < 0 {
		phase += s.seasonLen
	}
	return s.phases[phase]
}

func (s *seriesState) tickCooldown() {
	if s.cooldownLeft > 0 {
		s.cooldownLeft--
	}
}
