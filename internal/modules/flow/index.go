// Package flow computes the flow velocity index: recent shipment volume
// against a baseline window 30 days earlier. Flows accelerate before
// prices move, which makes the ratio a leading indicator.
package flow

import (
	"math"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/reference"
)

// Signal bands for an FVI value.
const (
	SignalStrongAcceleration   = "STRONG_ACCELERATION"
	SignalModerateAcceleration = "MODERATE_ACCELERATION"
	SignalNormal               = "NORMAL"
	SignalModerateDeceleration = "MODERATE_DECELERATION"
	SignalSevereDeceleration   = "SEVERE_DECELERATION"
	SignalNoBaseline           = "NO_BASELINE"
	SignalNoData               = "NO_DATA"
	SignalUnknown              = "UNKNOWN"
)

const (
	defaultRecentWindow   = 7
	defaultBaselineOffset = 30
)

// Result is one flow velocity reading. The adjusted fields are only
// present on seasonally adjusted computations.
type Result struct {
	FVIRaw           *float64 `json:"fvi_raw"`
	Signal           string   `json:"signal"`
	VolumeRecentMT   float64  `json:"volume_recent_mt"`
	VolumeBaselineMT float64  `json:"volume_baseline_mt"`
	RecentWindow     string   `json:"recent_window,omitempty"`
	BaselineWindow   string   `json:"baseline_window,omitempty"`
	NRecordsRecent   int      `json:"n_records_recent"`
	NRecordsBaseline int      `json:"n_records_baseline"`

	FVIAdjusted    *float64 `json:"fvi_adjusted,omitempty"`
	SeasonalFactor *float64 `json:"seasonal_factor,omitempty"`
	SignalAdjusted string   `json:"signal_adjusted,omitempty"`
}

// Value returns the reading a consumer should act on: the adjusted
// index when present, else the raw one, else zero.
func (r Result) Value() float64 {
	if r.FVIAdjusted != nil && *r.FVIAdjusted != 0 {
		return *r.FVIAdjusted
	}
	if r.FVIRaw != nil {
		return *r.FVIRaw
	}
	return 0
}

// EffectiveSignal is the adjusted signal when present, else the raw one.
func (r Result) EffectiveSignal() string {
	if r.SignalAdjusted != "" {
		return r.SignalAdjusted
	}
	return r.Signal
}

// Point is one day of a flow velocity series.
type Point struct {
	Result
	Date string `json:"date"`
}

// Index computes flow velocity over configurable windows.
type Index struct {
	RecentWindow   int
	BaselineOffset int
}

func NewIndex() *Index {
	return &Index{
		RecentWindow:   defaultRecentWindow,
		BaselineOffset: defaultBaselineOffset,
	}
}

// Compute derives FVI at target: volume over [target-recent, target]
// divided by volume over the same-length window ending baseline-offset
// days earlier. A zero target means today.
func (x *Index) Compute(shipments []domain.Shipment, target time.Time) Result {
	if len(shipments) == 0 {
		return Result{Signal: SignalNoData}
	}
	if target.IsZero() {
		target = time.Now().UTC()
	}

	recentStart := target.AddDate(0, 0, -x.RecentWindow)
	baselineEnd := target.AddDate(0, 0, -x.BaselineOffset)
	baselineStart := baselineEnd.AddDate(0, 0, -x.RecentWindow)

	recentVol, recentN := volumeBetween(shipments, recentStart, target)
	baselineVol, baselineN := volumeBetween(shipments, baselineStart, baselineEnd)

	r := Result{
		VolumeRecentMT:   round2(recentVol),
		VolumeBaselineMT: round2(baselineVol),
		RecentWindow:     window(recentStart, target),
		BaselineWindow:   window(baselineStart, baselineEnd),
		NRecordsRecent:   recentN,
		NRecordsBaseline: baselineN,
	}

	if baselineVol <= 0 {
		r.Signal = SignalNoBaseline
		return r
	}

	raw := round4(recentVol / baselineVol)
	r.FVIRaw = &raw
	r.Signal = Interpret(raw)
	return r
}

// ComputeSeasonallyAdjusted divides the raw FVI by the expected
// seasonal ratio between the current month and the baseline month, so
// that a normal harvest ramp does not read as acceleration. Commodities
// without a seasonal table pass through unadjusted.
func (x *Index) ComputeSeasonallyAdjusted(shipments []domain.Shipment, hctID string, target time.Time) Result {
	r := x.Compute(shipments, target)
	if r.FVIRaw == nil {
		return r
	}

	pattern, ok := reference.SeasonalPatternFor(hctID)
	if !ok || len(pattern.MonthlyWeights) == 0 {
		r.FVIAdjusted = r.FVIRaw
		factor := 1.0
		r.SeasonalFactor = &factor
		return r
	}

	if target.IsZero() {
		target = time.Now().UTC()
	}
	currentWeight := monthWeight(pattern, target.Month())
	baselineWeight := monthWeight(pattern, target.AddDate(0, 0, -30).Month())

	factor := 1.0
	if baselineWeight > 0 {
		factor = currentWeight / baselineWeight
	}
	rounded := round4(factor)
	r.SeasonalFactor = &rounded

	if factor > 0 {
		adjusted := round4(*r.FVIRaw / factor)
		r.FVIAdjusted = &adjusted
		if adjusted > 0 {
			r.SignalAdjusted = Interpret(adjusted)
		} else {
			r.SignalAdjusted = SignalUnknown
		}
	} else {
		r.SignalAdjusted = SignalUnknown
	}
	return r
}

// ComputeTimeSeries computes a daily FVI over [start, end]. With a
// non-empty hctID each point is seasonally adjusted.
func (x *Index) ComputeTimeSeries(shipments []domain.Shipment, start, end time.Time, hctID string) []Point {
	var series []Point
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		var r Result
		if hctID != "" {
			r = x.ComputeSeasonallyAdjusted(shipments, hctID, d)
		} else {
			r = x.Compute(shipments, d)
		}
		series = append(series, Point{Result: r, Date: d.Format("2006-01-02")})
	}
	return series
}

// Interpret maps an FVI value onto its signal band.
func Interpret(fvi float64) string {
	switch {
	case fvi > 1.30:
		return SignalStrongAcceleration
	case fvi > 1.10:
		return SignalModerateAcceleration
	case fvi >= 0.90:
		return SignalNormal
	case fvi >= 0.70:
		return SignalModerateDeceleration
	default:
		return SignalSevereDeceleration
	}
}

// volumeBetween sums positive tonnage in [start, end] and counts every
// dated record in the window, tonnage or not.
func volumeBetween(shipments []domain.Shipment, start, end time.Time) (float64, int) {
	total := 0.0
	n := 0
	for i := range shipments {
		s := &shipments[i]
		if !s.InWindow(start, end) {
			continue
		}
		n++
		if qty := s.Volume(); qty > 0 {
			total += qty
		}
	}
	return total, n
}

// monthWeight falls back to a flat 1/12 for months the table omits.
func monthWeight(p *reference.SeasonalPattern, m time.Month) float64 {
	if w, ok := p.MonthlyWeights[m]; ok {
		return w
	}
	return 1.0 / 12
}

func window(start, end time.Time) string {
	return start.Format("2006-01-02") + " to " + end.Format("2006-01-02")
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
