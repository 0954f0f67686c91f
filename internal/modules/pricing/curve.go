// Package pricing discovers prices for commodities that have no
// published benchmark: a volume-weighted median FOB over a rolling
// window of shipment records, with a confidence tier derived from
// sample size and dispersion.
package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/avramidis/tradewinds/internal/domain"
)

// Confidence tiers for a computed price point.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
	ConfidenceNone   = "NONE"
)

const (
	defaultWindowDays       = 5
	defaultMinRecordsHigh   = 20
	defaultMinRecordsMedium = 5
	maxDispersionHigh       = 0.15
)

// Result is one implied price point.
type Result struct {
	PriceUSDPerMT *float64 `json:"price_usd_per_mt"`
	Confidence    string   `json:"confidence"`
	NRecords      int      `json:"n_records"`
	VolumeMT      float64  `json:"volume_mt"`
	PriceIQR      *float64 `json:"price_iqr"`
	PriceMin      *float64 `json:"price_min"`
	PriceMax      *float64 `json:"price_max"`
	PriceMean     *float64 `json:"price_mean"`
	WindowStart   string   `json:"window_start,omitempty"`
	WindowEnd     string   `json:"window_end,omitempty"`
}

// Price returns the implied price, or zero when none was computable.
func (r Result) Price() float64 {
	if r.PriceUSDPerMT == nil {
		return 0
	}
	return *r.PriceUSDPerMT
}

// Point is one day of an implied price series.
type Point struct {
	Result
	Date     string   `json:"date"`
	PriceSMA *float64 `json:"price_sma,omitempty"`
}

// Curve computes implied prices. The zero value is not usable; NewCurve
// sets the window and confidence thresholds.
type Curve struct {
	WindowDays       int
	MinRecordsHigh   int
	MinRecordsMedium int
}

func NewCurve() *Curve {
	return &Curve{
		WindowDays:       defaultWindowDays,
		MinRecordsHigh:   defaultMinRecordsHigh,
		MinRecordsMedium: defaultMinRecordsMedium,
	}
}

// Compute derives the implied price at target. Only records with a
// NORMAL price status and a positive per-MT price inside
// [target-window, target] participate; each is weighted by its tonnage,
// or 1.0 when tonnage is unknown. A zero target means the latest trade
// date present in the records.
func (c *Curve) Compute(shipments []domain.Shipment, target time.Time) Result {
	if len(shipments) == 0 {
		return noData("", "")
	}
	if target.IsZero() {
		target = latestTradeDate(shipments)
	}
	start := target.AddDate(0, 0, -c.WindowDays)

	var prices, weights []float64
	for i := range shipments {
		s := &shipments[i]
		price, ok := s.PerMT()
		if !ok || price <= 0 {
			continue
		}
		status := s.PriceStatus
		if status == "" {
			status = domain.PriceNormal
		}
		if status != domain.PriceNormal || !s.InWindow(start, target) {
			continue
		}
		weight := s.Volume()
		if weight <= 0 {
			weight = 1.0
		}
		prices = append(prices, price)
		weights = append(weights, weight)
	}

	windowStart := start.Format("2006-01-02")
	windowEnd := target.Format("2006-01-02")
	if len(prices) == 0 {
		return noData(windowStart, windowEnd)
	}

	sortByPrice(prices, weights)
	median := stat.Quantile(0.5, stat.Empirical, prices, weights)

	n := len(prices)
	iqr := 0.0
	if n > 1 {
		q1 := prices[max(0, n/4-1)]
		q3 := prices[min(n-1, 3*n/4)]
		iqr = q3 - q1
	}

	dispersion := 1.0
	if median > 0 {
		dispersion = iqr / median
	}
	confidence := ConfidenceLow
	switch {
	case n >= c.MinRecordsHigh && dispersion < maxDispersionHigh:
		confidence = ConfidenceHigh
	case n >= c.MinRecordsMedium:
		confidence = ConfidenceMedium
	}

	return Result{
		PriceUSDPerMT: round2p(median),
		Confidence:    confidence,
		NRecords:      n,
		VolumeMT:      round2(floats.Sum(weights)),
		PriceIQR:      round2p(iqr),
		PriceMin:      round2p(floats.Min(prices)),
		PriceMax:      round2p(floats.Max(prices)),
		PriceMean:     round2p(stat.Mean(prices, nil)),
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
	}
}

// ComputeTimeSeries computes the implied price for every day in
// [start, end] inclusive.
func (c *Curve) ComputeTimeSeries(shipments []domain.Shipment, start, end time.Time) []Point {
	var series []Point
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		series = append(series, Point{
			Result: c.Compute(shipments, d),
			Date:   d.Format("2006-01-02"),
		})
	}
	return series
}

// AttachSMA overlays a simple moving average on the priced points of a
// series. Days without a price do not enter the average; points inside
// the warm-up period are left bare. No-op when fewer than period prices
// exist.
func AttachSMA(series []Point, period int) {
	var idx []int
	var vals []float64
	for i := range series {
		if series[i].PriceUSDPerMT != nil {
			idx = append(idx, i)
			vals = append(vals, *series[i].PriceUSDPerMT)
		}
	}
	if period < 1 || len(vals) < period {
		return
	}
	sma := talib.Sma(vals, period)
	for k, i := range idx {
		if k >= period-1 {
			series[i].PriceSMA = round2p(sma[k])
		}
	}
}

func latestTradeDate(shipments []domain.Shipment) time.Time {
	var latest time.Time
	found := false
	for i := range shipments {
		if d, ok := shipments[i].Date(); ok && (!found || d.After(latest)) {
			latest = d
			found = true
		}
	}
	if !found {
		return time.Now().UTC()
	}
	return latest
}

func sortByPrice(prices, weights []float64) {
	pairs := make([][2]float64, len(prices))
	for i := range prices {
		pairs[i] = [2]float64{prices[i], weights[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	for i, p := range pairs {
		prices[i], weights[i] = p[0], p[1]
	}
}

func noData(windowStart, windowEnd string) Result {
	return Result{
		Confidence:  ConfidenceNone,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round2p(v float64) *float64 {
	r := round2(v)
	return &r
}
