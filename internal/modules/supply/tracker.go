// Package supply tracks cumulative trade flows against consensus
// estimates. The gap between what the market expects to ship and what
// is actually shipping is the desk's highest-conviction signal.
package supply

import (
	"math"
	"sort"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
)

// Delta signals.
const (
	SignalOverShipping  = "OVER_SHIPPING"
	SignalSlightlyOver  = "SLIGHTLY_OVER"
	SignalUnderShipping = "UNDER_SHIPPING"
	SignalSlightlyUnder = "SLIGHTLY_UNDER"
	SignalOnTrack       = "ON_TRACK"
)

// CountryFlow is one country's share of a period's volume.
type CountryFlow struct {
	Country  string  `json:"country"`
	VolumeMT float64 `json:"volume_mt"`
	SharePct float64 `json:"share_pct"`
}

// DailyFlow is one day of a cumulative series.
type DailyFlow struct {
	Date               string  `json:"date"`
	DailyVolumeMT      float64 `json:"daily_volume_mt"`
	CumulativeVolumeMT float64 `json:"cumulative_volume_mt"`
}

// Flows summarizes shipment volume and value over a period.
type Flows struct {
	TotalVolumeMT    float64       `json:"total_volume_mt"`
	TotalValueUSD    float64       `json:"total_value_usd"`
	RecordCount      int           `json:"record_count"`
	AvgPricePerMT    *float64      `json:"avg_price_per_mt"`
	CountryBreakdown []CountryFlow `json:"country_breakdown"`
	DailySeries      []DailyFlow   `json:"daily_series"`
	Period           string        `json:"period"`
}

// Delta is the deviation of actual cumulative flow from consensus.
type Delta struct {
	ActualCumulativeMT   float64       `json:"actual_cumulative_mt"`
	ExpectedCumulativeMT float64       `json:"expected_cumulative_mt"`
	DeltaMT              float64       `json:"delta_mt"`
	DeltaPct             float64       `json:"delta_pct"`
	ConsensusAnnualMT    float64       `json:"consensus_annual_mt"`
	CropYearProgressPct  float64       `json:"crop_year_progress_pct"`
	Signal               string        `json:"signal"`
	Implication          string        `json:"implication"`
	CountryBreakdown     []CountryFlow `json:"country_breakdown"`
	RecordCount          int           `json:"record_count"`
}

// YoY compares one period against the same period a year earlier.
type YoY struct {
	CurrentPeriod      Flows    `json:"current_period"`
	PreviousPeriod     Flows    `json:"previous_period"`
	YoYVolumeChangePct *float64 `json:"yoy_volume_change_pct"`
	YoYValueChangePct  *float64 `json:"yoy_value_change_pct"`
}

// Tracker computes flow aggregates. Stateless; safe for concurrent use.
type Tracker struct{}

func NewTracker() *Tracker { return &Tracker{} }

// CumulativeFlows aggregates volume over [start, end]: a daily
// cumulative series, a per-country breakdown sorted largest first, and
// period totals. A non-empty tradeType restricts to that flow. Only
// records with positive tonnage contribute.
func (t *Tracker) CumulativeFlows(shipments []domain.Shipment, start, end time.Time, tradeType domain.TradeType) Flows {
	daily := map[string]float64{}
	countries := map[string]float64{}
	totalVolume := 0.0
	totalValue := 0.0
	count := 0

	for i := range shipments {
		s := &shipments[i]
		if !s.InWindow(start, end) {
			continue
		}
		if tradeType != "" && s.TradeType != tradeType {
			continue
		}
		qty := s.Volume()
		if qty <= 0 {
			continue
		}

		daily[s.TradeDate] += qty
		countries[s.FlowCountry()] += qty
		totalVolume += qty
		totalValue += s.Value()
		count++
	}

	var series []DailyFlow
	running := 0.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		vol := daily[key]
		running += vol
		series = append(series, DailyFlow{
			Date:               key,
			DailyVolumeMT:      round2(vol),
			CumulativeVolumeMT: round2(running),
		})
	}

	breakdown := make([]CountryFlow, 0, len(countries))
	for country, vol := range countries {
		share := 0.0
		if totalVolume > 0 {
			share = round1(vol / totalVolume * 100)
		}
		breakdown = append(breakdown, CountryFlow{
			Country:  country,
			VolumeMT: round2(vol),
			SharePct: share,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].VolumeMT != breakdown[j].VolumeMT {
			return breakdown[i].VolumeMT > breakdown[j].VolumeMT
		}
		return breakdown[i].Country < breakdown[j].Country
	})

	var avg *float64
	if totalVolume > 0 {
		avg = round2p(totalValue / totalVolume)
	}

	return Flows{
		TotalVolumeMT:    round2(totalVolume),
		TotalValueUSD:    round2(totalValue),
		RecordCount:      count,
		AvgPricePerMT:    avg,
		CountryBreakdown: breakdown,
		DailySeries:      series,
		Period:           start.Format("2006-01-02") + " to " + end.Format("2006-01-02"),
	}
}

// Delta measures actual cumulative flow since the crop year started
// against the pro-rata share of the consensus annual estimate. A zero
// target means today.
func (t *Tracker) Delta(shipments []domain.Shipment, consensusAnnualMT float64, cropYearStart, target time.Time) Delta {
	if target.IsZero() {
		target = time.Now().UTC()
	}
	cropYearEnd := cropYearStart.AddDate(1, 0, 0)

	daysElapsed := int(target.Sub(cropYearStart).Hours() / 24)
	daysTotal := int(cropYearEnd.Sub(cropYearStart).Hours() / 24)
	progress := 0.0
	if daysTotal > 0 {
		progress = float64(daysElapsed) / float64(daysTotal)
	}

	expected := consensusAnnualMT * progress
	flows := t.CumulativeFlows(shipments, cropYearStart, target, "")
	actual := flows.TotalVolumeMT

	deltaMT := actual - expected
	deltaPct := 0.0
	if expected > 0 {
		deltaPct = deltaMT / expected * 100
	}

	var signal, implication string
	switch {
	case deltaPct > 10:
		signal = SignalOverShipping
		implication = "Supply more ample than market expects. Bearish."
	case deltaPct > 5:
		signal = SignalSlightlyOver
		implication = "Marginally above expectations. Watch for trend."
	case deltaPct < -10:
		signal = SignalUnderShipping
		implication = "Supply tighter than market expects. Bullish."
	case deltaPct < -5:
		signal = SignalSlightlyUnder
		implication = "Marginally below expectations. Watch for trend."
	default:
		signal = SignalOnTrack
		implication = "Flows in line with consensus."
	}

	return Delta{
		ActualCumulativeMT:   round2(actual),
		ExpectedCumulativeMT: round2(expected),
		DeltaMT:              round2(deltaMT),
		DeltaPct:             round1(deltaPct),
		ConsensusAnnualMT:    consensusAnnualMT,
		CropYearProgressPct:  round1(progress * 100),
		Signal:               signal,
		Implication:          implication,
		CountryBreakdown:     flows.CountryBreakdown,
		RecordCount:          flows.RecordCount,
	}
}

// YoYComparison aggregates the same calendar window this year and last.
func (t *Tracker) YoYComparison(currentRecords, previousRecords []domain.Shipment, periodStart, periodEnd time.Time) YoY {
	current := t.CumulativeFlows(currentRecords, periodStart, periodEnd, "")
	previous := t.CumulativeFlows(previousRecords, periodStart.AddDate(-1, 0, 0), periodEnd.AddDate(-1, 0, 0), "")

	var volChange, valChange *float64
	if previous.TotalVolumeMT > 0 {
		volChange = round1p((current.TotalVolumeMT - previous.TotalVolumeMT) / previous.TotalVolumeMT * 100)
	}
	if previous.TotalValueUSD > 0 {
		valChange = round1p((current.TotalValueUSD - previous.TotalValueUSD) / previous.TotalValueUSD * 100)
	}

	return YoY{
		CurrentPeriod:      current,
		PreviousPeriod:     previous,
		YoYVolumeChangePct: volChange,
		YoYValueChangePct:  valChange,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round1p(v float64) *float64 {
	r := round1(v)
	return &r
}

func round2p(v float64) *float64 {
	r := round2(v)
	return &r
}
