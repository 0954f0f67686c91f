// Package signals turns analytic readings into the alert feed a trader
// scans first thing in the morning. Every signal is quantified and
// carries enough detail to act on without opening the deep dive.
package signals

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/avramidis/tradewinds/internal/modules/counterparty"
	"github.com/avramidis/tradewinds/internal/modules/flow"
	"github.com/avramidis/tradewinds/internal/modules/pricing"
	"github.com/avramidis/tradewinds/internal/modules/supply"
)

// Signal types.
const (
	TypePriceMovement      = "PRICE_MOVEMENT"
	TypeFlowVelocity       = "FLOW_VELOCITY"
	TypeSDDelta            = "SD_DELTA"
	TypeCounterpartyPrefix = "COUNTERPARTY_"
)

// Severities.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Price movement thresholds, percent over seven days.
const (
	priceMoveMinPct  = 2.0
	priceMoveHighPct = 5.0
)

// maxFeedSize bounds the aggregated feed regardless of the caller's limit.
const maxFeedSize = 100

// Signal is one entry in the feed.
type Signal struct {
	SignalType  string `json:"signal_type"`
	Severity    string `json:"severity"`
	Headline    string `json:"headline"`
	Detail      any    `json:"detail"`
	HCTID       string `json:"hct_id,omitempty"`
	GeneratedAt string `json:"generated_at"`
}

// Generator builds signals from analytics outputs.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// FromPriceChange compares two implied price readings a week apart and
// signals moves of at least two percent. Either price missing means no
// signal; a move past five percent is high severity.
func (g *Generator) FromPriceChange(current, previous pricing.Result, commodityName, origin, hctID string) *Signal {
	if current.PriceUSDPerMT == nil || previous.PriceUSDPerMT == nil || *previous.PriceUSDPerMT == 0 {
		return nil
	}
	curr, prev := *current.PriceUSDPerMT, *previous.PriceUSDPerMT
	changePct := (curr - prev) / prev * 100
	if math.Abs(changePct) < priceMoveMinPct {
		return nil
	}

	severity := SeverityMedium
	if math.Abs(changePct) > priceMoveHighPct {
		severity = SeverityHigh
	}
	direction := "up"
	if changePct < 0 {
		direction = "down"
	}

	return &Signal{
		SignalType: TypePriceMovement,
		Severity:   severity,
		Headline: fmt.Sprintf("%s from %s: implied FOB %s %.1f%% to $%.0f/MT",
			commodityName, origin, direction, math.Abs(changePct), curr),
		Detail: map[string]any{
			"commodity":      commodityName,
			"origin":         origin,
			"current_price":  curr,
			"previous_price": prev,
			"change_pct":     round1(changePct),
			"direction":      direction,
			"confidence":     current.Confidence,
		},
		HCTID:       hctID,
		GeneratedAt: g.timestamp(),
	}
}

// FromFVI signals corridors flowing out of band. Normal readings and
// readings without enough data stay silent.
func (g *Generator) FromFVI(r flow.Result, corridorName, hctID string) *Signal {
	signalType := r.EffectiveSignal()
	switch signalType {
	case flow.SignalNormal, flow.SignalNoData, flow.SignalNoBaseline, flow.SignalUnknown, "":
		return nil
	}

	severity := SeverityLow
	switch signalType {
	case flow.SignalStrongAcceleration, flow.SignalSevereDeceleration:
		severity = SeverityHigh
	case flow.SignalModerateAcceleration, flow.SignalModerateDeceleration:
		severity = SeverityMedium
	}

	fvi := r.Value()
	changePct := round1((fvi - 1.0) * 100)

	direction := "down"
	implication := "Demand pullback or supply shortage. Watch for price pressure."
	word := "DOWN"
	if fvi > 1.0 {
		direction = "up"
		implication = "Demand surge or supply rush. Potential price support."
		word = "UP"
	}

	return &Signal{
		SignalType: TypeFlowVelocity,
		Severity:   severity,
		Headline: fmt.Sprintf("%s: flows %s %.1f%% vs 30d ago (%.0f MT recent vs %.0f MT baseline)",
			corridorName, word, math.Abs(changePct), r.VolumeRecentMT, r.VolumeBaselineMT),
		Detail: map[string]any{
			"corridor":    corridorName,
			"fvi":         fvi,
			"direction":   direction,
			"change_pct":  changePct,
			"implication": implication,
		},
		HCTID:       hctID,
		GeneratedAt: g.timestamp(),
	}
}

// FromSDDelta signals cumulative flows running off consensus. On-track
// deltas stay silent; under-shipping is the loudest because missed
// supply moves prices hardest.
func (g *Generator) FromSDDelta(d supply.Delta, commodityName, hctID string) *Signal {
	if d.Signal == supply.SignalOnTrack || d.Signal == "" {
		return nil
	}

	severity := SeverityLow
	switch d.Signal {
	case supply.SignalUnderShipping:
		severity = SeverityHigh
	case supply.SignalOverShipping, supply.SignalSlightlyUnder:
		severity = SeverityMedium
	}

	relation := "below"
	if d.DeltaPct > 0 {
		relation = "above"
	}

	return &Signal{
		SignalType: TypeSDDelta,
		Severity:   severity,
		Headline: fmt.Sprintf("%s: cumulative flow %.1f%% %s consensus (%.0f MT actual vs %.0f MT expected)",
			commodityName, math.Abs(d.DeltaPct), relation, d.ActualCumulativeMT, d.ExpectedCumulativeMT),
		Detail: map[string]any{
			"commodity":   commodityName,
			"delta_pct":   d.DeltaPct,
			"signal":      d.Signal,
			"implication": d.Implication,
		},
		HCTID:       hctID,
		GeneratedAt: g.timestamp(),
	}
}

// FromCounterpartyAnomaly wraps an anomaly as a feed entry, severity
// passed through.
func (g *Generator) FromCounterpartyAnomaly(a counterparty.Anomaly, hctID string) *Signal {
	return &Signal{
		SignalType:  TypeCounterpartyPrefix + a.Type,
		Severity:    a.Severity,
		Headline:    a.Detail,
		Detail:      a,
		HCTID:       hctID,
		GeneratedAt: g.timestamp(),
	}
}

// SortAndTrim orders a feed by severity then recency and truncates it
// to limit. The total before truncation comes back alongside.
func SortAndTrim(feed []Signal, limit int) ([]Signal, int) {
	sort.SliceStable(feed, func(i, j int) bool {
		ri, rj := severityRank(feed[i].Severity), severityRank(feed[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return feed[i].GeneratedAt > feed[j].GeneratedAt
	})

	total := len(feed)
	if limit <= 0 || limit > maxFeedSize {
		limit = maxFeedSize
	}
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, total
}

func severityRank(s string) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

func (g *Generator) timestamp() string {
	return g.now().UTC().Format(time.RFC3339)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
