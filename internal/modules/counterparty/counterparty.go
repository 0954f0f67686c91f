// Package counterparty analyzes buyer and seller behaviour: entity
// resolution, market concentration, and the anomalies that show a major
// player changing course. In opaque markets a big house shifting its
// sourcing is often the earliest signal available.
package counterparty

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
)

// Anomaly types.
const (
	AnomalyNewEntrant  = "NEW_ENTRANT"
	AnomalyWithdrawal  = "WITHDRAWAL"
	AnomalyVolumeSurge = "VOLUME_SURGE"
)

const (
	defaultTopN           = 20
	defaultLookbackMonths = 12
	defaultSwitchMonths   = 6
)

// entityAliases maps known trading-house name variants to canonical
// entities. Resolution scans in order and the first alias contained in
// the raw name wins.
var entityAliases = []struct {
	canonical string
	aliases   []string
}{
	{"Olam Group", []string{
		"OLAM", "OLAM INTERNATIONAL", "OLAM AGRI", "OLAM FOOD",
		"OLAM NIGERIA", "OLAM GHANA", "OLAM VIETNAM", "OLAM IVORY",
	}},
	{"Louis Dreyfus", []string{"LOUIS DREYFUS", "LDC", "LD COMMODITIES"}},
	{"Cargill", []string{"CARGILL", "CARGILL INC", "CARGILL INDIA", "CARGILL WEST AFRICA"}},
	{"ADM", []string{"ARCHER DANIELS", "ADM", "A.D.M"}},
	{"Bunge", []string{"BUNGE", "BUNGE LIMITED"}},
	{"Wilmar", []string{"WILMAR", "WILMAR INTERNATIONAL"}},
}

// Entity is one counterparty's position in a period.
type Entity struct {
	Entity         string   `json:"entity"`
	VolumeMT       float64  `json:"volume_mt"`
	ValueUSD       float64  `json:"value_usd"`
	Shipments      int      `json:"shipments"`
	MarketSharePct float64  `json:"market_share_pct"`
	AvgPricePerMT  *float64 `json:"avg_price_per_mt"`
}

// Shares is the market-share table for one side of a market.
type Shares struct {
	PartyType      string   `json:"party_type"`
	TotalVolumeMT  float64  `json:"total_volume_mt"`
	UniqueEntities int      `json:"unique_entities"`
	HHI            float64  `json:"hhi"`
	Concentration  string   `json:"concentration"`
	TopEntities    []Entity `json:"top_entities"`
}

// Anomaly is one behavioural deviation. The pointer fields carry the
// measurements relevant to its type.
type Anomaly struct {
	Type                string   `json:"type"`
	Entity              string   `json:"entity"`
	Severity            string   `json:"severity"`
	Detail              string   `json:"detail"`
	VolumeMT            *float64 `json:"volume_mt,omitempty"`
	MarketSharePct      *float64 `json:"market_share_pct,omitempty"`
	HistoricalSharePct  *float64 `json:"historical_share_pct,omitempty"`
	CurrentVolumeMT     *float64 `json:"current_volume_mt,omitempty"`
	HistoricalMonthlyMT *float64 `json:"historical_monthly_mt,omitempty"`
	Multiplier          *float64 `json:"multiplier,omitempty"`
}

// OriginSwitch reports where an entity sourced from in the two halves
// of a lookback window.
type OriginSwitch struct {
	Entity            string             `json:"entity"`
	RecentOrigins     map[string]float64 `json:"recent_origins"`
	EarlierOrigins    map[string]float64 `json:"earlier_origins"`
	SwitchingDetected bool               `json:"switching_detected"`
}

// Analyzer computes counterparty intelligence from normalized records.
type Analyzer struct {
	now func() time.Time
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{now: time.Now}
}

// Resolve maps a raw counterparty name to its canonical trading house.
// Unrecognized names come back trimmed but otherwise unchanged; blank
// names resolve to UNKNOWN.
func (a *Analyzer) Resolve(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "UNKNOWN"
	}
	upper := strings.ToUpper(trimmed)
	for _, entity := range entityAliases {
		for _, alias := range entity.aliases {
			if strings.Contains(upper, alias) {
				return entity.canonical
			}
		}
	}
	return trimmed
}

// MarketShares aggregates per-entity volume for one side of the market
// over an optional date window. A zero start or end leaves that bound
// open, and records without a parseable date pass the filter. The table
// keeps the topN entities by volume; totals and the unique count cover
// every entity seen.
func (a *Analyzer) MarketShares(shipments []domain.Shipment, party domain.PartyField, start, end time.Time, topN int) Shares {
	if party == "" {
		party = domain.PartyConsignee
	}
	if topN <= 0 {
		topN = defaultTopN
	}

	type agg struct {
		volume, value float64
		shipments     int
	}
	entities := map[string]*agg{}
	totalVolume := 0.0

	for i := range shipments {
		s := &shipments[i]
		if rd, ok := s.Date(); ok {
			if !start.IsZero() && rd.Before(start) {
				continue
			}
			if !end.IsZero() && rd.After(end) {
				continue
			}
		}
		qty := s.Volume()
		if qty <= 0 {
			continue
		}

		name := a.Resolve(s.Party(party))
		e := entities[name]
		if e == nil {
			e = &agg{}
			entities[name] = e
		}
		e.volume += qty
		e.value += s.Value()
		e.shipments++
		totalVolume += qty
	}

	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ei, ej := entities[names[i]], entities[names[j]]
		if ei.volume != ej.volume {
			return ei.volume > ej.volume
		}
		return names[i] < names[j]
	})
	if len(names) > topN {
		names = names[:topN]
	}

	top := make([]Entity, 0, len(names))
	hhi := 0.0
	for _, name := range names {
		e := entities[name]
		share := 0.0
		if totalVolume > 0 {
			share = round1(e.volume / totalVolume * 100)
		}
		hhi += (share / 100) * (share / 100)

		var avg *float64
		if e.volume > 0 {
			avg = round2p(e.value / e.volume)
		}
		top = append(top, Entity{
			Entity:         name,
			VolumeMT:       round2(e.volume),
			ValueUSD:       round2(e.value),
			Shipments:      e.shipments,
			MarketSharePct: share,
			AvgPricePerMT:  avg,
		})
	}

	hhi = round4(hhi)
	concentration := "LOW"
	switch {
	case hhi > 0.25:
		concentration = "HIGH"
	case hhi > 0.15:
		concentration = "MODERATE"
	}

	return Shares{
		PartyType:      string(party),
		TotalVolumeMT:  round2(totalVolume),
		UniqueEntities: len(entities),
		HHI:            hhi,
		Concentration:  concentration,
		TopEntities:    top,
	}
}

// DetectAnomalies compares the last 30 days against the preceding
// lookback window and flags entities behaving out of pattern: new
// entrants, withdrawals, and volume running past twice the historical
// monthly average. Results come back highest severity first.
func (a *Analyzer) DetectAnomalies(current, historical []domain.Shipment, party domain.PartyField, lookbackMonths int) []Anomaly {
	if lookbackMonths <= 0 {
		lookbackMonths = defaultLookbackMonths
	}
	today := a.now().UTC()
	currentStart := today.AddDate(0, 0, -30)
	historicalStart := today.AddDate(0, 0, -lookbackMonths*30)

	curr := a.MarketShares(current, party, currentStart, today, defaultTopN)
	hist := a.MarketShares(historical, party, historicalStart, currentStart, defaultTopN)

	currByName := make(map[string]Entity, len(curr.TopEntities))
	for _, e := range curr.TopEntities {
		currByName[e.Entity] = e
	}
	histByName := make(map[string]Entity, len(hist.TopEntities))
	for _, e := range hist.TopEntities {
		histByName[e.Entity] = e
	}

	var anomalies []Anomaly

	for _, e := range curr.TopEntities {
		if _, ok := histByName[e.Entity]; ok || e.VolumeMT <= 0 {
			continue
		}
		severity := "MEDIUM"
		if e.MarketSharePct > 5 {
			severity = "HIGH"
		}
		anomalies = append(anomalies, Anomaly{
			Type:     AnomalyNewEntrant,
			Entity:   e.Entity,
			Severity: severity,
			Detail: fmt.Sprintf("New %s detected: %s with %s MT (%d shipments)",
				party, e.Entity, trimFloat(e.VolumeMT), e.Shipments),
			VolumeMT:       domain.Float64Ptr(e.VolumeMT),
			MarketSharePct: domain.Float64Ptr(e.MarketSharePct),
		})
	}

	for _, e := range hist.TopEntities {
		if _, ok := currByName[e.Entity]; ok || e.MarketSharePct <= 3 {
			continue
		}
		severity := "MEDIUM"
		if e.MarketSharePct > 10 {
			severity = "HIGH"
		}
		anomalies = append(anomalies, Anomaly{
			Type:     AnomalyWithdrawal,
			Entity:   e.Entity,
			Severity: severity,
			Detail: fmt.Sprintf("%s absent from recent period. Was %.1f%% of market historically.",
				e.Entity, e.MarketSharePct),
			HistoricalSharePct: domain.Float64Ptr(e.MarketSharePct),
		})
	}

	for _, e := range curr.TopEntities {
		h, ok := histByName[e.Entity]
		if !ok {
			continue
		}
		monthly := h.VolumeMT / float64(lookbackMonths)
		if monthly <= 0 || e.VolumeMT <= 2*monthly {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Type:     AnomalyVolumeSurge,
			Entity:   e.Entity,
			Severity: "HIGH",
			Detail: fmt.Sprintf("%s volume %.0f MT in last 30d vs avg %.0f MT/month historically (%.1fx normal)",
				e.Entity, e.VolumeMT, monthly, e.VolumeMT/monthly),
			CurrentVolumeMT:     domain.Float64Ptr(e.VolumeMT),
			HistoricalMonthlyMT: round2p(monthly),
			Multiplier:          round1p(e.VolumeMT / monthly),
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return severityRank(anomalies[i].Severity) < severityRank(anomalies[j].Severity)
	})
	return anomalies
}

// OriginSwitching splits an entity's sourcing into the two halves of a
// lookback window and reports whether the origin set changed.
func (a *Analyzer) OriginSwitching(shipments []domain.Shipment, entity string, months int) OriginSwitch {
	if months <= 0 {
		months = defaultSwitchMonths
	}
	today := a.now().UTC()
	mid := today.AddDate(0, 0, -months*15)
	horizon := today.AddDate(0, 0, -months*30)

	recent := map[string]float64{}
	earlier := map[string]float64{}

	for i := range shipments {
		s := &shipments[i]
		rd, ok := s.Date()
		if !ok {
			continue
		}
		name := s.Consignee
		if name == "" {
			name = s.Consignor
		}
		if a.Resolve(name) != entity {
			continue
		}
		qty := s.Volume()
		if qty <= 0 {
			continue
		}

		origin := s.OriginCountry
		if origin == "" {
			origin = "UNKNOWN"
		}
		switch {
		case !rd.Before(mid):
			recent[origin] += qty
		case !rd.Before(horizon):
			earlier[origin] += qty
		}
	}

	return OriginSwitch{
		Entity:            entity,
		RecentOrigins:     recent,
		EarlierOrigins:    earlier,
		SwitchingDetected: !sameKeys(recent, earlier),
	}
}

func severityRank(s string) int {
	switch s {
	case "HIGH":
		return 0
	case "MEDIUM":
		return 1
	case "LOW":
		return 2
	}
	return 3
}

func sameKeys(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// trimFloat renders an already-rounded value without trailing zeros.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func round1p(v float64) *float64 {
	r := round1(v)
	return &r
}

func round2p(v float64) *float64 {
	r := round2(v)
	return &r
}
