// Package corridor prices trade lanes: freight-adjusted basis per
// corridor, origin comparisons against a common destination, and the
// arbitrage scan across origins of the same commodity.
package corridor

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/modules/pricing"
	"github.com/avramidis/tradewinds/internal/reference"
)

// FAB is the freight-adjusted basis for one corridor: the cost of
// landing the origin's implied FOB at the destination port. All price
// fields are nil when the origin has no computable price.
type FAB struct {
	Origin              string   `json:"origin"`
	OriginPort          string   `json:"origin_port"`
	DestPort            string   `json:"dest_port"`
	FOBUSDPerMT         *float64 `json:"fob_usd_per_mt"`
	FreightUSDPerMT     *float64 `json:"freight_usd_per_mt"`
	InsuranceUSDPerMT   *float64 `json:"insurance_usd_per_mt"`
	PortChargesUSDPerMT *float64 `json:"port_charges_usd_per_mt"`
	ImpliedCIFUSDPerMT  *float64 `json:"implied_cif_usd_per_mt"`
	IPCConfidence       string   `json:"ipc_confidence"`
	IPCNRecords         int      `json:"ipc_n_records,omitempty"`
	Note                string   `json:"note,omitempty"`
}

// Origin names one supply point for a comparison.
type Origin struct {
	Country string `json:"country"`
	Port    string `json:"port"`
}

// Comparison ranks origins delivering to one destination.
type Comparison struct {
	DestinationPort     string   `json:"destination_port"`
	Comparisons         []FAB    `json:"comparisons"`
	CheapestOrigin      *string  `json:"cheapest_origin"`
	MostExpensiveOrigin *string  `json:"most_expensive_origin"`
	OriginSpreadUSD     *float64 `json:"origin_spread_usd"`
	NOriginsWithData    int      `json:"n_origins_with_data"`
}

// Opportunity is one origin pair whose FOB spread clears the threshold.
type Opportunity struct {
	CheaperOrigin   string  `json:"cheaper_origin"`
	ExpensiveOrigin string  `json:"expensive_origin"`
	CheaperFOB      float64 `json:"cheaper_fob"`
	ExpensiveFOB    float64 `json:"expensive_fob"`
	SpreadUSD       float64 `json:"spread_usd"`
	SpreadPct       float64 `json:"spread_pct"`
	Confidence      string  `json:"confidence"`
}

// minSpreadPct is the smallest FOB spread worth flagging; below it the
// gap disappears into execution costs.
const minSpreadPct = 3.0

// Analyzer prices corridors off the implied price curve.
type Analyzer struct {
	ipc *pricing.Curve
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{ipc: pricing.NewCurve()}
}

// FAB computes the landed cost for one corridor at target. The implied
// FOB comes from records filtered to the origin country; freight is the
// route rate (zero when no route is tabled), insurance carries the
// war-risk loading the ports imply, and the destination port charge
// falls back to the standard rate.
func (a *Analyzer) FAB(shipments []domain.Shipment, originCountry, originPort, destPort string, target time.Time) FAB {
	ipc := a.ipc.Compute(filterByOrigin(shipments, originCountry), target)
	if ipc.PriceUSDPerMT == nil {
		return FAB{
			Origin:        originCountry,
			OriginPort:    originPort,
			DestPort:      destPort,
			IPCConfidence: ipc.Confidence,
			Note:          "Insufficient price data",
		}
	}

	fob := *ipc.PriceUSDPerMT
	freight, _ := reference.LookupFreight(originPort, destPort)
	insurance := reference.CalcInsurance(fob, originPort, destPort)
	charges := reference.LookupPortCharges(destPort)
	impliedCIF := fob + freight + insurance + charges

	return FAB{
		Origin:              originCountry,
		OriginPort:          originPort,
		DestPort:            destPort,
		FOBUSDPerMT:         round2p(fob),
		FreightUSDPerMT:     round2p(freight),
		InsuranceUSDPerMT:   round2p(insurance),
		PortChargesUSDPerMT: round2p(charges),
		ImpliedCIFUSDPerMT:  round2p(impliedCIF),
		IPCConfidence:       ipc.Confidence,
		IPCNRecords:         ipc.NRecords,
	}
}

// CompareOrigins runs FAB for each origin against a common destination
// and ranks the results, cheapest implied CIF first. Origins without a
// price sort to the end and stay in the table so the caller can see
// which lanes are dark.
func (a *Analyzer) CompareOrigins(shipments []domain.Shipment, origins []Origin, destPort string, target time.Time) Comparison {
	comparisons := make([]FAB, 0, len(origins))
	for _, o := range origins {
		comparisons = append(comparisons, a.FAB(shipments, o.Country, o.Port, destPort, target))
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		ci, cj := comparisons[i].ImpliedCIFUSDPerMT, comparisons[j].ImpliedCIFUSDPerMT
		if ci == nil || cj == nil {
			return ci != nil && cj == nil
		}
		return *ci < *cj
	})

	valid := 0
	for _, c := range comparisons {
		if c.ImpliedCIFUSDPerMT != nil {
			valid++
		}
	}

	result := Comparison{
		DestinationPort:  destPort,
		Comparisons:      comparisons,
		NOriginsWithData: valid,
	}
	if valid > 0 {
		cheapest, dearest := comparisons[0], comparisons[valid-1]
		result.CheapestOrigin = &cheapest.Origin
		result.MostExpensiveOrigin = &dearest.Origin
		spread := round2(*dearest.ImpliedCIFUSDPerMT - *cheapest.ImpliedCIFUSDPerMT)
		result.OriginSpreadUSD = &spread
	}
	return result
}

// Arbitrage scans every origin pair with a known implied FOB and keeps
// the pairs whose spread exceeds the threshold, widest first. The pair
// confidence is the weaker of the two price confidences.
func (a *Analyzer) Arbitrage(shipments []domain.Shipment, origins []string, target time.Time) []Opportunity {
	type priced struct {
		origin     string
		fob        float64
		confidence string
	}
	var prices []priced
	seen := map[string]bool{}
	for _, origin := range origins {
		key := strings.ToUpper(strings.TrimSpace(origin))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		ipc := a.ipc.Compute(filterByOrigin(shipments, origin), target)
		if ipc.PriceUSDPerMT != nil {
			prices = append(prices, priced{origin: origin, fob: *ipc.PriceUSDPerMT, confidence: ipc.Confidence})
		}
	}

	var opportunities []Opportunity
	for i := 0; i < len(prices); i++ {
		for j := i + 1; j < len(prices); j++ {
			pa, pb := prices[i], prices[j]
			lo, hi := pa, pb
			if pb.fob < pa.fob {
				lo, hi = pb, pa
			}
			if lo.fob <= 0 {
				continue
			}
			spread := hi.fob - lo.fob
			spreadPct := spread / lo.fob * 100
			if spreadPct <= minSpreadPct {
				continue
			}
			opportunities = append(opportunities, Opportunity{
				CheaperOrigin:   lo.origin,
				ExpensiveOrigin: hi.origin,
				CheaperFOB:      round2(lo.fob),
				ExpensiveFOB:    round2(hi.fob),
				SpreadUSD:       round2(spread),
				SpreadPct:       round1(spreadPct),
				Confidence:      weakerConfidence(pa.confidence, pb.confidence),
			})
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].SpreadPct > opportunities[j].SpreadPct
	})
	return opportunities
}

func filterByOrigin(shipments []domain.Shipment, originCountry string) []domain.Shipment {
	want := domain.NormalizeCountry(originCountry)
	var out []domain.Shipment
	for i := range shipments {
		if domain.NormalizeCountry(shipments[i].OriginCountry) == want {
			out = append(out, shipments[i])
		}
	}
	return out
}

func confidenceRank(c string) int {
	switch c {
	case pricing.ConfidenceHigh:
		return 3
	case pricing.ConfidenceMedium:
		return 2
	case pricing.ConfidenceLow:
		return 1
	}
	return 0
}

func weakerConfidence(a, b string) string {
	if confidenceRank(a) <= confidenceRank(b) {
		return a
	}
	return b
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round2p(v float64) *float64 {
	r := round2(v)
	return &r
}
