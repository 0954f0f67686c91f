package reference

import (
	"strings"

	"github.com/avramidis/tradewinds/internal/domain"
)

// unitToMT maps upstream unit strings to their factor into metric tonnes.
var unitToMT = map[string]float64{
	"KGS":       0.001,
	"KG":        0.001,
	"MTS":       1.0,
	"MT":        1.0,
	"TON":       1.0,
	"TONS":      1.0,
	"TONNE":     1.0,
	"TONNES":    1.0,
	"LONG TON":  1.01605,
	"SHORT TON": 0.907185,
	"LBS":       0.000453592,
	"QUINTAL":   0.1,
	"QTL":       0.1,
}

// Bag weights vary by commodity: cashew moves in 80 kg jute bags, rice
// in 50 kg, cocoa in 60 kg.
const (
	bagFactorCashew  = 0.08
	bagFactorRice    = 0.05
	bagFactorCocoa   = 0.06
	bagFactorGeneric = 0.05
)

// ConvertToMT converts an upstream quantity to metric tonnes.
//
// The returned quantity is meaningful only when the status is one of
// OK, ASSUMED_KG, ASSUMED_MT, or ASSUMED_BAG_WEIGHT; for MISSING and
// UNRESOLVABLE it is zero. A missing unit falls back to a magnitude
// heuristic: customs clerks file bulk lots in KG (large numbers) or MT
// (small ones). commodityHint is the classified commodity name, used to
// pick bag weights.
func ConvertToMT(quantity float64, unit, commodityHint string) (float64, domain.UnitStatus) {
	if quantity <= 0 {
		return 0, domain.UnitMissing
	}

	if unit == "" {
		switch {
		case quantity > 5000:
			return quantity * 0.001, domain.UnitAssumedKG
		case quantity < 200:
			return quantity, domain.UnitAssumedMT
		default:
			return 0, domain.UnitUnresolvable
		}
	}

	u := strings.ToUpper(strings.TrimSpace(unit))

	if factor, ok := unitToMT[u]; ok {
		return quantity * factor, domain.UnitOK
	}

	if u == "BAGS" || u == "BAG" {
		hint := strings.ToLower(commodityHint)
		switch {
		case strings.Contains(hint, "cashew"):
			return quantity * bagFactorCashew, domain.UnitOK
		case strings.Contains(hint, "rice"):
			return quantity * bagFactorRice, domain.UnitOK
		case strings.Contains(hint, "cocoa"):
			return quantity * bagFactorCocoa, domain.UnitOK
		default:
			return quantity * bagFactorGeneric, domain.UnitAssumedBagWeight
		}
	}

	// Piece counts carry no mass information.
	return 0, domain.UnitUnresolvable
}
