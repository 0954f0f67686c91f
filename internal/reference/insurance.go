package reference

import "strings"

// Marine cargo insurance: a flat base rate plus a war-risk loading when
// either port sits in a designated risk zone.
const (
	InsuranceBaseRate   = 0.0015 // 0.15% of cargo value
	WarRiskGulfOfGuinea = 0.0025
	WarRiskRedSea       = 0.005
)

var highRiskPorts = map[string][]string{
	"gulf_of_guinea": {"LAGOS", "APAPA", "TEMA", "ABIDJAN", "LOME", "COTONOU"},
	"red_sea":        {"ADEN", "HODEIDAH", "DJIBOUTI", "PORT SUDAN"},
}

// riskZones preserves a deterministic check order.
var riskZones = []string{"gulf_of_guinea", "red_sea"}

// RiskProfile classifies a voyage by its ports. When both ports are
// risky the destination's zone wins, matching how underwriters quote
// the leg that carries the exposure.
func RiskProfile(originPort, destPort string) string {
	profile := "standard"
	for _, port := range []string{originPort, destPort} {
		upper := strings.ToUpper(port)
		for _, zone := range riskZones {
			if matchesZone(upper, zone) {
				profile = zone
				break
			}
		}
	}
	return profile
}

func matchesZone(portUpper, zone string) bool {
	for _, p := range highRiskPorts[zone] {
		if strings.Contains(portUpper, p) {
			return true
		}
	}
	return false
}

// WarRiskLoading returns the additional insurance rate for a voyage.
func WarRiskLoading(originPort, destPort string) float64 {
	switch RiskProfile(originPort, destPort) {
	case "gulf_of_guinea":
		return WarRiskGulfOfGuinea
	case "red_sea":
		return WarRiskRedSea
	default:
		return 0
	}
}

// CalcInsurance returns the insurance cost in USD for a cargo value,
// applying the war-risk loading implied by the ports.
func CalcInsurance(cargoValueUSD float64, originPort, destPort string) float64 {
	return cargoValueUSD * (InsuranceBaseRate + WarRiskLoading(originPort, destPort))
}
