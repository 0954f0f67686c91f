// Package reference holds the read-only lookup tables the normalizer and
// corridor analytics depend on: freight rates, insurance and war-risk
// loadings, port charges, unit conversions, incoterm defaults, seasonal
// shipment patterns, and the commodity taxonomy. All tables live for the
// process lifetime and are safe for concurrent reads.
package reference

import "strings"

// FreightRoute is one observed bulk freight rate between two ports.
type FreightRoute struct {
	RouteID         string  `json:"route_id"`
	OriginPort      string  `json:"origin_port"`
	DestinationPort string  `json:"destination_port"`
	VesselClass     string  `json:"vessel_class"`
	RatePerMT       float64 `json:"rate_per_mt"`
	Currency        string  `json:"currency"`
}

// FreightRates covers the corridors the desk actually trades. Rates are
// indicative USD/MT for the listed vessel class.
var FreightRates = []FreightRoute{
	{RouteID: "ABIDJAN-TUTICORIN", OriginPort: "ABIDJAN", DestinationPort: "TUTICORIN", VesselClass: "HANDYSIZE", RatePerMT: 42.50, Currency: "USD"},
	{RouteID: "ABIDJAN-MANGALORE", OriginPort: "ABIDJAN", DestinationPort: "MANGALORE", VesselClass: "HANDYSIZE", RatePerMT: 44.00, Currency: "USD"},
	{RouteID: "TEMA-TUTICORIN", OriginPort: "TEMA", DestinationPort: "TUTICORIN", VesselClass: "HANDYSIZE", RatePerMT: 40.00, Currency: "USD"},
	{RouteID: "LAGOS-TUTICORIN", OriginPort: "LAGOS", DestinationPort: "TUTICORIN", VesselClass: "HANDYSIZE", RatePerMT: 45.00, Currency: "USD"},
	{RouteID: "DAR-TUTICORIN", OriginPort: "DAR ES SALAAM", DestinationPort: "TUTICORIN", VesselClass: "HANDYSIZE", RatePerMT: 35.00, Currency: "USD"},
	{RouteID: "ABIDJAN-HOCHIMINH", OriginPort: "ABIDJAN", DestinationPort: "HO CHI MINH", VesselClass: "HANDYSIZE", RatePerMT: 55.00, Currency: "USD"},
	{RouteID: "TEMA-HOCHIMINH", OriginPort: "TEMA", DestinationPort: "HO CHI MINH", VesselClass: "HANDYSIZE", RatePerMT: 53.00, Currency: "USD"},
	{RouteID: "DJIBOUTI-KANDLA", OriginPort: "DJIBOUTI", DestinationPort: "KANDLA", VesselClass: "HANDYSIZE", RatePerMT: 28.00, Currency: "USD"},
	{RouteID: "LAGOS-TIANJIN", OriginPort: "LAGOS", DestinationPort: "TIANJIN", VesselClass: "HANDYSIZE", RatePerMT: 60.00, Currency: "USD"},
	{RouteID: "LAGOS-QINGDAO", OriginPort: "LAGOS", DestinationPort: "QINGDAO", VesselClass: "HANDYSIZE", RatePerMT: 58.00, Currency: "USD"},
	{RouteID: "KAKINADA-LAGOS", OriginPort: "KAKINADA", DestinationPort: "LAGOS", VesselClass: "SUPRAMAX", RatePerMT: 48.00, Currency: "USD"},
	{RouteID: "KANDLA-LAGOS", OriginPort: "KANDLA", DestinationPort: "LAGOS", VesselClass: "SUPRAMAX", RatePerMT: 46.00, Currency: "USD"},
	{RouteID: "KAKINADA-TEMA", OriginPort: "KAKINADA", DestinationPort: "TEMA", VesselClass: "SUPRAMAX", RatePerMT: 47.00, Currency: "USD"},
}

// LookupFreight finds the USD/MT rate for a port pair. Port names from
// customs records are noisy ("NHAVA SHEVA SEA", "ABIDJAN PORT"), so the
// match runs substring checks in both directions. ok is false when no
// route covers the pair.
func LookupFreight(originPort, destPort string) (float64, bool) {
	if originPort == "" || destPort == "" {
		return 0, false
	}
	o := strings.ToUpper(strings.TrimSpace(originPort))
	d := strings.ToUpper(strings.TrimSpace(destPort))
	for _, route := range FreightRates {
		if strings.Contains(o, route.OriginPort) && strings.Contains(d, route.DestinationPort) {
			return route.RatePerMT, true
		}
		if strings.Contains(route.OriginPort, o) && strings.Contains(route.DestinationPort, d) {
			return route.RatePerMT, true
		}
	}
	return 0, false
}
