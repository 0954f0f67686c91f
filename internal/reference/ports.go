package reference

import "strings"

// portCharges is the all-in handling cost per MT at ports the desk's
// corridors touch. West African ports run well above the Asian average.
var portCharges = map[string]float64{
	"TUTICORIN":     4.70,
	"MANGALORE":     4.20,
	"KOCHI":         4.50,
	"KANDLA":        3.80,
	"MUMBAI":        5.20,
	"CHENNAI":       4.80,
	"KAKINADA":      3.50,
	"KRISHNAPATNAM": 3.80,
	"HO CHI MINH":   5.00,
	"HAI PHONG":     4.50,
	"LAGOS":         8.50,
	"APAPA":         8.50,
	"TEMA":          6.00,
	"ABIDJAN":       5.50,
	"DAR ES SALAAM": 6.50,
	"DJIBOUTI":      7.00,
	"TIANJIN":       4.00,
	"QINGDAO":       3.80,
	"SHANGHAI":      3.50,
}

// DefaultPortCharge applies when the port is known but untabled.
const DefaultPortCharge = 4.0

// LookupPortCharges returns USD/MT handling charges for a port, using
// bidirectional substring matching against the table. Unknown ports get
// the conservative default; an empty port costs nothing.
func LookupPortCharges(port string) float64 {
	if port == "" {
		return 0
	}
	p := strings.ToUpper(strings.TrimSpace(port))
	for name, charge := range portCharges {
		if strings.Contains(p, name) || strings.Contains(name, p) {
			return charge
		}
	}
	return DefaultPortCharge
}
