package harvest

import (
	"github.com/avramidis/tradewinds/internal/domain"
)

// Job declares one recurring pull from the upstream provider. Jobs are
// data, not code: the engine turns a Job into a shipment query over a
// rolling date window and pages through the result.
//
// Exactly one of HSCodes or Products should be set; when both are
// present the HS codes win, matching the query builder's precedence.
type Job struct {
	Name                 string           `json:"name"`
	TradeType            domain.TradeType `json:"trade_type"`
	TradeCountry         string           `json:"trade_country"`
	HSCodes              []int            `json:"hs_codes,omitempty"`
	Products             []string         `json:"products,omitempty"`
	OriginCountries      []string         `json:"origin_countries,omitempty"`
	DestinationCountries []string         `json:"destination_countries,omitempty"`
	LookbackDays         int              `json:"lookback_days"`
	Priority             int              `json:"priority"`
}

const defaultLookbackDays = 30

func (j Job) lookback() int {
	if j.LookbackDays > 0 {
		return j.LookbackDays
	}
	return defaultLookbackDays
}

// Jobs is the harvest catalog, ordered by priority. Priority 1 covers
// the reporter countries with the deepest customs coverage for the
// cashew, sesame and rice complexes; priority 2 rounds out the softer
// flows and is only pulled on demand or by the scheduled refresh.
var Jobs = []Job{
	{
		Name:         "india_rcn_imports",
		TradeType:    domain.TradeImport,
		TradeCountry: "INDIA",
		HSCodes:      []int{80131},
		LookbackDays: 30,
		Priority:     1,
	},
	{
		Name:         "india_cashew_kernel_exports",
		TradeType:    domain.TradeExport,
		TradeCountry: "INDIA",
		HSCodes:      []int{80132},
		LookbackDays: 30,
		Priority:     1,
	},
	{
		Name:         "india_sesame_exports",
		TradeType:    domain.TradeExport,
		TradeCountry: "INDIA",
		HSCodes:      []int{120740},
		LookbackDays: 30,
		Priority:     1,
	},
	{
		// Chapter-level pull: classification downstream splits basmati
		// from non-basmati by the full HS code on each record.
		Name:         "india_rice_exports",
		TradeType:    domain.TradeExport,
		TradeCountry: "INDIA",
		HSCodes:      []int{1006},
		LookbackDays: 30,
		Priority:     1,
	},
	{
		Name:            "vietnam_rcn_imports",
		TradeType:       domain.TradeImport,
		TradeCountry:    "VIETNAM",
		HSCodes:         []int{80131},
		OriginCountries: []string{"IVORY COAST", "GHANA", "NIGERIA", "TANZANIA", "BENIN"},
		LookbackDays:    30,
		Priority:        1,
	},
	{
		Name:            "china_sesame_imports",
		TradeType:       domain.TradeImport,
		TradeCountry:    "CHINA",
		HSCodes:         []int{120740},
		OriginCountries: []string{"NIGERIA", "SUDAN", "ETHIOPIA", "TANZANIA"},
		LookbackDays:    30,
		Priority:        1,
	},
	{
		Name:         "india_palm_oil_imports",
		TradeType:    domain.TradeImport,
		TradeCountry: "INDIA",
		HSCodes:      []int{151110, 151190},
		LookbackDays: 30,
		Priority:     2,
	},
	{
		Name:         "india_cotton_exports",
		TradeType:    domain.TradeExport,
		TradeCountry: "INDIA",
		HSCodes:      []int{520100},
		LookbackDays: 30,
		Priority:     2,
	},
	{
		Name:            "india_cocoa_imports",
		TradeType:       domain.TradeImport,
		TradeCountry:    "INDIA",
		HSCodes:         []int{180100},
		OriginCountries: []string{"IVORY COAST", "GHANA", "NIGERIA"},
		LookbackDays:    60,
		Priority:        2,
	},
	{
		Name:         "india_soybean_exports",
		TradeType:    domain.TradeExport,
		TradeCountry: "INDIA",
		HSCodes:      []int{120190},
		LookbackDays: 60,
		Priority:     2,
	},
	{
		// HS 120799 is a residual bucket upstream, so this job searches
		// by product text instead of code.
		Name:         "ghana_shea_exports",
		TradeType:    domain.TradeExport,
		TradeCountry: "GHANA",
		Products:     []string{"SHEA NUT", "SHEA KERNEL"},
		LookbackDays: 60,
		Priority:     2,
	},
}

// JobByName returns the catalog entry with the given name.
func JobByName(name string) (Job, bool) {
	for _, j := range Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// Corridor is a tracked origin-to-destination lane for one commodity.
// The corridor analyzer prices each origin in the lane; the signal
// generator watches the lane's flow velocity.
type Corridor struct {
	Name        string   `json:"name"`
	Commodity   string   `json:"commodity"`
	Origins     []string `json:"origins"`
	Destination string   `json:"destination"`
}

// PriorityCorridors lists the lanes the trading desk actually watches.
var PriorityCorridors = []Corridor{
	{
		Name:        "West Africa RCN to India",
		Commodity:   "HCT-0801-RCN-INSHELL",
		Origins:     []string{"IVORY COAST", "GHANA", "BENIN", "NIGERIA"},
		Destination: "INDIA",
	},
	{
		Name:        "East Africa RCN to India",
		Commodity:   "HCT-0801-RCN-INSHELL",
		Origins:     []string{"TANZANIA", "MOZAMBIQUE"},
		Destination: "INDIA",
	},
	{
		Name:        "West Africa RCN to Vietnam",
		Commodity:   "HCT-0801-RCN-INSHELL",
		Origins:     []string{"IVORY COAST", "GHANA"},
		Destination: "VIETNAM",
	},
	{
		Name:        "Africa Sesame to China",
		Commodity:   "HCT-1207-SESAME",
		Origins:     []string{"NIGERIA", "SUDAN", "ETHIOPIA", "TANZANIA"},
		Destination: "CHINA",
	},
	{
		Name:        "India Rice to West Africa",
		Commodity:   "HCT-1006-RICE-NONBASMATI",
		Origins:     []string{"INDIA"},
		Destination: "WEST AFRICA",
	},
}

// CorridorsForCommodity returns the tracked lanes for one commodity.
func CorridorsForCommodity(hctID string) []Corridor {
	var out []Corridor
	for _, c := range PriorityCorridors {
		if c.Commodity == hctID {
			out = append(out, c)
		}
	}
	return out
}
