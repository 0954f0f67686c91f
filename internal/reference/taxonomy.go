package reference

import "strings"

// HSMapping ties a national HS code prefix to a taxonomy entry. Country
// "*" matches any reporting country.
type HSMapping struct {
	Country    string `json:"country"`
	HSPrefix   string `json:"hs_code"`
	Confidence string `json:"confidence"`
}

// Commodity is one entry of the Hectar Commodity Taxonomy (HCT): the
// canonical commodity key independent of national HS coding.
type Commodity struct {
	ID            string      `json:"hct_id"`
	Name          string      `json:"hct_name"`
	Group         string      `json:"hct_group"`
	Supergroup    string      `json:"hct_supergroup"`
	StandardUnit  string      `json:"standard_unit"`
	HSMappings    []HSMapping `json:"hs_mappings"`
	QualityGrades []string    `json:"quality_grades"`
}

// Classification is a taxonomy hit for a concrete HS code.
type Classification struct {
	Commodity
	MatchConfidence string `json:"match_confidence"`
}

// Taxonomy is ordered: classification scans entries top to bottom and
// returns the first hit, so more specific commodities must precede
// catch-all HS ranges (basmati is keyed by exact Indian codes while
// non-basmati claims the 1006 chapter wildcard).
var Taxonomy = []Commodity{
	{
		ID: "HCT-0801-RCN-INSHELL", Name: "Raw Cashew Nuts (In Shell)",
		Group: "Cashew Complex", Supergroup: "Tree Nuts", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "080131", Confidence: "HIGH"},
			{Country: "INDIA", HSPrefix: "08013110", Confidence: "HIGH"},
			{Country: "INDIA", HSPrefix: "08013120", Confidence: "HIGH"},
			{Country: "VIETNAM", HSPrefix: "08013100", Confidence: "HIGH"},
			{Country: "IVORY COAST", HSPrefix: "080131", Confidence: "HIGH"},
		},
		QualityGrades: []string{"Grade A (180+ nuts/kg)", "Grade B (180-210)", "Grade C (210+)"},
	},
	{
		ID: "HCT-0801-CASHEW-KERNEL", Name: "Cashew Kernels (Processed)",
		Group: "Cashew Complex", Supergroup: "Tree Nuts", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "080132", Confidence: "HIGH"},
			{Country: "INDIA", HSPrefix: "08013200", Confidence: "HIGH"},
			{Country: "VIETNAM", HSPrefix: "08013200", Confidence: "HIGH"},
		},
		QualityGrades: []string{"W180", "W210", "W240", "W320", "W450", "SW", "LWP", "SWP"},
	},
	{
		ID: "HCT-1207-SESAME", Name: "Sesame Seeds",
		Group: "Sesame", Supergroup: "Oilseeds", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "120740", Confidence: "HIGH"},
			{Country: "INDIA", HSPrefix: "12074000", Confidence: "HIGH"},
			{Country: "ETHIOPIA", HSPrefix: "120740", Confidence: "HIGH"},
			{Country: "NIGERIA", HSPrefix: "120740", Confidence: "HIGH"},
		},
		QualityGrades: []string{"Hulled 99.95%", "Hulled 99.90%", "Natural (unhulled)", "Mixed"},
	},
	{
		ID: "HCT-1006-RICE-NONBASMATI", Name: "Rice (Non-Basmati)",
		Group: "Rice", Supergroup: "Grains & Cereals", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "1006", Confidence: "MEDIUM"},
			{Country: "INDIA", HSPrefix: "10063010", Confidence: "HIGH"},
			{Country: "INDIA", HSPrefix: "10063090", Confidence: "HIGH"},
			{Country: "VIETNAM", HSPrefix: "100630", Confidence: "HIGH"},
			{Country: "THAILAND", HSPrefix: "100630", Confidence: "HIGH"},
		},
		QualityGrades: []string{"5% Broken", "10% Broken", "15% Broken", "25% Broken", "100% Broken", "Parboiled", "Long Grain White"},
	},
	{
		ID: "HCT-1006-RICE-BASMATI", Name: "Basmati Rice",
		Group: "Rice", Supergroup: "Grains & Cereals", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "INDIA", HSPrefix: "10063020", Confidence: "HIGH"},
			{Country: "PAKISTAN", HSPrefix: "100630", Confidence: "MEDIUM"},
		},
		QualityGrades: []string{"1121 Sella", "1121 Steam", "Sugandha", "Pusa", "Traditional"},
	},
	{
		ID: "HCT-1201-SOYBEAN", Name: "Soybeans",
		Group: "Soybeans", Supergroup: "Oilseeds", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "120190", Confidence: "HIGH"},
			{Country: "NIGERIA", HSPrefix: "12019000", Confidence: "HIGH"},
			{Country: "INDIA", HSPrefix: "12019000", Confidence: "HIGH"},
		},
		QualityGrades: []string{"Grade 1", "Grade 2", "Feed Grade"},
	},
	{
		ID: "HCT-1801-COCOA", Name: "Cocoa Beans",
		Group: "Cocoa", Supergroup: "Cocoa", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "180100", Confidence: "HIGH"},
		},
		QualityGrades: []string{"Grade I", "Grade II", "Sub-Grade"},
	},
	{
		ID: "HCT-1207-SHEA", Name: "Shea Nuts/Butter",
		Group: "Shea", Supergroup: "Oilseeds", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "120799", Confidence: "MEDIUM"},
		},
		QualityGrades: []string{"Nuts", "Crude Butter", "Refined Butter"},
	},
	{
		ID: "HCT-1511-PALMOIL", Name: "Palm Oil",
		Group: "Palm Oil", Supergroup: "Vegetable Oils", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "151110", Confidence: "HIGH"},
			{Country: "*", HSPrefix: "151190", Confidence: "HIGH"},
		},
		QualityGrades: []string{"Crude (CPO)", "Refined (RPO)", "Olein", "Stearin"},
	},
	{
		ID: "HCT-5201-COTTON", Name: "Raw Cotton",
		Group: "Cotton", Supergroup: "Cotton", StandardUnit: "MT",
		HSMappings: []HSMapping{
			{Country: "*", HSPrefix: "520100", Confidence: "HIGH"},
		},
		QualityGrades: []string{"S-6", "J-34", "MCU-5", "Shankar-6", "CIS"},
	},
}

// ClassifyByHS resolves an HS code to a taxonomy entry: one pass for an
// exact country match, then a wildcard pass. ok is false when nothing
// in the taxonomy claims the code.
func ClassifyByHS(hsCode, country string) (Classification, bool) {
	hs := strings.TrimSpace(hsCode)
	if hs == "" {
		return Classification{}, false
	}

	for _, entry := range Taxonomy {
		for _, m := range entry.HSMappings {
			if m.Country == country && strings.HasPrefix(hs, m.HSPrefix) {
				return Classification{Commodity: entry, MatchConfidence: m.Confidence}, true
			}
		}
	}
	for _, entry := range Taxonomy {
		for _, m := range entry.HSMappings {
			if m.Country == "*" && strings.HasPrefix(hs, m.HSPrefix) {
				return Classification{Commodity: entry, MatchConfidence: m.Confidence}, true
			}
		}
	}
	return Classification{}, false
}

// CommodityByID looks up a taxonomy entry by HCT identifier.
func CommodityByID(hctID string) (Commodity, bool) {
	for _, entry := range Taxonomy {
		if entry.ID == hctID {
			return entry, true
		}
	}
	return Commodity{}, false
}
