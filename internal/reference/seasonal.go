package reference

import "time"

// CropYear is one harvest cycle within a commodity's seasonal pattern.
type CropYear struct {
	Name       string       `json:"name"`
	StartMonth time.Month   `json:"start_month"`
	EndMonth   time.Month   `json:"end_month"`
	PeakMonths []time.Month `json:"peak_months"`
	Origins    []string     `json:"origins"`
}

// SeasonalPattern carries a commodity's crop calendar and the expected
// share of annual shipment volume per calendar month. Monthly weights
// sum to 1.0.
type SeasonalPattern struct {
	CropYears      []CropYear             `json:"crop_years"`
	MonthlyWeights map[time.Month]float64 `json:"monthly_weights"`
}

// Weight returns the expected volume share for a month, zero when the
// month is untabled.
func (p *SeasonalPattern) Weight(m time.Month) float64 {
	if p == nil {
		return 0
	}
	return p.MonthlyWeights[m]
}

var seasonalPatterns = map[string]*SeasonalPattern{
	"HCT-0801-RCN-INSHELL": {
		CropYears: []CropYear{
			{
				Name:       "West African Main Crop",
				StartMonth: time.February, EndMonth: time.July,
				PeakMonths: []time.Month{time.March, time.April, time.May},
				Origins:    []string{"IVORY COAST", "GHANA", "GUINEA BISSAU", "BENIN"},
			},
			{
				Name:       "East African Crop",
				StartMonth: time.October, EndMonth: time.January,
				PeakMonths: []time.Month{time.November, time.December},
				Origins:    []string{"TANZANIA", "MOZAMBIQUE"},
			},
		},
		MonthlyWeights: map[time.Month]float64{
			time.January: 0.06, time.February: 0.08, time.March: 0.14,
			time.April: 0.16, time.May: 0.14, time.June: 0.10,
			time.July: 0.07, time.August: 0.05, time.September: 0.04,
			time.October: 0.05, time.November: 0.06, time.December: 0.05,
		},
	},
	"HCT-1207-SESAME": {
		CropYears: []CropYear{
			{
				Name:       "Sudan/Ethiopia Main",
				StartMonth: time.October, EndMonth: time.March,
				PeakMonths: []time.Month{time.November, time.December, time.January},
				Origins:    []string{"SUDAN", "ETHIOPIA"},
			},
			{
				Name:       "Nigeria Multi-crop",
				StartMonth: time.April, EndMonth: time.September,
				PeakMonths: []time.Month{time.June, time.July, time.August},
				Origins:    []string{"NIGERIA"},
			},
			{
				Name:       "India Rabi",
				StartMonth: time.February, EndMonth: time.May,
				PeakMonths: []time.Month{time.March, time.April},
				Origins:    []string{"INDIA"},
			},
		},
		MonthlyWeights: map[time.Month]float64{
			time.January: 0.10, time.February: 0.09, time.March: 0.09,
			time.April: 0.08, time.May: 0.06, time.June: 0.07,
			time.July: 0.08, time.August: 0.08, time.September: 0.07,
			time.October: 0.08, time.November: 0.10, time.December: 0.10,
		},
	},
	"HCT-1201-SOYBEAN": {
		CropYears: []CropYear{
			{
				Name:       "Nigeria Main",
				StartMonth: time.October, EndMonth: time.March,
				PeakMonths: []time.Month{time.November, time.December, time.January},
				Origins:    []string{"NIGERIA"},
			},
		},
		MonthlyWeights: map[time.Month]float64{
			time.January: 0.10, time.February: 0.09, time.March: 0.08,
			time.April: 0.07, time.May: 0.06, time.June: 0.06,
			time.July: 0.07, time.August: 0.07, time.September: 0.08,
			time.October: 0.09, time.November: 0.12, time.December: 0.11,
		},
	},
	"HCT-1006-RICE-NONBASMATI": {
		CropYears: []CropYear{
			{
				Name:       "India Kharif",
				StartMonth: time.October, EndMonth: time.September,
				PeakMonths: []time.Month{time.January, time.February, time.March, time.April},
				Origins:    []string{"INDIA"},
			},
			{
				Name:       "Vietnam Winter-Spring",
				StartMonth: time.February, EndMonth: time.May,
				PeakMonths: []time.Month{time.March, time.April, time.May},
				Origins:    []string{"VIETNAM"},
			},
		},
		MonthlyWeights: map[time.Month]float64{
			time.January: 0.10, time.February: 0.10, time.March: 0.10,
			time.April: 0.09, time.May: 0.08, time.June: 0.07,
			time.July: 0.07, time.August: 0.07, time.September: 0.07,
			time.October: 0.08, time.November: 0.08, time.December: 0.09,
		},
	},
}

// SeasonalPatternFor returns the seasonal pattern for a commodity, or
// ok=false for commodities without a tabled crop calendar.
func SeasonalPatternFor(hctID string) (*SeasonalPattern, bool) {
	p, ok := seasonalPatterns[hctID]
	return p, ok
}
