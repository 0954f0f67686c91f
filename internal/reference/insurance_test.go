package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskProfile(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		dest   string
		want   string
	}{
		{name: "benign pair", origin: "KAKINADA", dest: "HO CHI MINH", want: "standard"},
		{name: "gulf of guinea origin", origin: "ABIDJAN", dest: "TUTICORIN", want: "gulf_of_guinea"},
		{name: "red sea origin", origin: "DJIBOUTI", dest: "KANDLA", want: "red_sea"},
		{name: "risky destination", origin: "KAKINADA", dest: "LAGOS", want: "gulf_of_guinea"},
		{name: "destination zone wins", origin: "TEMA", dest: "PORT SUDAN", want: "red_sea"},
		{name: "empty ports", origin: "", dest: "", want: "standard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskProfile(tt.origin, tt.dest))
		})
	}
}

func TestCalcInsurance(t *testing.T) {
	// Standard leg: base rate only.
	assert.InDelta(t, 1500.0, CalcInsurance(1000000, "KAKINADA", "HO CHI MINH"), 1e-9)

	// Gulf of Guinea adds 0.25% war risk.
	assert.InDelta(t, 4000.0, CalcInsurance(1000000, "LAGOS", "TIANJIN"), 1e-9)

	// Red Sea adds 0.5%.
	assert.InDelta(t, 6500.0, CalcInsurance(1000000, "DJIBOUTI", "KANDLA"), 1e-9)
}

func TestWarRiskLoading(t *testing.T) {
	assert.Zero(t, WarRiskLoading("KAKINADA", "HO CHI MINH"))
	assert.Equal(t, WarRiskGulfOfGuinea, WarRiskLoading("ABIDJAN", "TUTICORIN"))
	assert.Equal(t, WarRiskRedSea, WarRiskLoading("ADEN", "KANDLA"))
}
