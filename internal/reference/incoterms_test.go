package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avramidis/tradewinds/internal/domain"
)

func TestInferIncoterm(t *testing.T) {
	tests := []struct {
		name      string
		tradeType domain.TradeType
		country   string
		want      string
	}{
		{name: "indian export", tradeType: domain.TradeExport, country: "INDIA", want: "FOB"},
		{name: "indian import", tradeType: domain.TradeImport, country: "INDIA", want: "CIF"},
		{name: "vietnam import", tradeType: domain.TradeImport, country: "VIETNAM", want: "CIF"},
		{name: "case insensitive country", tradeType: domain.TradeExport, country: "ghana", want: "FOB"},
		{name: "unlisted export defaults FOB", tradeType: domain.TradeExport, country: "MOLDOVA", want: "FOB"},
		{name: "unlisted import defaults CIF", tradeType: domain.TradeImport, country: "MOLDOVA", want: "CIF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferIncoterm(tt.tradeType, tt.country))
		})
	}
}
