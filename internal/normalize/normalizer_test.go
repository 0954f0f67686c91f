package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/tradewinds/internal/domain"
)

func fixedClock() *Normalizer {
	n := New()
	n.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalizer_FOBPassThrough(t *testing.T) {
	raw := domain.RawRecord{
		"FOB_USD":  1500000.0,
		"QUANTITY": 1000.0,
		"UNIT":     "MTS",
		"HS_CODE":  8013100,
		"EXP_DATE": "2025-03-10T00:00:00Z",
	}

	s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
	require.NoError(t, err)

	assert.Equal(t, "08013100", s.HSCode, "integer HS code regains its leading zero")
	assert.Equal(t, "HCT-0801-RCN-INSHELL", s.HCTID)
	assert.Equal(t, "Raw Cashew Nuts (In Shell)", s.HCTName)

	require.NotNil(t, s.QuantityMT)
	assert.Equal(t, 1000.0, *s.QuantityMT)
	assert.Equal(t, domain.UnitOK, s.UnitStatus)

	require.NotNil(t, s.FOBUSDTotal)
	assert.Equal(t, 1500000.0, *s.FOBUSDTotal)
	require.NotNil(t, s.FOBUSDPerMT)
	assert.InDelta(t, 1500.0, *s.FOBUSDPerMT, 1e-9)

	assert.Equal(t, domain.PriceNormal, s.PriceStatus)
	assert.Equal(t, domain.SourceFOBUSD, s.PriceSource, "FOB pass-through keeps the ladder rung")
	assert.Equal(t, "FOB", s.DeclaredIncoterm)
	assert.Equal(t, "2025-03-10", s.TradeDate)
	assert.Equal(t, "INDIA", s.OriginCountry)

	assert.Nil(t, s.FreightDeducted)
	assert.Nil(t, s.InsuranceDeducted)
	assert.Nil(t, s.PortChargesDeducted)
}

func TestNormalizer_CIFDerivation(t *testing.T) {
	raw := domain.RawRecord{
		"TOTAL_ASSESS_USD": 1600000.0,
		"QUANTITY":         1000.0,
		"UNIT":             "MTS",
		"HS_CODE":          "08013100",
		"ORIGIN_COUNTRY":   "IVORY COAST",
		"PORT_OF_SHIPMENT": "ABIDJAN",
		"INDIAN_PORT":      "TUTICORIN",
		"IMP_DATE":         "2025-04-02",
	}

	s, err := fixedClock().Normalize(raw, domain.TradeImport, "INDIA")
	require.NoError(t, err)

	assert.Equal(t, "CIF", s.DeclaredIncoterm)
	assert.Equal(t, domain.SourceDerivedFromCIF, s.PriceSource)

	// 1.6M - (42.5*1000 freight + 1.6M*0.0015 cover + 4.70*1000 port).
	require.NotNil(t, s.FOBUSDTotal)
	assert.InDelta(t, 1550400.0, *s.FOBUSDTotal, 1e-6)
	require.NotNil(t, s.FOBUSDPerMT)
	assert.InDelta(t, 1550.40, *s.FOBUSDPerMT, 1e-6)

	require.NotNil(t, s.FreightDeducted)
	assert.InDelta(t, 42.50, *s.FreightDeducted, 1e-9)
	require.NotNil(t, s.InsuranceDeducted)
	assert.InDelta(t, 2400.0, *s.InsuranceDeducted, 1e-6)
	require.NotNil(t, s.PortChargesDeducted)
	assert.InDelta(t, 4.70, *s.PortChargesDeducted, 1e-9)

	assert.Equal(t, "IVORY COAST", s.OriginCountry)
	assert.Equal(t, "INDIA", s.DestinationCountry)
	assert.Equal(t, "ABIDJAN", s.OriginPort)
	assert.Equal(t, "TUTICORIN", s.DestinationPort)
	assert.Equal(t, "2025-04-02", s.TradeDate)
	assert.Equal(t, domain.PriceNormal, s.PriceStatus)
}

func TestNormalizer_CIFClampsAtZero(t *testing.T) {
	raw := domain.RawRecord{
		"TOTAL_ASSESS_USD": 100.0,
		"QUANTITY":         1000.0,
		"UNIT":             "MTS",
		"PORT_OF_SHIPMENT": "ABIDJAN",
		"INDIAN_PORT":      "TUTICORIN",
	}

	s, err := fixedClock().Normalize(raw, domain.TradeImport, "INDIA")
	require.NoError(t, err)

	require.NotNil(t, s.FOBUSDTotal)
	assert.Zero(t, *s.FOBUSDTotal, "deductions larger than the declared value clamp to zero")
	assert.Equal(t, domain.PriceMissing, s.PriceStatus)
}

func TestNormalizer_PriceLadder(t *testing.T) {
	tests := []struct {
		name       string
		raw        domain.RawRecord
		wantTotal  float64
		wantSource string
	}{
		{
			"fob usd wins over everything",
			domain.RawRecord{"FOB_USD": 500.0, "TOTAL_ASSESS_USD": 900.0},
			500, domain.SourceFOBUSD,
		},
		{
			"zero fob falls through",
			domain.RawRecord{"FOB_USD": 0.0, "TOTAL_ASSESS_USD": 900.0},
			900, domain.SourceTotalAssessUSD,
		},
		{
			"total value usd backs up assess",
			domain.RawRecord{"TOTAL_VALUE_USD": 750.0},
			750, domain.SourceTotalAssessUSD,
		},
		{
			"std unit price times std quantity",
			domain.RawRecord{"STD_UNIT_PRICE_USD": 1200.0, "STD_QUANTITY": 50.0},
			60000, domain.SourceStdUnitPrice,
		},
		{
			"unit price times quantity",
			domain.RawRecord{"UNIT_PRICE_USD": 100.0, "QUANTITY": 20.0},
			2000, domain.SourceUnitPrice,
		},
		{
			"fob inr converted",
			domain.RawRecord{"FOB_INR": 8300000.0, "USD_EXCHANGE_RATE": 83.0},
			100000, domain.SourceFOBINR,
		},
		{
			"item rate inr converted",
			domain.RawRecord{"ITEM_RATE_INR": 830.0, "QUANTITY": 100.0, "USD_EXCHANGE_RATE": 83.0},
			1000, domain.SourceItemRateINR,
		},
		{
			"std item rate backs up item rate",
			domain.RawRecord{"STD_ITEM_RATE_INR": 415.0, "QUANTITY": 100.0, "USD_EXCHANGE_RATE": 83.0},
			500, domain.SourceItemRateINR,
		},
		{
			"assessable inr converted",
			domain.RawRecord{"TOTAL_ASSESSABLE_VALUE_INR": 8300.0, "USD_EXCHANGE_RATE": 83.0},
			100, domain.SourceAssessINR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, source := extractPrice(tt.raw)
			require.NotNil(t, total)
			assert.InDelta(t, tt.wantTotal, *total, 1e-9)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestNormalizer_PriceLadderExhausted(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawRecord
	}{
		{"no price fields", domain.RawRecord{"QUANTITY": 100.0}},
		{"inr without fx rate", domain.RawRecord{"FOB_INR": 8300000.0}},
		{"zero fx rate", domain.RawRecord{"FOB_INR": 8300000.0, "USD_EXCHANGE_RATE": 0.0}},
		{"negative values only", domain.RawRecord{"FOB_USD": -10.0, "TOTAL_ASSESS_USD": -5.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, source := extractPrice(tt.raw)
			assert.Nil(t, total)
			assert.Equal(t, domain.SourceMissing, source)
		})
	}
}

func TestNormalizer_MissingPrice(t *testing.T) {
	raw := domain.RawRecord{"QUANTITY": 1000.0, "UNIT": "MTS"}

	s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
	require.NoError(t, err)

	assert.Nil(t, s.FOBUSDTotal)
	assert.Nil(t, s.FOBUSDPerMT)
	assert.Equal(t, domain.SourceMissing, s.PriceSource)
	assert.Equal(t, domain.PriceMissing, s.PriceStatus)
}

func TestNormalizer_SuspectPrices(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  domain.PriceStatus
	}{
		{"suspect low under 10 per mt", 5000, domain.PriceSuspectLow},
		{"normal band", 1500000, domain.PriceNormal},
		{"suspect high over 50000 per mt", 60000000, domain.PriceSuspectHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := domain.RawRecord{"FOB_USD": tt.total, "QUANTITY": 1000.0, "UNIT": "MTS"}
			s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.PriceStatus)
		})
	}
}

func TestNormalizer_PerMTInvariant(t *testing.T) {
	raw := domain.RawRecord{"FOB_USD": 123456.78, "QUANTITY": 321.0, "UNIT": "MTS"}

	s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
	require.NoError(t, err)

	require.NotNil(t, s.FOBUSDTotal)
	require.NotNil(t, s.QuantityMT)
	require.NotNil(t, s.FOBUSDPerMT)
	assert.InDelta(t, *s.FOBUSDTotal / *s.QuantityMT, *s.FOBUSDPerMT, 1e-6)
}

func TestNormalizer_StdQuantityRetry(t *testing.T) {
	raw := domain.RawRecord{
		"FOB_USD":      50000.0,
		"QUANTITY":     500.0,
		"UNIT":         "NOS",
		"STD_QUANTITY": 25000.0,
		"STD_UNIT":     "KGS",
	}

	s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
	require.NoError(t, err)

	require.NotNil(t, s.QuantityMT)
	assert.InDelta(t, 25.0, *s.QuantityMT, 1e-9, "piece count retries on the standardized fields")
	assert.Equal(t, domain.UnitOK, s.UnitStatus)
}

func TestNormalizer_UnresolvableQuantity(t *testing.T) {
	raw := domain.RawRecord{"FOB_USD": 50000.0, "QUANTITY": 500.0, "UNIT": "NOS"}

	s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
	require.NoError(t, err)

	assert.Nil(t, s.QuantityMT)
	assert.Equal(t, domain.UnitUnresolvable, s.UnitStatus)
	assert.Nil(t, s.FOBUSDPerMT, "no per-MT price without a tonnage")
	assert.Equal(t, domain.PriceNormal, s.PriceStatus, "total price alone cannot be suspect")
}

func TestNormalizer_UnknownHSRetained(t *testing.T) {
	raw := domain.RawRecord{"FOB_USD": 1000.0, "HS_CODE": "99999999"}

	s, err := fixedClock().Normalize(raw, domain.TradeExport, "INDIA")
	require.NoError(t, err)

	assert.Empty(t, s.HCTID)
	assert.Equal(t, "Unclassified", s.HCTName)
	assert.Equal(t, "Unknown", s.HCTGroup)
	assert.Equal(t, "99", s.HSCode2)
	assert.Equal(t, "9999", s.HSCode4)
}

func TestNormalizer_PartiesByDirection(t *testing.T) {
	exportRaw := domain.RawRecord{
		"EXPORTER_NAME": "OLAM AGRI",
		"BUYER_NAME":    "VIETEX TRADING",
	}
	s, err := fixedClock().Normalize(exportRaw, domain.TradeExport, "INDIA")
	require.NoError(t, err)
	assert.Equal(t, "VIETEX TRADING", s.Consignee)
	assert.Equal(t, "OLAM AGRI", s.Consignor)

	importRaw := domain.RawRecord{
		"IMPORTER_NAME": "KINGS NUTS PVT LTD",
		"SUPPLIER_NAME": "SOCIETE IVOIRIENNE",
	}
	s, err = fixedClock().Normalize(importRaw, domain.TradeImport, "INDIA")
	require.NoError(t, err)
	assert.Equal(t, "KINGS NUTS PVT LTD", s.Consignee)
	assert.Equal(t, "SOCIETE IVOIRIENNE", s.Consignor)
}

func TestNormalizer_RecordKey(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawRecord
		want string
	}{
		{"declaration and item", domain.RawRecord{"DECLARATION_NO": "DEC-881", "ITEM_NO": 3}, "DEC-881:3"},
		{"declaration only", domain.RawRecord{"DECLARATION_NO": "DEC-881"}, "DEC-881"},
		{"upstream record id fallback", domain.RawRecord{"RECORD_ID": "R-17"}, "R-17"},
		{"nothing usable", domain.RawRecord{"QUANTITY": 5.0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecordKey(tt.raw))
		})
	}
}

func TestNormalizer_EmptyRecordRejected(t *testing.T) {
	_, err := fixedClock().Normalize(domain.RawRecord{}, domain.TradeExport, "INDIA")
	assert.ErrorIs(t, err, ErrEmptyRecord)

	_, err = fixedClock().Normalize(nil, domain.TradeExport, "INDIA")
	assert.ErrorIs(t, err, ErrEmptyRecord)
}

func TestNormalizer_Deterministic(t *testing.T) {
	raw := domain.RawRecord{
		"TOTAL_ASSESS_USD":    1600000.0,
		"QUANTITY":            1000.0,
		"UNIT":                "MTS",
		"HS_CODE":             "08013100",
		"ORIGIN_COUNTRY":      "IVORY COAST",
		"PORT_OF_SHIPMENT":    "ABIDJAN",
		"INDIAN_PORT":         "TUTICORIN",
		"IMP_DATE":            "2025-04-02",
		"PRODUCT_DESCRIPTION": "RAW CASHEW NUTS OUTTURN 47 LBS",
		"DECLARATION_NO":      "DEC-1",
		"ITEM_NO":             1,
	}

	n := fixedClock()
	first, err := n.Normalize(raw, domain.TradeImport, "INDIA")
	require.NoError(t, err)
	second, err := n.Normalize(raw, domain.TradeImport, "INDIA")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same input and reference data must produce identical output")
}
