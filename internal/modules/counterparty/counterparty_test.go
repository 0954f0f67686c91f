package counterparty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/tradewinds/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func buyRec(date, consignee, origin string, qty, value float64) domain.Shipment {
	s := domain.Shipment{TradeDate: date, Consignee: consignee, OriginCountry: origin}
	if qty > 0 {
		s.QuantityMT = domain.Float64Ptr(qty)
	}
	if value > 0 {
		s.FOBUSDTotal = domain.Float64Ptr(value)
	}
	return s
}

func frozenAnalyzer(today string) *Analyzer {
	a := NewAnalyzer()
	a.now = func() time.Time { return day(today) }
	return a
}

func TestAnalyzer_Resolve(t *testing.T) {
	a := NewAnalyzer()

	assert.Equal(t, "Olam Group", a.Resolve("OLAM NIGERIA LTD"))
	assert.Equal(t, "Olam Group", a.Resolve("olam international pte ltd"))
	assert.Equal(t, "Cargill", a.Resolve("  CARGILL INDIA PVT LTD  "))
	assert.Equal(t, "Louis Dreyfus", a.Resolve("LDC ASIA PTE"))
	assert.Equal(t, "UNKNOWN", a.Resolve("   "))
	assert.Equal(t, "Patel Agro Exports", a.Resolve(" Patel Agro Exports "), "unrecognized names pass through trimmed")
}

func TestAnalyzer_MarketShares(t *testing.T) {
	records := []domain.Shipment{
		buyRec("2025-03-01", "OLAM NIGERIA LTD", "NIGERIA", 3000, 3900000),
		buyRec("2025-03-05", "OLAM INTERNATIONAL PTE LTD", "NIGERIA", 2000, 2600000),
		buyRec("2025-03-02", "VIETNAM CASHEW CORP", "TANZANIA", 3000, 3600000),
		buyRec("2025-03-03", "PATEL AGRO", "TANZANIA", 2000, 2800000),
		buyRec("2025-04-09", "LATE BUYER", "TANZANIA", 500, 600000),  // out of window
		buyRec("2025-03-04", "NO TONNAGE CO", "TANZANIA", 0, 900000), // no tonnage: excluded
	}

	s := NewAnalyzer().MarketShares(records, domain.PartyConsignee, day("2025-03-01"), day("2025-03-31"), 10)

	assert.Equal(t, "consignee", s.PartyType)
	assert.Equal(t, 10000.0, s.TotalVolumeMT)
	assert.Equal(t, 3, s.UniqueEntities)
	assert.Equal(t, 0.38, s.HHI)
	assert.Equal(t, "HIGH", s.Concentration)

	require.Len(t, s.TopEntities, 3)
	assert.Equal(t, "Olam Group", s.TopEntities[0].Entity, "aliases aggregate to one entity")
	assert.Equal(t, 5000.0, s.TopEntities[0].VolumeMT)
	assert.Equal(t, 50.0, s.TopEntities[0].MarketSharePct)
	require.NotNil(t, s.TopEntities[0].AvgPricePerMT)
	assert.Equal(t, 1300.0, *s.TopEntities[0].AvgPricePerMT)
	assert.Equal(t, 2, s.TopEntities[0].Shipments)

	assert.Equal(t, "VIETNAM CASHEW CORP", s.TopEntities[1].Entity)
	assert.Equal(t, 30.0, s.TopEntities[1].MarketSharePct)
	assert.Equal(t, "PATEL AGRO", s.TopEntities[2].Entity)
	assert.Equal(t, 20.0, s.TopEntities[2].MarketSharePct)

	sum := 0.0
	for i, e := range s.TopEntities {
		sum += e.MarketSharePct
		if i > 0 {
			assert.LessOrEqual(t, e.MarketSharePct, s.TopEntities[i-1].MarketSharePct, "shares sorted largest first")
		}
	}
	assert.LessOrEqual(t, sum, 100.0)
}

func TestAnalyzer_MarketShares_TopNTruncation(t *testing.T) {
	records := []domain.Shipment{
		buyRec("2025-03-01", "A TRADERS", "", 500, 0),
		buyRec("2025-03-01", "B TRADERS", "", 300, 0),
		buyRec("2025-03-01", "C TRADERS", "", 200, 0),
	}

	s := NewAnalyzer().MarketShares(records, domain.PartyConsignee, time.Time{}, time.Time{}, 2)

	assert.Len(t, s.TopEntities, 2, "table truncated to topN")
	assert.Equal(t, 3, s.UniqueEntities, "unique count covers every entity seen")
	assert.Equal(t, 1000.0, s.TotalVolumeMT)
}

func TestAnalyzer_MarketShares_Empty(t *testing.T) {
	s := NewAnalyzer().MarketShares(nil, domain.PartyConsignee, time.Time{}, time.Time{}, 0)

	assert.Zero(t, s.TotalVolumeMT)
	assert.Zero(t, s.UniqueEntities)
	assert.Zero(t, s.HHI)
	assert.Equal(t, "LOW", s.Concentration)
	assert.Empty(t, s.TopEntities)
}

func TestAnalyzer_DetectAnomalies_NewEntrant(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	current := []domain.Shipment{
		buyRec("2025-05-10", "OLAM NIGERIA LTD", "", 9390, 0),
		buyRec("2025-05-12", "FRESHCO EXPORTS", "", 610, 0),
	}
	historical := []domain.Shipment{
		buyRec("2024-09-01", "OLAM INTERNATIONAL", "", 60000, 0),
	}

	anomalies := a.DetectAnomalies(current, historical, domain.PartyConsignee, 12)

	require.Len(t, anomalies, 1)
	got := anomalies[0]
	assert.Equal(t, AnomalyNewEntrant, got.Type)
	assert.Equal(t, "FRESHCO EXPORTS", got.Entity)
	assert.Equal(t, "HIGH", got.Severity, "share above 5 percent is high severity")
	require.NotNil(t, got.MarketSharePct)
	assert.Equal(t, 6.1, *got.MarketSharePct)
	require.NotNil(t, got.VolumeMT)
	assert.Equal(t, 610.0, *got.VolumeMT)
	assert.Contains(t, got.Detail, "New consignee detected")
}

func TestAnalyzer_DetectAnomalies_NewEntrantSmallShareIsMedium(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	current := []domain.Shipment{
		buyRec("2025-05-10", "OLAM NIGERIA LTD", "", 9600, 0),
		buyRec("2025-05-12", "FRESHCO EXPORTS", "", 400, 0),
	}
	historical := []domain.Shipment{
		buyRec("2024-09-01", "OLAM INTERNATIONAL", "", 60000, 0),
	}

	anomalies := a.DetectAnomalies(current, historical, domain.PartyConsignee, 12)

	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyNewEntrant, anomalies[0].Type)
	assert.Equal(t, "MEDIUM", anomalies[0].Severity)
}

func TestAnalyzer_DetectAnomalies_WithdrawalsSortedBySeverity(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	current := []domain.Shipment{
		buyRec("2025-05-10", "OLAM GHANA", "", 1000, 0),
	}
	historical := []domain.Shipment{
		buyRec("2024-09-01", "OLAM INTERNATIONAL", "", 6500, 0),
		buyRec("2024-10-01", "LOUIS DREYFUS COMPANY", "", 3000, 0),
		buyRec("2025-01-10", "PATEL AGRO", "", 500, 0),
	}

	anomalies := a.DetectAnomalies(current, historical, domain.PartyConsignee, 12)

	require.Len(t, anomalies, 2)
	assert.Equal(t, AnomalyWithdrawal, anomalies[0].Type)
	assert.Equal(t, "Louis Dreyfus", anomalies[0].Entity)
	assert.Equal(t, "HIGH", anomalies[0].Severity, "historical share above 10 percent is high severity")
	require.NotNil(t, anomalies[0].HistoricalSharePct)
	assert.Equal(t, 30.0, *anomalies[0].HistoricalSharePct)

	assert.Equal(t, AnomalyWithdrawal, anomalies[1].Type)
	assert.Equal(t, "PATEL AGRO", anomalies[1].Entity)
	assert.Equal(t, "MEDIUM", anomalies[1].Severity)
}

func TestAnalyzer_DetectAnomalies_VolumeSurge(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	current := []domain.Shipment{
		buyRec("2025-05-10", "OLAM NIGERIA LTD", "", 5000, 0),
	}
	historical := []domain.Shipment{
		buyRec("2024-09-01", "OLAM INTERNATIONAL", "", 12000, 0),
	}

	anomalies := a.DetectAnomalies(current, historical, domain.PartyConsignee, 12)

	require.Len(t, anomalies, 1)
	got := anomalies[0]
	assert.Equal(t, AnomalyVolumeSurge, got.Type)
	assert.Equal(t, "Olam Group", got.Entity)
	assert.Equal(t, "HIGH", got.Severity)
	require.NotNil(t, got.CurrentVolumeMT)
	assert.Equal(t, 5000.0, *got.CurrentVolumeMT)
	require.NotNil(t, got.HistoricalMonthlyMT)
	assert.Equal(t, 1000.0, *got.HistoricalMonthlyMT)
	require.NotNil(t, got.Multiplier)
	assert.Equal(t, 5.0, *got.Multiplier)
	assert.Contains(t, got.Detail, "5.0x normal")
}

func TestAnalyzer_DetectAnomalies_QuietMarket(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	current := []domain.Shipment{
		buyRec("2025-05-10", "OLAM NIGERIA LTD", "", 900, 0),
	}
	historical := []domain.Shipment{
		buyRec("2024-09-01", "OLAM INTERNATIONAL", "", 12000, 0),
	}

	anomalies := a.DetectAnomalies(current, historical, domain.PartyConsignee, 12)

	assert.Empty(t, anomalies, "steady incumbent raises nothing")
}

func TestAnalyzer_OriginSwitching(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	records := []domain.Shipment{
		buyRec("2025-05-01", "OLAM NIGERIA LTD", "GHANA", 1000, 0),
		buyRec("2025-04-01", "OLAM GHANA", "GHANA", 500, 0),
		buyRec("2025-01-15", "OLAM INTERNATIONAL", "IVORY COAST", 2000, 0),
		buyRec("2024-11-01", "OLAM INTERNATIONAL", "NIGERIA", 100, 0), // beyond the lookback
		buyRec("2025-05-02", "CARGILL INDIA", "TANZANIA", 300, 0),     // different entity
	}

	sw := a.OriginSwitching(records, "Olam Group", 6)

	assert.Equal(t, "Olam Group", sw.Entity)
	assert.Equal(t, map[string]float64{"GHANA": 1500}, sw.RecentOrigins)
	assert.Equal(t, map[string]float64{"IVORY COAST": 2000}, sw.EarlierOrigins)
	assert.True(t, sw.SwitchingDetected)
}

func TestAnalyzer_OriginSwitching_StableSourcing(t *testing.T) {
	a := frozenAnalyzer("2025-06-01")

	records := []domain.Shipment{
		buyRec("2025-05-01", "CARGILL INDIA", "TANZANIA", 300, 0),
		buyRec("2025-01-15", "CARGILL WEST AFRICA SARL", "TANZANIA", 700, 0),
	}

	sw := a.OriginSwitching(records, "Cargill", 6)

	assert.False(t, sw.SwitchingDetected)
	assert.Equal(t, map[string]float64{"TANZANIA": 300}, sw.RecentOrigins)
	assert.Equal(t, map[string]float64{"TANZANIA": 700}, sw.EarlierOrigins)
}
