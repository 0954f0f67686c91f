package reference

import "github.com/avramidis/tradewinds/internal/domain"

type incotermKey struct {
	tradeType domain.TradeType
	country   string
}

// Customs filings rarely state the price basis, but national reporting
// conventions are stable: Indian exports file FOB values, Indian imports
// file CIF assessable values, and so on.
var incotermMap = map[incotermKey]string{
	{domain.TradeExport, "INDIA"}:       "FOB",
	{domain.TradeImport, "INDIA"}:       "CIF",
	{domain.TradeExport, "BRAZIL"}:      "FOB",
	{domain.TradeImport, "BANGLADESH"}:  "CIF",
	{domain.TradeImport, "VIETNAM"}:     "CIF",
	{domain.TradeExport, "VIETNAM"}:     "FOB",
	{domain.TradeImport, "NIGERIA"}:     "CIF",
	{domain.TradeExport, "NIGERIA"}:     "FOB",
	{domain.TradeExport, "ETHIOPIA"}:    "FOB",
	{domain.TradeExport, "IVORY COAST"}: "FOB",
	{domain.TradeExport, "GHANA"}:       "FOB",
	{domain.TradeExport, "TANZANIA"}:    "FOB",
	{domain.TradeImport, "USA"}:         "CIF",
	{domain.TradeImport, "INDONESIA"}:   "CIF",
	{domain.TradeExport, "INDONESIA"}:   "FOB",
	{domain.TradeImport, "PAKISTAN"}:    "CIF",
	{domain.TradeExport, "PAKISTAN"}:    "FOB",
	{domain.TradeImport, "SRI LANKA"}:   "CIF",
	{domain.TradeImport, "KENYA"}:       "CIF",
	{domain.TradeImport, "MEXICO"}:      "CIF",
	{domain.TradeExport, "MEXICO"}:      "FOB",
	{domain.TradeImport, "ARGENTINA"}:   "CIF",
	{domain.TradeExport, "ARGENTINA"}:   "FOB",
	{domain.TradeImport, "COLOMBIA"}:    "CIF",
	{domain.TradeExport, "COLOMBIA"}:    "FOB",
	{domain.TradeImport, "CHILE"}:       "CIF",
	{domain.TradeExport, "CHILE"}:       "FOB",
	{domain.TradeImport, "PHILIPPINES"}: "CIF",
	{domain.TradeExport, "PERU"}:        "FOB",
	{domain.TradeImport, "TURKEY"}:      "CIF",
	{domain.TradeExport, "TURKEY"}:      "FOB",
	{domain.TradeImport, "KAZAKHSTAN"}:  "CIF",
	{domain.TradeExport, "KAZAKHSTAN"}:  "FOB",
	{domain.TradeImport, "URUGUAY"}:     "CIF",
	{domain.TradeExport, "URUGUAY"}:     "FOB",
	{domain.TradeImport, "CAMEROON"}:    "CIF",
	{domain.TradeExport, "CAMEROON"}:    "FOB",
}

// InferIncoterm resolves the declared price basis for a trade flow.
// Unlisted countries default to FOB for exports and CIF for imports.
func InferIncoterm(tradeType domain.TradeType, tradeCountry string) string {
	if basis, ok := incotermMap[incotermKey{tradeType, domain.NormalizeCountry(tradeCountry)}]; ok {
		return basis
	}
	if tradeType == domain.TradeExport {
		return "FOB"
	}
	return "CIF"
}
