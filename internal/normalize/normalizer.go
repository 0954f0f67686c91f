// Package normalize converts raw upstream customs records into canonical
// shipments: FOB USD pricing, metric tonne quantities, taxonomy
// classification, and parsed quality grades. Every record crosses this
// package exactly once before it reaches the analytics layer.
package normalize

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/reference"
)

// Version tags every shipment this pipeline emits.
const Version = "1.1"

// ErrEmptyRecord marks a raw record with no usable fields.
var ErrEmptyRecord = errors.New("empty raw record")

// Normalizer maps heterogeneous raw records onto the canonical shipment
// schema in nine deterministic steps. Identical input and reference data
// produce identical output; the only ambient input is the clock stamped
// into the audit trail. Safe for concurrent use.
type Normalizer struct {
	now func() time.Time
}

// New returns a pipeline using the wall clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// RecordKey derives the dedup identity of a raw record: declaration
// number and item number joined with ":". Falls back to the bare
// declaration, then to the upstream RECORD_ID. Empty means the record
// carries no usable identity.
func RecordKey(raw domain.RawRecord) string {
	decl := raw.String("DECLARATION_NO")
	item := raw.String("ITEM_NO")
	switch {
	case decl != "" && item != "":
		return decl + ":" + item
	case decl != "":
		return decl
	default:
		return raw.String("RECORD_ID")
	}
}

// Normalize runs one raw record through the pipeline for the given trade
// flow. Lookups that find nothing degrade the record (null quantity,
// unclassified commodity) instead of failing it; only a record with no
// fields at all is rejected.
func (n *Normalizer) Normalize(raw domain.RawRecord, tradeType domain.TradeType, tradeCountry string) (*domain.Shipment, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyRecord
	}

	tradeType = domain.TradeType(strings.ToUpper(string(tradeType)))
	tradeCountry = domain.NormalizeCountry(tradeCountry)
	isExport := tradeType == domain.TradeExport

	// Step 1: price basis from the trade flow.
	incoterm := reference.InferIncoterm(tradeType, tradeCountry)

	// Step 2: USD price ladder.
	priceUSD, priceSource := extractPrice(raw)

	// Step 3: HS code repair. Upstream serves HS codes as integers,
	// which strips the leading zero from chapters 01-09.
	hsCode := raw.String("HS_CODE")
	if isDigits(hsCode) && len(hsCode) < 8 && len(hsCode)%2 == 1 {
		hsCode = "0" + hsCode
	}

	// Step 4: taxonomy classification.
	hctID := ""
	hctName := "Unclassified"
	hctGroup := "Unknown"
	if hct, ok := reference.ClassifyByHS(hsCode, tradeCountry); ok {
		hctID = hct.ID
		hctName = hct.Name
		hctGroup = hct.Group
	}

	// Step 5: quantity to metric tonnes, retrying once on the
	// standardized fields when the declared ones resolve to nothing.
	qty, _ := raw.FirstFloat("QUANTITY", "STD_QUANTITY")
	unit := raw.FirstString("UNIT", "STD_UNIT")
	quantityMT, unitStatus := reference.ConvertToMT(qty, unit, hctName)
	if unitStatus == domain.UnitUnresolvable {
		stdQty, ok := raw.Float("STD_QUANTITY")
		if stdUnit := raw.String("STD_UNIT"); ok && stdQty != 0 && stdUnit != "" {
			quantityMT, unitStatus = reference.ConvertToMT(stdQty, stdUnit, hctName)
		}
	}
	var quantityPtr *float64
	if unitStatus != domain.UnitMissing && unitStatus != domain.UnitUnresolvable {
		quantityPtr = domain.Float64Ptr(quantityMT)
	}

	// Step 6: ports by trade direction.
	var originPort, destPort string
	if isExport {
		originPort = domain.NormalizeCountry(raw.String("INDIAN_PORT"))
		destPort = domain.NormalizeCountry(raw.String("FOREIGN_PORT"))
	} else {
		originPort = domain.NormalizeCountry(raw.FirstString("PORT_OF_SHIPMENT", "FOREIGN_PORT"))
		destPort = domain.NormalizeCountry(raw.String("INDIAN_PORT"))
	}

	// Step 7: FOB derivation. A CIF assessable value sheds freight,
	// cargo cover at the base rate, and discharge port charges; war-risk
	// loadings are corridor economics, not part of the declared value.
	var (
		fobUSD              *float64
		freightDeducted     *float64
		insuranceDeducted   *float64
		portChargesDeducted *float64
	)
	switch {
	case priceUSD != nil && incoterm == "FOB":
		fobUSD = priceUSD
	case priceUSD != nil && incoterm == "CIF":
		insurance := *priceUSD * reference.InsuranceBaseRate
		portRate := reference.LookupPortCharges(destPort)
		freightRate, freightOK := reference.LookupFreight(originPort, destPort)

		// Per-MT rates scale by quantity when it is known; without a
		// tonnage the flat rates are deducted as-is.
		deductions := insurance + portRate
		if freightOK {
			deductions += freightRate
		}
		if freightOK && quantityMT > 0 {
			deductions = freightRate*quantityMT + insurance + portRate*quantityMT
		}

		fobUSD = domain.Float64Ptr(math.Max(*priceUSD-deductions, 0))
		priceSource = domain.SourceDerivedFromCIF
		if freightOK {
			freightDeducted = domain.Float64Ptr(freightRate)
		}
		insuranceDeducted = domain.Float64Ptr(insurance)
		portChargesDeducted = domain.Float64Ptr(portRate)
	case priceUSD != nil:
		fobUSD = priceUSD
		priceSource = domain.SourceUnknownBasis
	}

	var fobPerMT *float64
	if fobUSD != nil && quantityMT > 0 {
		fobPerMT = domain.Float64Ptr(*fobUSD / quantityMT)
	}

	// Step 8: quality inference from the product description.
	productText := raw.FirstString("PRODUCT_DESCRIPTION", "PRODUCT")
	quality := ParseQuality(productText, hctID)

	// Step 9: price sanity classification.
	priceStatus := domain.PriceNormal
	switch {
	case fobUSD == nil || *fobUSD == 0:
		priceStatus = domain.PriceMissing
	case fobPerMT != nil && *fobPerMT < 10:
		priceStatus = domain.PriceSuspectLow
	case fobPerMT != nil && *fobPerMT > 50000:
		priceStatus = domain.PriceSuspectHigh
	}

	// Upstream timestamps arrive as "2025-03-10T00:00:00.0000000Z";
	// the canonical trade date keeps the date part only.
	tradeDate := raw.FirstString("IMP_DATE", "EXP_DATE", "DATE")
	if len(tradeDate) >= 10 && strings.Contains(tradeDate, "T") {
		tradeDate = tradeDate[:10]
	}

	var originCountry, destCountry string
	if isExport {
		originCountry = tradeCountry
		destCountry = domain.NormalizeCountry(raw.FirstString("COUNTRY", "DESTINATION_COUNTRY"))
	} else {
		originCountry = domain.NormalizeCountry(raw.String("ORIGIN_COUNTRY"))
		destCountry = tradeCountry
	}

	var consignee, consignor string
	if isExport {
		consignee = raw.FirstString("BUYER_NAME", "STD_BUYER_NAME")
		consignor = raw.String("EXPORTER_NAME")
	} else {
		consignee = raw.String("IMPORTER_NAME")
		consignor = raw.FirstString("SUPPLIER_NAME", "UPDATED_SUPPLIER_NAME")
	}

	var quantityOriginal *float64
	if v, ok := raw.Float("QUANTITY"); ok {
		quantityOriginal = domain.Float64Ptr(v)
	}

	hs2 := raw.String("HS_CODE_2")
	if hs2 == "" && hsCode != "" {
		hs2 = hsCode[:min(2, len(hsCode))]
	}
	hs4 := raw.String("HS_CODE_4")
	if hs4 == "" && hsCode != "" {
		hs4 = hsCode[:min(4, len(hsCode))]
	}

	return &domain.Shipment{
		RecordID:      RecordKey(raw),
		DeclarationNo: raw.String("DECLARATION_NO"),
		BillNo:        raw.String("BILL_NO"),

		TradeDate:    tradeDate,
		TradeType:    tradeType,
		TradeCountry: tradeCountry,

		Consignee: consignee,
		Consignor: consignor,

		OriginCountry:      originCountry,
		OriginPort:         originPort,
		DestinationCountry: destCountry,
		DestinationPort:    destPort,

		HSCode:             hsCode,
		HSCode2:            hs2,
		HSCode4:            hs4,
		HCTID:              hctID,
		HCTName:            hctName,
		HCTGroup:           hctGroup,
		ProductDescription: productText,

		QuantityMT:       quantityPtr,
		QuantityOriginal: quantityOriginal,
		UnitOriginal:     raw.String("UNIT"),
		UnitStatus:       unitStatus,

		FOBUSDTotal:      fobUSD,
		FOBUSDPerMT:      fobPerMT,
		DeclaredIncoterm: incoterm,
		PriceSource:      priceSource,
		PriceStatus:      priceStatus,
		CurrencyOriginal: raw.FirstString("CURRENCY", "INVOICE_CURRENCY"),

		Quality: quality,

		FreightDeducted:      freightDeducted,
		InsuranceDeducted:    insuranceDeducted,
		PortChargesDeducted:  portChargesDeducted,
		NormalizedAt:         n.now().UTC().Format(time.RFC3339),
		NormalizationVersion: Version,
	}, nil
}

// extractPrice walks the USD price ladder and reports which rung fired.
// Rungs are ordered by how directly the field states a USD total; INR
// fields need the record's own exchange rate.
func extractPrice(raw domain.RawRecord) (*float64, string) {
	if v, ok := raw.Float("FOB_USD"); ok && v > 0 {
		return domain.Float64Ptr(v), domain.SourceFOBUSD
	}

	if v, ok := raw.FirstFloat("TOTAL_ASSESS_USD", "TOTAL_VALUE_USD"); ok && v > 0 {
		return domain.Float64Ptr(v), domain.SourceTotalAssessUSD
	}

	if unitPrice, ok := raw.Float("STD_UNIT_PRICE_USD"); ok {
		if stdQty, ok := raw.Float("STD_QUANTITY"); ok && unitPrice*stdQty > 0 {
			return domain.Float64Ptr(unitPrice * stdQty), domain.SourceStdUnitPrice
		}
	}

	if unitPrice, ok := raw.Float("UNIT_PRICE_USD"); ok {
		if qty, ok := raw.Float("QUANTITY"); ok && unitPrice*qty > 0 {
			return domain.Float64Ptr(unitPrice * qty), domain.SourceUnitPrice
		}
	}

	fx, hasFX := raw.Float("USD_EXCHANGE_RATE")
	if !hasFX || fx == 0 {
		return nil, domain.SourceMissing
	}

	if v, ok := raw.Float("FOB_INR"); ok {
		if usd := v / fx; usd > 0 {
			return domain.Float64Ptr(usd), domain.SourceFOBINR
		}
	}

	if rate, ok := raw.FirstFloat("ITEM_RATE_INR", "STD_ITEM_RATE_INR"); ok {
		if qty, ok := raw.Float("QUANTITY"); ok {
			if usd := rate * qty / fx; usd > 0 {
				return domain.Float64Ptr(usd), domain.SourceItemRateINR
			}
		}
	}

	if v, ok := raw.Float("TOTAL_ASSESSABLE_VALUE_INR"); ok {
		if usd := v / fx; usd > 0 {
			return domain.Float64Ptr(usd), domain.SourceAssessINR
		}
	}

	return nil, domain.SourceMissing
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
