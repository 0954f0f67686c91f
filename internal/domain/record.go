// Package domain provides the canonical shipment model and shared types.
package domain

import (
	"strings"
	"time"
)

// TradeType is the direction of a customs declaration.
type TradeType string

const (
	TradeImport TradeType = "IMPORT"
	TradeExport TradeType = "EXPORT"
)

// UnitStatus records how a raw quantity was converted to metric tonnes.
type UnitStatus string

const (
	// UnitOK means conversion used a known unit factor.
	UnitOK UnitStatus = "OK"
	// UnitAssumedKG means the unit was absent and magnitude suggested kilograms.
	UnitAssumedKG UnitStatus = "ASSUMED_KG"
	// UnitAssumedMT means the unit was absent and magnitude suggested tonnes.
	UnitAssumedMT UnitStatus = "ASSUMED_MT"
	// UnitAssumedBagWeight means a generic 50 kg bag weight was applied.
	UnitAssumedBagWeight UnitStatus = "ASSUMED_BAG_WEIGHT"
	// UnitUnresolvable means no conversion could be determined.
	UnitUnresolvable UnitStatus = "UNRESOLVABLE"
	// UnitMissing means the quantity itself was absent or non-positive.
	UnitMissing UnitStatus = "MISSING"
)

// PriceStatus is the sanity classification of a normalized price.
type PriceStatus string

const (
	PriceNormal      PriceStatus = "NORMAL"
	PriceMissing     PriceStatus = "MISSING"
	PriceSuspectLow  PriceStatus = "SUSPECT_LOW"  // under 10 USD/MT
	PriceSuspectHigh PriceStatus = "SUSPECT_HIGH" // over 50000 USD/MT
)

// Price source ladder rungs, plus the basis tags applied during FOB derivation.
const (
	SourceFOBUSD         = "FOB_USD"
	SourceTotalAssessUSD = "TOTAL_ASSESS_USD"
	SourceStdUnitPrice   = "STD_UNIT_PRICE_x_QTY"
	SourceUnitPrice      = "UNIT_PRICE_x_QTY"
	SourceFOBINR         = "FOB_INR_converted"
	SourceItemRateINR    = "ITEM_RATE_INR_converted"
	SourceAssessINR      = "TOTAL_ASSESSABLE_VALUE_INR_converted"
	SourceMissing        = "MISSING"

	SourceDerivedFromCIF = "derived_from_cif"
	SourceUnknownBasis   = "assumed_unknown_basis"
)

// PartyField selects which side of a shipment a counterparty query targets.
type PartyField string

const (
	PartyConsignee PartyField = "consignee"
	PartyConsignor PartyField = "consignor"
)

// QualityEstimate is the parsed quality profile of one shipment.
type QualityEstimate struct {
	Grade       string   `json:"grade"`
	Confidence  float64  `json:"confidence"`
	SignalsUsed []string `json:"signals_used"`
	Details     string   `json:"details"`
}

// Shipment is the canonical record every analytic consumes. Produced
// exactly once per raw record by the normalization pipeline; immutable
// after emission. Pointer fields carry upstream nulls.
type Shipment struct {
	// Identifiers
	RecordID      string `json:"record_id"`
	DeclarationNo string `json:"declaration_no,omitempty"`
	BillNo        string `json:"bill_no,omitempty"` // opaque, never normalized

	// Temporal
	TradeDate    string    `json:"trade_date,omitempty"` // YYYY-MM-DD
	TradeType    TradeType `json:"trade_type"`
	TradeCountry string    `json:"trade_country"`

	// Parties
	Consignee string `json:"consignee,omitempty"`
	Consignor string `json:"consignor,omitempty"`

	// Location
	OriginCountry      string `json:"origin_country,omitempty"`
	OriginPort         string `json:"origin_port,omitempty"`
	DestinationCountry string `json:"destination_country,omitempty"`
	DestinationPort    string `json:"destination_port,omitempty"`

	// Commodity
	HSCode             string `json:"hs_code,omitempty"`
	HSCode2            string `json:"hs_code_2,omitempty"`
	HSCode4            string `json:"hs_code_4,omitempty"`
	HCTID              string `json:"hct_id,omitempty"` // empty when unclassified
	HCTName            string `json:"hct_name"`
	HCTGroup           string `json:"hct_group"`
	ProductDescription string `json:"product_description,omitempty"`

	// Quantity
	QuantityMT       *float64   `json:"quantity_mt"`
	QuantityOriginal *float64   `json:"quantity_original,omitempty"`
	UnitOriginal     string     `json:"unit_original,omitempty"`
	UnitStatus       UnitStatus `json:"unit_status"`

	// Price
	FOBUSDTotal      *float64    `json:"fob_usd_total"`
	FOBUSDPerMT      *float64    `json:"fob_usd_per_mt"`
	DeclaredIncoterm string      `json:"declared_incoterm"`
	PriceSource      string      `json:"price_source"`
	PriceStatus      PriceStatus `json:"price_status"`
	CurrencyOriginal string      `json:"currency_original,omitempty"`

	// Quality
	Quality QualityEstimate `json:"quality_estimate"`

	// Normalization audit trail
	FreightDeducted      *float64 `json:"freight_deducted,omitempty"`
	InsuranceDeducted    *float64 `json:"insurance_deducted,omitempty"`
	PortChargesDeducted  *float64 `json:"port_charges_deducted,omitempty"`
	NormalizedAt         string   `json:"normalized_at"`
	NormalizationVersion string   `json:"normalization_version"`
}

// PerMT returns the normalized USD/MT price when known.
func (s *Shipment) PerMT() (float64, bool) {
	if s.FOBUSDPerMT == nil {
		return 0, false
	}
	return *s.FOBUSDPerMT, true
}

// Volume returns the metric-tonne quantity, or zero when unknown.
func (s *Shipment) Volume() float64 {
	if s.QuantityMT == nil {
		return 0
	}
	return *s.QuantityMT
}

// Value returns the FOB USD total, or zero when unknown.
func (s *Shipment) Value() float64 {
	if s.FOBUSDTotal == nil {
		return 0
	}
	return *s.FOBUSDTotal
}

// Date parses the trade date. ok is false when absent or malformed.
func (s *Shipment) Date() (time.Time, bool) {
	if s.TradeDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s.TradeDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// InWindow reports whether the trade date falls in [start, end] inclusive.
func (s *Shipment) InWindow(start, end time.Time) bool {
	t, ok := s.Date()
	if !ok {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// Party returns the requested counterparty name field.
func (s *Shipment) Party(field PartyField) string {
	if field == PartyConsignor {
		return s.Consignor
	}
	return s.Consignee
}

// FlowCountry is the country a flow analytic groups by: origin when
// known, else destination, else UNKNOWN.
func (s *Shipment) FlowCountry() string {
	if s.OriginCountry != "" {
		return s.OriginCountry
	}
	if s.DestinationCountry != "" {
		return s.DestinationCountry
	}
	return "UNKNOWN"
}

// Float64Ptr returns a pointer to v. Shorthand for building shipments.
func Float64Ptr(v float64) *float64 { return &v }

// NormalizeCountry upper-cases and trims a country or port name.
func NormalizeCountry(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
