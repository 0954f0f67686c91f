package eximpedia

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
)

const (
	maxFilterValues = 5
	maxPageSize     = 1000
)

// DateRange bounds a query by trade date, inclusive on both ends.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SearchFilter is one filter clause. The upstream payload mixes casing
// conventions; the json tags follow the wire format, not Go style.
type SearchFilter struct {
	Filter     string   `json:"FILTER"`
	Values     []string `json:"VALUES"`
	SearchType string   `json:"SearchType,omitempty"`
	Operator   string   `json:"OPERATOR,omitempty"`
}

// ShipmentQuery is the payload of the shipment search endpoint.
type ShipmentQuery struct {
	DateRange     DateRange      `json:"DateRange"`
	TradeType     string         `json:"TradeType"`
	TradeCountry  string         `json:"TradeCountry"`
	PageSize      int            `json:"page_size"`
	PageNo        int            `json:"page_no"`
	Sort          string         `json:"sort"`
	SortType      string         `json:"sort_type"`
	PrimarySearch *SearchFilter  `json:"PrimarySearch,omitempty"`
	AdvanceSearch []SearchFilter `json:"AdvanceSearch,omitempty"`
}

// SummaryQuery is the payload of the importer/exporter summary
// endpoints. Summaries are not paginated by trade date order, so there
// is no sort clause.
type SummaryQuery struct {
	DateRange     DateRange      `json:"DateRange"`
	TradeType     string         `json:"TradeType"`
	TradeCountry  string         `json:"TradeCountry"`
	PageSize      int            `json:"page_size"`
	PageNo        int            `json:"page_no"`
	PrimarySearch *SearchFilter  `json:"PrimarySearch,omitempty"`
	AdvanceSearch []SearchFilter `json:"AdvanceSearch,omitempty"`
	Exclude       *SearchFilter  `json:"exclude,omitempty"`
}

// QueryParams are the high-level inputs a caller supplies; the builders
// turn them into well-formed payloads. HS codes take precedence over
// product keywords when both are set.
type QueryParams struct {
	StartDate    time.Time
	EndDate      time.Time
	TradeType    domain.TradeType
	TradeCountry string

	HSCodes  []int
	Products []string

	OriginCountries      []string
	DestinationCountries []string
	OriginPorts          []string
	DestinationPorts     []string
	Consignees           []string
	Consignors           []string

	PageSize int
	PageNo   int
	Sort     string
	SortType string

	Exclude *SearchFilter
}

// BuildShipmentQuery constructs a shipment payload: filter values capped
// at five, page size capped at the provider maximum, HS codes serialized
// as zero-padded strings.
func BuildShipmentQuery(p QueryParams) *ShipmentQuery {
	q := &ShipmentQuery{
		DateRange: DateRange{
			StartDate: isoDate(p.StartDate),
			EndDate:   isoDate(p.EndDate),
		},
		TradeType:     strings.ToUpper(string(p.TradeType)),
		TradeCountry:  strings.ToUpper(p.TradeCountry),
		PageSize:      capPageSize(p.PageSize),
		PageNo:        defaultPage(p.PageNo),
		Sort:          defaultString(p.Sort, "DATE"),
		SortType:      defaultString(p.SortType, "desc"),
		PrimarySearch: primaryFilter(p),
		AdvanceSearch: advanceFilters(p, true),
	}
	return q
}

// BuildSummaryQuery constructs an importer/exporter summary payload.
// Summary endpoints only accept country-level advance filters.
func BuildSummaryQuery(p QueryParams) *SummaryQuery {
	return &SummaryQuery{
		DateRange: DateRange{
			StartDate: isoDate(p.StartDate),
			EndDate:   isoDate(p.EndDate),
		},
		TradeType:     strings.ToUpper(string(p.TradeType)),
		TradeCountry:  strings.ToUpper(p.TradeCountry),
		PageSize:      capPageSize(p.PageSize),
		PageNo:        defaultPage(p.PageNo),
		PrimarySearch: primaryFilter(p),
		AdvanceSearch: advanceFilters(p, false),
		Exclude:       p.Exclude,
	}
}

func primaryFilter(p QueryParams) *SearchFilter {
	switch {
	case len(p.HSCodes) > 0:
		return &SearchFilter{
			Filter:     "HS_CODE",
			Values:     formatHSCodes(p.HSCodes),
			SearchType: "CONTAIN",
		}
	case len(p.Products) > 0:
		return &SearchFilter{
			Filter:     "PRODUCT",
			Values:     capValues(p.Products),
			SearchType: "CONTAIN",
		}
	}
	return nil
}

func advanceFilters(p QueryParams, includePartyAndPort bool) []SearchFilter {
	specs := []struct {
		filter string
		values []string
	}{
		{"ORIGIN_COUNTRY", p.OriginCountries},
		{"DESTINATION_COUNTRY", p.DestinationCountries},
	}
	if includePartyAndPort {
		specs = append(specs, []struct {
			filter string
			values []string
		}{
			{"ORIGIN_PORT", p.OriginPorts},
			{"DESTINATION_PORT", p.DestinationPorts},
			{"CONSIGNEE", p.Consignees},
			{"CONSIGNOR", p.Consignors},
		}...)
	}

	var out []SearchFilter
	for _, s := range specs {
		if len(s.values) == 0 {
			continue
		}
		out = append(out, SearchFilter{
			Filter:   s.filter,
			Values:   upperValues(s.values),
			Operator: "AND",
		})
	}
	return out
}

// formatHSCodes renders HS prefixes as the upstream expects: codes below
// 1000 zero-pad to four digits so chapter prefixes like 801 match as
// "0801".
func formatHSCodes(codes []int) []string {
	n := min(len(codes), maxFilterValues)
	out := make([]string, 0, n)
	for _, c := range codes[:n] {
		if c < 1000 {
			out = append(out, fmt.Sprintf("%04d", c))
		} else {
			out = append(out, strconv.Itoa(c))
		}
	}
	return out
}

func capValues(values []string) []string {
	n := min(len(values), maxFilterValues)
	return append([]string(nil), values[:n]...)
}

func upperValues(values []string) []string {
	n := min(len(values), maxFilterValues)
	out := make([]string, 0, n)
	for _, v := range values[:n] {
		out = append(out, strings.ToUpper(v))
	}
	return out
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func capPageSize(size int) int {
	if size <= 0 || size > maxPageSize {
		return maxPageSize
	}
	return size
}

func defaultPage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// clampDates intersects the query window with the window the provider
// advertises. ok is false when they do not overlap at all.
func (q *ShipmentQuery) clampDates(availStart, availEnd string) (*ShipmentQuery, bool) {
	start := q.DateRange.StartDate
	if availStart > start {
		start = availStart
	}
	end := q.DateRange.EndDate
	if availEnd < end {
		end = availEnd
	}
	if start > end {
		return nil, false
	}
	out := *q
	out.DateRange = DateRange{StartDate: start, EndDate: end}
	return &out, true
}
