package eximpedia

import (
	"fmt"
	"time"

	"github.com/avramidis/tradewinds/internal/domain"
)

// Config carries the connection settings for the upstream trade data
// provider. Zero values fall back to the provider's documented limits.
type Config struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	MaxConcurrent int
	MinInterval   time.Duration
	PageSize      int
	RefreshBuffer time.Duration
}

// APIError is a non-recoverable upstream response, or an exhausted retry
// ladder. StatusCode 0 means the transport itself failed on every
// attempt.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eximpedia api error %d: %s", e.StatusCode, e.Message)
}

// PlanConstraints is the subscription metadata piggybacked on token
// responses. It is the authoritative view of consumption across every
// process sharing the plan.
type PlanConstraints struct {
	CreditPoints  CreditPoints  `json:"credit_points"`
	DailyLimitAPI DailyLimitAPI `json:"daily_limit_api"`
}

// CreditPoints tracks plan credit consumption.
type CreditPoints struct {
	TotalConsumedCredits int `json:"total_consumed_credits"`
	// The provider misspells "allotted" on the wire.
	TotalAllottedCredits int `json:"total_alloted_credits"`
}

// DailyLimitAPI tracks the provider-side daily call count.
type DailyLimitAPI struct {
	ConsumedDailyLimitAPI int `json:"consumed_daily_limit_api"`
}

type tokenResponse struct {
	AccessToken     string           `json:"AccessToken"`
	PlanConstraints *PlanConstraints `json:"plan_constraints"`
}

// shipmentPage is the response envelope of the shipment endpoint. The
// name of the total field varies across endpoint generations, so all
// three are declared and the first non-zero one wins.
type shipmentPage struct {
	Data                 []domain.RawRecord `json:"data"`
	TotalSearchRecords   *int               `json:"total_search_records"`
	TotalResponseRecords *int               `json:"total_response_records"`
	TotalRecords         *int               `json:"total_records"`
}

func (p *shipmentPage) total() int {
	for _, t := range []*int{p.TotalSearchRecords, p.TotalResponseRecords, p.TotalRecords} {
		if t != nil && *t != 0 {
			return *t
		}
	}
	return 0
}
