package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/budget"
	"github.com/avramidis/tradewinds/internal/clients/eximpedia"
	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/harvest"
	"github.com/avramidis/tradewinds/internal/normalize"
	"github.com/avramidis/tradewinds/internal/reference"
	"github.com/avramidis/tradewinds/internal/store"
)

const (
	defaultGroundPriceLimit  = 50
	maxGroundPriceLimit      = 200
	commodityHarvestLookback = 60
)

// DataHandlers serves ingestion, harvesting and ground-price routes.
type DataHandlers struct {
	fetcher  harvest.ShipmentFetcher
	engine   *harvest.Engine
	norm     *normalize.Normalizer
	records  *store.RecordStore
	prices   *store.GroundPriceLog
	budget   *budget.Tracker
	validate *Validator
	log      zerolog.Logger
}

// NewDataHandlers creates the data route handlers.
func NewDataHandlers(
	fetcher harvest.ShipmentFetcher,
	engine *harvest.Engine,
	records *store.RecordStore,
	prices *store.GroundPriceLog,
	tracker *budget.Tracker,
	log zerolog.Logger,
) *DataHandlers {
	return &DataHandlers{
		fetcher:  fetcher,
		engine:   engine,
		norm:     normalize.New(),
		records:  records,
		prices:   prices,
		budget:   tracker,
		validate: NewValidator(),
		log:      log.With().Str("handler", "data").Logger(),
	}
}

// RegisterRoutes registers all data management routes
func (h *DataHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/data", func(r chi.Router) {
		r.Post("/query/shipments", h.HandleQueryShipments)
		r.Post("/harvest/run", h.HandleRunHarvest)
		r.Get("/harvest/jobs", h.HandleListHarvestJobs)
		r.Post("/harvest/commodity", h.HandleHarvestCommodity)
		r.Post("/ground-price", h.HandleSubmitGroundPrice)
		r.Get("/ground-prices", h.HandleListGroundPrices)
		r.Get("/records/stats", h.HandleRecordStats)
		r.Get("/budget", h.HandleBudget)
	})
}

type shipmentQueryRequest struct {
	StartDate            string   `json:"start_date" validate:"required"`
	EndDate              string   `json:"end_date" validate:"required"`
	TradeType            string   `json:"trade_type" validate:"required,oneof=IMPORT EXPORT"`
	TradeCountry         string   `json:"trade_country" validate:"required"`
	HSCodes              []int    `json:"hs_codes,omitempty"`
	Products             []string `json:"products,omitempty"`
	OriginCountries      []string `json:"origin_countries,omitempty"`
	DestinationCountries []string `json:"destination_countries,omitempty"`
	PageSize             int      `json:"page_size,omitempty" validate:"omitempty,min=1,max=1000"`
}

// HandleQueryShipments handles POST /api/data/query/shipments.
// Direct query to the shipment API for exploration: results are
// normalized and stored so analytics see them too.
func (h *DataHandlers) HandleQueryShipments(w http.ResponseWriter, r *http.Request) {
	var req shipmentQueryRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	query := eximpedia.BuildShipmentQuery(eximpedia.QueryParams{
		StartDate:            start,
		EndDate:              end,
		TradeType:            domain.TradeType(req.TradeType),
		TradeCountry:         req.TradeCountry,
		HSCodes:              req.HSCodes,
		Products:             req.Products,
		OriginCountries:      req.OriginCountries,
		DestinationCountries: req.DestinationCountries,
		PageSize:             req.PageSize,
	})

	raw, err := h.fetcher.FetchAllShipments(r.Context(), query, budget.Search)
	if err != nil {
		h.log.Error().Err(err).Msg("shipment query failed")
		writeError(h.log, w, http.StatusBadGateway, err.Error())
		return
	}

	shipments := make([]domain.Shipment, 0, len(raw))
	for _, rec := range raw {
		s, err := h.norm.Normalize(rec, domain.TradeType(req.TradeType), req.TradeCountry)
		if err != nil {
			continue
		}
		shipments = append(shipments, *s)
	}
	stored := h.records.AddBatch(shipments)

	writeData(h.log, w, http.StatusOK, map[string]any{
		"raw_count":        len(raw),
		"normalized_count": len(shipments),
		"stored_count":     stored,
		"records":          shipments,
	})
}

type harvestRunRequest struct {
	JobName  string `json:"job_name,omitempty"`
	Priority int    `json:"priority,omitempty" validate:"omitempty,min=1"`
}

// HandleRunHarvest handles POST /api/data/harvest/run.
// Runs one named job, or the whole catalog up to a priority level.
func (h *DataHandlers) HandleRunHarvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRunRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	var results []harvest.Summary
	if req.JobName != "" {
		job, ok := harvest.JobByName(req.JobName)
		if !ok {
			writeError(h.log, w, http.StatusNotFound, "job '"+req.JobName+"' not found")
			return
		}
		results = []harvest.Summary{h.engine.RunJob(r.Context(), job)}
	} else {
		results = h.engine.RunAll(r.Context(), req.Priority)
	}

	writeData(h.log, w, http.StatusOK, map[string]any{"harvest_results": results})
}

// HandleListHarvestJobs handles GET /api/data/harvest/jobs.
func (h *DataHandlers) HandleListHarvestJobs(w http.ResponseWriter, r *http.Request) {
	writeData(h.log, w, http.StatusOK, map[string]any{"jobs": harvest.Jobs})
}

type commodityHarvestRequest struct {
	HCTID        string `json:"hct_id" validate:"required"`
	TradeType    string `json:"trade_type" validate:"required,oneof=IMPORT EXPORT"`
	TradeCountry string `json:"trade_country" validate:"required"`
	LookbackDays int    `json:"lookback_days,omitempty" validate:"omitempty,min=1,max=365"`
}

// HandleHarvestCommodity handles POST /api/data/harvest/commodity.
// Builds an ad-hoc job from the taxonomy's HS mappings for commodities
// the standing catalog does not cover.
func (h *DataHandlers) HandleHarvestCommodity(w http.ResponseWriter, r *http.Request) {
	var req commodityHarvestRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	entry, ok := reference.CommodityByID(req.HCTID)
	if !ok {
		writeError(h.log, w, http.StatusNotFound, "unknown commodity '"+req.HCTID+"'")
		return
	}
	codes := hsCodesFor(entry, domain.NormalizeCountry(req.TradeCountry))
	if len(codes) == 0 {
		writeError(h.log, w, http.StatusUnprocessableEntity,
			"commodity '"+req.HCTID+"' has no HS mapping usable for "+req.TradeCountry)
		return
	}

	lookback := req.LookbackDays
	if lookback == 0 {
		lookback = commodityHarvestLookback
	}
	job := harvest.Job{
		Name:         "adhoc_" + strings.ToLower(strings.ReplaceAll(req.HCTID, "-", "_")),
		TradeType:    domain.TradeType(req.TradeType),
		TradeCountry: req.TradeCountry,
		HSCodes:      codes,
		LookbackDays: lookback,
	}

	writeData(h.log, w, http.StatusOK, map[string]any{
		"harvest_results": []harvest.Summary{h.engine.RunJob(r.Context(), job)},
	})
}

// hsCodesFor picks the HS prefixes to query for a commodity in one
// reporting country: country-specific mappings when present, wildcard
// otherwise. Prefixes that are not plain numbers are skipped.
func hsCodesFor(entry reference.Commodity, tradeCountry string) []int {
	var specific, wildcard []int
	for _, m := range entry.HSMappings {
		code, err := strconv.Atoi(m.HSPrefix)
		if err != nil {
			continue
		}
		switch m.Country {
		case tradeCountry:
			specific = append(specific, code)
		case "*":
			wildcard = append(wildcard, code)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return wildcard
}

type groundPriceRequest struct {
	HCTID           string  `json:"hct_id" validate:"required"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	Currency        string  `json:"currency,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	Incoterm        string  `json:"incoterm,omitempty"`
	Location        string  `json:"location" validate:"required"`
	QualityGrade    string  `json:"quality_grade,omitempty"`
	SourceType      string  `json:"source_type" validate:"required"`
	SourceName      string  `json:"source_name,omitempty"`
	ObservationDate string  `json:"observation_date" validate:"required"`
	Notes           string  `json:"notes,omitempty"`
}

// HandleSubmitGroundPrice handles POST /api/data/ground-price.
// Field agents and analysts enter broker quotes, auction results and
// market observations here.
func (h *DataHandlers) HandleSubmitGroundPrice(w http.ResponseWriter, r *http.Request) {
	var req groundPriceRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := parseDate("observation_date", req.ObservationDate); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	obs := h.prices.Submit(store.GroundPrice{
		HCTID:           req.HCTID,
		Price:           req.Price,
		Currency:        defaultString(req.Currency, "USD"),
		Unit:            defaultString(req.Unit, "MT"),
		Incoterm:        defaultString(req.Incoterm, "FOB"),
		Location:        req.Location,
		QualityGrade:    req.QualityGrade,
		SourceType:      req.SourceType,
		SourceName:      req.SourceName,
		ObservationDate: req.ObservationDate,
		Notes:           req.Notes,
	})

	writeData(h.log, w, http.StatusOK, map[string]any{
		"status":      "accepted",
		"observation": obs,
	})
}

// HandleListGroundPrices handles GET /api/data/ground-prices.
func (h *DataHandlers) HandleListGroundPrices(w http.ResponseWriter, r *http.Request) {
	limit := defaultGroundPriceLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxGroundPriceLimit {
			writeError(h.log, w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = parsed
	}

	prices, total := h.prices.List(r.URL.Query().Get("hct_id"), r.URL.Query().Get("location"), limit)
	writeData(h.log, w, http.StatusOK, map[string]any{
		"prices": prices,
		"total":  total,
	})
}

// HandleRecordStats handles GET /api/data/records/stats.
func (h *DataHandlers) HandleRecordStats(w http.ResponseWriter, r *http.Request) {
	stats := h.records.Stats()
	total := 0
	for _, s := range stats {
		total += s.RecordCount
	}
	writeData(h.log, w, http.StatusOK, map[string]any{
		"record_stats":  stats,
		"total_records": total,
	})
}

// HandleBudget handles GET /api/data/budget.
func (h *DataHandlers) HandleBudget(w http.ResponseWriter, r *http.Request) {
	writeData(h.log, w, http.StatusOK, h.budget.Snapshot())
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
