package server

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/harvest"
	"github.com/avramidis/tradewinds/internal/modules/corridor"
	"github.com/avramidis/tradewinds/internal/modules/counterparty"
	"github.com/avramidis/tradewinds/internal/modules/flow"
	"github.com/avramidis/tradewinds/internal/modules/pricing"
	"github.com/avramidis/tradewinds/internal/modules/signals"
	"github.com/avramidis/tradewinds/internal/modules/supply"
	"github.com/avramidis/tradewinds/internal/reference"
	"github.com/avramidis/tradewinds/internal/store"
)

const (
	defaultSignalLimit = 20
	maxSignalLimit     = 100
	priceSignalOffset  = 7 // days between the two IPC points a price signal compares
	deepDiveSMAPeriod  = 7
	deepDiveTopN       = 10
)

// IntelligenceHandlers serves the trader-facing analytics routes.
type IntelligenceHandlers struct {
	records  *store.RecordStore
	ipc      *pricing.Curve
	fvi      *flow.Index
	sd       *supply.Tracker
	parties  *counterparty.Analyzer
	lanes    *corridor.Analyzer
	feed     *signals.Generator
	validate *Validator
	log      zerolog.Logger

	now func() time.Time
}

// NewIntelligenceHandlers creates the intelligence route handlers.
func NewIntelligenceHandlers(
	records *store.RecordStore,
	ipc *pricing.Curve,
	fvi *flow.Index,
	sd *supply.Tracker,
	parties *counterparty.Analyzer,
	lanes *corridor.Analyzer,
	feed *signals.Generator,
	log zerolog.Logger,
) *IntelligenceHandlers {
	return &IntelligenceHandlers{
		records:  records,
		ipc:      ipc,
		fvi:      fvi,
		sd:       sd,
		parties:  parties,
		lanes:    lanes,
		feed:     feed,
		validate: NewValidator(),
		log:      log.With().Str("handler", "intelligence").Logger(),
		now:      time.Now,
	}
}

// RegisterRoutes registers all intelligence routes
func (h *IntelligenceHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/intelligence", func(r chi.Router) {
		r.Get("/signals", h.HandleSignals)
		r.Get("/commodities", h.HandleListCommodities)
		r.Post("/commodity/deep-dive", h.HandleDeepDive)
		r.Get("/corridors", h.HandleListCorridors)
		r.Post("/corridor/analyze", h.HandleAnalyzeCorridor)
		r.Post("/corridor/compare", h.HandleCompareOrigins)
		r.Post("/counterparty/market-shares", h.HandleCounterpartyShares)
		r.Post("/counterparty/anomalies", h.HandleCounterpartyAnomalies)
		r.Get("/counterparty/search", h.HandleCounterpartySearch)
		r.Post("/sd/delta", h.HandleSDDelta)
		r.Post("/sd/flows", h.HandleSDFlows)
		r.Get("/arbitrage/{hctID}", h.HandleArbitrage)
	})
}

// HandleSignals handles GET /api/intelligence/signals. The feed is the
// trader's first stop: price movements per origin and flow velocity per
// corridor, across every commodity with stored records, sorted by
// severity and recency.
func (h *IntelligenceHandlers) HandleSignals(w http.ResponseWriter, r *http.Request) {
	limit := defaultSignalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxSignalLimit {
			writeError(h.log, w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	today := h.now().UTC()
	var all []signals.Signal

	for _, entry := range reference.Taxonomy {
		records := h.records.ByCommodity(entry.ID)
		if len(records) == 0 {
			continue
		}

		for _, origin := range distinctOrigins(records) {
			originRecords := filterByOrigins(records, []string{origin})
			curr := h.ipc.Compute(originRecords, today)
			prev := h.ipc.Compute(originRecords, today.AddDate(0, 0, -priceSignalOffset))
			if sig := h.feed.FromPriceChange(curr, prev, entry.Name, origin, entry.ID); sig != nil {
				all = append(all, *sig)
			}
		}

		for _, lane := range harvest.CorridorsForCommodity(entry.ID) {
			laneRecords := filterByOrigins(records, lane.Origins)
			fvi := h.fvi.ComputeSeasonallyAdjusted(laneRecords, entry.ID, today)
			if sig := h.feed.FromFVI(fvi, lane.Name, entry.ID); sig != nil {
				all = append(all, *sig)
			}
		}
	}

	trimmed, total := signals.SortAndTrim(all, limit)
	writeData(h.log, w, http.StatusOK, map[string]any{
		"signals": trimmed,
		"total":   total,
	})
}

// HandleListCommodities handles GET /api/intelligence/commodities.
func (h *IntelligenceHandlers) HandleListCommodities(w http.ResponseWriter, r *http.Request) {
	today := h.now().UTC()

	out := make([]map[string]any, 0, len(reference.Taxonomy))
	for _, entry := range reference.Taxonomy {
		records := h.records.ByCommodity(entry.ID)

		var price *float64
		confidence := pricing.ConfidenceNone
		if len(records) > 0 {
			ipc := h.ipc.Compute(records, today)
			price = ipc.PriceUSDPerMT
			confidence = ipc.Confidence
		}

		out = append(out, map[string]any{
			"hct_id":            entry.ID,
			"hct_name":          entry.Name,
			"hct_group":         entry.Group,
			"hct_supergroup":    entry.Supergroup,
			"record_count":      len(records),
			"current_price_usd": price,
			"price_confidence":  confidence,
			"quality_grades":    entry.QualityGrades,
		})
	}

	writeData(h.log, w, http.StatusOK, map[string]any{"commodities": out})
}

type commodityAnalysisRequest struct {
	HCTID                string   `json:"hct_id" validate:"required"`
	StartDate            string   `json:"start_date" validate:"required"`
	EndDate              string   `json:"end_date" validate:"required"`
	OriginCountries      []string `json:"origin_countries,omitempty"`
	DestinationCountries []string `json:"destination_countries,omitempty"`
}

// HandleDeepDive handles POST /api/intelligence/commodity/deep-dive.
// Everything a trader needs for one commodity: price series, current
// price, flow velocity, volume breakdown, top counterparties, seasonal
// context.
func (h *IntelligenceHandlers) HandleDeepDive(w http.ResponseWriter, r *http.Request) {
	var req commodityAnalysisRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.records.ByCommodity(req.HCTID)
	if len(req.OriginCountries) > 0 {
		records = filterByOrigins(records, req.OriginCountries)
	}
	if len(req.DestinationCountries) > 0 {
		records = filterByDestinations(records, req.DestinationCountries)
	}

	series := h.ipc.ComputeTimeSeries(records, start, end)
	pricing.AttachSMA(series, deepDiveSMAPeriod)

	var seasonal *reference.SeasonalPattern
	if p, ok := reference.SeasonalPatternFor(req.HCTID); ok {
		seasonal = p
	}

	commodity := map[string]any{"hct_id": req.HCTID, "hct_name": "Unknown", "hct_group": "Unknown"}
	if entry, ok := reference.CommodityByID(req.HCTID); ok {
		commodity["hct_name"] = entry.Name
		commodity["hct_group"] = entry.Group
	}

	writeData(h.log, w, http.StatusOK, map[string]any{
		"commodity":         commodity,
		"current_ipc":       h.ipc.Compute(records, end),
		"ipc_series":        series,
		"fvi":               h.fvi.ComputeSeasonallyAdjusted(records, req.HCTID, end),
		"volume_summary":    h.sd.CumulativeFlows(records, start, end, ""),
		"top_buyers":        h.parties.MarketShares(records, domain.PartyConsignee, start, end, deepDiveTopN),
		"top_sellers":       h.parties.MarketShares(records, domain.PartyConsignor, start, end, deepDiveTopN),
		"seasonal_patterns": seasonal,
		"period":            map[string]string{"start": req.StartDate, "end": req.EndDate},
	})
}

// HandleListCorridors handles GET /api/intelligence/corridors.
func (h *IntelligenceHandlers) HandleListCorridors(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(harvest.PriorityCorridors))
	for _, lane := range harvest.PriorityCorridors {
		records := filterByOrigins(h.records.ByCommodity(lane.Commodity), lane.Origins)

		var fob *float64
		confidence := pricing.ConfidenceNone
		if len(records) > 0 {
			ipc := h.ipc.Compute(records, time.Time{})
			fob = ipc.PriceUSDPerMT
			confidence = ipc.Confidence
		}

		out = append(out, map[string]any{
			"name":             lane.Name,
			"commodity":        lane.Commodity,
			"origins":          lane.Origins,
			"destination":      lane.Destination,
			"record_count":     len(records),
			"current_fob":      fob,
			"price_confidence": confidence,
		})
	}

	writeData(h.log, w, http.StatusOK, map[string]any{"corridors": out})
}

type corridorRequest struct {
	HCTID         string `json:"hct_id" validate:"required"`
	OriginCountry string `json:"origin_country" validate:"required"`
	OriginPort    string `json:"origin_port" validate:"required"`
	DestPort      string `json:"dest_port" validate:"required"`
	TargetDate    string `json:"target_date,omitempty"`
}

// HandleAnalyzeCorridor handles POST /api/intelligence/corridor/analyze.
// FOB, freight, insurance, port charges and implied CIF for one lane.
func (h *IntelligenceHandlers) HandleAnalyzeCorridor(w http.ResponseWriter, r *http.Request) {
	var req corridorRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.records.ByCommodity(req.HCTID)
	fab := h.lanes.FAB(records, req.OriginCountry, req.OriginPort, req.DestPort, target)
	writeData(h.log, w, http.StatusOK, fab)
}

type corridorOrigin struct {
	Country string `json:"country" validate:"required"`
	Port    string `json:"port" validate:"required"`
}

type corridorCompareRequest struct {
	HCTID      string           `json:"hct_id" validate:"required"`
	Origins    []corridorOrigin `json:"origins" validate:"required,min=1,dive"`
	DestPort   string           `json:"dest_port" validate:"required"`
	TargetDate string           `json:"target_date,omitempty"`
}

// HandleCompareOrigins handles POST /api/intelligence/corridor/compare.
func (h *IntelligenceHandlers) HandleCompareOrigins(w http.ResponseWriter, r *http.Request) {
	var req corridorCompareRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	origins := make([]corridor.Origin, 0, len(req.Origins))
	for _, o := range req.Origins {
		origins = append(origins, corridor.Origin{Country: o.Country, Port: o.Port})
	}

	records := h.records.ByCommodity(req.HCTID)
	comparison := h.lanes.CompareOrigins(records, origins, req.DestPort, target)
	writeData(h.log, w, http.StatusOK, comparison)
}

type counterpartyRequest struct {
	HCTID     string `json:"hct_id" validate:"required"`
	PartyType string `json:"party_type,omitempty" validate:"omitempty,oneof=consignee consignor"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	TopN      int    `json:"top_n,omitempty" validate:"omitempty,min=1,max=50"`
}

// HandleCounterpartyShares handles POST /api/intelligence/counterparty/market-shares.
func (h *IntelligenceHandlers) HandleCounterpartyShares(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.records.ByCommodity(req.HCTID)
	shares := h.parties.MarketShares(records, domain.PartyField(req.PartyType), start, end, req.TopN)
	writeData(h.log, w, http.StatusOK, shares)
}

// HandleCounterpartyAnomalies handles POST /api/intelligence/counterparty/anomalies.
func (h *IntelligenceHandlers) HandleCounterpartyAnomalies(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.records.ByCommodity(req.HCTID)
	anomalies := h.parties.DetectAnomalies(records, records, domain.PartyField(req.PartyType), 0)
	writeData(h.log, w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

// HandleCounterpartySearch handles GET /api/intelligence/counterparty/search.
// Resolves a raw name to its canonical entity and profiles that entity's
// activity across stored records: per-commodity positions on each side
// of the market, plus an origin-switching check.
func (h *IntelligenceHandlers) HandleCounterpartySearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(h.log, w, http.StatusBadRequest, "name parameter is required")
		return
	}
	hctID := r.URL.Query().Get("hct_id")

	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 24 {
			writeError(h.log, w, http.StatusBadRequest, "months must be an integer between 1 and 24")
			return
		}
		months = parsed
	}

	entity := h.parties.Resolve(name)

	var ids []string
	if hctID != "" {
		ids = []string{hctID}
	} else {
		ids = h.records.CommodityIDs()
	}

	var positions []map[string]any
	var all []domain.Shipment
	for _, id := range ids {
		records := h.records.ByCommodity(id)
		all = append(all, records...)

		buyer := entityPosition(h.parties, records, entity, domain.PartyConsignee)
		seller := entityPosition(h.parties, records, entity, domain.PartyConsignor)
		if buyer == nil && seller == nil {
			continue
		}
		positions = append(positions, map[string]any{
			"hct_id":    id,
			"as_buyer":  buyer,
			"as_seller": seller,
		})
	}

	writeData(h.log, w, http.StatusOK, map[string]any{
		"query":            name,
		"entity":           entity,
		"positions":        positions,
		"origin_switching": h.parties.OriginSwitching(all, entity, months),
	})
}

// entityPosition aggregates one entity's activity on one side of the
// market. nil when the entity never appears on that side.
func entityPosition(parties *counterparty.Analyzer, records []domain.Shipment, entity string, party domain.PartyField) map[string]any {
	volume := 0.0
	value := 0.0
	count := 0
	for i := range records {
		s := &records[i]
		if parties.Resolve(s.Party(party)) != entity {
			continue
		}
		count++
		volume += s.Volume()
		value += s.Value()
	}
	if count == 0 {
		return nil
	}
	return map[string]any{
		"shipments": count,
		"volume_mt": round2(volume),
		"value_usd": round2(value),
	}
}

type sdDeltaRequest struct {
	HCTID             string  `json:"hct_id" validate:"required"`
	ConsensusAnnualMT float64 `json:"consensus_annual_mt" validate:"required,gt=0"`
	CropYearStart     string  `json:"crop_year_start" validate:"required"`
	TargetDate        string  `json:"target_date,omitempty"`
}

// HandleSDDelta handles POST /api/intelligence/sd/delta.
func (h *IntelligenceHandlers) HandleSDDelta(w http.ResponseWriter, r *http.Request) {
	var req sdDeltaRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	cropYearStart, err := parseDate("crop_year_start", req.CropYearStart)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.records.ByCommodity(req.HCTID)
	delta := h.sd.Delta(records, req.ConsensusAnnualMT, cropYearStart, target)
	writeData(h.log, w, http.StatusOK, delta)
}

// HandleSDFlows handles POST /api/intelligence/sd/flows.
func (h *IntelligenceHandlers) HandleSDFlows(w http.ResponseWriter, r *http.Request) {
	var req commodityAnalysisRequest
	if err := decodeBody(h.validate, r, &req); err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(h.log, w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.records.ByCommodity(req.HCTID)
	if len(req.OriginCountries) > 0 {
		records = filterByOrigins(records, req.OriginCountries)
	}
	flows := h.sd.CumulativeFlows(records, start, end, "")
	writeData(h.log, w, http.StatusOK, flows)
}

// HandleArbitrage handles GET /api/intelligence/arbitrage/{hctID}.
// Scans the commodity's tracked corridor origins for price spreads.
func (h *IntelligenceHandlers) HandleArbitrage(w http.ResponseWriter, r *http.Request) {
	hctID := chi.URLParam(r, "hctID")

	var origins []string
	for _, lane := range harvest.CorridorsForCommodity(hctID) {
		origins = append(origins, lane.Origins...)
	}

	records := h.records.ByCommodity(hctID)
	opportunities := h.lanes.Arbitrage(records, origins, time.Time{})
	writeData(h.log, w, http.StatusOK, map[string]any{
		"commodity":     hctID,
		"opportunities": opportunities,
	})
}

// parseRange parses a required start/end date pair.
func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := parseDate("start_date", startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end_date", endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// distinctOrigins lists the origin countries present, sorted for stable
// feed composition.
func distinctOrigins(records []domain.Shipment) []string {
	seen := map[string]bool{}
	var out []string
	for i := range records {
		origin := records[i].OriginCountry
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		out = append(out, origin)
	}
	sort.Strings(out)
	return out
}

func filterByOrigins(records []domain.Shipment, origins []string) []domain.Shipment {
	want := make(map[string]bool, len(origins))
	for _, o := range origins {
		want[domain.NormalizeCountry(o)] = true
	}
	var out []domain.Shipment
	for i := range records {
		if want[records[i].OriginCountry] {
			out = append(out, records[i])
		}
	}
	return out
}

func filterByDestinations(records []domain.Shipment, destinations []string) []domain.Shipment {
	want := make(map[string]bool, len(destinations))
	for _, d := range destinations {
		want[domain.NormalizeCountry(d)] = true
	}
	var out []domain.Shipment
	for i := range records {
		if want[records[i].DestinationCountry] {
			out = append(out, records[i])
		}
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
