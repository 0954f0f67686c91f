package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/tradewinds/internal/budget"
	"github.com/avramidis/tradewinds/internal/clients/eximpedia"
	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/harvest"
	"github.com/avramidis/tradewinds/internal/store"
)

// stubFetcher satisfies harvest.ShipmentFetcher without touching the
// network.
type stubFetcher struct {
	records  []domain.RawRecord
	err      error
	calls    int
	lastKind budget.CallKind
}

func (s *stubFetcher) FetchAllShipments(ctx context.Context, query *eximpedia.ShipmentQuery, kind budget.CallKind) ([]domain.RawRecord, error) {
	s.calls++
	s.lastKind = kind
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func rawRCNImport(decl string) domain.RawRecord {
	return domain.RawRecord{
		"DECLARATION_NO":      decl,
		"ITEM_NO":             1,
		"IMP_DATE":            "2025-06-10T00:00:00.0000000Z",
		"HS_CODE":             8013110,
		"ORIGIN_COUNTRY":      "IVORY COAST",
		"PORT_OF_SHIPMENT":    "ABIDJAN",
		"INDIAN_PORT":         "TUTICORIN",
		"IMPORTER_NAME":       "KINGS NUTS PVT LTD",
		"SUPPLIER_NAME":       "SOCIETE IVOIRIENNE",
		"QUANTITY":            200.0,
		"UNIT":                "MTS",
		"TOTAL_ASSESS_USD":    260000.0,
		"PRODUCT_DESCRIPTION": "RAW CASHEW NUTS IN SHELL",
	}
}

func newDataHandlers(fetcher harvest.ShipmentFetcher) (*DataHandlers, *store.RecordStore) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	records := store.NewRecordStore(logger)
	prices := store.NewGroundPriceLog(logger)
	tracker := budget.NewTracker(logger)
	engine := harvest.NewEngine(fetcher, records, tracker, logger)
	return NewDataHandlers(fetcher, engine, records, prices, tracker, logger), records
}

func TestHandleQueryShipments(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		fetcher        *stubFetcher
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "success",
			body: `{"start_date":"2025-05-01","end_date":"2025-06-15","trade_type":"IMPORT","trade_country":"INDIA","hs_codes":[80131]}`,
			fetcher: &stubFetcher{records: []domain.RawRecord{
				rawRCNImport("DEC-1"),
				rawRCNImport("DEC-2"),
			}},
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				require.NoError(t, err)

				data := response["data"].(map[string]interface{})
				assert.Equal(t, float64(2), data["raw_count"])
				assert.Equal(t, float64(2), data["normalized_count"])
				assert.Equal(t, float64(2), data["stored_count"])
				records := data["records"].([]interface{})
				assert.Len(t, records, 2)
			},
		},
		{
			name:           "empty body",
			body:           "",
			fetcher:        &stubFetcher{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid trade type",
			body:           `{"start_date":"2025-05-01","end_date":"2025-06-15","trade_type":"BOTH","trade_country":"INDIA"}`,
			fetcher:        &stubFetcher{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed date",
			body:           `{"start_date":"01/05/2025","end_date":"2025-06-15","trade_type":"IMPORT","trade_country":"INDIA"}`,
			fetcher:        &stubFetcher{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "upstream failure",
			body:           `{"start_date":"2025-05-01","end_date":"2025-06-15","trade_type":"IMPORT","trade_country":"INDIA"}`,
			fetcher:        &stubFetcher{err: errors.New("upstream status 500")},
			expectedStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newDataHandlers(tt.fetcher)
			req := httptest.NewRequest("POST", "/api/data/query/shipments", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleQueryShipments(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandleQueryShipments_DrawsSearchBudget(t *testing.T) {
	fetcher := &stubFetcher{records: []domain.RawRecord{rawRCNImport("DEC-1")}}
	h, _ := newDataHandlers(fetcher)

	body := `{"start_date":"2025-05-01","end_date":"2025-06-15","trade_type":"IMPORT","trade_country":"INDIA"}`
	req := httptest.NewRequest("POST", "/api/data/query/shipments", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleQueryShipments(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, budget.Search, fetcher.lastKind, "ad-hoc queries must not spend the harvest budget")
}

func TestHandleRunHarvest(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "named job",
			body:           `{"job_name":"india_rcn_imports"}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				require.NoError(t, err)

				data := response["data"].(map[string]interface{})
				results := data["harvest_results"].([]interface{})
				require.Len(t, results, 1)
				first := results[0].(map[string]interface{})
				assert.Equal(t, "india_rcn_imports", first["job_name"])
				assert.Equal(t, harvest.StatusSuccess, first["status"])
				assert.Equal(t, float64(1), first["raw_count"])
			},
		},
		{
			name:           "unknown job",
			body:           `{"job_name":"nope"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "priority one runs the core catalog",
			body:           `{"priority":1}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				require.NoError(t, err)

				data := response["data"].(map[string]interface{})
				results := data["harvest_results"].([]interface{})
				assert.Len(t, results, 6)
			},
		},
		{
			name:           "empty body runs everything",
			body:           `{}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				require.NoError(t, err)

				data := response["data"].(map[string]interface{})
				results := data["harvest_results"].([]interface{})
				assert.Len(t, results, len(harvest.Jobs))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{records: []domain.RawRecord{rawRCNImport("DEC-RUN-" + tt.name)}}
			h, _ := newDataHandlers(fetcher)
			req := httptest.NewRequest("POST", "/api/data/harvest/run", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleRunHarvest(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandleListHarvestJobs(t *testing.T) {
	h, _ := newDataHandlers(&stubFetcher{})
	req := httptest.NewRequest("GET", "/api/data/harvest/jobs", nil)
	w := httptest.NewRecorder()

	h.HandleListHarvestJobs(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})
	jobs := data["jobs"].([]interface{})
	assert.Len(t, jobs, len(harvest.Jobs))
}

func TestHandleHarvestCommodity(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "ad-hoc job from taxonomy mapping",
			body:           `{"hct_id":"HCT-0801-RCN-INSHELL","trade_type":"IMPORT","trade_country":"INDIA"}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				require.NoError(t, err)

				data := response["data"].(map[string]interface{})
				results := data["harvest_results"].([]interface{})
				require.Len(t, results, 1)
				first := results[0].(map[string]interface{})
				assert.Equal(t, "adhoc_hct_0801_rcn_inshell", first["job_name"])
				assert.Equal(t, harvest.StatusSuccess, first["status"])
			},
		},
		{
			name:           "unknown commodity",
			body:           `{"hct_id":"HCT-9999-NOPE","trade_type":"IMPORT","trade_country":"INDIA"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "no usable mapping for country",
			body:           `{"hct_id":"HCT-1006-RICE-BASMATI","trade_type":"EXPORT","trade_country":"GHANA"}`,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "lookback out of range",
			body:           `{"hct_id":"HCT-0801-RCN-INSHELL","trade_type":"IMPORT","trade_country":"INDIA","lookback_days":900}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{records: []domain.RawRecord{rawRCNImport("DEC-ADHOC")}}
			h, _ := newDataHandlers(fetcher)
			req := httptest.NewRequest("POST", "/api/data/harvest/commodity", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleHarvestCommodity(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandleSubmitGroundPrice(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "accepted with defaults",
			body:           `{"hct_id":"HCT-0801-RCN-INSHELL","price":1450,"location":"Abidjan Port","source_type":"BROKER_QUOTE","observation_date":"2025-06-12"}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				require.NoError(t, err)

				data := response["data"].(map[string]interface{})
				assert.Equal(t, "accepted", data["status"])

				obs := data["observation"].(map[string]interface{})
				assert.True(t, strings.HasPrefix(obs["observation_id"].(string), "GP-"))
				assert.Equal(t, "USD", obs["currency"])
				assert.Equal(t, "MT", obs["unit"])
				assert.Equal(t, "FOB", obs["incoterm"])
				assert.Equal(t, false, obs["verified"])
			},
		},
		{
			name:           "missing price",
			body:           `{"hct_id":"HCT-0801-RCN-INSHELL","location":"Abidjan","source_type":"BROKER_QUOTE","observation_date":"2025-06-12"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative price",
			body:           `{"hct_id":"HCT-0801-RCN-INSHELL","price":-5,"location":"Abidjan","source_type":"BROKER_QUOTE","observation_date":"2025-06-12"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed observation date",
			body:           `{"hct_id":"HCT-0801-RCN-INSHELL","price":1450,"location":"Abidjan","source_type":"BROKER_QUOTE","observation_date":"12 June"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newDataHandlers(&stubFetcher{})
			req := httptest.NewRequest("POST", "/api/data/ground-price", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleSubmitGroundPrice(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandleListGroundPrices(t *testing.T) {
	h, _ := newDataHandlers(&stubFetcher{})
	submit := func(body string) {
		req := httptest.NewRequest("POST", "/api/data/ground-price", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.HandleSubmitGroundPrice(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	submit(`{"hct_id":"HCT-0801-RCN-INSHELL","price":1450,"location":"Abidjan Port","source_type":"BROKER_QUOTE","observation_date":"2025-06-10"}`)
	submit(`{"hct_id":"HCT-0801-RCN-INSHELL","price":1460,"location":"Tema","source_type":"AUCTION","observation_date":"2025-06-11"}`)
	submit(`{"hct_id":"HCT-1207-SESAME","price":1720,"location":"Lagos","source_type":"BROKER_QUOTE","observation_date":"2025-06-11"}`)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		wantTotal      float64
	}{
		{"all", "", http.StatusOK, 3},
		{"by commodity", "?hct_id=HCT-0801-RCN-INSHELL", http.StatusOK, 2},
		{"by location substring", "?location=abidjan", http.StatusOK, 1},
		{"bad limit", "?limit=0", http.StatusBadRequest, 0},
		{"limit too large", "?limit=500", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/data/ground-prices"+tt.query, nil)
			w := httptest.NewRecorder()

			h.HandleListGroundPrices(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			require.NoError(t, err)

			data := response["data"].(map[string]interface{})
			assert.Equal(t, tt.wantTotal, data["total"])
		})
	}
}

func TestHandleRecordStats(t *testing.T) {
	h, records := newDataHandlers(&stubFetcher{})
	records.AddBatch([]domain.Shipment{
		{RecordID: "R1", HCTID: "HCT-0801-RCN-INSHELL", HCTName: "Raw Cashew Nuts (In Shell)", TradeDate: "2025-06-01", OriginCountry: "IVORY COAST"},
		{RecordID: "R2", HCTID: "HCT-0801-RCN-INSHELL", HCTName: "Raw Cashew Nuts (In Shell)", TradeDate: "2025-06-05", OriginCountry: "GHANA"},
		{RecordID: "R3", HCTID: "HCT-1207-SESAME", HCTName: "Sesame Seeds", TradeDate: "2025-06-03", OriginCountry: "NIGERIA"},
	})

	req := httptest.NewRequest("GET", "/api/data/records/stats", nil)
	w := httptest.NewRecorder()

	h.HandleRecordStats(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total_records"])

	stats := data["record_stats"].([]interface{})
	require.Len(t, stats, 2)
	first := stats[0].(map[string]interface{})
	assert.Equal(t, "HCT-0801-RCN-INSHELL", first["hct_id"])
	assert.Equal(t, float64(2), first["record_count"])
}

func TestHandleBudget(t *testing.T) {
	h, _ := newDataHandlers(&stubFetcher{})
	req := httptest.NewRequest("GET", "/api/data/budget", nil)
	w := httptest.NewRecorder()

	h.HandleBudget(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(budget.DailyLimit), data["daily_calls_limit"])
	assert.Equal(t, float64(budget.HarvestBudget), data["harvest_budget"])
	assert.Equal(t, float64(0), data["daily_calls_used"])
}
