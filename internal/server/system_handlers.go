package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/avramidis/tradewinds/internal/budget"
	"github.com/avramidis/tradewinds/internal/store"
)

// SystemHandlers serves process health and resource usage.
type SystemHandlers struct {
	records   *store.RecordStore
	budget    *budget.Tracker
	log       zerolog.Logger
	startedAt time.Time
}

// NewSystemHandlers creates the system route handlers.
func NewSystemHandlers(records *store.RecordStore, tracker *budget.Tracker, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		records:   records,
		budget:    tracker,
		log:       log.With().Str("handler", "system").Logger(),
		startedAt: time.Now(),
	}
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
	})
}

// HandleSystemStatus handles GET /api/system/status.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}

	ramPercent := 0.0
	if vm, err := mem.VirtualMemory(); err == nil {
		ramPercent = vm.UsedPercent
	}

	writeData(h.log, w, http.StatusOK, map[string]any{
		"status":        "operational",
		"uptime_hours":  uptime.Hours(),
		"cpu_percent":   cpuPercent[0],
		"ram_percent":   ramPercent,
		"total_records": h.records.TotalRecords(),
		"api_budget":    h.budget.Snapshot(),
	})
}
