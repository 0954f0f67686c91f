// Package harvest turns the job catalog into stored shipments: each run
// builds a rolling date window, pages the upstream provider, drops
// records already seen in this process, normalizes the rest and hands
// them to the record store.
package harvest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/budget"
	"github.com/avramidis/tradewinds/internal/clients/eximpedia"
	"github.com/avramidis/tradewinds/internal/domain"
	"github.com/avramidis/tradewinds/internal/normalize"
	"github.com/avramidis/tradewinds/internal/store"
)

// Run outcomes as reported in a Summary.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
)

const bootstrapGap = 2 * time.Second

// ShipmentFetcher is the slice of the upstream client the engine needs.
type ShipmentFetcher interface {
	FetchAllShipments(ctx context.Context, query *eximpedia.ShipmentQuery, kind budget.CallKind) ([]domain.RawRecord, error)
}

// Summary reports one job run. Records carries the normalized output
// for callers that want it; it never serializes.
type Summary struct {
	JobName         string `json:"job_name"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	RawCount        int    `json:"raw_count"`
	UniqueCount     int    `json:"unique_count"`
	NormalizedCount int    `json:"normalized_count"`
	ErrorCount      int    `json:"error_count"`
	DateRange       string `json:"date_range,omitempty"`

	Records []domain.Shipment `json:"-"`
}

// Engine executes harvest jobs. The seen set lives for the process:
// re-running a job only forwards records the engine has not met before,
// and the store's first-wins rule catches anything that slips past.
type Engine struct {
	client ShipmentFetcher
	norm   *normalize.Normalizer
	budget *budget.Tracker
	store  *store.RecordStore
	log    zerolog.Logger

	mu   sync.Mutex
	seen map[string]bool

	now func() time.Time
	gap time.Duration
}

// NewEngine wires the engine. The store and tracker may be nil, which
// disables storing and budget gating respectively.
func NewEngine(client ShipmentFetcher, recs *store.RecordStore, tracker *budget.Tracker, log zerolog.Logger) *Engine {
	return &Engine{
		client: client,
		norm:   normalize.New(),
		budget: tracker,
		store:  recs,
		log:    log.With().Str("component", "harvester").Logger(),
		seen:   make(map[string]bool),
		now:    time.Now,
		gap:    bootstrapGap,
	}
}

// RunJob executes one job over its lookback window and returns the
// summary. Fetch failures fail the whole job; normalization failures
// only bump the error count.
func (e *Engine) RunJob(ctx context.Context, job Job) Summary {
	end := e.now().UTC()
	start := end.AddDate(0, 0, -job.lookback())
	window := start.Format("2006-01-02") + " to " + end.Format("2006-01-02")

	log := e.log.With().Str("job", job.Name).Logger()
	log.Info().Str("window", window).Msg("harvest started")

	query := eximpedia.BuildShipmentQuery(eximpedia.QueryParams{
		StartDate:            start,
		EndDate:              end,
		TradeType:            job.TradeType,
		TradeCountry:         job.TradeCountry,
		HSCodes:              job.HSCodes,
		Products:             job.Products,
		OriginCountries:      job.OriginCountries,
		DestinationCountries: job.DestinationCountries,
	})

	raw, err := e.client.FetchAllShipments(ctx, query, budget.Harvest)
	if err != nil {
		log.Error().Err(err).Msg("harvest failed")
		return Summary{JobName: job.Name, Status: StatusFailed, Error: err.Error()}
	}

	fresh := e.unseen(raw)

	shipments := make([]domain.Shipment, 0, len(fresh))
	errCount := 0
	for _, rec := range fresh {
		s, err := e.norm.Normalize(rec, job.TradeType, job.TradeCountry)
		if err != nil {
			errCount++
			continue
		}
		shipments = append(shipments, *s)
	}

	if e.store != nil && len(shipments) > 0 {
		added := e.store.AddBatch(shipments)
		log.Info().Int("added", added).Msg("records stored")
	}

	log.Info().
		Int("raw", len(raw)).
		Int("unique", len(fresh)).
		Int("normalized", len(shipments)).
		Int("errors", errCount).
		Msg("harvest complete")

	return Summary{
		JobName:         job.Name,
		Status:          StatusSuccess,
		RawCount:        len(raw),
		UniqueCount:     len(fresh),
		NormalizedCount: len(shipments),
		ErrorCount:      errCount,
		DateRange:       window,
		Records:         shipments,
	}
}

// unseen filters out records whose dedup key this engine has already
// forwarded. Records with no usable key pass through untracked.
func (e *Engine) unseen(raw []domain.RawRecord) []domain.RawRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := make([]domain.RawRecord, 0, len(raw))
	for _, rec := range raw {
		key := normalize.RecordKey(rec)
		if key != "" {
			if e.seen[key] {
				continue
			}
			e.seen[key] = true
		}
		fresh = append(fresh, rec)
	}
	return fresh
}

// RunAll executes catalog jobs sequentially in declaration order. A
// maxPriority of 0 runs everything; otherwise only jobs with priority
// <= maxPriority run. Each job checks the harvest budget first and is
// skipped, not failed, once the budget is spent.
func (e *Engine) RunAll(ctx context.Context, maxPriority int) []Summary {
	summaries := make([]Summary, 0, len(Jobs))
	for _, job := range Jobs {
		if maxPriority > 0 && job.Priority > maxPriority {
			continue
		}
		summaries = append(summaries, e.runGated(ctx, job))
	}
	return summaries
}

func (e *Engine) runGated(ctx context.Context, job Job) Summary {
	if e.budget != nil && !e.budget.CanHarvest() {
		e.log.Warn().Str("job", job.Name).Msg("harvest budget exhausted, skipping job")
		return Summary{
			JobName: job.Name,
			Status:  StatusSkipped,
			Error:   "daily harvest budget exhausted",
		}
	}
	return e.RunJob(ctx, job)
}

// Bootstrap runs the startup harvest in two phases: the priority-1
// India jobs first so the desk sees data quickly, then the remaining
// priority-1 jobs with a pause before each to stay clear of upstream
// throttling. Returns every summary in execution order.
func (e *Engine) Bootstrap(ctx context.Context) []Summary {
	var immediate, deferred []Job
	for _, job := range Jobs {
		if job.Priority != 1 {
			continue
		}
		if job.TradeCountry == "INDIA" {
			immediate = append(immediate, job)
		} else {
			deferred = append(deferred, job)
		}
	}

	e.log.Info().
		Int("immediate", len(immediate)).
		Int("deferred", len(deferred)).
		Msg("startup harvest beginning")

	summaries := make([]Summary, 0, len(immediate)+len(deferred))
	for _, job := range immediate {
		summaries = append(summaries, e.runGated(ctx, job))
	}

	if e.budget != nil {
		e.log.Info().
			Int("calls_remaining", e.budget.Snapshot().DailyCallsRemaining).
			Msg("startup phase 1 complete")
	}

	for _, job := range deferred {
		select {
		case <-ctx.Done():
			e.log.Warn().Err(ctx.Err()).Msg("startup harvest cancelled")
			return summaries
		case <-time.After(e.gap):
		}
		summaries = append(summaries, e.runGated(ctx, job))
	}

	e.log.Info().Msg("startup harvest complete")
	return summaries
}
