// Package budget enforces the provider's daily call allowance before the
// provider throttles us server-side. Counters roll over on the UTC day
// boundary; one tracker instance is shared by every caller in the
// process.
package budget

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Plan allowances. Each page request counts as one call; scheduled
// harvests and on-demand searches draw from separate sub-budgets so an
// expensive harvest cannot starve interactive lookups.
const (
	DailyLimit    = 100
	HarvestBudget = 60
	SearchBudget  = 40

	defaultCreditsAllotted = 3_000_000
)

// CallKind routes a recorded call to its sub-budget.
type CallKind string

const (
	Harvest CallKind = "harvest"
	Search  CallKind = "search"
)

// Tracker counts upstream calls against the daily allowance.
type Tracker struct {
	log zerolog.Logger

	mu              sync.Mutex
	dayKey          string
	calls           int
	harvestCalls    int
	searchCalls     int
	creditsConsumed int
	creditsAllotted int

	now func() time.Time
}

// Status is the budget snapshot served by the dispatch surface.
type Status struct {
	DailyCallsUsed      int    `json:"daily_calls_used"`
	DailyCallsLimit     int    `json:"daily_calls_limit"`
	HarvestCallsUsed    int    `json:"harvest_calls_used"`
	HarvestBudget       int    `json:"harvest_budget"`
	SearchCallsUsed     int    `json:"search_calls_used"`
	SearchBudget        int    `json:"search_budget"`
	DailyCallsRemaining int    `json:"daily_calls_remaining"`
	CreditsConsumed     int    `json:"credits_consumed"`
	CreditsRemaining    int    `json:"credits_remaining"`
	Day                 string `json:"day"`
}

// NewTracker returns a tracker keyed to the current UTC day.
func NewTracker(log zerolog.Logger) *Tracker {
	t := &Tracker{
		log:             log.With().Str("component", "budget").Logger(),
		creditsAllotted: defaultCreditsAllotted,
		now:             time.Now,
	}
	t.dayKey = t.currentDayKey()
	return t
}

func (t *Tracker) currentDayKey() string {
	return t.now().UTC().Format("2006-01-02")
}

// maybeReset rolls the counters on a day change. Callers hold the mutex.
func (t *Tracker) maybeReset() {
	key := t.currentDayKey()
	if key == t.dayKey {
		return
	}
	t.log.Info().
		Str("day", key).
		Int("yesterday_calls", t.calls).
		Msg("new UTC day, resetting api call counters")
	t.calls = 0
	t.harvestCalls = 0
	t.searchCalls = 0
	t.dayKey = key
}

// RecordCall counts one upstream page request against kind's sub-budget.
func (t *Tracker) RecordCall(kind CallKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	t.calls++
	if kind == Harvest {
		t.harvestCalls++
	} else {
		t.searchCalls++
	}
}

// CanHarvest reports whether the scheduled-harvest sub-budget still has
// headroom today.
func (t *Tracker) CanHarvest() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	return t.harvestCalls < HarvestBudget
}

// CanSearch reports whether the on-demand search sub-budget still has
// headroom today.
func (t *Tracker) CanSearch() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	return t.searchCalls < SearchBudget
}

// SyncFromPlan reconciles local counters with the authoritative ones the
// provider embeds in each token response. The larger daily count wins so
// calls made by other processes on the same plan are not invisible here.
func (t *Tracker) SyncFromPlan(creditsConsumed, creditsAllotted, dailyConsumed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	t.creditsConsumed = creditsConsumed
	if creditsAllotted > 0 {
		t.creditsAllotted = creditsAllotted
	}
	if dailyConsumed > t.calls {
		t.calls = dailyConsumed
	}
}

// Snapshot returns the current counters for the api_budget operation.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	return Status{
		DailyCallsUsed:      t.calls,
		DailyCallsLimit:     DailyLimit,
		HarvestCallsUsed:    t.harvestCalls,
		HarvestBudget:       HarvestBudget,
		SearchCallsUsed:     t.searchCalls,
		SearchBudget:        SearchBudget,
		DailyCallsRemaining: max(0, DailyLimit-t.calls),
		CreditsConsumed:     t.creditsConsumed,
		CreditsRemaining:    max(0, t.creditsAllotted-t.creditsConsumed),
		Day:                 t.dayKey,
	}
}
