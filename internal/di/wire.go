// Package di provides dependency injection wiring and initialization.
package di

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/budget"
	"github.com/avramidis/tradewinds/internal/clients/eximpedia"
	"github.com/avramidis/tradewinds/internal/config"
	"github.com/avramidis/tradewinds/internal/harvest"
	"github.com/avramidis/tradewinds/internal/modules/corridor"
	"github.com/avramidis/tradewinds/internal/modules/counterparty"
	"github.com/avramidis/tradewinds/internal/modules/flow"
	"github.com/avramidis/tradewinds/internal/modules/pricing"
	"github.com/avramidis/tradewinds/internal/modules/signals"
	"github.com/avramidis/tradewinds/internal/modules/supply"
	"github.com/avramidis/tradewinds/internal/store"
)

// Container holds every long-lived service the process runs on. Built
// once at startup by Wire and shared by the server, scheduler and
// bootstrap harvest.
type Container struct {
	Config *config.Config

	TokenManager *eximpedia.TokenManager
	Client       *eximpedia.Client
	Budget       *budget.Tracker

	Records      *store.RecordStore
	GroundPrices *store.GroundPriceLog

	Harvester *harvest.Engine

	Pricing      *pricing.Curve
	Flow         *flow.Index
	Supply       *supply.Tracker
	Counterparty *counterparty.Analyzer
	Corridor     *corridor.Analyzer
	Signals      *signals.Generator
}

// Wire initializes all dependencies and returns a fully configured
// container. Order of operations:
// 1. Budget tracker and upstream client
// 2. In-memory stores
// 3. Harvest engine
// 4. Analytics engines
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is required")
	}

	// Step 1: budget, token manager, client. Token responses carry the
	// provider's authoritative plan counters; feed them to the tracker.
	tracker := budget.NewTracker(log)
	tokens := eximpedia.NewTokenManager(cfg.ClientConfig(), log)
	tokens.OnPlanConstraints(func(pc eximpedia.PlanConstraints) {
		tracker.SyncFromPlan(
			pc.CreditPoints.TotalConsumedCredits,
			pc.CreditPoints.TotalAllottedCredits,
			pc.DailyLimitAPI.ConsumedDailyLimitAPI,
		)
	})
	client := eximpedia.NewClient(cfg.ClientConfig(), tokens, tracker, log)
	log.Info().Msg("upstream client initialized")

	// Step 2: in-memory stores
	records := store.NewRecordStore(log)
	prices := store.NewGroundPriceLog(log)

	// Step 3: harvest engine
	harvester := harvest.NewEngine(client, records, tracker, log)

	// Step 4: analytics engines (stateless, share the stores via handlers)
	container := &Container{
		Config:       cfg,
		TokenManager: tokens,
		Client:       client,
		Budget:       tracker,
		Records:      records,
		GroundPrices: prices,
		Harvester:    harvester,
		Pricing:      pricing.NewCurve(),
		Flow:         flow.NewIndex(),
		Supply:       supply.NewTracker(),
		Counterparty: counterparty.NewAnalyzer(),
		Corridor:     corridor.NewAnalyzer(),
		Signals:      signals.NewGenerator(),
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}
