package store

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GroundPrice is a field-collected price observation: broker quotes,
// auction results, mandi prices. Observations arrive unverified and are
// cross-checked against customs-derived prices by analysts.
type GroundPrice struct {
	ObservationID   string  `json:"observation_id"`
	HCTID           string  `json:"hct_id"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	Unit            string  `json:"unit"`
	Incoterm        string  `json:"incoterm"`
	Location        string  `json:"location"`
	QualityGrade    string  `json:"quality_grade,omitempty"`
	SourceType      string  `json:"source_type"`
	SourceName      string  `json:"source_name,omitempty"`
	ObservationDate string  `json:"observation_date"`
	Notes           string  `json:"notes,omitempty"`
	Verified        bool    `json:"verified"`
}

// GroundPriceLog is the append-only observation store.
type GroundPriceLog struct {
	mu     sync.Mutex
	prices []GroundPrice
	log    zerolog.Logger

	newID func() string
}

// NewGroundPriceLog returns an empty log.
func NewGroundPriceLog(log zerolog.Logger) *GroundPriceLog {
	return &GroundPriceLog{
		log:   log.With().Str("repository", "ground_prices").Logger(),
		newID: observationID,
	}
}

func observationID() string {
	return "GP-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Submit stores an observation, assigning its id and marking it
// unverified regardless of what the caller set.
func (g *GroundPriceLog) Submit(obs GroundPrice) GroundPrice {
	g.mu.Lock()
	defer g.mu.Unlock()

	obs.ObservationID = g.newID()
	obs.Verified = false
	g.prices = append(g.prices, obs)

	g.log.Info().
		Str("observation_id", obs.ObservationID).
		Str("hct_id", obs.HCTID).
		Str("location", obs.Location).
		Float64("price", obs.Price).
		Msg("ground price observation recorded")
	return obs
}

// List returns observations filtered by exact commodity id and
// case-insensitive location substring. total is the filtered count
// before the limit truncates to the most recent entries.
func (g *GroundPriceLog) List(hctID, location string, limit int) (prices []GroundPrice, total int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	matched := make([]GroundPrice, 0, len(g.prices))
	locUpper := strings.ToUpper(location)
	for _, p := range g.prices {
		if hctID != "" && p.HCTID != hctID {
			continue
		}
		if location != "" && !strings.Contains(strings.ToUpper(p.Location), locUpper) {
			continue
		}
		matched = append(matched, p)
	}

	total = len(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, total
}
