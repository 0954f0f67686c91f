// Package store keeps harvested shipments and field-submitted price
// observations in process memory. The working set is rebuilt by
// harvests on startup, so durability is traded for a dependency-free
// hot path.
package store

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/domain"
)

// Unclassified is the bucket for records whose HS code matched no
// commodity in the taxonomy.
const Unclassified = "UNCLASSIFIED"

// Filter narrows a record query. Zero fields match everything; dates
// are inclusive YYYY-MM-DD bounds.
type Filter struct {
	HCTID              string
	StartDate          string
	EndDate            string
	OriginCountry      string
	DestinationCountry string
	OriginPort         string
	DestinationPort    string
}

// DateCoverage is the trade-date span of a bucket; nil means the bucket
// has no dated records.
type DateCoverage struct {
	Earliest *string `json:"earliest"`
	Latest   *string `json:"latest"`
}

// CommodityStats summarizes one commodity bucket for record stats.
type CommodityStats struct {
	HCTID       string       `json:"hct_id"`
	HCTName     string       `json:"hct_name"`
	RecordCount int          `json:"record_count"`
	DateRange   DateCoverage `json:"date_range"`
	Origins     []string     `json:"origins"`
}

// RecordStore holds normalized shipments bucketed by commodity. Batches
// are append-only and the first version of a record id wins, so
// re-running a harvest over an overlapping window cannot mutate or
// duplicate what analytics already saw.
type RecordStore struct {
	byCommodity map[string][]domain.Shipment
	seen        map[string]bool
	mu          sync.RWMutex
	log         zerolog.Logger
}

// NewRecordStore returns an empty store.
func NewRecordStore(log zerolog.Logger) *RecordStore {
	return &RecordStore{
		byCommodity: make(map[string][]domain.Shipment),
		seen:        make(map[string]bool),
		log:         log.With().Str("repository", "records").Logger(),
	}
}

// AddBatch stores shipments grouped by commodity and returns the number
// actually added. Records with an already-stored id, or no id at all,
// are skipped.
func (s *RecordStore) AddBatch(shipments []domain.Shipment) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, sh := range shipments {
		if sh.RecordID == "" || s.seen[sh.RecordID] {
			continue
		}
		s.seen[sh.RecordID] = true

		bucket := sh.HCTID
		if bucket == "" {
			bucket = Unclassified
		}
		s.byCommodity[bucket] = append(s.byCommodity[bucket], sh)
		added++
	}

	if added > 0 {
		s.log.Info().
			Int("added", added).
			Int("batch_size", len(shipments)).
			Msg("stored normalized records")
	}
	return added
}

// ByCommodity returns a copy of one commodity bucket.
func (s *RecordStore) ByCommodity(hctID string) []domain.Shipment {
	return s.Query(Filter{HCTID: hctID})
}

// Query returns copies of records matching the filter. An empty HCTID
// searches every bucket.
func (s *RecordStore) Query(f Filter) []domain.Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buckets [][]domain.Shipment
	if f.HCTID != "" {
		buckets = append(buckets, s.byCommodity[f.HCTID])
	} else {
		for _, id := range s.sortedBucketIDs() {
			buckets = append(buckets, s.byCommodity[id])
		}
	}

	var out []domain.Shipment
	for _, bucket := range buckets {
		for _, sh := range bucket {
			if matches(sh, f) {
				out = append(out, sh)
			}
		}
	}
	return out
}

func matches(sh domain.Shipment, f Filter) bool {
	if f.StartDate != "" && (sh.TradeDate == "" || sh.TradeDate < f.StartDate) {
		return false
	}
	if f.EndDate != "" && (sh.TradeDate == "" || sh.TradeDate > f.EndDate) {
		return false
	}
	if f.OriginCountry != "" && sh.OriginCountry != domain.NormalizeCountry(f.OriginCountry) {
		return false
	}
	if f.DestinationCountry != "" && sh.DestinationCountry != domain.NormalizeCountry(f.DestinationCountry) {
		return false
	}
	if f.OriginPort != "" && sh.OriginPort != domain.NormalizeCountry(f.OriginPort) {
		return false
	}
	if f.DestinationPort != "" && sh.DestinationPort != domain.NormalizeCountry(f.DestinationPort) {
		return false
	}
	return true
}

// CommodityIDs lists the non-empty buckets in sorted order.
func (s *RecordStore) CommodityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedBucketIDs()
}

func (s *RecordStore) sortedBucketIDs() []string {
	ids := make([]string, 0, len(s.byCommodity))
	for id, bucket := range s.byCommodity {
		if len(bucket) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// TotalRecords counts every stored shipment.
func (s *RecordStore) TotalRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, bucket := range s.byCommodity {
		total += len(bucket)
	}
	return total
}

// Stats summarizes each commodity bucket: record count, trade date
// coverage and the distinct origin countries seen. The unclassified
// bucket is excluded; it is not a commodity.
func (s *RecordStore) Stats() []CommodityStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CommodityStats, 0, len(s.byCommodity))
	for _, id := range s.sortedBucketIDs() {
		if id == Unclassified {
			continue
		}
		bucket := s.byCommodity[id]

		stat := CommodityStats{
			HCTID:       id,
			HCTName:     bucket[0].HCTName,
			RecordCount: len(bucket),
			Origins:     []string{},
		}
		var earliest, latest string
		origins := make(map[string]bool)
		for _, sh := range bucket {
			if sh.TradeDate != "" {
				if earliest == "" || sh.TradeDate < earliest {
					earliest = sh.TradeDate
				}
				if sh.TradeDate > latest {
					latest = sh.TradeDate
				}
			}
			if sh.OriginCountry != "" && !origins[sh.OriginCountry] {
				origins[sh.OriginCountry] = true
				stat.Origins = append(stat.Origins, sh.OriginCountry)
			}
		}
		if earliest != "" {
			stat.DateRange = DateCoverage{Earliest: &earliest, Latest: &latest}
		}
		sort.Strings(stat.Origins)
		out = append(out, stat)
	}
	return out
}
