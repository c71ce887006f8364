package handlers

import (
	"sync/atomic"

	"cache-countdown-api/internal/cache"
)

// Stats counts coordinator events for GET /api/stats.
type Stats struct {
	hits     atomic.Int64
	misses   atomic.Int64
	expires  atomic.Int64
	failures atomic.Int64
}

var _ cache.Metrics = (*Stats)(nil)

func (s *Stats) Hit()             { s.hits.Add(1) }
func (s *Stats) Miss()            { s.misses.Add(1) }
func (s *Stats) Expire()          { s.expires.Add(1) }
func (s *Stats) ProducerFailure() { s.failures.Add(1) }

// StatsResponse is the JSON shape of the counters.
type StatsResponse struct {
	Hits             int64 `json:"hits"`
	Misses           int64 `json:"misses"`
	Expirations      int64 `json:"expirations"`
	ProducerFailures int64 `json:"producerFailures"`
}

func (s *Stats) Snapshot() StatsResponse {
	return StatsResponse{
		Hits:             s.hits.Load(),
		Misses:           s.misses.Load(),
		Expirations:      s.expires.Load(),
		ProducerFailures: s.failures.Load(),
	}
}
