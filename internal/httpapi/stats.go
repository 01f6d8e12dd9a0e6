package httpapi

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/conhub/rde/internal/model"
)

// latencyWindowSize bounds the rolling sample used for percentile
// estimation — large enough for a stable p50/p95 without unbounded
// memory growth under sustained load.
const latencyWindowSize = 1024

// Stats accumulates rolling counters for GET /stats: request/hit totals,
// the strategy distribution, and a percentile estimate over recent
// latencies. No external metrics dependency — detailed tracing goes
// through otel spans instead.
type Stats struct {
	requests uint64
	hits     uint64

	mu          sync.Mutex
	byStrategy  map[model.Strategy]uint64
	latenciesMS []int64
	cursor      int
}

func NewStats() *Stats {
	return &Stats{
		byStrategy:  make(map[model.Strategy]uint64),
		latenciesMS: make([]int64, 0, latencyWindowSize),
	}
}

// Record is called once per completed request (cache hit or miss alike).
func (s *Stats) Record(strategy model.Strategy, cacheHit bool, tookMS int64) {
	atomic.AddUint64(&s.requests, 1)
	if cacheHit {
		atomic.AddUint64(&s.hits, 1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byStrategy[strategy]++
	if len(s.latenciesMS) < latencyWindowSize {
		s.latenciesMS = append(s.latenciesMS, tookMS)
	} else {
		s.latenciesMS[s.cursor] = tookMS
		s.cursor = (s.cursor + 1) % latencyWindowSize
	}
}

// Snapshot is the JSON shape GET /stats returns.
type Snapshot struct {
	Requests          uint64                     `json:"requests"`
	Hits              uint64                     `json:"hits"`
	StrategyDistribution map[model.Strategy]uint64 `json:"strategy_distribution"`
	P50LatencyMS      int64                      `json:"p50_latency_ms"`
	P95LatencyMS      int64                      `json:"p95_latency_ms"`
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist := make(map[model.Strategy]uint64, len(s.byStrategy))
	for k, v := range s.byStrategy {
		dist[k] = v
	}

	sorted := append([]int64{}, s.latenciesMS...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Snapshot{
		Requests:             atomic.LoadUint64(&s.requests),
		Hits:                 atomic.LoadUint64(&s.hits),
		StrategyDistribution: dist,
		P50LatencyMS:         percentile(sorted, 0.50),
		P95LatencyMS:         percentile(sorted, 0.95),
	}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
