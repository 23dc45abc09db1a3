package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topN              = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	InvalidRequests   int64        `json:"invalid_requests"`
	ReviewsSubmitted  int64        `json:"reviews_submitted"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopCourseLevels   []ValueCount `json:"top_course_levels"`
	TopStates         []ValueCount `json:"top_states"`
	ZeroResultQueries []ValueCount `json:"zero_result_queries"`
	TopReviewed       []ValueCount `json:"top_reviewed"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	invalidRequests   int64
	reviewsSubmitted  int64
	latencies         []int64
	nextLatency       int
	courseLevels      map[string]int64
	states            map[string]int64
	zeroResultQueries map[string]int64
	reviewed          map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		courseLevels:      make(map[string]int64),
		states:            make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		reviewed:          make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes analytics messages by their type field. Undecodable
// messages are logged and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		eventType, err := kafka.EventType(value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch EventType(eventType) {
		case EventSearch, EventZeroResult, EventInvalidRequest:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.RecordSearch(event)
		case EventReviewSubmitted:
			event, err := kafka.DecodeJSON[ReviewEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode review event", "error", err)
				return nil
			}
			agg.RecordReview(event)
		default:
			agg.logger.Debug("ignoring analytics event", "type", eventType)
		}
		return nil
	}
}

// Track records event in-process. It lets the aggregator stand in for the
// Kafka collector when no broker is configured.
func (a *Aggregator) Track(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.RecordSearch(e)
	case ReviewEvent:
		a.RecordReview(e)
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if event.Type == EventInvalidRequest {
		a.invalidRequests++
		return
	}
	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.recordLatency(event.LatencyMs)
	a.courseLevels[event.CourseLevel]++
	if state := strings.TrimSpace(event.State); state != "" {
		a.states[state]++
	}
	if event.Returned == 0 {
		a.zeroResults++
		a.zeroResultQueries[describe(event)]++
	}
}

func (a *Aggregator) RecordReview(event ReviewEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reviewsSubmitted++
	a.reviewed[event.CollegeName]++
}

// recordLatency keeps a bounded ring of recent samples.
func (a *Aggregator) recordLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.nextLatency] = ms
	a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
		InvalidRequests:  a.invalidRequests,
		ReviewsSubmitted: a.reviewsSubmitted,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopCourseLevels = top(a.courseLevels, topN)
	stats.TopStates = top(a.states, topN)
	stats.ZeroResultQueries = top(a.zeroResultQueries, topN)
	stats.TopReviewed = top(a.reviewed, topN)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

// describe renders the non-empty request fields of a search in a fixed order.
func describe(e SearchEvent) string {
	parts := []string{"course_level=" + e.CourseLevel}
	for _, f := range []struct{ name, value string }{
		{"state", e.State},
		{"location", e.Location},
		{"college_name", e.CollegeName},
		{"branch", e.Branch},
		{"max_fees", e.MaxFees},
		{"target_score", e.TargetScore},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", f.name, v))
		}
	}
	return strings.Join(parts, " ")
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func top(counts map[string]int64, n int) []ValueCount {
	result := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		result = append(result, ValueCount{Value: value, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
