package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
)

const maxLatencySamples = 10000

// wordsPerTopEntry sets how many distinct words are tracked per reported
// top-N entry before the least frequent are pruned.
const wordsPerTopEntry = 1000

// AggregatedStats summarises every event seen since the aggregator started.
type AggregatedStats struct {
	TotalRequests     int64       `json:"total_requests"`
	Queries           int64       `json:"queries"`
	Challenges        int64       `json:"challenges"`
	Accepted          int64       `json:"accepted"`
	Rejected          int64       `json:"rejected"`
	Errors            int64       `json:"errors"`
	AvgLatencyMs      float64     `json:"avg_latency_ms"`
	P50LatencyMs      float64     `json:"p50_latency_ms"`
	P95LatencyMs      float64     `json:"p95_latency_ms"`
	P99LatencyMs      float64     `json:"p99_latency_ms"`
	TopWords          []WordCount `json:"top_words"`
	TopRejected       []WordCount `json:"top_rejected"`
	RequestsPerMinute float64     `json:"requests_per_minute"`
}

// WordCount pairs a word with how often it was seen.
type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals of verification events. Latency
// percentiles cover the most recent maxLatencySamples events. Per-word
// counts are bounded: once more than topN*wordsPerTopEntry distinct words
// are tracked, only the most frequent half is kept, so a word counted again
// after being pruned restarts from one. Totals stay exact.
type Aggregator struct {
	mu             sync.RWMutex
	stats          AggregatedStats
	latencies      []int64
	next           int
	wordCounts     map[string]int64
	rejectedCounts map[string]int64
	topN           int
	maxWords       int
	startTime      time.Time

	logger *slog.Logger
}

// NewAggregator creates an Aggregator reporting the topN most frequent words.
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	return &Aggregator{
		latencies:      make([]int64, 0, maxLatencySamples),
		wordCounts:     make(map[string]int64),
		rejectedCounts: make(map[string]int64),
		topN:           topN,
		maxWords:       topN * wordsPerTopEntry,
		startTime:      time.Now(),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds one event into the running totals.
func (a *Aggregator) Record(event VerificationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalRequests++
	switch event.Action {
	case protocol.ActionQuery:
		a.stats.Queries++
	case protocol.ActionChallenge:
		a.stats.Challenges++
	}
	switch {
	case event.Error != "":
		a.stats.Errors++
	case event.Result:
		a.stats.Accepted++
	default:
		a.stats.Rejected++
		a.rejectedCounts[event.Word]++
		a.rejectedCounts = a.bound(a.rejectedCounts)
	}
	a.wordCounts[event.Word]++
	a.wordCounts = a.bound(a.wordCounts)

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyUs)
	} else {
		a.latencies[a.next] = event.LatencyUs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// Stats returns a snapshot of the totals with latency percentiles and the
// most frequent words.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted)) / 1000
		stats.P50LatencyMs = float64(percentile(sorted, 50)) / 1000
		stats.P95LatencyMs = float64(percentile(sorted, 95)) / 1000
		stats.P99LatencyMs = float64(percentile(sorted, 99)) / 1000
	}
	stats.TopWords = topN(a.wordCounts, a.topN)
	stats.TopRejected = topN(a.rejectedCounts, a.topN)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.RequestsPerMinute = float64(stats.TotalRequests) / elapsed
	}
	return stats
}

// Sink receives every decoded event after aggregation.
type Sink interface {
	Record(ctx context.Context, event VerificationEvent) error
}

// HandleEvent returns a Kafka handler that aggregates each event and fans
// it out to sinks. Undecodable messages and sink failures are logged and
// counted; they do not hold back the consumer.
func HandleEvent(agg *Aggregator, m *metrics.Metrics, sinks ...Sink) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[VerificationEvent](value)
		if err != nil {
			agg.logger.Warn("failed to decode verification event", "error", err)
			m.EventProcessed("invalid")
			return nil
		}
		agg.Record(event)

		status := "ok"
		for _, sink := range sinks {
			if err := sink.Record(ctx, event); err != nil {
				agg.logger.Warn("analytics sink failed", "word", event.Word, "error", err)
				status = "sink_error"
			}
		}
		m.EventProcessed(status)
		return nil
	}
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

// bound prunes counts to its most frequent half once it outgrows maxWords.
func (a *Aggregator) bound(counts map[string]int64) map[string]int64 {
	if len(counts) <= a.maxWords {
		return counts
	}
	keep := topN(counts, a.maxWords/2)
	pruned := make(map[string]int64, a.maxWords)
	for _, wc := range keep {
		pruned[wc.Word] = wc.Count
	}
	a.logger.Debug("pruned word counts", "before", len(counts), "after", len(pruned))
	return pruned
}

// topN orders by count descending, then word ascending.
func topN(counts map[string]int64, n int) []WordCount {
	result := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, WordCount{Word: word, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Word < result[j].Word
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
