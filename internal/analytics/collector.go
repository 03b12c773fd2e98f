// Package analytics publishes verification events from the verifier and
// aggregates them in the analytics service: in-memory stats, a Redis
// leaderboard of rejected words and a Postgres audit trail of challenges.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Publisher writes a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events and publishes them in batches from one
// goroutine. Track never blocks; a full buffer drops the event.
type Collector struct {
	publisher     Publisher
	eventCh       chan VerificationEvent
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewCollector creates a Collector. A nil *Collector is valid and discards
// every event.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan VerificationEvent, bufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		metrics:       m,
		logger:        slog.Default().With("component", "analytics-collector"),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, then publishes whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event := <-c.eventCh:
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.drain(batch)
				return
			case <-c.stop:
				c.drain(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "batch_size", c.batchSize)
}

// Track enqueues event for publishing.
func (c *Collector) Track(event VerificationEvent) {
	if c == nil {
		return
	}
	select {
	case <-c.stop:
		c.metrics.EventDropped()
	case c.eventCh <- event:
	default:
		c.metrics.EventDropped()
		c.logger.Debug("analytics event dropped (buffer full)")
	}
}

// Close stops the publish loop and waits for the final flush.
func (c *Collector) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
		for range batch {
			c.metrics.EventDropped()
		}
	}
	return batch[:0]
}

func (c *Collector) drain(batch []kafka.Event) {
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, toKafka(event))
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.flush(ctx, batch)
			return
		}
	}
}

func toKafka(event VerificationEvent) kafka.Event {
	return kafka.Event{Key: event.Word, Value: event}
}
