// Package views carries movie view events from the API to the popularity
// index through Kafka, decoupling request latency from write amplification.
// When Kafka is disabled the API applies increments synchronously instead.
package views

import (
	"context"
	"log/slog"
	"time"

	"github.com/eventura/movie-autocomplete/pkg/kafka"
)

// Event is published for every movie view.
type Event struct {
	MovieID   string    `json:"movie_id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// PopularityIncrementer applies a single view to the popularity index.
type PopularityIncrementer interface {
	IncrementPopularity(ctx context.Context, id string) error
}

// Collector buffers view events and publishes them to Kafka in the
// background. Track never blocks the request path; events are dropped with a
// warning when the buffer is full.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan Event
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan Event, bufferSize),
		logger:   slog.Default().With("component", "view-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, draining buffered events on shutdown.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("view collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues a view event without blocking.
func (c *Collector) Track(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("view event dropped (buffer full)", "movie_id", event.MovieID)
	}
}

// Close stops accepting events and waits for the publish loop to finish.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event Event) {
	err := c.producer.Publish(ctx, kafka.Event{
		Key:   event.MovieID,
		Value: event,
	})
	if err != nil {
		c.logger.Error("failed to publish view event", "movie_id", event.MovieID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

// Handler returns a Kafka message handler that applies each view event to
// the popularity index.
func Handler(inc PopularityIncrementer) kafka.MessageHandler {
	logger := slog.Default().With("component", "view-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			// Malformed events are logged and dropped, never retried.
			logger.Error("dropping malformed view event", "error", err)
			return nil
		}
		if event.MovieID == "" {
			logger.Warn("dropping view event with empty movie id")
			return nil
		}
		return inc.IncrementPopularity(ctx, event.MovieID)
	}
}
