package analytics

import (
	"context"
	"log/slog"

	"github.com/aiteacher/chat-search-service/pkg/kafka"
)

// Collector buffers analytics events and ships them to Kafka in the
// background. Tracking never blocks the request path: events are dropped
// when the buffer is full.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan interface{}
	logger   *slog.Logger
	done     chan struct{}
}

func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan interface{}, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.producer.Publish(ctx, kafka.Event{
					Key:   "analytics",
					Value: event,
				}); err != nil {
					c.logger.Error("failed to publish analytics event", "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event interface{}) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Pending reports how many tracked events are buffered but not yet shipped.
func (c *Collector) Pending() int {
	return len(c.eventCh)
}

func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			if err := c.producer.Publish(context.Background(), kafka.Event{
				Key:   "analytics",
				Value: event,
			}); err != nil {
				c.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}
