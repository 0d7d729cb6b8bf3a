// Package kafka publishes selection events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrfacet/internal/domain/event"
	logpkg "github.com/kailas-cloud/solrfacet/internal/logger"
	"github.com/kailas-cloud/solrfacet/internal/metrics"
)

// Config holds producer settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// writer is the part of *kafka.Writer the publisher uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes selection events as JSON, keyed by session id so one
// session's events stay ordered on a partition.
type Publisher struct {
	w      writer
	logger *zap.Logger
}

// NewPublisher creates a publisher for cfg.Topic.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return &Publisher{w: w, logger: logger.With(zap.String("topic", cfg.Topic))}, nil
}

// Publish writes one event synchronously.
func (p *Publisher) Publish(ctx context.Context, e event.Selection) error {
	value, err := sonic.Marshal(e)
	if err != nil {
		metrics.SelectionEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal selection event: %w", err)
	}
	msg := kafka.Message{Key: []byte(e.Session), Value: value, Time: e.At}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		metrics.SelectionEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish selection event: %w", err)
	}
	metrics.SelectionEventsTotal.WithLabelValues("ok").Inc()
	p.logger.Debug("selection event published",
		logpkg.Session(e.Session), logpkg.Widget(e.Widget), zap.String("op", e.Op))
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Nop drops events. Used when no brokers are configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, event.Selection) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
