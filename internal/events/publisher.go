// Package events publishes ledger mutations to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, evt domain.TradeEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.TradeEvent) error { return nil }

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event as JSON keyed by user id, so all events of
// one user land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
		Balancer:     &kafka.Hash{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt domain.TradeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.UserID.String()),
		Value: data,
		Time:  evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", evt, err)
	}
	p.logger.Debug("trade event published", "event", evt.String())
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Recorder keeps published events in memory. Tests use it to assert on what
// the ledger emitted.
type Recorder struct {
	mu     sync.Mutex
	events []domain.TradeEvent
	err    error
}

// FailWith makes subsequent Publish calls return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, evt domain.TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []domain.TradeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TradeEvent, len(r.events))
	copy(out, r.events)
	return out
}
