package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	userID := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := domain.TradeEvent{Type: domain.EventPositionClosed, UserID: userID, Symbol: "AAPL", Removed: 3, OccurredAt: at}

	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, userID.String(), string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var decoded domain.TradeEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, domain.EventPositionClosed, decoded.Type)
	assert.Equal(t, "AAPL", decoded.Symbol)
	assert.Equal(t, int64(3), decoded.Removed)
	assert.Nil(t, decoded.Trade)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := p.Publish(context.Background(), domain.TradeEvent{Type: domain.EventTradeAdded, Symbol: "MSFT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), domain.TradeEvent{Symbol: "A"}))
	r.FailWith(errors.New("nope"))
	assert.Error(t, r.Publish(context.Background(), domain.TradeEvent{Symbol: "B"}))
	assert.Len(t, r.Events(), 1)
}
