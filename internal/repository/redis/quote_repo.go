package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

const (
	quoteKeyPrefix     = "last_quote:"
	quoteChannelPrefix = "quotes."
)

func quoteKey(symbol string) string     { return quoteKeyPrefix + symbol }
func quoteChannel(symbol string) string { return quoteChannelPrefix + symbol }

// SymbolFromChannel returns the symbol a quotes.* channel carries.
func SymbolFromChannel(channel string) string {
	return strings.TrimPrefix(channel, quoteChannelPrefix)
}

// QuoteRepo caches the latest quote per symbol and fans quote ticks out over
// pub/sub.
type QuoteRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuoteRepo(client *redis.Client, ttl time.Duration) *QuoteRepo {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &QuoteRepo{client: client, ttl: ttl}
}

func (r *QuoteRepo) SetQuote(ctx context.Context, q domain.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, quoteKey(q.Symbol), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set quote: %w", err)
	}
	return nil
}

func (r *QuoteRepo) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	val, err := r.client.Get(ctx, quoteKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get quote: %w", err)
	}
	var q domain.Quote
	if err := json.Unmarshal(val, &q); err != nil {
		return nil, fmt.Errorf("decode cached quote %s: %w", symbol, err)
	}
	return &q, nil
}

// Publish stores the quote and announces it on the symbol's channel in one
// round trip.
func (r *QuoteRepo) Publish(ctx context.Context, q domain.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, quoteKey(q.Symbol), data, r.ttl)
	pipe.Publish(ctx, quoteChannel(q.Symbol), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish quote: %w", err)
	}
	return nil
}

func (r *QuoteRepo) Subscribe(ctx context.Context, symbol string) *redis.PubSub {
	return r.client.Subscribe(ctx, quoteChannel(symbol))
}

// Ticks streams the payloads published for symbol until ctx is done.
func (r *QuoteRepo) Ticks(ctx context.Context, symbol string) <-chan []byte {
	out := make(chan []byte, 16)
	pubsub := r.Subscribe(ctx, symbol)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (r *QuoteRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
