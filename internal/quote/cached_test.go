package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	args := m.Called(symbol)
	return args.Get(0).(domain.Quote), args.Error(1)
}

type mapCache struct {
	mu      sync.Mutex
	quotes  map[string]domain.Quote
	readErr error
}

func (c *mapCache) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	q, ok := c.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (c *mapCache) SetQuote(_ context.Context, q domain.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.Symbol] = q
	return nil
}

func TestCachedProvider(t *testing.T) {
	aapl := domain.NewQuote("AAPL", decimal.NewFromInt(120), decimal.NewFromInt(118), 10, time.Now())

	t.Run("MissThenHit", func(t *testing.T) {
		upstream := new(MockProvider)
		upstream.On("Quote", "AAPL").Return(aapl, nil).Once()
		cache := &mapCache{quotes: map[string]domain.Quote{}}
		p := NewCachedProvider(upstream, cache, discardLogger())

		first, err := p.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
		second, err := p.Quote(context.Background(), "AAPL")
		require.NoError(t, err)

		assert.True(t, first.CurrentPrice.Equal(second.CurrentPrice))
		upstream.AssertExpectations(t)
	})

	t.Run("UpstreamErrorNotCached", func(t *testing.T) {
		upstream := new(MockProvider)
		upstream.On("Quote", "NOPE").Return(domain.Quote{}, ErrSymbolNotFound).Twice()
		cache := &mapCache{quotes: map[string]domain.Quote{}}
		p := NewCachedProvider(upstream, cache, discardLogger())

		_, err := p.Quote(context.Background(), "NOPE")
		assert.ErrorIs(t, err, ErrSymbolNotFound)
		_, err = p.Quote(context.Background(), "NOPE")
		assert.ErrorIs(t, err, ErrSymbolNotFound)
		upstream.AssertExpectations(t)
	})

	t.Run("CacheReadFailureFallsThrough", func(t *testing.T) {
		upstream := new(MockProvider)
		upstream.On("Quote", "AAPL").Return(aapl, nil)
		cache := &mapCache{quotes: map[string]domain.Quote{}, readErr: errors.New("redis down")}
		p := NewCachedProvider(upstream, cache, discardLogger())

		q, err := p.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", q.Symbol)
	})
}
