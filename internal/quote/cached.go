package quote

import (
	"context"
	"log/slog"

	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/metrics"
)

// Cache stores the most recent quote per symbol. Get returns (nil, nil) on a miss.
type Cache interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	SetQuote(ctx context.Context, q domain.Quote) error
}

// CachedProvider is a read-through cache in front of another provider.
// Cache failures are logged and fall through to the upstream provider.
type CachedProvider struct {
	upstream Provider
	cache    Cache
	logger   *slog.Logger
}

func NewCachedProvider(upstream Provider, cache Cache, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{upstream: upstream, cache: cache, logger: logger}
}

func (p *CachedProvider) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	cached, err := p.cache.GetQuote(ctx, symbol)
	if err != nil {
		p.logger.Warn("quote cache read failed", "symbol", symbol, "err", err)
	}
	if cached != nil {
		metrics.RecordQuoteCache(true)
		return *cached, nil
	}
	metrics.RecordQuoteCache(false)

	q, err := p.upstream.Quote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := p.cache.SetQuote(ctx, q); err != nil {
		p.logger.Warn("quote cache write failed", "symbol", symbol, "err", err)
	}
	return q, nil
}
