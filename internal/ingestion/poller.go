// Package ingestion keeps cached quotes warm for every symbol users track.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/quote"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// SymbolSource lists symbols that should be refreshed.
type SymbolSource interface {
	DistinctSymbols(ctx context.Context) ([]string, error)
}

// QuotePublisher stores a fresh quote and announces it to subscribers.
type QuotePublisher interface {
	Publish(ctx context.Context, q domain.Quote) error
}

type Options struct {
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
}

type Poller struct {
	sources   []SymbolSource
	provider  quote.Provider
	publisher QuotePublisher
	opts      Options
	logger    *slog.Logger
}

// NewPoller refreshes from provider, which should be the uncached upstream.
func NewPoller(provider quote.Provider, publisher QuotePublisher, opts Options, logger *slog.Logger, sources ...SymbolSource) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	return &Poller{
		sources:   sources,
		provider:  provider,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Run refreshes on every interval until ctx is done. Failed rounds back off
// exponentially, from one second up to a minute.
func (p *Poller) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		wait := p.opts.Interval
		if _, err := p.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("quote refresh failed", "err", err, "retrying_in", backoff)
			wait = backoff
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		} else {
			backoff = initialBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Refresh fetches every tracked symbol once and publishes the quotes that
// came back. It fails only when symbols cannot be listed or when every
// fetch failed.
func (p *Poller) Refresh(ctx context.Context) (int, error) {
	symbols, err := p.trackedSymbols(ctx)
	if err != nil {
		return 0, err
	}
	if len(symbols) == 0 {
		return 0, nil
	}

	results := quote.FetchAll(ctx, p.provider, symbols, p.opts.Timeout, p.opts.Concurrency)
	published := 0
	var lastErr error
	for _, sym := range symbols {
		res := results[sym]
		if !res.OK() {
			if !errors.Is(res.Err, quote.ErrSymbolNotFound) {
				lastErr = res.Err
			}
			p.logger.Debug("quote refresh skipped", "symbol", sym, "err", res.Err)
			continue
		}
		if err := p.publisher.Publish(ctx, res.Quote); err != nil {
			lastErr = err
			p.logger.Warn("quote publish failed", "symbol", sym, "err", err)
			continue
		}
		published++
	}
	if published == 0 && lastErr != nil {
		return 0, fmt.Errorf("no quotes refreshed for %d symbols: %w", len(symbols), lastErr)
	}
	p.logger.Debug("quotes refreshed", "published", published, "tracked", len(symbols))
	return published, nil
}

func (p *Poller) trackedSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, src := range p.sources {
		syms, err := src.DistinctSymbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tracked symbols: %w", err)
		}
		for _, s := range syms {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
