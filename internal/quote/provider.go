// Package quote fetches current prices for ticker symbols.
package quote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

// ErrSymbolNotFound is returned when the upstream source does not know the symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

type Provider interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
}

// StaticProvider serves quotes from a fixed table. Symbols mapped to an
// error fail with that error; unknown symbols fail with ErrSymbolNotFound.
type StaticProvider struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	errs   map[string]error
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		quotes: make(map[string]domain.Quote),
		errs:   make(map[string]error),
	}
}

// Set registers a price with its previous close.
func (p *StaticProvider) Set(symbol string, price, prevClose decimal.Decimal) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = domain.NewQuote(symbol, price, prevClose, 0, time.Now().UTC())
	delete(p.errs, symbol)
	return p
}

// Fail makes every lookup of symbol return err.
func (p *StaticProvider) Fail(symbol string, err error) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[symbol] = err
	return p
}

func (p *StaticProvider) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err, ok := p.errs[symbol]; ok {
		return domain.Quote{}, err
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return domain.Quote{}, ErrSymbolNotFound
	}
	return q, nil
}
