package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/quote"
)

// TradeReader is the read side of the trade ledger store.
type TradeReader interface {
	ListTrades(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error)
	SymbolVersions(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
}

type Options struct {
	QuoteTimeout     time.Duration
	QuoteConcurrency int
}

type Service struct {
	trades TradeReader
	quotes quote.Provider
	cache  *HoldingCache
	opts   Options
	logger *slog.Logger
}

// NewService builds the read service. cache may be nil, in which case every
// read replays every symbol.
func NewService(trades TradeReader, quotes quote.Provider, cache *HoldingCache, opts Options, logger *slog.Logger) *Service {
	if opts.QuoteTimeout <= 0 {
		opts.QuoteTimeout = 3 * time.Second
	}
	if opts.QuoteConcurrency < 1 {
		opts.QuoteConcurrency = 8
	}
	return &Service{trades: trades, quotes: quotes, cache: cache, opts: opts, logger: logger}
}

// Positions values every open holding of the user. Holdings whose quote
// cannot be fetched are left out of the list and named in unpriced.
func (s *Service) Positions(ctx context.Context, userID uuid.UUID) ([]domain.Position, []string, error) {
	holdings, err := s.holdings(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	positions, unpriced := s.value(ctx, userID, holdings)
	return positions, unpriced, nil
}

// Summary rolls up the priced positions. Realized P&L does not need a quote,
// so it covers every symbol still in the ledger, including flat and unpriced ones.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (domain.PortfolioSummary, error) {
	holdings, err := s.holdings(ctx, userID)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}
	positions, unpriced := s.value(ctx, userID, holdings)
	sum := Summarize(positions, unpriced)
	sum.TotalRealizedPnL = decimal.Zero
	for _, h := range holdings {
		sum.TotalRealizedPnL = sum.TotalRealizedPnL.Add(h.Realized)
	}
	return sum, nil
}

func (s *Service) value(ctx context.Context, userID uuid.UUID, holdings map[string]Holding) ([]domain.Position, []string) {
	symbols := make([]string, 0, len(holdings))
	for sym, h := range holdings {
		if h.IsOpen() {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	results := quote.FetchAll(ctx, s.quotes, symbols, s.opts.QuoteTimeout, s.opts.QuoteConcurrency)

	positions := make([]domain.Position, 0, len(symbols))
	unpriced := []string{}
	for _, sym := range symbols {
		res := results[sym]
		if !res.OK() {
			s.logger.Warn("position left unpriced", "user_id", userID, "symbol", sym, "err", res.Err)
			unpriced = append(unpriced, sym)
			continue
		}
		positions = append(positions, holdings[sym].Position(res.Quote.CurrentPrice))
	}
	return positions, unpriced
}

// holdings replays every symbol of the user, flat ones included. Versions
// are read before trades: a mutation landing in between can only make the
// cached value newer than its key, and the next read uses the newer key.
func (s *Service) holdings(ctx context.Context, userID uuid.UUID) (map[string]Holding, error) {
	versions, err := s.trades.SymbolVersions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("symbol versions: %w", err)
	}
	trades, err := s.trades.ListTrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	out := make(map[string]Holding)
	for sym, symTrades := range GroupBySymbol(trades) {
		version, versioned := versions[sym]
		if s.cache != nil && versioned {
			if h, ok := s.cache.Get(userID, sym, version); ok {
				out[sym] = h
				continue
			}
		}
		h, err := Aggregate(symTrades)
		if err != nil {
			var derr *domain.Error
			if errors.As(err, &derr) {
				// a stored history that oversells is corrupt data, not bad input
				return nil, fmt.Errorf("replay %s for user %s: %s", sym, userID, derr.Message)
			}
			return nil, err
		}
		if s.cache != nil && versioned {
			s.cache.Set(userID, sym, version, h)
		}
		out[sym] = h
	}
	return out, nil
}
