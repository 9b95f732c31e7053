// Package watchlist keeps the symbols a user follows without holding them.
package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/quote"
)

type Store interface {
	Add(ctx context.Context, e *domain.WatchlistEntry) error
	Remove(ctx context.Context, userID uuid.UUID, symbol string) error
	Has(ctx context.Context, userID uuid.UUID, symbol string) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error)
}

type Service struct {
	store       Store
	quotes      quote.Provider
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

func NewService(store Store, quotes quote.Provider, timeout time.Duration, concurrency int, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		quotes:      quotes,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger,
	}
}

// AddSymbol checks the symbol against the quote provider before storing it.
// A symbol already on the watchlist is a duplicate whatever the provider says.
func (s *Service) AddSymbol(ctx context.Context, userID uuid.UUID, symbol string) (*domain.WatchlistEntry, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	watched, err := s.store.Has(ctx, userID, sym)
	if err != nil {
		return nil, err
	}
	if watched {
		return nil, domain.Duplicatef("%s is already in the watchlist", sym)
	}

	lookupCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.quotes.Quote(lookupCtx, sym); err != nil {
		if errors.Is(err, quote.ErrSymbolNotFound) {
			return nil, domain.Validationf("unknown symbol %s", sym)
		}
		return nil, domain.QuoteUnavailable(sym, err)
	}

	entry := &domain.WatchlistEntry{UserID: userID, Symbol: sym}
	if err := s.store.Add(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("watchlist symbol added", "user_id", userID, "symbol", sym)
	return entry, nil
}

func (s *Service) RemoveSymbol(ctx context.Context, userID uuid.UUID, symbol string) error {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, userID, sym); err != nil {
		return err
	}
	s.logger.Info("watchlist symbol removed", "user_id", userID, "symbol", sym)
	return nil
}

// List returns the user's entries, newest first, each with a live quote.
// Entries whose quote fails keep nil price fields.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistItem, error) {
	entries, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}
	results := quote.FetchAll(ctx, s.quotes, symbols, s.timeout, s.concurrency)

	items := make([]domain.WatchlistItem, len(entries))
	for i, e := range entries {
		items[i].WatchlistEntry = e
		res, ok := results[e.Symbol]
		if !ok || !res.OK() {
			s.logger.Debug("watchlist quote unavailable", "symbol", e.Symbol, "err", res.Err)
			continue
		}
		q := res.Quote
		items[i].CurrentPrice = &q.CurrentPrice
		items[i].Change = &q.Change
		items[i].ChangePercent = &q.ChangePercent
	}
	return items, nil
}
