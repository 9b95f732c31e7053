// Package ledger records a user's buy and sell trades. The trade list is the
// only source of truth; positions are always derived from it.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/events"
	"github.com/yourorg/portfolio-tracker/internal/metrics"
	"github.com/yourorg/portfolio-tracker/internal/portfolio"
)

type Service struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddTrade appends a trade after checking that the symbol's history, with
// the new trade slotted in by date, never sells more than it holds.
func (s *Service) AddTrade(ctx context.Context, userID uuid.UUID, req domain.NewTrade) (*domain.Trade, error) {
	now := s.now()
	if err := validateNewTrade(&req, now); err != nil {
		metrics.RecordLedgerMutation("add", err)
		return nil, err
	}

	trade := domain.Trade{
		ID:        uuid.New(),
		UserID:    userID,
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		Price:     req.Price,
		TradeType: req.TradeType,
		TradeDate: now,
	}
	if req.TradeDate != nil {
		trade.TradeDate = req.TradeDate.UTC()
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockSymbol(ctx, userID, trade.Symbol); err != nil {
			return err
		}
		history, err := tx.TradesBySymbol(ctx, userID, trade.Symbol)
		if err != nil {
			return err
		}
		// The candidate has no seq yet; it sorts after every stored trade
		// sharing its date, which is where the insert will put it.
		candidate := trade
		candidate.Seq = maxSeq(history) + 1
		if _, err := portfolio.Aggregate(append(history, candidate)); err != nil {
			return err
		}
		return tx.InsertTrade(ctx, &trade)
	})
	metrics.RecordLedgerMutation("add", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("trade added",
		"user_id", userID, "trade_id", trade.ID, "symbol", trade.Symbol,
		"trade_type", trade.TradeType, "quantity", trade.Quantity.String())
	s.publish(ctx, domain.TradeEvent{
		Type:       domain.EventTradeAdded,
		UserID:     userID,
		Symbol:     trade.Symbol,
		Trade:      &trade,
		OccurredAt: s.now(),
	})
	return &trade, nil
}

func (s *Service) ListTrades(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	return trades, nil
}

// DeleteTrade removes one trade. Removing it must leave a history that
// still replays without overselling.
func (s *Service) DeleteTrade(ctx context.Context, userID, tradeID uuid.UUID) error {
	var deleted domain.Trade
	err := s.store.InTx(ctx, func(tx Tx) error {
		t, err := tx.GetTrade(ctx, userID, tradeID)
		if err != nil {
			return err
		}
		if _, err := tx.LockSymbol(ctx, userID, t.Symbol); err != nil {
			return err
		}
		history, err := tx.TradesBySymbol(ctx, userID, t.Symbol)
		if err != nil {
			return err
		}
		remaining := make([]domain.Trade, 0, len(history))
		found := false
		for _, h := range history {
			if h.ID == tradeID {
				found = true
				continue
			}
			remaining = append(remaining, h)
		}
		if !found {
			return domain.NotFoundf("trade %s not found", tradeID)
		}
		if _, err := portfolio.Aggregate(remaining); err != nil {
			if domain.IsKind(err, domain.KindValidation) {
				return domain.Validationf("cannot delete trade %s: remaining %s history would oversell", tradeID, t.Symbol)
			}
			return err
		}
		deleted = t
		return tx.DeleteTrade(ctx, userID, tradeID)
	})
	metrics.RecordLedgerMutation("delete", err)
	if err != nil {
		return err
	}

	s.logger.Info("trade deleted", "user_id", userID, "trade_id", tradeID, "symbol", deleted.Symbol)
	s.publish(ctx, domain.TradeEvent{
		Type:       domain.EventTradeDeleted,
		UserID:     userID,
		Symbol:     deleted.Symbol,
		Trade:      &deleted,
		OccurredAt: s.now(),
	})
	return nil
}

// ClosePosition deletes every trade of the symbol. Closing a symbol with no
// trades is a no-op and reports zero.
func (s *Service) ClosePosition(ctx context.Context, userID uuid.UUID, symbol string) (int64, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		metrics.RecordLedgerMutation("close", err)
		return 0, err
	}

	var removed int64
	err = s.store.InTx(ctx, func(tx Tx) error {
		history, err := tx.TradesBySymbol(ctx, userID, sym)
		if err != nil {
			return err
		}
		// nothing to close; leave the symbol unversioned
		if len(history) == 0 {
			return nil
		}
		if _, err := tx.LockSymbol(ctx, userID, sym); err != nil {
			return err
		}
		n, err := tx.DeleteSymbol(ctx, userID, sym)
		removed = n
		return err
	})
	metrics.RecordLedgerMutation("close", err)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	s.logger.Info("position closed", "user_id", userID, "symbol", sym, "removed", removed)
	s.publish(ctx, domain.TradeEvent{
		Type:       domain.EventPositionClosed,
		UserID:     userID,
		Symbol:     sym,
		Removed:    removed,
		OccurredAt: s.now(),
	})
	return removed, nil
}

func (s *Service) publish(ctx context.Context, evt domain.TradeEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("trade event publish failed", "event", evt.String(), "err", err)
	}
}

func maxSeq(trades []domain.Trade) int64 {
	var m int64
	for _, t := range trades {
		if t.Seq > m {
			m = t.Seq
		}
	}
	return m
}
