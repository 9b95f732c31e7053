// Package portfolio turns a user's trade ledger into valued positions and a
// portfolio summary. Positions are never stored: every read replays the
// trades of each symbol from scratch.
package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

// Holding is the state of one symbol after replaying its trades with the
// average-cost method. Cost is the cost basis of the shares still held.
type Holding struct {
	Symbol   string
	Quantity decimal.Decimal
	Cost     decimal.Decimal
	Realized decimal.Decimal
}

func (h Holding) IsOpen() bool { return h.Quantity.IsPositive() }

func (h Holding) AvgPrice() decimal.Decimal {
	if !h.IsOpen() {
		return decimal.Zero
	}
	return h.Cost.Div(h.Quantity)
}

// Position values the holding at price.
func (h Holding) Position(price decimal.Decimal) domain.Position {
	marketValue := h.Quantity.Mul(price)
	pnl := marketValue.Sub(h.Cost)
	return domain.Position{
		Symbol:        h.Symbol,
		TotalQuantity: h.Quantity,
		AvgPrice:      h.AvgPrice(),
		CurrentPrice:  price,
		MarketValue:   marketValue,
		CostBasis:     h.Cost,
		PnL:           pnl,
		PnLPercentage: domain.Percent(pnl, h.Cost),
		RealizedPnL:   h.Realized,
	}
}

// SortTrades orders trades for replay: trade date ascending, creation order on ties.
func SortTrades(trades []domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Before(trades[j]) })
}

// Aggregate replays the trades of a single symbol. The input is not modified.
// A sell larger than the quantity held at that point is an oversell and is
// reported as a validation error.
func Aggregate(trades []domain.Trade) (Holding, error) {
	var h Holding
	if len(trades) == 0 {
		return h, nil
	}
	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	SortTrades(ordered)

	h.Symbol = ordered[0].Symbol
	for _, t := range ordered {
		if t.Symbol != h.Symbol {
			return Holding{}, fmt.Errorf("aggregate: mixed symbols %s and %s", h.Symbol, t.Symbol)
		}
		switch t.TradeType {
		case domain.TradeBuy:
			h.Cost = h.Cost.Add(t.Quantity.Mul(t.Price))
			h.Quantity = h.Quantity.Add(t.Quantity)
		case domain.TradeSell:
			if t.Quantity.GreaterThan(h.Quantity) {
				return Holding{}, domain.Validationf("oversell: selling %s %s on %s but only %s held",
					t.Quantity, t.Symbol, t.TradeDate.Format("2006-01-02"), h.Quantity)
			}
			avg := h.AvgPrice()
			h.Realized = h.Realized.Add(t.Quantity.Mul(t.Price.Sub(avg)))
			remaining := h.Quantity.Sub(t.Quantity)
			if remaining.IsZero() {
				h.Cost = decimal.Zero
			} else {
				// the basis of what is left is priced at the pre-sale average,
				// so AvgPrice returns that same average
				h.Cost = remaining.Mul(avg)
			}
			h.Quantity = remaining
		default:
			return Holding{}, fmt.Errorf("aggregate: trade %s has unknown type %q", t.ID, t.TradeType)
		}
	}
	return h, nil
}

// GroupBySymbol splits a user's trades per symbol.
func GroupBySymbol(trades []domain.Trade) map[string][]domain.Trade {
	out := make(map[string][]domain.Trade)
	for _, t := range trades {
		out[t.Symbol] = append(out[t.Symbol], t)
	}
	return out
}

// QuoteSource is the part of the quote provider the aggregator needs.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
}

// ValuePosition prices an open holding with a fresh quote. It returns a
// quote-unavailable error when the provider cannot resolve the symbol.
func ValuePosition(ctx context.Context, h Holding, quotes QuoteSource) (domain.Position, error) {
	q, err := quotes.Quote(ctx, h.Symbol)
	if err != nil {
		return domain.Position{}, domain.QuoteUnavailable(h.Symbol, err)
	}
	return h.Position(q.CurrentPrice), nil
}
