package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

var day0 = time.Date(2026, time.January, 5, 14, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ledger builds trades for one symbol, one day apart, in the given order.
func ledger(symbol string, specs ...string) []domain.Trade {
	var out []domain.Trade
	for i := 0; i+2 < len(specs); i += 3 {
		seq := int64(len(out) + 1)
		out = append(out, domain.Trade{
			ID:        uuid.New(),
			Seq:       seq,
			Symbol:    symbol,
			TradeType: domain.TradeType(specs[i]),
			Quantity:  dec(specs[i+1]),
			Price:     dec(specs[i+2]),
			TradeDate: day0.AddDate(0, 0, int(seq)),
		})
	}
	return out
}

func TestAggregate_EmptyLedger(t *testing.T) {
	h, err := Aggregate(nil)
	require.NoError(t, err)
	assert.False(t, h.IsOpen())
	assert.True(t, h.AvgPrice().IsZero())
}

func TestAggregate_EndToEndScenario(t *testing.T) {
	h, err := Aggregate(ledger("AAPL", "buy", "10", "100", "buy", "5", "110"))
	require.NoError(t, err)

	assert.Equal(t, "15", h.Quantity.String())
	assert.Equal(t, "103.33", h.AvgPrice().Round(2).String())

	p := h.Position(dec("120"))
	assert.Equal(t, "1800", p.MarketValue.String())
	assert.Equal(t, "1550", p.CostBasis.String())
	assert.Equal(t, "250", p.PnL.String())
	assert.Equal(t, "16.13", p.PnLPercentage.Round(2).String())
	assert.True(t, p.RealizedPnL.IsZero())
}

func TestAggregate_BuysOnlyWeightedMean(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		var specs []string
		totalQty, totalCost := decimal.Zero, decimal.Zero
		n := 1 + rng.Intn(8)
		for i := 0; i < n; i++ {
			q := decimal.NewFromInt(int64(1 + rng.Intn(100)))
			p := decimal.New(int64(100+rng.Intn(50000)), -2)
			specs = append(specs, "buy", q.String(), p.String())
			totalQty = totalQty.Add(q)
			totalCost = totalCost.Add(q.Mul(p))
		}

		h, err := Aggregate(ledger("MSFT", specs...))
		require.NoError(t, err)
		assert.True(t, h.Quantity.Equal(totalQty))
		assert.True(t, h.Cost.Equal(totalCost))
		assert.True(t, h.AvgPrice().Equal(totalCost.Div(totalQty)))
	}
}

func TestAggregate_PartialSellKeepsAverage(t *testing.T) {
	for _, sellPrice := range []string{"1", "100", "250.75"} {
		t.Run(sellPrice, func(t *testing.T) {
			h, err := Aggregate(ledger("AAPL", "buy", "10", "100", "sell", "4", sellPrice))
			require.NoError(t, err)
			assert.Equal(t, "6", h.Quantity.String())
			assert.Equal(t, "100", h.AvgPrice().String())
		})
	}
}

func TestAggregate_PartialSellsOnFractionalAverage(t *testing.T) {
	h, err := Aggregate(ledger("AAPL",
		"buy", "10", "100",
		"buy", "5", "110",
		"sell", "5", "90",
		"sell", "3", "130",
	))
	require.NoError(t, err)
	assert.Equal(t, "7", h.Quantity.String())
	assert.Equal(t, "103.33", h.AvgPrice().Round(2).String())
	assert.Equal(t, "723.33", h.Cost.Round(2).String())
}

func TestAggregate_AverageExactAcrossRepeatedSells(t *testing.T) {
	trades := []string{"buy", "3", "1", "buy", "4", "2"}
	opened, err := Aggregate(ledger("XYZ", trades...))
	require.NoError(t, err)
	avg := opened.AvgPrice()
	require.Equal(t, "1.5714285714285714", avg.String())

	for i := 1; i <= 6; i++ {
		trades = append(trades, "sell", "1", "3")
		h, err := Aggregate(ledger("XYZ", trades...))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(7-i), h.Quantity.String())
		assert.True(t, avg.Equal(h.AvgPrice()), "after %d sells: %s != %s", i, h.AvgPrice(), avg)
		assert.True(t, h.Cost.Equal(h.Quantity.Mul(avg)))
	}
}

func TestAggregate_RealizedPnL(t *testing.T) {
	h, err := Aggregate(ledger("AAPL", "buy", "10", "100", "sell", "4", "130"))
	require.NoError(t, err)
	assert.Equal(t, "120", h.Realized.String())

	h, err = Aggregate(ledger("AAPL", "buy", "10", "100", "sell", "10", "80"))
	require.NoError(t, err)
	assert.Equal(t, "-200", h.Realized.String())
}

func TestAggregate_FullLiquidationResetsBasis(t *testing.T) {
	h, err := Aggregate(ledger("TSLA", "buy", "10", "100", "sell", "10", "150"))
	require.NoError(t, err)
	assert.False(t, h.IsOpen())
	assert.True(t, h.Cost.IsZero())

	h, err = Aggregate(ledger("TSLA", "buy", "10", "100", "sell", "10", "150", "buy", "5", "200"))
	require.NoError(t, err)
	assert.Equal(t, "5", h.Quantity.String())
	assert.Equal(t, "200", h.AvgPrice().String())
	assert.Equal(t, "500", h.Realized.String())
}

func TestAggregate_Oversell(t *testing.T) {
	_, err := Aggregate(ledger("AAPL", "buy", "10", "100", "buy", "5", "110", "sell", "20", "120"))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Contains(t, err.Error(), "oversell")

	_, err = Aggregate(ledger("AAPL", "sell", "1", "100"))
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestAggregate_ReplaysChronologically(t *testing.T) {
	trades := ledger("AAPL", "sell", "5", "120", "buy", "10", "100")
	// the buy happened first even though it was recorded second
	trades[1].TradeDate = day0.AddDate(0, 0, -10)

	h, err := Aggregate(trades)
	require.NoError(t, err)
	assert.Equal(t, "5", h.Quantity.String())
	assert.Equal(t, "100", h.Realized.String())
	assert.Equal(t, domain.TradeSell, trades[0].TradeType, "input must not be reordered")
}

func TestAggregate_TiesBrokenByCreationOrder(t *testing.T) {
	trades := ledger("AAPL", "buy", "10", "100", "sell", "10", "110")
	trades[0].TradeDate = day0
	trades[1].TradeDate = day0
	trades[0].Seq, trades[1].Seq = 2, 1

	_, err := Aggregate(trades)
	assert.True(t, domain.IsKind(err, domain.KindValidation), "sell created first must be replayed first")
}

func TestAggregate_RejectsUnknownTradeType(t *testing.T) {
	_, err := Aggregate(ledger("AAPL", "hold", "1", "1"))
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestGroupBySymbol(t *testing.T) {
	trades := append(ledger("AAPL", "buy", "1", "1"), ledger("MSFT", "buy", "2", "2", "buy", "3", "3")...)
	groups := GroupBySymbol(trades)
	assert.Len(t, groups, 2)
	assert.Len(t, groups["MSFT"], 2)
}

type fakeQuotes map[string]decimal.Decimal

func (f fakeQuotes) Quote(_ context.Context, symbol string) (domain.Quote, error) {
	p, ok := f[symbol]
	if !ok {
		return domain.Quote{}, errors.New("no such symbol")
	}
	return domain.NewQuote(symbol, p, p, 0, day0), nil
}

func TestValuePosition(t *testing.T) {
	h, err := Aggregate(ledger("AAPL", "buy", "2", "50"))
	require.NoError(t, err)

	p, err := ValuePosition(context.Background(), h, fakeQuotes{"AAPL": dec("60")})
	require.NoError(t, err)
	assert.Equal(t, "120", p.MarketValue.String())
	assert.Equal(t, "20", p.PnL.String())

	_, err = ValuePosition(context.Background(), h, fakeQuotes{})
	assert.True(t, domain.IsKind(err, domain.KindQuoteUnavailable))
}
