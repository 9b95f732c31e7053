package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

// Summarize rolls positions up into portfolio totals. unpriced lists the
// open symbols that could not be valued and are therefore not in positions.
func Summarize(positions []domain.Position, unpriced []string) domain.PortfolioSummary {
	s := domain.PortfolioSummary{
		TotalValue:       decimal.Zero,
		TotalCost:        decimal.Zero,
		TotalRealizedPnL: decimal.Zero,
		PositionsCount:   len(positions),
		UnpricedSymbols:  make([]string, 0, len(unpriced)),
	}
	for _, p := range positions {
		s.TotalValue = s.TotalValue.Add(p.MarketValue)
		s.TotalCost = s.TotalCost.Add(p.CostBasis)
		s.TotalRealizedPnL = s.TotalRealizedPnL.Add(p.RealizedPnL)
	}
	s.TotalPnL = s.TotalValue.Sub(s.TotalCost)
	s.TotalPnLPercentage = domain.Percent(s.TotalPnL, s.TotalCost)

	s.UnpricedSymbols = append(s.UnpricedSymbols, unpriced...)
	sort.Strings(s.UnpricedSymbols)
	return s
}
