package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

// maxFutureSkew tolerates clients whose clocks run slightly ahead.
const maxFutureSkew = 24 * time.Hour

// maxDecimalPlaces matches the NUMERIC(28, 10) trade columns.
const maxDecimalPlaces = 10

func validateNewTrade(req *domain.NewTrade, now time.Time) error {
	sym, err := domain.NormalizeSymbol(req.Symbol)
	if err != nil {
		return err
	}
	req.Symbol = sym
	if !req.Quantity.IsPositive() {
		return domain.Validationf("quantity must be greater than zero")
	}
	if !req.Price.IsPositive() {
		return domain.Validationf("price must be greater than zero")
	}
	if !fitsScale(req.Quantity) {
		return domain.Validationf("quantity has more than %d decimal places", maxDecimalPlaces)
	}
	if !fitsScale(req.Price) {
		return domain.Validationf("price has more than %d decimal places", maxDecimalPlaces)
	}
	switch req.TradeType {
	case domain.TradeBuy, domain.TradeSell:
	case "":
		return domain.Validationf("trade_type is required")
	default:
		return domain.Validationf("invalid trade_type %q (use buy or sell)", req.TradeType)
	}
	if req.TradeDate != nil && req.TradeDate.After(now.Add(maxFutureSkew)) {
		return domain.Validationf("trade_date %s is in the future", req.TradeDate.Format(time.RFC3339))
	}
	return nil
}

func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(maxDecimalPlaces))
}
