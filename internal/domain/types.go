package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices and quantities go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

func ParseTradeType(s string) (TradeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return TradeBuy, nil
	case "sell":
		return TradeSell, nil
	default:
		return "", Validationf("invalid trade_type %q (use buy or sell)", s)
	}
}

func (t *TradeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return Validationf("trade_type must be a string")
	}
	parsed, err := ParseTradeType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type User struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	Name         string    `db:"name"          json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

type Trade struct {
	ID        uuid.UUID       `db:"id"         json:"id"`
	Seq       int64           `db:"seq"        json:"-"`
	UserID    uuid.UUID       `db:"user_id"    json:"user_id"`
	Symbol    string          `db:"symbol"     json:"symbol"`
	Quantity  decimal.Decimal `db:"quantity"   json:"quantity"`
	Price     decimal.Decimal `db:"price"      json:"price"`
	TradeType TradeType       `db:"trade_type" json:"trade_type"`
	TradeDate time.Time       `db:"trade_date" json:"trade_date"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Before reports whether t is replayed before o: trade date first, creation order on ties.
func (t Trade) Before(o Trade) bool {
	if !t.TradeDate.Equal(o.TradeDate) {
		return t.TradeDate.Before(o.TradeDate)
	}
	return t.Seq < o.Seq
}

type NewTrade struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	TradeType TradeType       `json:"trade_type"`
	TradeDate *time.Time      `json:"trade_date,omitempty"`
}

type Position struct {
	Symbol        string          `json:"symbol"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	PnL           decimal.Decimal `json:"pnl"`
	PnLPercentage decimal.Decimal `json:"pnl_percentage"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
}

type PortfolioSummary struct {
	TotalValue         decimal.Decimal `json:"total_value"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	TotalPnL           decimal.Decimal `json:"total_pnl"`
	TotalPnLPercentage decimal.Decimal `json:"total_pnl_percentage"`
	TotalRealizedPnL   decimal.Decimal `json:"total_realized_pnl"`
	PositionsCount     int             `json:"positions_count"`
	UnpricedSymbols    []string        `json:"unpriced_symbols"`
}

type WatchlistEntry struct {
	ID      uuid.UUID `db:"id"       json:"id"`
	UserID  uuid.UUID `db:"user_id"  json:"user_id"`
	Symbol  string    `db:"symbol"   json:"symbol"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}

// WatchlistItem is an entry enriched with a live quote. Price fields are nil
// when the quote could not be fetched.
type WatchlistItem struct {
	WatchlistEntry
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	Change        *decimal.Decimal `json:"change"`
	ChangePercent *decimal.Decimal `json:"change_percent"`
}

type Quote struct {
	Symbol        string          `json:"symbol"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	LastUpdated   time.Time       `json:"last_updated"`
}

var hundred = decimal.NewFromInt(100)

// NewQuote derives change and change percent from the previous close.
func NewQuote(symbol string, price, prevClose decimal.Decimal, volume int64, at time.Time) Quote {
	q := Quote{
		Symbol:        symbol,
		CurrentPrice:  price,
		PreviousClose: prevClose,
		Volume:        volume,
		LastUpdated:   at,
	}
	if prevClose.IsZero() {
		q.PreviousClose = price
	}
	q.Change = price.Sub(q.PreviousClose)
	if !q.PreviousClose.IsZero() {
		q.ChangePercent = q.Change.Div(q.PreviousClose).Mul(hundred)
	}
	return q
}

// Percent returns part/whole*100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

const maxSymbolLen = 16

// NormalizeSymbol trims and upper-cases a ticker and rejects anything that
// does not look like one.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "" {
		return "", Validationf("symbol is required")
	}
	if len(sym) > maxSymbolLen {
		return "", Validationf("symbol %q is too long", sym)
	}
	for _, r := range sym {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return "", Validationf("symbol %q contains invalid character %q", sym, r)
		}
	}
	return sym, nil
}

type TradeEventType string

const (
	EventTradeAdded     TradeEventType = "trade_added"
	EventTradeDeleted   TradeEventType = "trade_deleted"
	EventPositionClosed TradeEventType = "position_closed"
)

type TradeEvent struct {
	Type       TradeEventType `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	Symbol     string         `json:"symbol"`
	Trade      *Trade         `json:"trade,omitempty"`
	Removed    int64          `json:"removed,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (e TradeEvent) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.UserID, e.Symbol)
}
