package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

// Store persists trades. Implementations live under internal/repository.
type Store interface {
	// InTx runs fn in one transaction; any error from fn rolls it back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// ListTrades returns a user's trades, newest trade date first, ties by
	// creation order descending.
	ListTrades(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error)
	// SymbolVersions returns the mutation counter of every symbol the user
	// has ever traded.
	SymbolVersions(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
	// DistinctSymbols lists every symbol held in any ledger.
	DistinctSymbols(ctx context.Context) ([]string, error)
}

// Tx is the transactional view of a Store.
type Tx interface {
	// LockSymbol serializes mutations of (userID, symbol) until the
	// transaction ends and bumps the symbol's version.
	LockSymbol(ctx context.Context, userID uuid.UUID, symbol string) (int64, error)
	TradesBySymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]domain.Trade, error)
	// GetTrade returns a NotFound error when the trade is missing or owned
	// by someone else.
	GetTrade(ctx context.Context, userID, tradeID uuid.UUID) (domain.Trade, error)
	// InsertTrade assigns Seq and CreatedAt.
	InsertTrade(ctx context.Context, t *domain.Trade) error
	DeleteTrade(ctx context.Context, userID, tradeID uuid.UUID) error
	DeleteSymbol(ctx context.Context, userID uuid.UUID, symbol string) (int64, error)
}
