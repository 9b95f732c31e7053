package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/ledger"
)

const tradeColumns = `id, seq, user_id, symbol, quantity, price, trade_type, trade_date, created_at`

type TradeRepo struct {
	db *sqlx.DB
}

var _ ledger.Store = (*TradeRepo)(nil)

func NewTradeRepo(db *sqlx.DB) *TradeRepo {
	return &TradeRepo{db: db}
}

func (r *TradeRepo) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&tradeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *TradeRepo) ListTrades(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := r.db.SelectContext(ctx, &trades,
		`SELECT `+tradeColumns+` FROM trades WHERE user_id = $1 ORDER BY trade_date DESC, seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

func (r *TradeRepo) SymbolVersions(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT symbol, version FROM symbol_versions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("symbol versions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var symbol string
		var version int64
		if err := rows.Scan(&symbol, &version); err != nil {
			return nil, fmt.Errorf("scan symbol version: %w", err)
		}
		out[symbol] = version
	}
	return out, rows.Err()
}

func (r *TradeRepo) DistinctSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := r.db.SelectContext(ctx, &symbols, `SELECT DISTINCT symbol FROM trades ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("distinct trade symbols: %w", err)
	}
	return symbols, nil
}

type tradeTx struct {
	tx *sqlx.Tx
}

// LockSymbol upserts the version row; the row lock it takes is held until
// the transaction ends.
func (t *tradeTx) LockSymbol(ctx context.Context, userID uuid.UUID, symbol string) (int64, error) {
	query := `
		INSERT INTO symbol_versions (user_id, symbol, version)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, symbol)
		DO UPDATE SET version = symbol_versions.version + 1
		RETURNING version`
	var version int64
	if err := t.tx.QueryRowContext(ctx, query, userID, symbol).Scan(&version); err != nil {
		return 0, fmt.Errorf("lock symbol %s: %w", symbol, err)
	}
	return version, nil
}

func (t *tradeTx) TradesBySymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := t.tx.SelectContext(ctx, &trades,
		`SELECT `+tradeColumns+` FROM trades WHERE user_id = $1 AND symbol = $2 ORDER BY trade_date, seq`,
		userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("trades by symbol: %w", err)
	}
	return trades, nil
}

func (t *tradeTx) GetTrade(ctx context.Context, userID, tradeID uuid.UUID) (domain.Trade, error) {
	var trade domain.Trade
	err := t.tx.GetContext(ctx, &trade,
		`SELECT `+tradeColumns+` FROM trades WHERE id = $1 AND user_id = $2`, tradeID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trade{}, domain.NotFoundf("trade %s not found", tradeID)
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("get trade: %w", err)
	}
	return trade, nil
}

func (t *tradeTx) InsertTrade(ctx context.Context, trade *domain.Trade) error {
	query := `
		INSERT INTO trades (id, user_id, symbol, quantity, price, trade_type, trade_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq, created_at`
	err := t.tx.QueryRowContext(ctx, query,
		trade.ID, trade.UserID, trade.Symbol, trade.Quantity, trade.Price, trade.TradeType, trade.TradeDate).
		Scan(&trade.Seq, &trade.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (t *tradeTx) DeleteTrade(ctx context.Context, userID, tradeID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("trade %s not found", tradeID)
	}
	return nil
}

func (t *tradeTx) DeleteSymbol(ctx context.Context, userID uuid.UUID, symbol string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM trades WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return 0, fmt.Errorf("delete symbol %s: %w", symbol, err)
	}
	return res.RowsAffected()
}
