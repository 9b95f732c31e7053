package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type WatchlistRepo struct {
	db *sqlx.DB
}

func NewWatchlistRepo(db *sqlx.DB) *WatchlistRepo {
	return &WatchlistRepo{db: db}
}

func (r *WatchlistRepo) Add(ctx context.Context, e *domain.WatchlistEntry) error {
	e.ID = uuid.New()
	query := `
		INSERT INTO watchlist (id, user_id, symbol)
		VALUES ($1, $2, $3)
		RETURNING added_at`
	err := r.db.QueryRowContext(ctx, query, e.ID, e.UserID, e.Symbol).Scan(&e.AddedAt)
	if isUniqueViolation(err) {
		return domain.Duplicatef("%s is already in the watchlist", e.Symbol)
	}
	if err != nil {
		return fmt.Errorf("insert watchlist entry: %w", err)
	}
	return nil
}

func (r *WatchlistRepo) Remove(ctx context.Context, userID uuid.UUID, symbol string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watchlist WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("%s is not in the watchlist", symbol)
	}
	return nil
}

func (r *WatchlistRepo) Has(ctx context.Context, userID uuid.UUID, symbol string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM watchlist WHERE user_id = $1 AND symbol = $2)`, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("check watchlist entry: %w", err)
	}
	return exists, nil
}

func (r *WatchlistRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error) {
	var entries []domain.WatchlistEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, user_id, symbol, added_at FROM watchlist WHERE user_id = $1 ORDER BY added_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return entries, nil
}

func (r *WatchlistRepo) DistinctSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := r.db.SelectContext(ctx, &symbols, `SELECT DISTINCT symbol FROM watchlist ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("distinct watchlist symbols: %w", err)
	}
	return symbols, nil
}
