// Package memory holds in-process stores used for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/ledger"
)

type versionKey struct {
	userID uuid.UUID
	symbol string
}

// TradeRepo keeps trades in memory. Transactions run one at a time and
// restore the previous state when they fail.
type TradeRepo struct {
	mu       sync.Mutex
	trades   []domain.Trade
	versions map[versionKey]int64
	seq      int64
}

var _ ledger.Store = (*TradeRepo)(nil)

func NewTradeRepo() *TradeRepo {
	return &TradeRepo{versions: make(map[versionKey]int64)}
}

func (r *TradeRepo) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	trades := make([]domain.Trade, len(r.trades))
	copy(trades, r.trades)
	versions := make(map[versionKey]int64, len(r.versions))
	for k, v := range r.versions {
		versions[k] = v
	}
	seq := r.seq

	if err := fn(&tradeTx{repo: r}); err != nil {
		r.trades, r.versions, r.seq = trades, versions, seq
		return err
	}
	return nil
}

func (r *TradeRepo) ListTrades(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Trade
	for _, t := range r.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Before(out[i]) })
	return out, nil
}

func (r *TradeRepo) SymbolVersions(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64)
	for k, v := range r.versions {
		if k.userID == userID {
			out[k.symbol] = v
		}
	}
	return out, nil
}

func (r *TradeRepo) DistinctSymbols(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, t := range r.trades {
		if _, ok := seen[t.Symbol]; ok {
			continue
		}
		seen[t.Symbol] = struct{}{}
		out = append(out, t.Symbol)
	}
	sort.Strings(out)
	return out, nil
}

// tradeTx operates on the repo while InTx holds its lock.
type tradeTx struct {
	repo *TradeRepo
}

func (tx *tradeTx) LockSymbol(ctx context.Context, userID uuid.UUID, symbol string) (int64, error) {
	k := versionKey{userID: userID, symbol: symbol}
	tx.repo.versions[k]++
	return tx.repo.versions[k], nil
}

func (tx *tradeTx) TradesBySymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range tx.repo.trades {
		if t.UserID == userID && t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tx *tradeTx) GetTrade(ctx context.Context, userID, tradeID uuid.UUID) (domain.Trade, error) {
	for _, t := range tx.repo.trades {
		if t.ID == tradeID && t.UserID == userID {
			return t, nil
		}
	}
	return domain.Trade{}, domain.NotFoundf("trade %s not found", tradeID)
}

func (tx *tradeTx) InsertTrade(ctx context.Context, t *domain.Trade) error {
	tx.repo.seq++
	t.Seq = tx.repo.seq
	t.CreatedAt = time.Now().UTC()
	tx.repo.trades = append(tx.repo.trades, *t)
	return nil
}

func (tx *tradeTx) DeleteTrade(ctx context.Context, userID, tradeID uuid.UUID) error {
	for i, t := range tx.repo.trades {
		if t.ID == tradeID && t.UserID == userID {
			tx.repo.trades = append(tx.repo.trades[:i], tx.repo.trades[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundf("trade %s not found", tradeID)
}

func (tx *tradeTx) DeleteSymbol(ctx context.Context, userID uuid.UUID, symbol string) (int64, error) {
	kept := tx.repo.trades[:0]
	var removed int64
	for _, t := range tx.repo.trades {
		if t.UserID == userID && t.Symbol == symbol {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	tx.repo.trades = kept
	return removed, nil
}
