package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type WatchlistRepo struct {
	mu      sync.Mutex
	entries []domain.WatchlistEntry
	clock   func() time.Time
}

func NewWatchlistRepo() *WatchlistRepo {
	return &WatchlistRepo{clock: func() time.Time { return time.Now().UTC() }}
}

func (r *WatchlistRepo) Add(ctx context.Context, e *domain.WatchlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.entries {
		if cur.UserID == e.UserID && cur.Symbol == e.Symbol {
			return domain.Duplicatef("%s is already in the watchlist", e.Symbol)
		}
	}
	e.ID = uuid.New()
	e.AddedAt = r.clock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *WatchlistRepo) Remove(ctx context.Context, userID uuid.UUID, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.entries {
		if cur.UserID == userID && cur.Symbol == symbol {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundf("%s is not in the watchlist", symbol)
}

func (r *WatchlistRepo) Has(ctx context.Context, userID uuid.UUID, symbol string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.entries {
		if cur.UserID == userID && cur.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}

// List returns the user's entries, most recently added first.
func (r *WatchlistRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WatchlistEntry
	for _, cur := range r.entries {
		if cur.UserID == userID {
			out = append(out, cur)
		}
	}
	// entries are appended in insertion order; reversing keeps ties stable
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (r *WatchlistRepo) DistinctSymbols(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, cur := range r.entries {
		if _, ok := seen[cur.Symbol]; ok {
			continue
		}
		seen[cur.Symbol] = struct{}{}
		out = append(out, cur.Symbol)
	}
	sort.Strings(out)
	return out, nil
}
