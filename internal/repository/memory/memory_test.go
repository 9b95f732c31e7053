package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/ledger"
)

func buy(userID uuid.UUID, symbol string, day int) domain.Trade {
	return domain.Trade{
		ID:        uuid.New(),
		UserID:    userID,
		Symbol:    symbol,
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(10),
		TradeType: domain.TradeBuy,
		TradeDate: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestTradeRepo_InsertAndList(t *testing.T) {
	ctx := context.Background()
	r := NewTradeRepo()
	alice, bob := uuid.New(), uuid.New()

	first, second, same := buy(alice, "AAPL", 1), buy(alice, "MSFT", 2), buy(alice, "AAPL", 2)
	require.NoError(t, r.InTx(ctx, func(tx ledger.Tx) error {
		for _, tr := range []*domain.Trade{&first, &second, &same} {
			if err := tx.InsertTrade(ctx, tr); err != nil {
				return err
			}
		}
		other := buy(bob, "AAPL", 3)
		return tx.InsertTrade(ctx, &other)
	}))

	assert.Equal(t, int64(1), first.Seq)
	assert.False(t, first.CreatedAt.IsZero())

	got, err := r.ListTrades(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// newest date first, later insert first on equal dates
	assert.Equal(t, same.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Equal(t, first.ID, got[2].ID)

	syms, err := r.DistinctSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, syms)
}

func TestTradeRepo_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	r := NewTradeRepo()
	user := uuid.New()

	kept := buy(user, "AAPL", 1)
	require.NoError(t, r.InTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.LockSymbol(ctx, user, "AAPL")
		if err != nil {
			return err
		}
		return tx.InsertTrade(ctx, &kept)
	}))

	boom := errors.New("boom")
	err := r.InTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.LockSymbol(ctx, user, "AAPL"); err != nil {
			return err
		}
		if _, err := tx.DeleteSymbol(ctx, user, "AAPL"); err != nil {
			return err
		}
		extra := buy(user, "TSLA", 2)
		if err := tx.InsertTrade(ctx, &extra); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := r.ListTrades(ctx, user)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, kept.ID, got[0].ID)

	versions, err := r.SymbolVersions(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"AAPL": 1}, versions)
}

func TestTradeRepo_GetTradeScopedToOwner(t *testing.T) {
	ctx := context.Background()
	r := NewTradeRepo()
	owner, stranger := uuid.New(), uuid.New()
	tr := buy(owner, "AAPL", 1)

	err := r.InTx(ctx, func(tx ledger.Tx) error {
		if err := tx.InsertTrade(ctx, &tr); err != nil {
			return err
		}
		if _, err := tx.GetTrade(ctx, stranger, tr.ID); !domain.IsKind(err, domain.KindNotFound) {
			return errors.New("stranger should not see the trade")
		}
		if err := tx.DeleteTrade(ctx, stranger, tr.ID); !domain.IsKind(err, domain.KindNotFound) {
			return errors.New("stranger should not delete the trade")
		}
		_, err := tx.GetTrade(ctx, owner, tr.ID)
		return err
	})
	require.NoError(t, err)
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	u := &domain.User{Email: "Ada@Example.com", Name: "Ada", PasswordHash: "x"}
	require.NoError(t, r.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	dup := &domain.User{Email: "ADA@example.com"}
	assert.True(t, domain.IsKind(r.Create(ctx, dup), domain.KindDuplicate))

	byEmail, err := r.GetByEmail(ctx, "ada@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = r.GetByID(ctx, uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestWatchlistRepo(t *testing.T) {
	ctx := context.Background()
	r := NewWatchlistRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.clock = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }
	user := uuid.New()

	for _, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		require.NoError(t, r.Add(ctx, &domain.WatchlistEntry{UserID: user, Symbol: sym}))
	}
	err := r.Add(ctx, &domain.WatchlistEntry{UserID: user, Symbol: "MSFT"})
	assert.True(t, domain.IsKind(err, domain.KindDuplicate))
	require.NoError(t, r.Add(ctx, &domain.WatchlistEntry{UserID: uuid.New(), Symbol: "MSFT"}))

	got, err := r.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "TSLA", got[0].Symbol)
	assert.Equal(t, "AAPL", got[2].Symbol)

	require.NoError(t, r.Remove(ctx, user, "MSFT"))
	assert.True(t, domain.IsKind(r.Remove(ctx, user, "MSFT"), domain.KindNotFound))

	syms, err := r.DistinctSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, syms)
}
