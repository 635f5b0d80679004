package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/streakbot/internal/adapters/storage"
	"github.com/alejandrodnm/streakbot/internal/domain"
)

func makeBet(id string, asset domain.Asset, bucket domain.Bucket) domain.PendingBet {
	return domain.PendingBet{
		ID:         id,
		Asset:      asset,
		Bucket:     bucket,
		Slug:       asset.Lower() + "-updown-15m-" + bucket.String(),
		Side:       domain.SideDown,
		TokenID:    "tok-" + id,
		Stake:      decimal.NewFromInt(2),
		EntryPrice: decimal.RequireFromString("0.51"),
		OrderID:    "0xorder-" + id,
		OpenedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func newSQLite(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStorage_LoadEmpty(t *testing.T) {
	db := newSQLite(t)

	st, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateVersion, st.Version)
	assert.Empty(t, st.OpenBets)
	assert.Empty(t, st.Martingale)
}

func TestSQLiteStorage_SaveAndLoad(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()

	st := domain.NewState()
	st.OpenBets["BTC"] = makeBet("a", "BTC", 1709287200)
	st.Martingale["ETH"] = domain.Ladder{Side: domain.SideUp, NextStake: decimal.NewFromInt(4), ConsecutiveLosses: 1}
	st.Statistics.TotalBets = 3
	st.Statistics.TotalProfit = decimal.RequireFromString("-1.25")
	require.NoError(t, db.Save(ctx, st))

	// Segundo save: reemplaza, no duplica
	st.Statistics.TotalBets = 4
	require.NoError(t, db.Save(ctx, st))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Statistics.TotalBets)
	assert.Equal(t, "-1.25", got.Statistics.TotalProfit.String())
	require.Contains(t, got.OpenBets, domain.Asset("BTC"))
	assert.Equal(t, domain.Bucket(1709287200), got.OpenBets["BTC"].Bucket)
	assert.Equal(t, "4", got.Martingale["ETH"].NextStake.String())
}

func TestSQLiteStorage_Journal(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()

	open := makeBet("a", "BTC", 900)
	require.NoError(t, db.RecordOpened(ctx, open))
	require.NoError(t, db.RecordOpened(ctx, open)) // idempotente

	settled := makeBet("b", "ETH", 1800)
	settled.OpenedAt = open.OpenedAt.Add(time.Minute)
	require.NoError(t, db.RecordOpened(ctx, settled))
	require.NoError(t, db.RecordSettled(ctx, domain.Settlement{
		Bet:     settled,
		Winner:  domain.SideDown,
		Result:  domain.BetWon,
		Profit:  decimal.RequireFromString("1.9216"),
		Settled: settled.OpenedAt.Add(15 * time.Minute),
	}))

	rows, err := db.RecentBets(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Más recientes primero
	assert.Equal(t, "b", rows[0].Bet.ID)
	assert.Equal(t, domain.BetWon, rows[0].Result)
	assert.Equal(t, "1.9216", rows[0].Profit.String())
	assert.False(t, rows[0].Settled.IsZero())

	assert.Equal(t, "a", rows[1].Bet.ID)
	assert.Empty(t, rows[1].Result)
	assert.True(t, rows[1].Settled.IsZero())
	assert.Equal(t, "0.51", rows[1].Bet.EntryPrice.String())
}

func TestSQLiteStorage_RecordSettledWithoutOpen(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()

	bet := makeBet("migrated", "SOL", 2700)
	require.NoError(t, db.RecordSettled(ctx, domain.Settlement{
		Bet: bet, Winner: domain.SideUp, Result: domain.BetLost,
		Profit: decimal.NewFromInt(-2), Settled: time.Now().UTC(),
	}))

	rows, err := db.RecentBets(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.BetLost, rows[0].Result)
	assert.Equal(t, domain.SideUp, rows[0].Winner)
}
