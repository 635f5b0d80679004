package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDoc = `{
  "pending_bets": {
    "BTC_last": {"slug": "btc-updown-15m-1700000100", "direction": "Down", "amount": 4, "price": 0.5, "placed_at": "2023-11-14 22:15:03"}
  },
  "statistics": {
    "total_profit": -2.0,
    "total_bets": 1,
    "wins": 0,
    "losses": 1,
    "history": [
      {"timestamp": "2023-11-14T22:00:01.123456", "coin": "BTC", "result": "loss", "profit": -2.0, "bet_amount": 2, "direction": "Down"}
    ],
    "max_loss_streak": 1,
    "current_loss_streak": 1,
    "last_6h_report": "2023-11-14T18:00:00",
    "last_24h_report": null
  },
  "last_results": {"BTC": [{"timestamp": "2023-11-14T22:00:01", "result": "Up"}]},
  "martingale": {"BTC": {"direction": "Down", "next_bet": 4, "losses_count": 1}}
}`

func TestDecodeState_Empty(t *testing.T) {
	st, err := DecodeState(nil)
	require.NoError(t, err)
	assert.Equal(t, StateVersion, st.Version)
	assert.Empty(t, st.OpenBets)
	assert.NotNil(t, st.Martingale)
	assert.NotNil(t, st.Statistics.LastReports)
}

func TestDecodeState_MigratesLegacyLayout(t *testing.T) {
	st, err := DecodeState([]byte(legacyDoc))
	require.NoError(t, err)

	bet, ok := st.OpenBets["BTC"]
	require.True(t, ok)
	assert.Equal(t, Bucket(1_700_000_100), bet.Bucket)
	assert.Equal(t, SideDown, bet.Side)
	assert.True(t, bet.Stake.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, "0.5", bet.EntryPrice.String())
	assert.Equal(t, 2023, bet.OpenedAt.Year())

	l, ok := st.Martingale["BTC"]
	require.True(t, ok)
	assert.Equal(t, SideDown, l.Side)
	assert.Equal(t, 1, l.ConsecutiveLosses)
	assert.True(t, l.NextStake.Equal(decimal.NewFromInt(4)))

	assert.Equal(t, 1, st.Statistics.Losses)
	require.Len(t, st.Statistics.History, 1)
	assert.Equal(t, BetLost, st.Statistics.History[0].Result)
	assert.Contains(t, st.Statistics.LastReports, "6h")
	assert.NotContains(t, st.Statistics.LastReports, "24h")
}

func TestDecodeState_RoundTripCurrentVersion(t *testing.T) {
	st := NewState()
	st.OpenBets["ETH"] = PendingBet{
		ID: "b1", Asset: "ETH", Bucket: 1_700_000_100, Side: SideUp,
		Stake: decimal.NewFromInt(2), EntryPrice: decimal.RequireFromString("0.46"),
		OpenedAt: time.Date(2023, 11, 14, 22, 15, 0, 0, time.UTC),
	}
	st.RememberOutcome("ETH", 1_700_000_000, SideDown, time.Now(), 4)

	data, err := EncodeState(st)
	require.NoError(t, err)

	got, err := DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, "0.46", got.OpenBets["ETH"].EntryPrice.String())
	w, ok := got.KnownWinner("ETH", 1_700_000_000)
	assert.True(t, ok)
	assert.Equal(t, SideDown, w)
}

func TestDecodeState_UnknownVersion(t *testing.T) {
	_, err := DecodeState([]byte(`{"version": 99}`))
	assert.ErrorIs(t, err, ErrStateVersion)
}

func TestRememberOutcome_Bounded(t *testing.T) {
	st := NewState()
	now := time.Now()
	for i := 0; i < 6; i++ {
		st.RememberOutcome("BTC", Bucket(900*i), SideUp, now, 4)
	}
	// repetido: no cambia nada
	st.RememberOutcome("BTC", Bucket(900*5), SideDown, now, 4)

	list := st.RecentOutcomes["BTC"]
	require.Len(t, list, 4)
	assert.Equal(t, Bucket(900*2), list[0].Bucket)
	w, _ := st.KnownWinner("BTC", Bucket(900*5))
	assert.Equal(t, SideUp, w)
}
