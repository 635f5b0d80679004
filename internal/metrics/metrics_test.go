package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/alejandrodnm/streakbot/internal/metrics"
)

func TestRecorder_Counters(t *testing.T) {
	r := metrics.New()
	r.BetOpened("BTC")
	r.BetOpened("BTC")
	r.BetSettled("BTC", domain.BetWon)
	r.Skipped("ETH", domain.SkipNoSignal)

	assert.Equal(t, 3, testutil.CollectAndCount(r.Registry(),
		"streakbot_bets_opened_total", "streakbot_bets_settled_total", "streakbot_skips_total"))
}

func TestRecorder_ObserveStateAndTextfile(t *testing.T) {
	r := metrics.New()

	st := domain.NewState()
	st.Statistics.TotalProfit = decimal.RequireFromString("-3.5")
	st.Martingale["SOL"] = domain.Ladder{Side: domain.SideUp, NextStake: decimal.NewFromInt(8), ConsecutiveLosses: 2}
	r.ObserveState(st, time.Unix(1709287200, 0))

	// La martingala se cierra: la serie desaparece
	delete(st.Martingale, "SOL")
	st.Martingale["ETH"] = domain.Ladder{Side: domain.SideDown, NextStake: decimal.NewFromInt(4), ConsecutiveLosses: 1}
	r.BetOpened("ETH")
	r.ObserveState(st, time.Unix(1709288100, 0))

	path := filepath.Join(t.TempDir(), "streakbot.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "streakbot_total_profit_usdc -3.5")
	assert.Contains(t, out, `streakbot_ladder_next_stake_usdc{asset="ETH"} 4`)
	assert.NotContains(t, out, `asset="SOL"`)
	assert.Contains(t, out, `streakbot_bets_opened_total{asset="ETH"} 1`)
	assert.Contains(t, out, "streakbot_last_run_timestamp_seconds")
}
