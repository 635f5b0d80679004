package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layout v0: el bot_state.json original, sin campo version.
//
//	pending_bets: {"BTC_last": {slug, direction, amount, price, placed_at}}
//	martingale:   {"BTC": {direction, next_bet, losses_count}}
//	statistics:   {..., history: [{timestamp, coin, result, profit, bet_amount, direction}],
//	               last_6h_report, last_24h_report}
//	last_results: {"BTC": [{timestamp, result}]}  (no se migra: no guarda el bucket)

type legacyPending struct {
	Slug      string   `json:"slug"`
	Direction string   `json:"direction"`
	Amount    float64  `json:"amount"`
	Price     *float64 `json:"price"`
	PlacedAt  string   `json:"placed_at"`
}

type legacyLadder struct {
	Direction   string  `json:"direction"`
	NextBet     float64 `json:"next_bet"`
	LossesCount int     `json:"losses_count"`
}

type legacyHistory struct {
	Timestamp string  `json:"timestamp"`
	Coin      string  `json:"coin"`
	Result    string  `json:"result"`
	Profit    float64 `json:"profit"`
	BetAmount float64 `json:"bet_amount"`
	Direction string  `json:"direction"`
}

type legacyStats struct {
	TotalProfit       float64         `json:"total_profit"`
	TotalBets         int             `json:"total_bets"`
	Wins              int             `json:"wins"`
	Losses            int             `json:"losses"`
	History           []legacyHistory `json:"history"`
	MaxLossStreak     int             `json:"max_loss_streak"`
	CurrentLossStreak int             `json:"current_loss_streak"`
	Last6hReport      *string         `json:"last_6h_report"`
	Last24hReport     *string         `json:"last_24h_report"`
}

type legacyState struct {
	PendingBets map[string]legacyPending `json:"pending_bets"`
	Martingale  map[string]legacyLadder  `json:"martingale"`
	Statistics  legacyStats              `json:"statistics"`
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func migrateLegacy(data []byte) (*State, error) {
	var old legacyState
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}

	st := NewState()

	for key, p := range old.PendingBets {
		asset := Asset(strings.ToUpper(strings.SplitN(key, "_", 2)[0]))
		side, err := ParseSide(p.Direction)
		if err != nil {
			return nil, err
		}
		entry := decimal.NewFromFloat(0.5)
		if p.Price != nil {
			entry = decimal.NewFromFloat(*p.Price)
		}
		st.OpenBets[asset] = PendingBet{
			ID:         "legacy-" + key,
			Asset:      asset,
			Bucket:     bucketFromSlug(p.Slug),
			Slug:       p.Slug,
			Side:       side,
			Stake:      decimal.NewFromFloat(p.Amount),
			EntryPrice: entry,
			OpenedAt:   parseLegacyTime(p.PlacedAt),
		}
	}

	for coin, l := range old.Martingale {
		side, err := ParseSide(l.Direction)
		if err != nil {
			return nil, err
		}
		st.Martingale[Asset(strings.ToUpper(coin))] = Ladder{
			Side:              side,
			NextStake:         decimal.NewFromFloat(l.NextBet),
			ConsecutiveLosses: l.LossesCount,
		}
	}

	s := old.Statistics
	st.Statistics.TotalProfit = decimal.NewFromFloat(s.TotalProfit)
	st.Statistics.TotalBets = s.TotalBets
	st.Statistics.Wins = s.Wins
	st.Statistics.Losses = s.Losses
	st.Statistics.MaxLossStreak = s.MaxLossStreak
	st.Statistics.CurrentLossStreak = s.CurrentLossStreak
	for _, h := range s.History {
		side, _ := ParseSide(h.Direction)
		result := BetLost
		if h.Result == string(BetWon) || h.Profit > 0 {
			result = BetWon
		}
		st.Statistics.History = append(st.Statistics.History, HistoryEntry{
			At:     parseLegacyTime(h.Timestamp),
			Asset:  Asset(strings.ToUpper(h.Coin)),
			Side:   side,
			Result: result,
			Stake:  decimal.NewFromFloat(h.BetAmount),
			Profit: decimal.NewFromFloat(h.Profit),
		})
	}
	if s.Last6hReport != nil {
		st.Statistics.LastReports[WindowKey(6*time.Hour)] = parseLegacyTime(*s.Last6hReport)
	}
	if s.Last24hReport != nil {
		st.Statistics.LastReports[WindowKey(24*time.Hour)] = parseLegacyTime(*s.Last24hReport)
	}

	return st, nil
}

// bucketFromSlug extrae el timestamp final de "btc-updown-15m-1700000000".
func bucketFromSlug(slug string) Bucket {
	i := strings.LastIndex(slug, "-")
	if i < 0 {
		return 0
	}
	ts, err := strconv.ParseInt(slug[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return Bucket(ts)
}

// parseLegacyTime interpreta timestamps sin zona como UTC. Devuelve zero time si no parsea.
func parseLegacyTime(s string) time.Time {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
