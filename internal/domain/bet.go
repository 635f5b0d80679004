package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetResult is the terminal state of a settled bet.
type BetResult string

const (
	BetWon  BetResult = "win"
	BetLost BetResult = "loss"
)

// PendingBet is a submitted, not-yet-settled wager. There is at most one per asset.
type PendingBet struct {
	ID         string          `json:"id"`
	Asset      Asset           `json:"asset"`
	Bucket     Bucket          `json:"bucket"`
	Slug       string          `json:"slug"`
	Side       Side            `json:"side"`
	TokenID    string          `json:"token_id,omitempty"`
	Stake      decimal.Decimal `json:"stake"`
	EntryPrice decimal.Decimal `json:"entry_price"` // precio límite enviado al exchange
	OrderID    string          `json:"order_id,omitempty"`
	OpenedAt   time.Time       `json:"opened_at"`
	Paper      bool            `json:"paper,omitempty"`
}

// Ladder is the martingale progression of an asset after one or more losses.
// Absent ladder = base stake on the signalled side.
type Ladder struct {
	Side              Side            `json:"side"`
	NextStake         decimal.Decimal `json:"next_stake"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
}

// Settlement is the outcome of reconciling a pending bet.
type Settlement struct {
	Bet     PendingBet
	Winner  Side
	Result  BetResult
	Profit  decimal.Decimal
	Settled time.Time
}

// SettlementProfit applies the payout law of a binary share bought at entry:
// won = stake*(1/entry - 1), lost = -stake.
func SettlementProfit(stake, entry decimal.Decimal, won bool) decimal.Decimal {
	if !won {
		return stake.Neg()
	}
	if !entry.IsPositive() {
		return decimal.Zero
	}
	return stake.Div(entry).Sub(stake)
}
