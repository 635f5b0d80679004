package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// Mensajes para el operador. HTML de Telegram; la consola quita las etiquetas.

func openedMessage(bet domain.PendingBet, ladder *domain.Ladder, interval time.Duration) string {
	series := "(new series)"
	if ladder != nil {
		series = fmt.Sprintf("(series %d)", ladder.ConsecutiveLosses+1)
	}
	paper := ""
	if bet.Paper {
		paper = " [paper]"
	}
	return fmt.Sprintf("💰 <b>%s</b> %dm → %s | $%s @ %s %s%s",
		bet.Asset, int(interval/time.Minute), bet.Side, bet.Stake.StringFixed(2), bet.EntryPrice, series, paper)
}

func settledMessage(s domain.Settlement, next *domain.Ladder) string {
	if s.Result == domain.BetWon {
		return fmt.Sprintf("✅ <b>%s</b> → %s | +$%s", s.Bet.Asset, s.Bet.Side, s.Profit.StringFixed(2))
	}
	msg := fmt.Sprintf("❌ <b>%s</b> → %s | -$%s", s.Bet.Asset, s.Bet.Side, s.Bet.Stake.StringFixed(2))
	if next != nil {
		msg += fmt.Sprintf("\nnext: %s $%s (loss %d)", next.Side, next.NextStake.StringFixed(2), next.ConsecutiveLosses)
	}
	return msg
}

func skipMessage(s Skip) string {
	return fmt.Sprintf("⏭ <b>%s</b> skipped: %s (%s)", s.Asset, s.Reason, s.Detail)
}

func reportMessage(r domain.WindowReport, total domain.Ledger, balance *decimal.Decimal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Report %s:</b>\n", domain.WindowKey(r.Window))
	if balance != nil {
		fmt.Fprintf(&sb, "💰 Balance: $%s\n", balance.StringFixed(2))
	} else {
		sb.WriteString("💰 Balance: n/a\n")
	}
	fmt.Fprintf(&sb, "📈 Profit: $%s\n", r.Profit.StringFixed(2))
	fmt.Fprintf(&sb, "🎲 Bets: %d (✅ %d | ❌ %d)\n", r.Bets, r.Wins, r.Losses)
	fmt.Fprintf(&sb, "📊 Win rate: %.1f%%\n", r.WinRate*100)
	fmt.Fprintf(&sb, "🔥 Max loss streak: %d\n\n", r.MaxLossStreak)
	sb.WriteString("<b>Total:</b>\n")
	fmt.Fprintf(&sb, "💰 Profit: $%s\n", total.TotalProfit.StringFixed(2))
	fmt.Fprintf(&sb, "🎲 Bets: %d\n", total.TotalBets)
	fmt.Fprintf(&sb, "📈 Max loss streak: %d", total.MaxLossStreak)
	return sb.String()
}
