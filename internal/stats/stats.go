package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

const DefaultHistoryLimit = 1000

// Aggregator mantiene el ledger de estadísticas y calcula reportes por ventana.
type Aggregator struct {
	HistoryLimit int
	Windows      []time.Duration
}

// New crea un Aggregator. historyLimit <= 0 usa DefaultHistoryLimit.
func New(historyLimit int, windows []time.Duration) Aggregator {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return Aggregator{HistoryLimit: historyLimit, Windows: windows}
}

// Record añade una liquidación al ledger: contadores, rachas e historial acotado.
func (a Aggregator) Record(l *domain.Ledger, s domain.Settlement) {
	l.History = append(l.History, domain.HistoryEntry{
		At:     s.Settled,
		Asset:  s.Bet.Asset,
		Bucket: s.Bet.Bucket,
		Side:   s.Bet.Side,
		Result: s.Result,
		Stake:  s.Bet.Stake,
		Profit: s.Profit,
	})
	if len(l.History) > a.HistoryLimit {
		l.History = l.History[len(l.History)-a.HistoryLimit:]
	}

	l.TotalBets++
	l.TotalProfit = l.TotalProfit.Add(s.Profit)

	if s.Result == domain.BetWon {
		l.Wins++
		l.CurrentLossStreak = 0
		return
	}
	l.Losses++
	l.CurrentLossStreak++
	if l.CurrentLossStreak > l.MaxLossStreak {
		l.MaxLossStreak = l.CurrentLossStreak
	}
}

// Window resume las liquidaciones con At en (now-d, now].
func (a Aggregator) Window(l domain.Ledger, now time.Time, d time.Duration) domain.WindowReport {
	from := now.Add(-d)
	r := domain.WindowReport{Window: d, From: from, To: now, Profit: decimal.Zero}

	streak := 0
	for _, h := range l.History {
		if !h.At.After(from) || h.At.After(now) {
			continue
		}
		r.Bets++
		r.Profit = r.Profit.Add(h.Profit)
		if h.Result == domain.BetWon {
			r.Wins++
			streak = 0
			continue
		}
		r.Losses++
		streak++
		if streak > r.MaxLossStreak {
			r.MaxLossStreak = streak
		}
	}
	if r.Bets > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Bets)
	}
	return r
}

// Due devuelve las ventanas sin reporte previo o cuyo último reporte tiene al
// menos la duración de la ventana.
func (a Aggregator) Due(l domain.Ledger, now time.Time) []time.Duration {
	var due []time.Duration
	for _, w := range a.Windows {
		last, ok := l.LastReports[domain.WindowKey(w)]
		if !ok || last.IsZero() || now.Sub(last) >= w {
			due = append(due, w)
		}
	}
	return due
}

// MarkReported guarda el instante del último reporte de la ventana.
func (a Aggregator) MarkReported(l *domain.Ledger, w time.Duration, now time.Time) {
	if l.LastReports == nil {
		l.LastReports = make(map[string]time.Time)
	}
	l.LastReports[domain.WindowKey(w)] = now
}
