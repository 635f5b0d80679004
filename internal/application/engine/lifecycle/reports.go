package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// emitReports envía los reportes de las ventanas vencidas. El saldo se lee
// una sola vez; si falla, el reporte sale sin él.
func (e *Engine) emitReports(ctx context.Context, st *domain.State, now time.Time) []domain.WindowReport {
	due := e.stats.Due(st.Statistics, now)
	if len(due) == 0 {
		return nil
	}

	var balance *decimal.Decimal
	bctx, cancel := e.withTimeout(ctx)
	if b, err := e.balance.AvailableBalance(bctx); err != nil {
		slog.Warn("lifecycle: balance unavailable for report", "err", err)
	} else {
		balance = &b
	}
	cancel()

	reports := make([]domain.WindowReport, 0, len(due))
	for _, w := range due {
		r := e.stats.Window(st.Statistics, now, w)
		e.notify(ctx, reportMessage(r, st.Statistics, balance))
		e.stats.MarkReported(&st.Statistics, w, now)
		reports = append(reports, r)

		slog.Info("lifecycle: window report",
			"window", domain.WindowKey(w),
			"bets", r.Bets,
			"profit", r.Profit.StringFixed(2),
		)
	}
	return reports
}
