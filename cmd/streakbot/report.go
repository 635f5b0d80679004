package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/streakbot/config"
	"github.com/alejandrodnm/streakbot/internal/adapters/notify"
	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/alejandrodnm/streakbot/internal/stats"
)

const reportRecentBets = 20

// runReport imprime ventanas, apuestas abiertas, ladders y el diario reciente.
// No modifica el estado.
func runReport(ctx context.Context, cfg *config.Config, st stores) error {
	state, err := st.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	windows, err := cfg.ReportWindows()
	if err != nil {
		return err
	}
	agg := stats.New(cfg.Stats.HistoryLimit, windows)

	now := time.Now().UTC()
	reports := make([]domain.WindowReport, 0, len(windows))
	for _, w := range windows {
		reports = append(reports, agg.Window(state.Statistics, now, w))
	}

	var recent []domain.Settlement
	if st.sqlite != nil {
		recent, err = st.sqlite.RecentBets(ctx, reportRecentBets)
		if err != nil {
			return err
		}
	}

	notify.NewConsole().PrintReport(state, reports, recent)
	return nil
}
