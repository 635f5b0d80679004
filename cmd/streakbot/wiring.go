package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/streakbot/config"
	"github.com/alejandrodnm/streakbot/internal/adapters/notify"
	"github.com/alejandrodnm/streakbot/internal/adapters/onchain"
	"github.com/alejandrodnm/streakbot/internal/adapters/paper"
	"github.com/alejandrodnm/streakbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/streakbot/internal/adapters/storage"
	"github.com/alejandrodnm/streakbot/internal/application/engine/lifecycle"
	"github.com/alejandrodnm/streakbot/internal/clock"
	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/alejandrodnm/streakbot/internal/metrics"
	"github.com/alejandrodnm/streakbot/internal/ports"
	"github.com/alejandrodnm/streakbot/internal/stats"
	"github.com/alejandrodnm/streakbot/internal/strategy"
)

// stores agrupa el estado y el diario. sqlite es no-nil cuando hay diario
// SQLite (backend sqlite o journal_dsn), y sirve también para -report.
type stores struct {
	state   ports.StateStore
	journal ports.BetJournal
	sqlite  *storage.SQLiteStorage
}

func (s stores) Close() error {
	var errs []error
	errs = append(errs, s.state.Close())
	if s.sqlite != nil && ports.StateStore(s.sqlite) != s.state {
		errs = append(errs, s.sqlite.Close())
	}
	return errors.Join(errs...)
}

func openStores(cfg *config.Config) (stores, error) {
	var out stores

	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := storage.NewSQLiteStorage(cfg.Storage.Path)
		if err != nil {
			return out, err
		}
		out.state, out.sqlite = db, db
		out.journal = db
		return out, nil
	case "redis":
		rs, err := storage.NewRedisStore(storage.RedisConfig{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Key:      cfg.Storage.RedisKey,
		})
		if err != nil {
			return out, err
		}
		out.state = rs
	default:
		fs, err := storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return out, err
		}
		out.state = fs
	}

	out.journal = ports.NoopJournal{}
	if cfg.Storage.JournalDSN != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.JournalDSN)
		if err != nil {
			out.state.Close()
			return out, fmt.Errorf("journal: %w", err)
		}
		out.sqlite = db
		out.journal = db
	}
	return out, nil
}

func buildEngine(ctx context.Context, cfg *config.Config, st stores, rec *metrics.Recorder) (*lifecycle.Engine, error) {
	interval, err := clock.NewInterval(cfg.Bot.IntervalMinutes)
	if err != nil {
		return nil, err
	}

	rule, ok := strategy.DefaultRegistry().Get(cfg.Strategy.SignalMode)
	if !ok {
		return nil, fmt.Errorf("unknown signal mode %q", cfg.Strategy.SignalMode)
	}
	sizer, err := strategy.NewSizer(cfg.BaseStake(), cfg.MaxStake())
	if err != nil {
		return nil, err
	}
	windows, err := cfg.ReportWindows()
	if err != nil {
		return nil, err
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.RequestTimeout())
	oracle := polymarket.NewOracle(client, cfg.Bot.IntervalMinutes, slugPrefixes(cfg))

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return nil, err
	}

	gateway, balance, err := buildGateway(ctx, cfg, client, notifier)
	if err != nil {
		return nil, err
	}

	assets := make([]domain.Asset, 0, len(cfg.Assets()))
	for _, a := range cfg.Assets() {
		assets = append(assets, domain.Asset(a))
	}

	return lifecycle.New(lifecycle.Config{
		Assets:         assets,
		Interval:       interval,
		Threshold:      cfg.Threshold(),
		MaxPrice:       cfg.MaxPrice(),
		PriceBuffer:    cfg.PriceBuffer(),
		MaxLimitPrice:  cfg.Limit(),
		Lookback:       cfg.Strategy.StreakLength,
		RecentOutcomes: cfg.Bot.RecentOutcomes,
		RequestTimeout: cfg.RequestTimeout(),
	}, lifecycle.Deps{
		Store:    st.state,
		Oracle:   oracle,
		Gateway:  gateway,
		Balance:  balance,
		Notifier: notifier,
		Journal:  st.journal,
		Clock:    clock.System{},
		Rule:     rule,
		Sizer:    sizer,
		Stats:    stats.New(cfg.Stats.HistoryLimit, windows),
		Metrics:  rec,
	})
}

// buildGateway devuelve el gateway paper en dry-run, o el cliente CLOB
// autenticado en live (con la comprobación de allowance de USDC.e).
// Solo falla por configuración: si el CLOB no responde al derivar credenciales
// se avisa y se sigue, Submit las vuelve a pedir en cada orden.
func buildGateway(ctx context.Context, cfg *config.Config, client *polymarket.Client, notifier ports.Notifier) (ports.OrderGateway, ports.BalanceProvider, error) {
	if cfg.Bot.DryRun {
		g := paper.NewGateway(cfg.PaperBalance())
		return g, g, nil
	}

	auth, err := polymarket.NewAuthClient(client, cfg.Wallet.PrivateKey, cfg.Wallet.SignatureType, cfg.Wallet.Funder)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("live trading enabled", "signer", auth.Address(), "funder", auth.Funder().Hex())
	if err := auth.EnsureCreds(ctx); err != nil {
		slog.Warn("failed to derive CLOB credentials, retrying on next order", "err", err)
		if nerr := notifier.Notify(ctx, credsFailedMessage(err)); nerr != nil {
			slog.Warn("notifier error", "err", nerr)
		}
	}

	trading, err := polymarket.NewTradingClient(auth, cfg.API.PolygonRPC)
	if err != nil {
		return nil, nil, err
	}

	checkApprovals(ctx, cfg)
	return trading, trading, nil
}

// checkApprovals avisa (o concede, con ensure_approvals) si falta allowance.
// No es fatal: el CLOB rechazará la orden y el ciclo lo registrará como skip.
func checkApprovals(ctx context.Context, cfg *config.Config) {
	appr, err := onchain.NewApprovals(cfg.API.PolygonRPC, cfg.Wallet.PrivateKey, cfg.Wallet.Funder, cfg.MinAllowance())
	if err != nil {
		slog.Warn("approvals check unavailable", "err", err)
		return
	}

	if cfg.Wallet.EnsureApprovals {
		if err := appr.Ensure(ctx); err != nil {
			slog.Warn("failed to ensure USDC.e approvals", "err", err)
		}
		return
	}

	missing, err := appr.Missing(ctx)
	if err != nil {
		slog.Warn("approvals check failed", "err", err)
		return
	}
	for _, ex := range missing {
		slog.Warn("USDC.e allowance below minimum; orders may be rejected",
			"exchange", ex.Hex(), "min", cfg.MinAllowance())
	}
}

func credsFailedMessage(err error) string {
	return fmt.Sprintf("⚠️ <b>CLOB credentials unavailable</b>\nOrders will retry on the next decision tick.\n%s",
		html.EscapeString(err.Error()))
}

func buildNotifier(cfg *config.Config) (ports.Notifier, error) {
	multi := notify.Multi{notify.NewConsole()}
	if !cfg.Telegram.Enabled() {
		return multi, nil
	}

	tg, err := notify.NewTelegram(notify.TelegramConfig{
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		BaseURL: cfg.Telegram.BaseURL,
		Retries: cfg.Telegram.Retries,
		Test:    cfg.Bot.DryRun,
		Timeout: cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return append(multi, tg), nil
}

func slugPrefixes(cfg *config.Config) map[domain.Asset]string {
	out := make(map[domain.Asset]string, len(cfg.Bot.SlugPrefixes))
	for a, p := range cfg.Bot.SlugPrefixes {
		out[domain.Asset(strings.ToUpper(a))] = p
	}
	return out
}
