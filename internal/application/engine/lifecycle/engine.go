// Package lifecycle ejecuta un ciclo completo del bot: liquida las apuestas
// abiertas, decide las nuevas en el tick de decisión y emite los reportes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/clock"
	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/alejandrodnm/streakbot/internal/metrics"
	"github.com/alejandrodnm/streakbot/internal/ports"
	"github.com/alejandrodnm/streakbot/internal/stats"
	"github.com/alejandrodnm/streakbot/internal/strategy"
)

const (
	defaultRecentOutcomes = 16
	defaultTimeout        = 10 * time.Second
)

// Config holds the strategy parameters of the engine.
type Config struct {
	Assets   []domain.Asset
	Interval clock.Interval

	// Threshold marca un mercado como resuelto (precio ≥ threshold).
	Threshold decimal.Decimal
	// MaxPrice es el precio máximo de entrada: 1 / multiplicador mínimo.
	MaxPrice      decimal.Decimal
	PriceBuffer   decimal.Decimal
	MaxLimitPrice decimal.Decimal

	Lookback       int
	RecentOutcomes int
	RequestTimeout time.Duration
}

// Deps are the collaborators of the engine. Journal, Clock and Metrics are optional.
type Deps struct {
	Store    ports.StateStore
	Oracle   ports.MarketOracle
	Gateway  ports.OrderGateway
	Balance  ports.BalanceProvider
	Notifier ports.Notifier
	Journal  ports.BetJournal
	Clock    clock.Clock
	Rule     strategy.Rule
	Sizer    strategy.Sizer
	Stats    stats.Aggregator
	Metrics  *metrics.Recorder
}

// Engine runs the bet lifecycle. It is not safe for concurrent RunOnce calls:
// the caller (cron with SkipIfStillRunning, or a single process) serializes them.
type Engine struct {
	cfg      Config
	store    ports.StateStore
	oracle   ports.MarketOracle
	gateway  ports.OrderGateway
	balance  ports.BalanceProvider
	notifier ports.Notifier
	journal  ports.BetJournal
	clock    clock.Clock
	rule     strategy.Rule
	sizer    strategy.Sizer
	stats    stats.Aggregator
	metrics  *metrics.Recorder
}

// New crea el engine validando dependencias y aplicando defaults.
func New(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("lifecycle.New: state store is required")
	case deps.Oracle == nil:
		return nil, errors.New("lifecycle.New: market oracle is required")
	case deps.Gateway == nil || deps.Balance == nil:
		return nil, errors.New("lifecycle.New: order gateway and balance provider are required")
	case deps.Notifier == nil:
		return nil, errors.New("lifecycle.New: notifier is required")
	case deps.Rule == nil:
		return nil, errors.New("lifecycle.New: signal rule is required")
	case !deps.Sizer.Base.IsPositive() || deps.Sizer.Max.LessThan(deps.Sizer.Base):
		return nil, fmt.Errorf("lifecycle.New: invalid sizer base=%s max=%s", deps.Sizer.Base, deps.Sizer.Max)
	case cfg.Interval.Length <= 0:
		return nil, errors.New("lifecycle.New: interval is required")
	case !cfg.Threshold.IsPositive() || !cfg.MaxPrice.IsPositive():
		return nil, fmt.Errorf("lifecycle.New: threshold %s and max price %s must be positive", cfg.Threshold, cfg.MaxPrice)
	}

	if cfg.MaxLimitPrice.IsZero() {
		cfg.MaxLimitPrice = decimal.RequireFromString("0.99")
	}
	if cfg.Lookback < 1 {
		cfg.Lookback = 2
	}
	if cfg.RecentOutcomes <= 0 {
		cfg.RecentOutcomes = defaultRecentOutcomes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if deps.Stats.HistoryLimit <= 0 {
		deps.Stats = stats.New(0, deps.Stats.Windows)
	}
	if deps.Journal == nil {
		deps.Journal = ports.NoopJournal{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &Engine{
		cfg:      cfg,
		store:    deps.Store,
		oracle:   deps.Oracle,
		gateway:  deps.Gateway,
		balance:  deps.Balance,
		notifier: deps.Notifier,
		journal:  deps.Journal,
		clock:    deps.Clock,
		rule:     deps.Rule,
		sizer:    deps.Sizer,
		stats:    deps.Stats,
		metrics:  deps.Metrics,
	}, nil
}

// Skip es una decisión que no abrió apuesta.
type Skip struct {
	Asset  domain.Asset
	Reason domain.SkipReason
	Detail string
}

// CycleResult resume lo que hizo una invocación.
type CycleResult struct {
	At           time.Time
	DecisionTick bool
	Settled      []domain.Settlement
	Deferred     []domain.Asset
	Opened       []domain.PendingBet
	Skipped      []Skip
	Reports      []domain.WindowReport
}

// RunOnce ejecuta una invocación: carga el estado, liquida todas las apuestas
// abiertas, decide en el tick de decisión, emite reportes y guarda.
// Solo devuelve error si el estado no se puede cargar o guardar.
func (e *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	now := e.clock.Now()

	st, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.RunOnce: load state: %w", err)
	}

	res := &CycleResult{At: now, DecisionTick: e.cfg.Interval.IsDecisionTick(now)}
	resolver := e.newResolver(st, now)

	for _, asset := range st.OpenAssets() {
		s, err := e.reconcile(ctx, st, resolver, asset, now)
		if err != nil {
			return res, fmt.Errorf("lifecycle.RunOnce: %w", err)
		}
		if s == nil {
			res.Deferred = append(res.Deferred, asset)
			continue
		}
		res.Settled = append(res.Settled, *s)
	}

	if res.DecisionTick {
		gen := strategy.NewSignalGenerator(resolver, e.cfg.Interval, e.rule, e.cfg.Lookback)
		for _, asset := range e.cfg.Assets {
			bet, skip, err := e.open(ctx, st, gen, asset, now)
			if err != nil {
				return res, fmt.Errorf("lifecycle.RunOnce: %w", err)
			}
			if bet != nil {
				res.Opened = append(res.Opened, *bet)
				continue
			}
			res.Skipped = append(res.Skipped, *skip)
		}
	} else {
		slog.Debug("lifecycle: not a decision tick",
			"now", now.Format(time.RFC3339),
			"next", e.cfg.Interval.Next(now).Format(time.RFC3339),
		)
	}

	res.Reports = e.emitReports(ctx, st, now)

	if err := e.store.Save(ctx, st); err != nil {
		return res, fmt.Errorf("lifecycle.RunOnce: save state: %w", err)
	}
	e.metrics.ObserveState(st, now)

	slog.Info("lifecycle: run complete",
		"decision_tick", res.DecisionTick,
		"settled", len(res.Settled),
		"deferred", len(res.Deferred),
		"opened", len(res.Opened),
		"skipped", len(res.Skipped),
		"reports", len(res.Reports),
		"total_profit", st.Statistics.TotalProfit.StringFixed(2),
	)
	return res, nil
}

// Reconcile liquida la apuesta abierta de un asset si su bucket ya está
// resuelto. Sin apuesta abierta, o con el bucket pendiente, no hace nada y
// devuelve nil.
func (e *Engine) Reconcile(ctx context.Context, st *domain.State, asset domain.Asset) (*domain.Settlement, error) {
	now := e.clock.Now()
	return e.reconcile(ctx, st, e.newResolver(st, now), asset, now)
}

func (e *Engine) reconcile(ctx context.Context, st *domain.State, resolver *resolver, asset domain.Asset, now time.Time) (*domain.Settlement, error) {
	bet, ok := st.OpenBets[asset]
	if !ok {
		return nil, nil
	}

	winner, ok := resolver.Winner(ctx, asset, bet.Bucket)
	if !ok {
		slog.Info("lifecycle: bet still pending",
			"asset", asset,
			"bucket", bet.Bucket,
			"side", bet.Side,
		)
		return nil, nil
	}

	won := winner == bet.Side
	s := domain.Settlement{
		Bet:     bet,
		Winner:  winner,
		Result:  domain.BetLost,
		Profit:  domain.SettlementProfit(bet.Stake, bet.EntryPrice, won),
		Settled: now,
	}
	if won {
		s.Result = domain.BetWon
	}

	e.stats.Record(&st.Statistics, s)
	if won {
		delete(st.Martingale, asset)
	} else {
		var current *domain.Ladder
		if l, ok := st.Martingale[asset]; ok {
			current = &l
		}
		st.Martingale[asset] = e.sizer.OnLoss(current, bet.Side, bet.Stake)
	}
	delete(st.OpenBets, asset)

	if err := e.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("reconcile %s: save state: %w", asset, err)
	}

	slog.Info("lifecycle: bet settled",
		"asset", asset,
		"bucket", bet.Bucket,
		"side", bet.Side,
		"winner", winner,
		"result", s.Result,
		"profit", s.Profit.StringFixed(4),
	)
	if err := e.journal.RecordSettled(ctx, s); err != nil {
		slog.Warn("lifecycle: journal settle failed", "asset", asset, "err", err)
	}
	e.metrics.BetSettled(asset, s.Result)

	var next *domain.Ladder
	if l, ok := st.Martingale[asset]; ok {
		next = &l
	}
	e.notify(ctx, settledMessage(s, next))
	return &s, nil
}

func (e *Engine) notify(ctx context.Context, text string) {
	if err := e.notifier.Notify(ctx, text); err != nil {
		slog.Warn("lifecycle: notify failed", "err", err)
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.RequestTimeout)
}
