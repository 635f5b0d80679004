package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/clock"
	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/alejandrodnm/streakbot/internal/ports"
)

// WinnerSource resuelve el ganador de un bucket ya cerrado.
// ok=false cubre mercado inexistente, sin resolver o error de la fuente.
type WinnerSource interface {
	Winner(ctx context.Context, asset domain.Asset, bucket domain.Bucket) (domain.Side, bool)
}

// OracleSource adapta un MarketOracle a WinnerSource sin cache.
type OracleSource struct {
	Oracle    ports.MarketOracle
	Threshold decimal.Decimal
	Timeout   time.Duration
}

// Winner implementa WinnerSource.
func (o OracleSource) Winner(ctx context.Context, asset domain.Asset, bucket domain.Bucket) (domain.Side, bool) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	m, err := o.Oracle.Outcome(ctx, asset, bucket)
	if err != nil {
		slog.Debug("signal: outcome unavailable", "asset", asset, "bucket", bucket, "err", err)
		return "", false
	}
	return m.Winner(o.Threshold)
}

// SignalGenerator mira los últimos `lookback` buckets cerrados y aplica la regla.
// No lee ni escribe apuestas abiertas.
type SignalGenerator struct {
	source   WinnerSource
	interval clock.Interval
	rule     Rule
	lookback int
}

// NewSignalGenerator crea un generador. lookback < 1 se trata como 2.
func NewSignalGenerator(source WinnerSource, interval clock.Interval, rule Rule, lookback int) *SignalGenerator {
	if lookback < 1 {
		lookback = 2
	}
	return &SignalGenerator{source: source, interval: interval, rule: rule, lookback: lookback}
}

// Signal devuelve el lado a apostar para el bucket actual. Cualquier bucket
// sin resolver o inaccesible anula la señal; nunca bloquea ni reintenta.
func (g *SignalGenerator) Signal(ctx context.Context, asset domain.Asset, now time.Time) (domain.Side, bool) {
	winners := make([]domain.Side, 0, g.lookback)
	for offset := 1; offset <= g.lookback; offset++ {
		bucket := g.interval.BucketFor(now, offset)
		w, ok := g.source.Winner(ctx, asset, bucket)
		if !ok {
			slog.Debug("signal: bucket not resolved", "asset", asset, "bucket", bucket, "offset", offset)
			return "", false
		}
		winners = append(winners, w)
	}

	side, ok := g.rule.Decide(winners)
	slog.Debug("signal: evaluated",
		"asset", asset,
		"rule", g.rule.Name(),
		"winners", winners,
		"side", side,
		"ok", ok,
	)
	return side, ok
}
