package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// resolver implementa strategy.WinnerSource consultando primero los
// resultados ya cacheados en el estado. Un bucket cacheado no se vuelve a
// pedir al oráculo, así que su ganador no puede cambiar.
type resolver struct {
	e   *Engine
	st  *domain.State
	now time.Time
}

func (e *Engine) newResolver(st *domain.State, now time.Time) *resolver {
	return &resolver{e: e, st: st, now: now}
}

// Winner implementa strategy.WinnerSource.
func (r *resolver) Winner(ctx context.Context, asset domain.Asset, bucket domain.Bucket) (domain.Side, bool) {
	if w, ok := r.st.KnownWinner(asset, bucket); ok {
		return w, true
	}

	ctx, cancel := r.e.withTimeout(ctx)
	defer cancel()

	m, err := r.e.oracle.Outcome(ctx, asset, bucket)
	if err != nil {
		slog.Warn("lifecycle: outcome unavailable",
			"asset", asset,
			"bucket", bucket,
			"err", err,
		)
		return "", false
	}

	w, ok := m.Winner(r.e.cfg.Threshold)
	if !ok {
		return "", false
	}
	r.st.RememberOutcome(asset, bucket, w, r.now, r.e.cfg.RecentOutcomes)
	return w, true
}
