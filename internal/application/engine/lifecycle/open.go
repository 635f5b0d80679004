package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/alejandrodnm/streakbot/internal/strategy"
)

// open intenta abrir una apuesta para el asset en el bucket actual.
// Devuelve la apuesta abierta o el motivo del skip; error solo si el estado
// no se pudo guardar tras una orden aceptada.
func (e *Engine) open(ctx context.Context, st *domain.State, gen *strategy.SignalGenerator, asset domain.Asset, now time.Time) (*domain.PendingBet, *Skip, error) {
	skip := func(reason domain.SkipReason, format string, args ...any) (*domain.PendingBet, *Skip, error) {
		s := &Skip{Asset: asset, Reason: reason, Detail: fmt.Sprintf(format, args...)}
		slog.Info("lifecycle: skip",
			"asset", asset,
			"reason", reason,
			"detail", s.Detail,
		)
		e.metrics.Skipped(asset, reason)
		e.notify(ctx, skipMessage(*s))
		return nil, s, nil
	}

	if bet, ok := st.OpenBets[asset]; ok {
		return skip(domain.SkipOpenBet, "bet %s on %s still open", bet.Side, bet.Bucket)
	}

	var (
		ladder    *domain.Ladder
		signal    domain.Side
		hasSignal bool
	)
	if l, ok := st.Martingale[asset]; ok {
		ladder = &l
	} else {
		signal, hasSignal = gen.Signal(ctx, asset, now)
	}

	side, stake, ok := e.sizer.StakeFor(signal, hasSignal, ladder)
	if !ok {
		return skip(domain.SkipNoSignal, "no streak in the last %d buckets", e.cfg.Lookback)
	}

	bucket := e.cfg.Interval.BucketFor(now, 0)
	octx, cancel := e.withTimeout(ctx)
	m, err := e.oracle.Outcome(octx, asset, bucket)
	cancel()
	switch {
	case errors.Is(err, domain.ErrMarketNotFound):
		return skip(domain.SkipMarketNotFound, "no market for bucket %s", bucket)
	case err != nil:
		return skip(domain.SkipMarketError, "%v", err)
	}
	if m.Resolved(e.cfg.Threshold) {
		return skip(domain.SkipMarketResolved, "%s already resolved", m.Slug)
	}

	tokenID, price, ok := m.TokenAndPrice(side)
	if !ok {
		return skip(domain.SkipNoToken, "%s has no %s token", m.Slug, side)
	}
	if price.GreaterThan(e.cfg.MaxPrice) {
		return skip(domain.SkipPriceTooHigh, "%s @ %s > max %s", side, price, e.cfg.MaxPrice.StringFixed(3))
	}

	bctx, cancel := e.withTimeout(ctx)
	balance, err := e.balance.AvailableBalance(bctx)
	cancel()
	if err != nil {
		return skip(domain.SkipBalanceError, "%v", err)
	}
	if balance.LessThan(stake) {
		return skip(domain.SkipInsufficientFund, "balance $%s < stake $%s", balance.StringFixed(2), stake.StringFixed(2))
	}

	limit := price.Add(e.cfg.PriceBuffer)
	if limit.GreaterThan(e.cfg.MaxLimitPrice) {
		limit = e.cfg.MaxLimitPrice
	}

	req := domain.OrderRequest{
		Asset:   asset,
		Bucket:  bucket,
		Side:    side,
		TokenID: tokenID,
		Price:   limit,
		Stake:   stake,
	}
	sctx, cancel := e.withTimeout(ctx)
	placed, err := e.gateway.Submit(sctx, req)
	cancel()
	if err != nil {
		return skip(domain.SkipSubmitFailed, "%v", err)
	}

	bet := domain.PendingBet{
		ID:         uuid.NewString(),
		Asset:      asset,
		Bucket:     bucket,
		Slug:       m.Slug,
		Side:       side,
		TokenID:    tokenID,
		Stake:      stake,
		EntryPrice: limit,
		OrderID:    placed.OrderID,
		OpenedAt:   now,
		Paper:      placed.Paper,
	}
	st.OpenBets[asset] = bet
	if err := e.store.Save(ctx, st); err != nil {
		return nil, nil, fmt.Errorf("open %s: order %s placed but state not saved: %w", asset, placed.OrderID, err)
	}

	slog.Info("lifecycle: bet opened",
		"asset", asset,
		"bucket", bucket,
		"side", side,
		"stake", stake.StringFixed(2),
		"price", limit,
		"order_id", placed.OrderID,
		"paper", placed.Paper,
	)
	if err := e.journal.RecordOpened(ctx, bet); err != nil {
		slog.Warn("lifecycle: journal open failed", "asset", asset, "err", err)
	}
	e.metrics.BetOpened(asset)
	e.notify(ctx, openedMessage(bet, ladder, e.cfg.Interval.Length))
	return &bet, nil, nil
}
