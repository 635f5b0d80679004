package ports

import (
	"context"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// MarketOracle resuelve el mercado Up/Down de un asset en un bucket concreto.
type MarketOracle interface {
	// Outcome devuelve precios, tokens y estado de resolución del mercado.
	// Los errores envuelven domain.ErrMarketNotFound, domain.ErrUnavailable
	// o domain.ErrMalformedPayload.
	Outcome(ctx context.Context, asset domain.Asset, bucket domain.Bucket) (domain.MarketOutcome, error)
}
