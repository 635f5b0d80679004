package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// OrderGateway submits BUY limit orders to the exchange.
type OrderGateway interface {
	// Submit signs and posts the order. A returned error means nothing was placed.
	Submit(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error)
}

// BalanceProvider reports the spendable collateral (USDC) of the wallet.
type BalanceProvider interface {
	AvailableBalance(ctx context.Context) (decimal.Decimal, error)
}
