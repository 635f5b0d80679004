package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// Gateway simula el exchange en dry-run: acepta toda orden válida con un id
// "paper-<uuid>" y reporta un saldo fijo. Implementa ports.OrderGateway y
// ports.BalanceProvider.
type Gateway struct {
	balance decimal.Decimal

	mu     sync.Mutex
	orders []domain.OrderRequest
}

// NewGateway crea un gateway paper con el saldo dado.
func NewGateway(balance decimal.Decimal) *Gateway {
	return &Gateway{balance: balance}
}

// Submit implementa ports.OrderGateway.
func (g *Gateway) Submit(_ context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	if req.TokenID == "" || !req.Stake.IsPositive() || !req.Price.IsPositive() {
		return domain.PlacedOrder{}, fmt.Errorf("paper.Submit: %w: token=%q stake=%s price=%s",
			domain.ErrOrderRejected, req.TokenID, req.Stake, req.Price)
	}

	g.mu.Lock()
	g.orders = append(g.orders, req)
	g.mu.Unlock()

	id := "paper-" + uuid.NewString()
	slog.Info("paper: order accepted",
		"id", id,
		"asset", req.Asset,
		"side", req.Side,
		"stake", req.Stake,
		"price", req.Price,
	)
	return domain.PlacedOrder{OrderID: id, Status: "paper", MadeAmount: req.Stake, Paper: true}, nil
}

// AvailableBalance implementa ports.BalanceProvider.
func (g *Gateway) AvailableBalance(context.Context) (decimal.Decimal, error) {
	return g.balance, nil
}

// Orders devuelve las órdenes aceptadas en este proceso.
func (g *Gateway) Orders() []domain.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.OrderRequest, len(g.orders))
	copy(out, g.orders)
	return out
}
