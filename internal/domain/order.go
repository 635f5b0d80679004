package domain

import "github.com/shopspring/decimal"

// OrderRequest is sent to the order gateway. Only BUY limit orders are placed.
type OrderRequest struct {
	Asset   Asset
	Bucket  Bucket
	Side    Side
	TokenID string
	// Price is the limit price (quote + buffer, capped).
	Price decimal.Decimal
	// Stake is the USDC amount to spend.
	Stake decimal.Decimal
}

// PlacedOrder is the gateway response after accepting an order.
type PlacedOrder struct {
	OrderID     string
	Status      string
	TakenAmount decimal.Decimal // immediately filled (taker portion)
	MadeAmount  decimal.Decimal // resting in book (maker portion)
	Paper       bool
}
