package polymarket

// trading.go: ejecución real en el CLOB.
//
// Implementa ports.OrderGateway y ports.BalanceProvider sobre AuthClient.
// Cada apuesta es una BUY límite GTC; el saldo es el USDC.e on-chain del funder.

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

type clobNegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

const usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

var balanceOfABI abi.ABI

func init() {
	var err error
	balanceOfABI, err = abi.JSON(strings.NewReader(`[{
		"name":"balanceOf","type":"function",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]
	}]`))
	if err != nil {
		panic("balanceOf abi: " + err.Error())
	}
}

// contractCaller es lo único de ethclient que necesita el saldo.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TradingClient implementa ports.OrderGateway y ports.BalanceProvider.
type TradingClient struct {
	auth      *AuthClient
	rpcClient contractCaller
}

// NewTradingClient conecta al RPC de Polygon usado para leer el saldo.
func NewTradingClient(auth *AuthClient, rpcURL string) (*TradingClient, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("polymarket.NewTradingClient: dial rpc: %w", err)
	}
	return &TradingClient{auth: auth, rpcClient: rpc}, nil
}

// Submit firma y envía una BUY límite. Nunca se reintenta.
func (tc *TradingClient) Submit(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.Submit: creds: %w", err)
	}

	negRisk, err := tc.IsNegRisk(ctx, req.TokenID)
	if err != nil {
		// los mercados Up/Down no son neg-risk; seguimos con el exchange estándar
		slog.Warn("polymarket: neg-risk check failed, assuming standard exchange", "token", req.TokenID, "err", err)
	}

	signed, err := tc.auth.buildSignedOrder(req.TokenID, req.Price, req.Stake, negRisk)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.Submit: sign: %w: %w", domain.ErrOrderRejected, err)
	}

	body := newGTCBuy(signed, req.TokenID, tc.auth.creds.APIKey)

	var resp clobOrderResponse
	if err := tc.auth.postL2(ctx, "/order", body, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.Submit: post: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.Submit: clob error %q: %w", resp.ErrorMsg, domain.ErrOrderRejected)
	}

	return domain.PlacedOrder{
		OrderID:     resp.OrderID,
		Status:      resp.Status,
		TakenAmount: parseUSDC(resp.TakingAmount),
		MadeAmount:  parseUSDC(resp.MakingAmount),
	}, nil
}

// AvailableBalance lee balanceOf(funder) del USDC.e (6 decimales).
func (tc *TradingClient) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	callData, err := balanceOfABI.Pack("balanceOf", tc.auth.Funder())
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket.AvailableBalance: pack: %w", err)
	}

	token := common.HexToAddress(usdcEAddress)
	result, err := tc.rpcClient.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket.AvailableBalance: rpc call: %w: %w", domain.ErrUnavailable, err)
	}

	vals, err := balanceOfABI.Unpack("balanceOf", result)
	if err != nil || len(vals) == 0 {
		return decimal.Zero, fmt.Errorf("polymarket.AvailableBalance: unpack: %w", err)
	}

	raw, ok := vals[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("polymarket.AvailableBalance: unexpected type %T", vals[0])
	}
	return decimal.NewFromBigInt(raw, -6), nil
}

// IsNegRisk consulta si el token se liquida en el exchange neg-risk.
func (tc *TradingClient) IsNegRisk(ctx context.Context, tokenID string) (bool, error) {
	u := fmt.Sprintf("%s/neg-risk?token_id=%s", tc.auth.clobBase, url.QueryEscape(tokenID))

	var resp clobNegRiskResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, u, &resp, nil); err != nil {
		return false, fmt.Errorf("polymarket.IsNegRisk: %w", err)
	}
	return resp.NegRisk, nil
}

// parseUSDC convierte micro-USDC ("1000000") a USDC.
func parseUSDC(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, -6)
}
