package onchain

// approvals.go: allowance de USDC.e hacia los exchanges del CLOB.
//
// Una orden BUY solo se ejecuta si el exchange puede mover el colateral de la
// cuenta. Este fichero:
//   - consulta allowance(owner, exchange) para el exchange normal y el neg-risk
//   - opcionalmente envía approve(max) desde la EOA (signature_type 0)

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const (
	polygonChainID = int64(137)

	// USDC.e collateral on Polygon
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// Exchanges que mueven el colateral en una BUY
	normalExchange  = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	negRiskExchange = "0xC5d563A36AE78145C45a50134d48A1215220f80a"

	approvalGasLimit       = uint64(80_000)
	gasPriceUpdateInterval = 5 * time.Minute
	receiptTimeout         = 60 * time.Second
)

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "approve",
			"type": "function",
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}

// chain es el subconjunto de ethclient que se usa aquí.
type chain interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Approvals comprueba y concede el allowance de USDC.e a los exchanges.
type Approvals struct {
	client  chain
	key     *ecdsa.PrivateKey
	signer  common.Address // EOA que firma las transacciones
	owner   common.Address // cuenta con los fondos (EOA o proxy)
	minimum *big.Int
	poll    time.Duration

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewApprovals conecta al RPC de Polygon. owner vacío = la EOA de la clave.
// minimumUSDC es el allowance por debajo del cual se considera insuficiente.
func NewApprovals(rpcURL, privateKeyHex, owner string, minimumUSDC decimal.Decimal) (*Approvals, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.NewApprovals: dial rpc %s: %w", rpcURL, err)
	}
	a, err := newApprovals(client, privateKeyHex, owner, minimumUSDC)
	if err != nil {
		client.Close()
		return nil, err
	}
	return a, nil
}

func newApprovals(client chain, privateKeyHex, owner string, minimumUSDC decimal.Decimal) (*Approvals, error) {
	pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("onchain.NewApprovals: decode private key: %w", err)
	}
	key, err := crypto.ToECDSA(pkBytes)
	if err != nil {
		return nil, fmt.Errorf("onchain.NewApprovals: invalid private key: %w", err)
	}

	signer := crypto.PubkeyToAddress(key.PublicKey)
	ownerAddr := signer
	if owner != "" {
		if !common.IsHexAddress(owner) {
			return nil, fmt.Errorf("onchain.NewApprovals: invalid owner address %q", owner)
		}
		ownerAddr = common.HexToAddress(owner)
	}

	return &Approvals{
		client:  client,
		key:     key,
		signer:  signer,
		owner:   ownerAddr,
		minimum: minimumUSDC.Shift(6).BigInt(),
		poll:    3 * time.Second,
	}, nil
}

// Missing devuelve los exchanges cuyo allowance está por debajo del mínimo.
func (a *Approvals) Missing(ctx context.Context) ([]common.Address, error) {
	var missing []common.Address
	for _, ex := range []string{normalExchange, negRiskExchange} {
		spender := common.HexToAddress(ex)
		allowance, err := a.allowance(ctx, spender)
		if err != nil {
			return nil, fmt.Errorf("onchain.Missing: allowance for %s: %w", ex, err)
		}
		if allowance.Cmp(a.minimum) >= 0 {
			slog.Debug("onchain: USDC.e allowance sufficient", "exchange", ex, "owner", a.owner.Hex())
			continue
		}
		missing = append(missing, spender)
	}
	return missing, nil
}

// Ensure concede approve(max) a cada exchange sin allowance suficiente.
// Solo es posible cuando los fondos están en la propia EOA.
func (a *Approvals) Ensure(ctx context.Context) error {
	missing, err := a.Missing(ctx)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	if a.owner != a.signer {
		return fmt.Errorf("onchain.Ensure: %d exchanges lack allowance and funds are held by proxy %s; approve from the Polymarket UI",
			len(missing), a.owner.Hex())
	}

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	for _, spender := range missing {
		slog.Info("onchain: setting USDC.e approval", "exchange", spender.Hex())
		if err := a.approve(ctx, spender, maxUint256); err != nil {
			return fmt.Errorf("onchain.Ensure: approve %s: %w", spender.Hex(), err)
		}
		slog.Info("onchain: USDC.e approval set", "exchange", spender.Hex())
	}
	return nil
}

// allowance consulta allowance(owner, spender) del token USDC.e.
func (a *Approvals) allowance(ctx context.Context, spender common.Address) (*big.Int, error) {
	callData, err := erc20ABI.Pack("allowance", a.owner, spender)
	if err != nil {
		return nil, err
	}

	token := common.HexToAddress(usdcEAddress)
	result, err := a.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, err
	}

	vals, err := erc20ABI.Unpack("allowance", result)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, errors.New("empty allowance result")
	}
	return vals[0].(*big.Int), nil
}

// approve envía una transacción ERC20 approve y espera el receipt.
func (a *Approvals) approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	callData, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return err
	}

	nonce, err := a.client.PendingNonceAt(ctx, a.signer)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}

	gasPrice, err := a.gasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	token := common.HexToAddress(usdcEAddress)
	tx := types.NewTransaction(nonce, token, big.NewInt(0), approvalGasLimit, gasPrice, callData)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(polygonChainID)), a.key)
	if err != nil {
		return err
	}

	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return err
	}

	receiptCtx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	receipt, err := a.waitForReceipt(receiptCtx, signed.Hash())
	if err != nil {
		return fmt.Errorf("wait receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("approve tx %s reverted", signed.Hash().Hex())
	}
	return nil
}

// gasPrice devuelve el gas price sugerido +10%, cacheado unos minutos.
func (a *Approvals) gasPrice(ctx context.Context) (*big.Int, error) {
	a.mu.RLock()
	cached := a.cachedGasWei
	updatedAt := a.gasUpdatedAt
	a.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	price, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	a.mu.Lock()
	a.cachedGasWei = buffered
	a.gasUpdatedAt = time.Now()
	a.mu.Unlock()

	return buffered, nil
}

// waitForReceipt hace polling del receipt hasta que se mina o vence ctx.
func (a *Approvals) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := a.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue // aún no minada
			}
			return receipt, nil
		}
	}
}
