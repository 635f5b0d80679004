package onchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clave de la cuenta #0 de hardhat: pública, sin fondos reales.
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type fakeChain struct {
	allowances map[common.Address]*big.Int
	sent       []*types.Transaction
	status     uint64
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	args, err := erc20ABI.Methods["allowance"].Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	spender := args[1].(common.Address)
	v, ok := f.allowances[spender]
	if !ok {
		v = big.NewInt(0)
	}
	return erc20ABI.Methods["allowance"].Outputs.Pack(v)
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if len(f.sent) == 0 {
		return nil, errors.New("not found")
	}
	return &types.Receipt{Status: f.status}, nil
}

func newTestApprovals(t *testing.T, fc *fakeChain, owner string) *Approvals {
	t.Helper()
	a, err := newApprovals(fc, testKey, owner, decimal.NewFromInt(1000))
	require.NoError(t, err)
	a.poll = time.Millisecond
	return a
}

func TestApprovals_Missing(t *testing.T) {
	fc := &fakeChain{allowances: map[common.Address]*big.Int{
		common.HexToAddress(normalExchange): big.NewInt(5_000_000_000), // 5000 USDC
	}}
	a := newTestApprovals(t, fc, "")

	missing, err := a.Missing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress(negRiskExchange)}, missing)
}

func TestApprovals_EnsureSendsApprove(t *testing.T) {
	fc := &fakeChain{status: types.ReceiptStatusSuccessful}
	a := newTestApprovals(t, fc, "")

	require.NoError(t, a.Ensure(context.Background()))
	require.Len(t, fc.sent, 2)
	assert.Equal(t, common.HexToAddress(usdcEAddress), *fc.sent[0].To())
	assert.Equal(t, uint64(1), fc.sent[1].Nonce())
	// 30 gwei + 10%
	assert.Equal(t, big.NewInt(33_000_000_000), fc.sent[0].GasPrice())
}

func TestApprovals_EnsureReverted(t *testing.T) {
	fc := &fakeChain{status: types.ReceiptStatusFailed}
	a := newTestApprovals(t, fc, "")

	err := a.Ensure(context.Background())
	assert.ErrorContains(t, err, "reverted")
}

func TestApprovals_ProxyCannotApprove(t *testing.T) {
	fc := &fakeChain{}
	a := newTestApprovals(t, fc, "0x1111111111111111111111111111111111111111")

	err := a.Ensure(context.Background())
	assert.ErrorContains(t, err, "proxy")
	assert.Empty(t, fc.sent)
}

func TestApprovals_NothingMissing(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	fc := &fakeChain{allowances: map[common.Address]*big.Int{
		common.HexToAddress(normalExchange):  huge,
		common.HexToAddress(negRiskExchange): huge,
	}}
	a := newTestApprovals(t, fc, "")

	require.NoError(t, a.Ensure(context.Background()))
	assert.Empty(t, fc.sent)
}
