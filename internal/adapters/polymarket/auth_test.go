package polymarket

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignClobAuth_RecoversSigner(t *testing.T) {
	ac := newTestAuth(t, "")

	sig, err := signClobAuth(ac.privateKey, ac.address, "1709287200", 0)
	require.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	require.Len(t, raw, 65)
	assert.Contains(t, []byte{27, 28}, raw[64])

	raw[64] -= 27
	pub, err := crypto.SigToPub(clobAuthDigest(ac.address, "1709287200", 0).Bytes(), raw)
	require.NoError(t, err)
	assert.Equal(t, ac.address, crypto.PubkeyToAddress(*pub))
}

func TestClobAuthDigest_DependsOnTimestamp(t *testing.T) {
	ac := newTestAuth(t, "")
	assert.NotEqual(t,
		clobAuthDigest(ac.address, "1", 0),
		clobAuthDigest(ac.address, "2", 0),
	)
}

func TestBuyAmounts(t *testing.T) {
	tests := []struct {
		name         string
		price, stake string
		maker, taker int64
		wantErr      bool
	}{
		{name: "two decimals", price: "0.51", stake: "2", maker: 1_999_200, taker: 3_920_000},
		{name: "three decimals", price: "0.585", stake: "4", maker: 3_995_550, taker: 6_830_000},
		{name: "dust", price: "0.99", stake: "0.001", wantErr: true},
		{name: "price one", price: "1", stake: "2", wantErr: true},
		{name: "zero price", price: "0", stake: "2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maker, taker, err := buyAmounts(decimal.RequireFromString(tt.price), decimal.RequireFromString(tt.stake))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.maker, maker)
			assert.Equal(t, tt.taker, taker)
		})
	}
}
