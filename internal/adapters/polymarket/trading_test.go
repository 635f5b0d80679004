package polymarket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// Clave de la cuenta #0 de hardhat: pública, sin fondos reales.
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// Los token ids del CLOB son uint256 en decimal.
const testTokenID = "71321045679252212594626385532706912750332728571942532289631379312455583992563"

func newTestAuth(t *testing.T, clobURL string) *AuthClient {
	t.Helper()
	ac, err := NewAuthClient(NewClient(clobURL, "", 2*time.Second), testKey, 0, "")
	require.NoError(t, err)
	return ac
}

func TestDetectPricePrecision(t *testing.T) {
	assert.Equal(t, int64(100), detectPricePrecision(decimal.RequireFromString("0.51")))
	assert.Equal(t, int64(1000), detectPricePrecision(decimal.RequireFromString("0.673")))
	assert.Equal(t, int64(10000), detectPricePrecision(decimal.RequireFromString("0.5005")))
}

func TestBuildSignedOrder_ExactAmounts(t *testing.T) {
	ac := newTestAuth(t, "")

	signed, err := ac.buildSignedOrder("12345", decimal.RequireFromString("0.51"), decimal.NewFromInt(2), false)
	require.NoError(t, err)

	// 2 / 0.51 = 3.92 shares → 392 centésimas
	assert.Equal(t, "3920000", signed.Order.TakerAmount.String())
	assert.Equal(t, "1999200", signed.Order.MakerAmount.String())
	assert.Equal(t, ac.address, signed.Order.Signer)
	assert.Len(t, signed.Signature, 65)
}

func TestBuildSignedOrder_RejectsDust(t *testing.T) {
	ac := newTestAuth(t, "")
	_, err := ac.buildSignedOrder("12345", decimal.RequireFromString("0.99"), decimal.RequireFromString("0.001"), false)
	assert.Error(t, err)
}

func TestNewAuthClient_Validation(t *testing.T) {
	_, err := NewAuthClient(NewClient("", "", 0), "nothex", 0, "")
	assert.Error(t, err)

	_, err = NewAuthClient(NewClient("", "", 0), testKey, 7, "")
	assert.Error(t, err)

	ac, err := NewAuthClient(NewClient("", "", 0), testKey, 1, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", ac.Funder().Hex())
}

func TestSubmit_PostsSignedOrder(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/derive-api-key":
			assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
			json.NewEncoder(w).Encode(apiCredentials{
				APIKey:     "key",
				Secret:     base64.URLEncoding.EncodeToString([]byte("secret")),
				Passphrase: "pass",
			})
		case "/neg-risk":
			w.Write([]byte(`{"neg_risk": false}`))
		case "/order":
			posts++
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "key", r.Header.Get("POLY_API_KEY"))
			var body clobOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "GTC", body.OrderType)
			assert.Equal(t, "BUY", body.Order.Side)
			assert.Equal(t, testTokenID, body.Order.TokenID)
			assert.Equal(t, "1999200", body.Order.MakerAmount)
			assert.Equal(t, "3920000", body.Order.TakerAmount)
			w.Write([]byte(`{"success": true, "orderID": "0xorder", "status": "live", "makingAmount": "1999200", "takingAmount": "0"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	tc := &TradingClient{auth: newTestAuth(t, srv.URL)}
	placed, err := tc.Submit(context.Background(), domain.OrderRequest{
		Asset: "BTC", Side: domain.SideDown, TokenID: testTokenID,
		Price: decimal.RequireFromString("0.51"), Stake: decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xorder", placed.OrderID)
	assert.Equal(t, "1.9992", placed.MadeAmount.String())
	assert.Equal(t, 1, posts)
}

func TestSubmit_ServerErrorIsNotRetried(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/derive-api-key":
			json.NewEncoder(w).Encode(apiCredentials{APIKey: "k", Secret: base64.URLEncoding.EncodeToString([]byte("s")), Passphrase: "p"})
		case "/neg-risk":
			w.Write([]byte(`{"neg_risk": false}`))
		case "/order":
			posts++
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	tc := &TradingClient{auth: newTestAuth(t, srv.URL)}
	_, err := tc.Submit(context.Background(), domain.OrderRequest{
		TokenID: testTokenID, Price: decimal.RequireFromString("0.5"), Stake: decimal.NewFromInt(2),
	})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 1, posts)
}

func TestSubmit_ClobRejects(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/derive-api-key":
			json.NewEncoder(w).Encode(apiCredentials{APIKey: "k", Secret: base64.URLEncoding.EncodeToString([]byte("s")), Passphrase: "p"})
		case "/neg-risk":
			w.Write([]byte(`{"neg_risk": false}`))
		case "/order":
			posts++
			w.Write([]byte(`{"success": false, "errorMsg": "not enough balance / allowance"}`))
		}
	}))
	defer srv.Close()

	tc := &TradingClient{auth: newTestAuth(t, srv.URL)}
	_, err := tc.Submit(context.Background(), domain.OrderRequest{
		TokenID: testTokenID, Price: decimal.RequireFromString("0.5"), Stake: decimal.NewFromInt(2),
	})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.ErrorContains(t, err, "not enough balance")
	assert.Equal(t, 1, posts)
}

type fakeCaller struct {
	out []byte
	err error
}

func (f fakeCaller) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.out, f.err
}

func TestAvailableBalance(t *testing.T) {
	raw := math.U256Bytes(big.NewInt(123_450_000)) // 123.45 USDC
	tc := &TradingClient{auth: newTestAuth(t, ""), rpcClient: fakeCaller{out: raw}}

	bal, err := tc.AvailableBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123.45", bal.String())

	tc.rpcClient = fakeCaller{err: assert.AnError}
	_, err = tc.AvailableBalance(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
