package polymarket

// auth.go: autenticación contra el CLOB.
//
//   L1: firma EIP-712 (ClobAuth) con la clave de la wallet → credenciales API
//   L2: HMAC-SHA256 de cada request autenticada con el secret derivado
//
// El bot solo necesita L2 para POST /order, que nunca se reintenta.

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/config"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

const (
	polygonChainID = int64(137)

	clobAuthMessage = "This message attests that I control the given wallet"

	// taker cero = orden pública
	zeroAddress = "0x0000000000000000000000000000000000000000"
)

var (
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
	clobAuthDomain = crypto.Keccak256Hash(
		crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId)")),
		crypto.Keccak256([]byte("ClobAuthDomain")),
		crypto.Keccak256([]byte("1")),
		common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32),
	)
)

type apiCredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// AuthClient añade al Client la identidad de la wallet y las credenciales L2.
type AuthClient struct {
	*Client
	privateKey    *ecdsa.PrivateKey
	address       common.Address // signer (EOA)
	funder        common.Address // maker: la EOA o el proxy con el colateral
	signatureType int
	orderBuilder  builder.ExchangeOrderBuilder
	creds         *apiCredentials
}

// NewAuthClient crea el cliente autenticado. privateKeyHex admite prefijo 0x.
// funder es el proxy que guarda el colateral con signatureType 1 (POLY_PROXY)
// o 2 (GNOSIS_SAFE); vacío = la propia EOA.
func NewAuthClient(base *Client, privateKeyHex string, signatureType int, funder string) (*AuthClient, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("polymarket.NewAuthClient: invalid private key: %w", err)
	}
	if signatureType < 0 || signatureType > 2 {
		return nil, fmt.Errorf("polymarket.NewAuthClient: unknown signature type %d", signatureType)
	}
	if _, err := config.GetContracts(polygonChainID); err != nil {
		return nil, fmt.Errorf("polymarket.NewAuthClient: contracts: %w", err)
	}

	signer := crypto.PubkeyToAddress(key.PublicKey)
	maker := signer
	if funder != "" {
		if !common.IsHexAddress(funder) {
			return nil, fmt.Errorf("polymarket.NewAuthClient: invalid funder address %q", funder)
		}
		maker = common.HexToAddress(funder)
	}

	return &AuthClient{
		Client:        base,
		privateKey:    key,
		address:       signer,
		funder:        maker,
		signatureType: signatureType,
		orderBuilder:  builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
	}, nil
}

// Address devuelve la dirección que firma.
func (ac *AuthClient) Address() string {
	return ac.address.Hex()
}

// Funder devuelve la dirección que tiene el colateral.
func (ac *AuthClient) Funder() common.Address {
	return ac.funder
}

// EnsureCreds deriva las credenciales API la primera vez y las cachea.
func (ac *AuthClient) EnsureCreds(ctx context.Context) error {
	if ac.creds != nil {
		return nil
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := signClobAuth(ac.privateKey, ac.address, ts, 0)
	if err != nil {
		return fmt.Errorf("polymarket.EnsureCreds: sign: %w", err)
	}

	var creds apiCredentials
	err = ac.get(ctx, ac.clobLimiter, ac.clobBase+"/auth/derive-api-key", &creds, http.Header{
		"POLY_ADDRESS":   {ac.address.Hex()},
		"POLY_SIGNATURE": {sig},
		"POLY_TIMESTAMP": {ts},
		"POLY_NONCE":     {"0"},
	})
	if err != nil {
		return fmt.Errorf("polymarket.EnsureCreds: %w", err)
	}
	if creds.APIKey == "" || creds.Secret == "" {
		return fmt.Errorf("polymarket.EnsureCreds: empty credentials: %w", domain.ErrMalformedPayload)
	}
	ac.creds = &creds
	return nil
}

// clobAuthDigest es el hash EIP-712 del mensaje ClobAuth.
func clobAuthDigest(addr common.Address, timestamp string, nonce int64) common.Hash {
	structHash := crypto.Keccak256Hash(
		clobAuthTypeHash.Bytes(),
		common.LeftPadBytes(addr.Bytes(), 32),
		crypto.Keccak256([]byte(timestamp)),
		common.LeftPadBytes(big.NewInt(nonce).Bytes(), 32),
		crypto.Keccak256([]byte(clobAuthMessage)),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, clobAuthDomain.Bytes(), structHash.Bytes())
}

// signClobAuth firma el digest ClobAuth; v en formato 27/28.
func signClobAuth(key *ecdsa.PrivateKey, addr common.Address, timestamp string, nonce int64) (string, error) {
	sig, err := crypto.Sign(clobAuthDigest(addr, timestamp, nonce).Bytes(), key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return fmt.Sprintf("0x%x", sig), nil
}

// l2Headers firma method+path+body con el secret de las credenciales.
func (ac *AuthClient) l2Headers(method, path string, body []byte) (http.Header, error) {
	if ac.creds == nil {
		return nil, errors.New("credentials not derived yet")
	}
	secret, err := base64.URLEncoding.DecodeString(ac.creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts + strings.ToUpper(method) + path))
	mac.Write(body)

	h := http.Header{}
	h.Set("POLY_ADDRESS", ac.address.Hex())
	h.Set("POLY_SIGNATURE", base64.URLEncoding.EncodeToString(mac.Sum(nil)))
	h.Set("POLY_TIMESTAMP", ts)
	h.Set("POLY_API_KEY", ac.creds.APIKey)
	h.Set("POLY_PASSPHRASE", ac.creds.Passphrase)
	return h, nil
}

// postL2 hace un único POST autenticado. Sin reintentos: repetir un
// POST /order podría abrir la apuesta dos veces.
// 429/5xx y fallos de red → ErrUnavailable; resto de 4xx → ErrOrderRejected.
func (ac *AuthClient) postL2(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := ac.clobLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w: %w", domain.ErrUnavailable, err)
	}

	headers, err := ac.l2Headers(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.clobBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header = headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := ac.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("server error %d: %s: %w", resp.StatusCode, respBody, domain.ErrUnavailable)
	case resp.StatusCode >= 400:
		return fmt.Errorf("client error %d: %s: %w", resp.StatusCode, respBody, domain.ErrOrderRejected)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrMalformedPayload, err)
	}
	return nil
}

// buyAmounts calcula maker (USDC) y taker (shares) en unidades de 6 decimales.
// El CLOB exige makerAmount == price * takerAmount exacto, así que todo va en enteros
// con las shares truncadas a centésimas.
func buyAmounts(price, stake decimal.Decimal) (maker, taker int64, err error) {
	if !price.IsPositive() || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0, 0, fmt.Errorf("invalid price %s", price)
	}
	precision := detectPricePrecision(price)
	priceTicks := price.Mul(decimal.NewFromInt(precision)).Round(0).IntPart()
	sharesCents := stake.Div(price).Mul(decimal.NewFromInt(100)).Floor().IntPart()

	maker = sharesCents * priceTicks * (1_000_000 / (100 * precision))
	taker = sharesCents * 10_000
	if maker <= 0 || taker <= 0 {
		return 0, 0, fmt.Errorf("stake %s too small at price %s", stake, price)
	}
	return maker, taker, nil
}

// buildSignedOrder firma una BUY que gasta `stake` USDC a `price`.
func (ac *AuthClient) buildSignedOrder(tokenID string, price, stake decimal.Decimal, negRisk bool) (*gomodel.SignedOrder, error) {
	maker, taker, err := buyAmounts(price, stake)
	if err != nil {
		return nil, err
	}

	exchange := gomodel.CTFExchange
	if negRisk {
		exchange = gomodel.NegRiskCTFExchange
	}

	signed, err := ac.orderBuilder.BuildSignedOrder(ac.privateKey, &gomodel.OrderData{
		Maker:         ac.funder.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   strconv.FormatInt(maker, 10),
		TakerAmount:   strconv.FormatInt(taker, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        ac.address.Hex(),
		Expiration:    "0",
		Side:          gomodel.BUY,
		SignatureType: gomodel.SignatureType(ac.signatureType),
	}, exchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}

// detectPricePrecision devuelve el multiplicador del tick del precio:
// 0.60 → 100 (tick 0.01), 0.673 → 1000 (tick 0.001).
func detectPricePrecision(price decimal.Decimal) int64 {
	for _, prec := range []int64{100, 1000, 10000} {
		scaled := price.Mul(decimal.NewFromInt(prec))
		if scaled.Equal(scaled.Truncate(0)) {
			return prec
		}
	}
	return 100
}
