package polymarket

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	gomodel "github.com/polymarket/go-order-utils/pkg/model"
)

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado Up/Down tal como lo devuelve Gamma.
// outcomes, outcomePrices y clobTokenIds llegan a veces como array JSON y a
// veces como string que contiene un array JSON.
type gammaMarket struct {
	ConditionID         string     `json:"conditionId"`
	Question            string     `json:"question"`
	Slug                string     `json:"slug"`
	EndDateISO          string     `json:"endDateIso"`
	Outcomes            stringList `json:"outcomes"`
	OutcomePrices       stringList `json:"outcomePrices"`
	ClobTokenIDs        stringList `json:"clobTokenIds"`
	UMAResolutionStatus string     `json:"umaResolutionStatus"`
	NegRisk             bool       `json:"negRisk"`
	Active              bool       `json:"active"`
	Closed              bool       `json:"closed"`
}

// stringList acepta ["a","b"], "[\"a\",\"b\"]", [0.5, 0.5] o null.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*l = nil
		return nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			*l = nil
			return nil
		}
		return l.UnmarshalJSON([]byte(inner))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("stringList: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(it, &n); err != nil {
			return fmt.Errorf("stringList: item %s: %w", it, err)
		}
		out = append(out, n.String())
	}
	*l = out
	return nil
}

// --- CLOB API ---

// clobOrderRequest es el body de POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

// newGTCBuy serializa una BUY firmada como orden GTC de `owner` (API key).
func newGTCBuy(signed *gomodel.SignedOrder, tokenID, owner string) clobOrderRequest {
	o := signed.Order
	return clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(o.Salt.String()),
			Maker:         o.Maker.Hex(),
			Signer:        o.Signer.Hex(),
			Taker:         o.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   o.MakerAmount.String(),
			TakerAmount:   o.TakerAmount.String(),
			Expiration:    o.Expiration.String(),
			Nonce:         o.Nonce.String(),
			FeeRateBps:    o.FeeRateBps.String(),
			Side:          "BUY",
			SignatureType: int(o.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     owner,
		OrderType: "GTC",
	}
}

type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}
