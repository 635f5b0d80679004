package polymarket

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// umaResolvedStatuses marcan un mercado como resuelto aunque los precios
// no hayan llegado al umbral.
var umaResolvedStatuses = map[string]bool{
	"resolved":  true,
	"confirmed": true,
}

// mapOutcome convierte un gammaMarket DTO a domain.MarketOutcome.
// Sin precios parseables devuelve domain.ErrMalformedPayload: no se inventa 0.5.
func mapOutcome(asset domain.Asset, bucket domain.Bucket, gm gammaMarket) (domain.MarketOutcome, error) {
	if len(gm.OutcomePrices) < 2 {
		return domain.MarketOutcome{}, fmt.Errorf("outcomePrices %v: %w", []string(gm.OutcomePrices), domain.ErrMalformedPayload)
	}

	upIdx, downIdx := outcomeIndexes(gm.Outcomes)

	m := domain.MarketOutcome{
		Asset:  asset,
		Bucket: bucket,
		Slug:   gm.Slug,
		Closed: umaResolvedStatuses[strings.ToLower(gm.UMAResolutionStatus)],
	}

	for side, idx := range [2]int{upIdx, downIdx} {
		p, err := decimal.NewFromString(strings.TrimSpace(gm.OutcomePrices[idx]))
		if err != nil {
			return domain.MarketOutcome{}, fmt.Errorf("price %q: %w: %w", gm.OutcomePrices[idx], domain.ErrMalformedPayload, err)
		}
		if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(1)) {
			return domain.MarketOutcome{}, fmt.Errorf("price %s out of range: %w", p, domain.ErrMalformedPayload)
		}
		m.Prices[side] = p
		if idx < len(gm.ClobTokenIDs) {
			m.TokenIDs[side] = gm.ClobTokenIDs[idx]
		}
	}

	return m, nil
}

// outcomeIndexes localiza Up/Down en outcomes. Sin etiquetas reconocibles
// asume el orden canónico [Up, Down].
func outcomeIndexes(outcomes []string) (up, down int) {
	up, down = 0, 1
	if len(outcomes) < 2 {
		return up, down
	}
	foundUp, foundDown := -1, -1
	for i, o := range outcomes[:2] {
		switch strings.ToLower(strings.TrimSpace(o)) {
		case "up", "yes":
			foundUp = i
		case "down", "no":
			foundDown = i
		}
	}
	if foundUp >= 0 && foundDown >= 0 {
		return foundUp, foundDown
	}
	return up, down
}
