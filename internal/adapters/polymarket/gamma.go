package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

const gammaMarketsPath = "/markets"

// fetchMarketBySlug obtiene un mercado de Gamma por su slug exacto.
// Una lista vacía se devuelve como domain.ErrMarketNotFound.
func (c *Client) fetchMarketBySlug(ctx context.Context, slug string) (gammaMarket, error) {
	u := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaMarketsPath, url.QueryEscape(slug))

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, u, &resp, nil); err != nil {
		return gammaMarket{}, fmt.Errorf("gamma.fetchMarketBySlug %s: %w", slug, err)
	}
	for _, gm := range resp {
		if gm.Slug == "" || gm.Slug == slug {
			return gm, nil
		}
	}
	return gammaMarket{}, fmt.Errorf("gamma.fetchMarketBySlug %s: %w", slug, domain.ErrMarketNotFound)
}

// Oracle implementa ports.MarketOracle sobre Gamma. Es el único sitio que
// conoce el formato de los slugs Up/Down.
type Oracle struct {
	client   *Client
	prefixes map[domain.Asset]string
	suffix   string // "updown-15m"
}

// NewOracle crea el oráculo. prefixes mapea asset → prefijo de slug
// ("btc-updown-15m"); los assets sin prefijo usan "{asset}-updown-{n}m".
func NewOracle(client *Client, intervalMinutes int, prefixes map[domain.Asset]string) *Oracle {
	p := make(map[domain.Asset]string, len(prefixes))
	for a, v := range prefixes {
		p[a] = strings.TrimSuffix(v, "-")
	}
	return &Oracle{
		client:   client,
		prefixes: p,
		suffix:   fmt.Sprintf("updown-%dm", intervalMinutes),
	}
}

// Slug construye el slug del mercado de un asset en un bucket.
func (o *Oracle) Slug(asset domain.Asset, bucket domain.Bucket) string {
	prefix := o.prefixes[asset]
	if prefix == "" {
		prefix = asset.Lower() + "-" + o.suffix
	}
	return prefix + "-" + bucket.String()
}

// Outcome implementa ports.MarketOracle.
func (o *Oracle) Outcome(ctx context.Context, asset domain.Asset, bucket domain.Bucket) (domain.MarketOutcome, error) {
	slug := o.Slug(asset, bucket)
	gm, err := o.client.fetchMarketBySlug(ctx, slug)
	if err != nil {
		return domain.MarketOutcome{}, err
	}

	m, err := mapOutcome(asset, bucket, gm)
	if err != nil {
		return domain.MarketOutcome{}, fmt.Errorf("gamma.Outcome %s: %w", slug, err)
	}
	m.Slug = slug

	slog.Debug("gamma: outcome",
		"slug", slug,
		"up", m.Prices[0],
		"down", m.Prices[1],
		"uma", gm.UMAResolutionStatus,
	)
	return m, nil
}
