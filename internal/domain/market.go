package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset identifica el subyacente de un mercado Up/Down (BTC, ETH, ...).
// Todo el estado del bot está particionado por asset.
type Asset string

// Lower devuelve el asset en minúsculas, tal como aparece en los slugs.
func (a Asset) Lower() string {
	return strings.ToLower(string(a))
}

// Side es el lado de un mercado binario Up/Down.
type Side string

const (
	SideUp   Side = "Up"
	SideDown Side = "Down"
)

// Opposite devuelve el lado contrario.
func (s Side) Opposite() Side {
	if s == SideUp {
		return SideDown
	}
	return SideUp
}

// Index devuelve la posición del lado en outcomePrices / clobTokenIds.
func (s Side) Index() int {
	if s == SideDown {
		return 1
	}
	return 0
}

// Valid devuelve true si el lado es Up o Down.
func (s Side) Valid() bool {
	return s == SideUp || s == SideDown
}

// ParseSide acepta "Up"/"Down" en cualquier capitalización.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "up":
		return SideUp, nil
	case "down":
		return SideDown, nil
	}
	return "", fmt.Errorf("domain.ParseSide: unknown side %q", v)
}

// Bucket es el inicio de un intervalo de mercado en segundos epoch.
// Es la clave de mercado: slug = "{asset}-updown-{n}m-{bucket}".
type Bucket int64

// Start devuelve el instante de inicio del bucket en UTC.
func (b Bucket) Start() time.Time {
	return time.Unix(int64(b), 0).UTC()
}

func (b Bucket) String() string {
	return strconv.FormatInt(int64(b), 10)
}

// MarketOutcome es la vista del oráculo sobre un mercado de un bucket concreto.
// Prices y TokenIDs están indexados por Side.Index() (0 = Up, 1 = Down).
type MarketOutcome struct {
	Asset    Asset
	Bucket   Bucket
	Slug     string
	Prices   [2]decimal.Decimal
	TokenIDs [2]string
	// Closed es true cuando la fuente confirma la resolución
	// (umaResolutionStatus resolved/confirmed).
	Closed bool
}

// Resolved devuelve true si algún precio alcanzó threshold o la fuente
// marcó el mercado como resuelto.
func (m MarketOutcome) Resolved(threshold decimal.Decimal) bool {
	if m.Closed {
		return true
	}
	return m.Prices[0].GreaterThanOrEqual(threshold) || m.Prices[1].GreaterThanOrEqual(threshold)
}

// Winner devuelve el lado ganador. ok es false mientras el mercado no está
// resuelto o cuando un mercado cerrado quedó empatado.
func (m MarketOutcome) Winner(threshold decimal.Decimal) (side Side, ok bool) {
	up, down := m.Prices[0], m.Prices[1]
	switch {
	case up.GreaterThanOrEqual(threshold):
		return SideUp, true
	case down.GreaterThanOrEqual(threshold):
		return SideDown, true
	case !m.Closed:
		return "", false
	case up.GreaterThan(down):
		return SideUp, true
	case down.GreaterThan(up):
		return SideDown, true
	}
	return "", false
}

// TokenAndPrice devuelve el token y la cotización actual del lado pedido.
// ok es false si el mercado no publica token para ese lado.
func (m MarketOutcome) TokenAndPrice(side Side) (tokenID string, price decimal.Decimal, ok bool) {
	i := side.Index()
	if m.TokenIDs[i] == "" {
		return "", decimal.Zero, false
	}
	return m.TokenIDs[i], m.Prices[i], true
}
