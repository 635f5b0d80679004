package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// Sizer calcula el stake con una martingala x2 acotada.
type Sizer struct {
	Base decimal.Decimal
	Max  decimal.Decimal
}

// NewSizer valida 0 < base <= max.
func NewSizer(base, max decimal.Decimal) (Sizer, error) {
	if !base.IsPositive() {
		return Sizer{}, fmt.Errorf("strategy.NewSizer: base stake must be positive, got %s", base)
	}
	if base.GreaterThan(max) {
		return Sizer{}, fmt.Errorf("strategy.NewSizer: base stake %s exceeds max %s", base, max)
	}
	return Sizer{Base: base, Max: max}, nil
}

// StakeFor decide lado y stake. Una escalera activa manda sobre la señal.
func (s Sizer) StakeFor(signal domain.Side, hasSignal bool, ladder *domain.Ladder) (domain.Side, decimal.Decimal, bool) {
	if ladder != nil {
		return ladder.Side, decimal.Min(ladder.NextStake, s.Max), true
	}
	if !hasSignal {
		return "", decimal.Zero, false
	}
	return signal, decimal.Min(s.Base, s.Max), true
}

// OnLoss avanza la escalera tras perder `stake` apostando a `side`.
func (s Sizer) OnLoss(ladder *domain.Ladder, side domain.Side, stake decimal.Decimal) domain.Ladder {
	next := decimal.Min(stake.Mul(decimal.NewFromInt(2)), s.Max)
	if ladder == nil {
		return domain.Ladder{Side: side, NextStake: next, ConsecutiveLosses: 1}
	}
	return domain.Ladder{
		Side:              ladder.Side,
		NextStake:         next,
		ConsecutiveLosses: ladder.ConsecutiveLosses + 1,
	}
}
