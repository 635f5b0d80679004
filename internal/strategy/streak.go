package strategy

import "github.com/alejandrodnm/streakbot/internal/domain"

const (
	ReverseName = "reverse"
	FollowName  = "follow"
)

// Reverse apuesta contra la racha: dos Up seguidos → Down.
type Reverse struct{}

func (Reverse) Name() string { return ReverseName }

func (Reverse) Decide(winners []domain.Side) (domain.Side, bool) {
	side, ok := streak(winners)
	if !ok {
		return "", false
	}
	return side.Opposite(), true
}

// Follow apuesta a favor de la racha.
type Follow struct{}

func (Follow) Name() string { return FollowName }

func (Follow) Decide(winners []domain.Side) (domain.Side, bool) {
	return streak(winners)
}

// streak devuelve el lado común si todos los ganadores coinciden.
func streak(winners []domain.Side) (domain.Side, bool) {
	if len(winners) == 0 {
		return "", false
	}
	first := winners[0]
	if !first.Valid() {
		return "", false
	}
	for _, w := range winners[1:] {
		if w != first {
			return "", false
		}
	}
	return first, true
}
