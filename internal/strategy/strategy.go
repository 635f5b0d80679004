package strategy

import "github.com/alejandrodnm/streakbot/internal/domain"

// Rule decide el lado a apostar a partir de los ganadores de los últimos
// buckets, ordenados del más reciente al más antiguo.
type Rule interface {
	// Name devuelve el identificador único de la regla (signal_mode en config).
	Name() string

	// Decide devuelve el lado a apostar, o ok=false si no hay señal.
	Decide(winners []domain.Side) (side domain.Side, ok bool)
}

// Registry mantiene las reglas disponibles indexadas por nombre.
type Registry map[string]Rule

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// DefaultRegistry registra las reglas de racha incluidas.
func DefaultRegistry() Registry {
	r := NewRegistry()
	r.Register(Reverse{})
	r.Register(Follow{})
	return r
}

// Register añade una regla al registry.
func (r Registry) Register(rule Rule) {
	r[rule.Name()] = rule
}

// Get devuelve la regla por nombre.
func (r Registry) Get(name string) (Rule, bool) {
	rule, ok := r[name]
	return rule, ok
}
