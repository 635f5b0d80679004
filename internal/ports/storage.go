package ports

import (
	"context"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// StateStore persiste el snapshot completo del bot entre invocaciones.
type StateStore interface {
	// Load devuelve el estado guardado, o un estado vacío si no hay ninguno.
	Load(ctx context.Context) (*domain.State, error)

	// Save reemplaza el estado guardado de forma atómica.
	Save(ctx context.Context, st *domain.State) error

	// Close libera la conexión o el fichero.
	Close() error
}

// BetJournal es el registro append-only de apuestas abiertas y liquidadas.
// No participa en las decisiones; el estado autoritativo es el StateStore.
type BetJournal interface {
	RecordOpened(ctx context.Context, bet domain.PendingBet) error
	RecordSettled(ctx context.Context, s domain.Settlement) error
}

// NoopJournal descarta todo.
type NoopJournal struct{}

func (NoopJournal) RecordOpened(context.Context, domain.PendingBet) error  { return nil }
func (NoopJournal) RecordSettled(context.Context, domain.Settlement) error { return nil }
