package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/alejandrodnm/streakbot/internal/ports"
)

// Multi reenvía cada mensaje a todos los notificadores.
// Un fallo en uno no impide entregar al resto.
type Multi []ports.Notifier

// Notify implementa ports.Notifier. Devuelve los errores unidos.
func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify.Multi: %w", errors.Join(errs...))
	}
	return nil
}
