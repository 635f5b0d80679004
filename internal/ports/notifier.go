package ports

import "context"

// Notifier entrega mensajes legibles al operador (Telegram, consola).
// Es best-effort: quien llama loguea el error y sigue.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
