package domain

import "errors"

// Errores tipados que cruzan los ports. Los adapters los envuelven con %w
// y el engine decide con errors.Is.
var (
	// ErrMarketNotFound: la fuente no conoce el slug (todavía).
	ErrMarketNotFound = errors.New("market not found")
	// ErrUnavailable: fallo transitorio de red o del servidor.
	ErrUnavailable = errors.New("data source unavailable")
	// ErrMalformedPayload: la respuesta no tiene precios/tokens parseables.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrOrderRejected: el exchange rechazó la orden.
	ErrOrderRejected = errors.New("order rejected")
	// ErrStateVersion: el documento de estado tiene una versión desconocida.
	ErrStateVersion = errors.New("unsupported state version")
)
