package domain

// SkipReason explains why no bet was opened for an asset on a decision tick.
type SkipReason string

const (
	SkipOpenBet          SkipReason = "open_bet"           // ya hay una apuesta abierta
	SkipNoSignal         SkipReason = "no_signal"          // sin racha ni martingala activa
	SkipMarketNotFound   SkipReason = "market_not_found"   // el bucket actual aún no existe
	SkipMarketResolved   SkipReason = "market_resolved"    // el bucket actual ya está decidido
	SkipMarketError      SkipReason = "market_error"       // fallo del oráculo
	SkipNoToken          SkipReason = "no_token"           // el mercado no publica token para el lado
	SkipPriceTooHigh     SkipReason = "price_too_high"     // multiplicador por debajo del mínimo
	SkipBalanceError     SkipReason = "balance_error"      // no se pudo leer el saldo
	SkipInsufficientFund SkipReason = "insufficient_funds" // saldo < stake
	SkipSubmitFailed     SkipReason = "submit_failed"      // el gateway rechazó la orden
)
