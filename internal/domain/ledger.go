package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry es una apuesta liquidada dentro del ledger.
type HistoryEntry struct {
	At     time.Time       `json:"at"`
	Asset  Asset           `json:"asset"`
	Bucket Bucket          `json:"bucket,omitempty"`
	Side   Side            `json:"side"`
	Result BetResult       `json:"result"`
	Stake  decimal.Decimal `json:"stake"`
	Profit decimal.Decimal `json:"profit"`
}

// Ledger acumula los resultados de todas las apuestas liquidadas.
// History está acotado; los contadores no.
type Ledger struct {
	TotalProfit       decimal.Decimal      `json:"total_profit"`
	TotalBets         int                  `json:"total_bets"`
	Wins              int                  `json:"wins"`
	Losses            int                  `json:"losses"`
	History           []HistoryEntry       `json:"history"`
	MaxLossStreak     int                  `json:"max_loss_streak"`
	CurrentLossStreak int                  `json:"current_loss_streak"`
	LastReports       map[string]time.Time `json:"last_reports"`
}

// WinRate devuelve wins/bets en [0,1]; 0 si no hay apuestas.
func (l Ledger) WinRate() float64 {
	if l.TotalBets == 0 {
		return 0
	}
	return float64(l.Wins) / float64(l.TotalBets)
}

// WindowReport resume las apuestas liquidadas dentro de una ventana de tiempo.
type WindowReport struct {
	Window        time.Duration
	From          time.Time
	To            time.Time
	Profit        decimal.Decimal
	Bets          int
	Wins          int
	Losses        int
	WinRate       float64 // fracción en [0,1]
	MaxLossStreak int
}

// WindowKey es la clave estable de una ventana de reporte ("6h", "24h", "90m").
func WindowKey(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	}
	return d.String()
}
