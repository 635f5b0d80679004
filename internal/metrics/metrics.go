// Package metrics cuenta lo que hace cada ejecución del bot y lo vuelca a un
// textfile de Prometheus (node_exporter --collector.textfile).
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// Recorder agrupa los contadores y gauges del bot en un registry propio.
type Recorder struct {
	reg *prometheus.Registry

	betsOpened  *prometheus.CounterVec
	betsSettled *prometheus.CounterVec
	skips       *prometheus.CounterVec
	totalProfit prometheus.Gauge
	ladderStake *prometheus.GaugeVec
	lastRun     prometheus.Gauge
}

// New crea un Recorder con su propio registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		betsOpened: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakbot_bets_opened_total",
				Help: "Bets submitted to the exchange",
			},
			[]string{"asset"},
		),
		betsSettled: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakbot_bets_settled_total",
				Help: "Bets settled, by result",
			},
			[]string{"asset", "result"},
		),
		skips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakbot_skips_total",
				Help: "Decision ticks that did not open a bet, by reason",
			},
			[]string{"asset", "reason"},
		),
		totalProfit: f.NewGauge(prometheus.GaugeOpts{
			Name: "streakbot_total_profit_usdc",
			Help: "Cumulative realized profit",
		}),
		ladderStake: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "streakbot_ladder_next_stake_usdc",
				Help: "Next martingale stake of the active ladder",
			},
			[]string{"asset"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "streakbot_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
}

// Registry expone el registry (tests, handler HTTP).
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) BetOpened(asset domain.Asset) {
	r.betsOpened.WithLabelValues(string(asset)).Inc()
}

func (r *Recorder) BetSettled(asset domain.Asset, result domain.BetResult) {
	r.betsSettled.WithLabelValues(string(asset), string(result)).Inc()
}

func (r *Recorder) Skipped(asset domain.Asset, reason domain.SkipReason) {
	r.skips.WithLabelValues(string(asset), string(reason)).Inc()
}

// ObserveState actualiza los gauges a partir del estado persistido.
// Los assets sin martingala activa desaparecen de la serie.
func (r *Recorder) ObserveState(st *domain.State, now time.Time) {
	r.totalProfit.Set(st.Statistics.TotalProfit.InexactFloat64())
	r.ladderStake.Reset()
	for asset, l := range st.Martingale {
		r.ladderStake.WithLabelValues(string(asset)).Set(l.NextStake.InexactFloat64())
	}
	r.lastRun.Set(float64(now.Unix()))
}

// WriteTextfile vuelca el registry al fichero (escritura atómica de la librería).
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics.WriteTextfile: %w", err)
	}
	return nil
}
