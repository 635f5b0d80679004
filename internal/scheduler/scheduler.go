// Package scheduler ejecuta el ciclo del bot periódicamente en modo -loop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSpec ejecuta una vez por minuto, a los 5 segundos.
const DefaultSpec = "5 * * * * *"

// Job es una ejecución del bot. El error se loguea; el scheduler sigue.
type Job func(ctx context.Context) error

// Scheduler envuelve robfig/cron con spec de seis campos (con segundos).
// Un job que sigue corriendo cuando toca el siguiente tick se salta ese tick.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *slog.Logger
}

// New crea el scheduler. ctx se pasa a cada ejecución del job.
func New(ctx context.Context, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{l: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx: ctx,
		log: logger,
	}
}

// Register añade un job con el spec dado.
func (s *Scheduler) Register(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		if err := job(s.ctx); err != nil {
			s.log.Error("scheduler: job failed", "job", name, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler.Register %s %q: %w", name, spec, err)
	}
	s.log.Info("scheduler: job registered", "job", name, "spec", spec)
	return nil
}

// Start arranca el cron en background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler: started")
}

// Stop para el cron y espera a que termine el job en curso.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler: stopped")
}

// cronLogger adapta slog a cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
