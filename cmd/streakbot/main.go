package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/streakbot/config"
	"github.com/alejandrodnm/streakbot/internal/application/engine/lifecycle"
	"github.com/alejandrodnm/streakbot/internal/metrics"
	"github.com/alejandrodnm/streakbot/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "paper mode: never sign or submit orders (overrides config)")
	loop := flag.Bool("loop", false, "keep running on the loop.schedule cron instead of exiting")
	report := flag.Bool("report", false, "print windows, open bets and ladders and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *dryRun {
		cfg.Bot.DryRun = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("streakbot starting",
		"config", *configPath,
		"assets", cfg.Assets(),
		"interval_minutes", cfg.Bot.IntervalMinutes,
		"mode", cfg.Strategy.SignalMode,
		"dry_run", cfg.Bot.DryRun,
		"loop", *loop,
		"backend", cfg.Storage.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer st.Close()

	if *report {
		if err := runReport(ctx, cfg, st); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	rec := metrics.New()
	eng, err := buildEngine(ctx, cfg, st, rec)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	run := func(ctx context.Context) error {
		res, err := eng.RunOnce(ctx)
		if cfg.Metrics.TextfilePath != "" {
			if werr := rec.WriteTextfile(cfg.Metrics.TextfilePath); werr != nil {
				slog.Warn("failed to write metrics textfile", "err", werr, "path", cfg.Metrics.TextfilePath)
			}
		}
		if err != nil {
			return err
		}
		logCycle(res)
		return nil
	}

	if !*loop {
		if err := run(ctx); err != nil {
			slog.Error("run failed", "err", err)
			os.Exit(1)
		}
		slog.Info("streakbot finished")
		return
	}

	sched := scheduler.New(ctx, slog.Default())
	if err := sched.Register("cycle", cfg.Loop.Schedule, run); err != nil {
		slog.Error("invalid loop schedule", "err", err, "schedule", cfg.Loop.Schedule)
		os.Exit(1)
	}
	sched.Start()
	slog.Info("loop started", "schedule", cfg.Loop.Schedule)

	<-ctx.Done()
	sched.Stop()
	slog.Info("streakbot stopped cleanly")
}

func logCycle(res *lifecycle.CycleResult) {
	slog.Info("cycle complete",
		"decision_tick", res.DecisionTick,
		"settled", len(res.Settled),
		"deferred", len(res.Deferred),
		"opened", len(res.Opened),
		"skipped", len(res.Skipped),
		"reports", len(res.Reports),
	)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
