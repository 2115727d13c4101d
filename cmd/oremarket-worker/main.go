package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"oremarket/internal/catalog"
	"oremarket/internal/config"
	"oremarket/internal/db"
	"oremarket/internal/game"
	"oremarket/internal/notify"
	"oremarket/internal/random"
	"oremarket/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		st = store.NewPostgres(pool)
	} else {
		st, err = store.OpenSQLite(cfg.DBPath)
		if err != nil {
			logger.Error("sqlite open failed", "err", err, "path", cfg.DBPath)
			os.Exit(1)
		}
	}
	defer st.Close()

	file, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog load failed", "err", err)
		os.Exit(1)
	}
	ores, errs := catalog.Resolve(catalog.Defaults(), file.Ores)
	for _, e := range errs {
		logger.Warn("catalog entry skipped", "err", e)
	}

	svc := game.NewService(st, notify.NewWebhook(logger, nil), logger, game.Options{
		Rand:       random.NewRand(),
		Curve:      game.XPCurve(cfg.XPCurve),
		Ores:       ores,
		Server:     file.Server,
		PlayerName: cfg.PlayerName,
		TickMs:     cfg.TickEvery.Milliseconds(),
		Rarity:     cfg.Rarity,
	}, game.ServiceConfig{
		FrameEvery:     cfg.FrameEvery,
		AutoOrderEvery: cfg.AutoOrderEvery,
		AutosaveEvery:  cfg.AutosaveEvery,
	})
	if err := svc.Load(ctx); err != nil {
		logger.Error("game load failed", "err", err)
		os.Exit(1)
	}

	if cfg.WorkerRunOnce {
		if _, err := svc.Tick(ctx); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		svc.Wait()
		logger.Info("worker run-once completed")
		return
	}

	logger.Info("worker started", "tick_every", cfg.TickEvery.String(), "rarity", cfg.Rarity)
	_ = svc.Run(ctx)
	logger.Info("worker shutdown")
}
