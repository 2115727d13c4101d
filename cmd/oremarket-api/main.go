package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oremarket/internal/api"
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
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	file, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog load failed", "err", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	ores, errs := catalog.Resolve(catalog.Defaults(), file.Ores)
	for _, e := range errs {
		logger.Warn("catalog entry skipped", "err", e)
	}

	gameSvc := game.NewService(st, notify.NewWebhook(logger, nil), logger, game.Options{
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
	if err := gameSvc.Load(ctx); err != nil {
		logger.Error("game load failed", "err", err)
		os.Exit(1)
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = gameSvc.Run(ctx)
	}()

	server := api.New(logger, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
	}()

	logger.Info("oremarket api listening", "addr", cfg.Addr, "rarity", cfg.Rarity, "ores", len(ores))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		stop()
		<-shutdownDone
		<-loopDone
		os.Exit(1)
	}
	// Let in-flight requests and the final save finish before the store closes.
	<-shutdownDone
	<-loopDone
}

func openStore(ctx context.Context, cfg config.APIConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return store.OpenSQLite(cfg.DBPath)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store.NewPostgres(pool), nil
}
