package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pepperwatch/internal/config"
	"pepperwatch/internal/fetcher"
	"pepperwatch/internal/monitor"
	"pepperwatch/internal/notifier"
	"pepperwatch/internal/proxy"
	"pepperwatch/internal/scraper"
	"pepperwatch/internal/server"
	"pepperwatch/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		slog.Error("Critical error initializing storage", "error", err)
		os.Exit(1)
	}

	rotator, err := proxy.New(cfg.ProxyFile, cfg.UseProxies, cfg.ProxyRotationInterval)
	if err != nil {
		slog.Error("Critical error loading proxy pool", "error", err)
		os.Exit(1)
	}

	f := fetcher.New(cfg, rotator)
	sc := scraper.New(f, scraper.LoadConfig(), cfg.BaseURL)
	n := notifier.New(cfg.Webhooks)
	manager := monitor.New(store, sc, n, cfg.RefreshInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		slog.Error("Critical error starting monitors", "error", err)
		os.Exit(1)
	}

	admin := server.New(manager)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      admin.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Admin API listening", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}

	manager.Wait()
	slog.Info("All monitors stopped.")
}
