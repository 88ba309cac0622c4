package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecomstack/ecomdash-sync/internal/browser"
	"github.com/ecomstack/ecomdash-sync/internal/colsync"
	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/ecomdash"
	"github.com/ecomstack/ecomdash-sync/internal/normalize"
	"github.com/ecomstack/ecomdash-sync/internal/pipeline"
	"github.com/ecomstack/ecomdash-sync/internal/report"
	"github.com/ecomstack/ecomdash-sync/internal/runlock"
	"github.com/ecomstack/ecomdash-sync/internal/server"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	credentials, err := cfg.Sheets.Credentials()
	if err != nil {
		logger.Error("failed to decode sheets credentials", "error", err)
		os.Exit(1)
	}
	gateway, err := sheets.NewClient(ctx, credentials)
	if err != nil {
		logger.Error("failed to create sheets client", "error", err)
		os.Exit(1)
	}

	browserOpts := &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	}

	sessions := ecomdash.NewSessionFactory(cfg.Ecomdash, browserOpts)
	p := pipeline.New(sessions, gateway, cfg.Sheets, cfg.Pipeline)
	if cfg.Pipeline.DateMode == "serial" {
		p.SetDateMode(normalize.DateSerial)
	}

	exporter := report.NewExporter(
		report.NewGenerator(cfg.Ecomdash, browserOpts),
		report.NewDownloader(),
		gateway,
		cfg.Sheets,
	)
	syncer := colsync.New(gateway, cfg.Sheets, cfg.ColSync)

	handlers := server.NewHandlers(p, exporter, syncer, runlock.FromConfig(cfg.Redis), gateway, cfg.Sheets)
	router := server.NewRouter(handlers)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
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
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
