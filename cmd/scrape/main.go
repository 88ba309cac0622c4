// One-off CLI for the order scrape pipeline. Same wiring as the server's
// /run endpoint, driven by flags instead of HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecomstack/ecomdash-sync/internal/browser"
	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/ecomdash"
	"github.com/ecomstack/ecomdash-sync/internal/normalize"
	"github.com/ecomstack/ecomdash-sync/internal/pipeline"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

func main() {
	var (
		batchSize = flag.Int("batch-size", 0, "Override BATCH_SIZE for this run")
		dateMode  = flag.String("date-mode", "", "Order date output: string or serial (overrides ORDER_DATE_MODE)")
		headless  = flag.Bool("headless", true, "Run the browser headless")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *batchSize > 0 {
		cfg.Pipeline.BatchSize = *batchSize
	}
	if *dateMode != "" {
		cfg.Pipeline.DateMode = *dateMode
	}
	cfg.Browser.Headless = *headless && cfg.Browser.Headless

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

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

	sessions := ecomdash.NewSessionFactory(cfg.Ecomdash, &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	})

	p := pipeline.New(sessions, gateway, cfg.Sheets, cfg.Pipeline)
	if cfg.Pipeline.DateMode == "serial" {
		p.SetDateMode(normalize.DateSerial)
	}

	result, err := p.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))

	if !result.OK() {
		os.Exit(1)
	}
}
