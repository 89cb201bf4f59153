package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/orderbook/internal/config"
	"github.com/efreitasn/orderbook/internal/engine"
	"github.com/efreitasn/orderbook/internal/replay"
	"github.com/efreitasn/orderbook/internal/service"
	"github.com/efreitasn/orderbook/internal/store"
)

type runResult struct {
	stats replay.Stats
	err   error
}

func main() {
	os.Exit(run())
}

// run wires the process and returns its exit code.
func run() int {
	inputPath := flag.String("input", "", "JSON-lines command file (default stdin)")
	envFile := flag.String("env-file", ".env", "Optional env file loaded before configuration")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		return 1
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	// Set up slog logger with configured level. Results go to stdout, so
	// logs go to stderr.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	var input io.Reader = os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			logger.Error("failed to open input", slog.String("path", *inputPath), slog.String("error", err.Error()))
			return 1
		}
		defer f.Close()
		input = f
	}

	// Stores and books.
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	books := engine.NewBookManager()

	// Services.
	orderSvc := service.NewOrderService(books, orderStore, tradeStore, logger)
	marketSvc := service.NewMarketService(tradeStore, books, cfg.VWAPWindow)

	driver := replay.NewDriver(orderSvc, marketSvc, logger, replay.Options{
		PriceScale:    cfg.PriceScale,
		DefaultSymbol: cfg.DefaultSymbol,
		DepthLevels:   cfg.DepthLevels,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	done := make(chan runResult, 1)
	go func() {
		stats, err := driver.Run(ctx, input, out)
		done <- runResult{stats: stats, err: err}
	}()

	var res runResult
	select {
	case res = <-done:
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// The driver notices cancellation between commands; a read blocked
		// on stdin may never return.
		select {
		case res = <-done:
		case <-time.After(cfg.ShutdownTimeout):
			logger.Error("replay did not stop in time", slog.Duration("timeout", cfg.ShutdownTimeout))
			// Output is not flushed: the driver goroutine may still be
			// writing to it.
			return 1
		}
	}

	if err := out.Flush(); err != nil && res.err == nil {
		res.err = err
	}

	switch {
	case errors.Is(res.err, context.Canceled):
		logger.Info("replay interrupted", slog.Int("commands", res.stats.Commands))
		return 130
	case res.err != nil:
		logger.Error("replay failed", slog.String("error", res.err.Error()))
		return 1
	}
	return 0
}
