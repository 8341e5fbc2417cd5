// Package main is the entry point for the icon-service HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/app"
	"github.com/fleveque/icon-service/internal/config"
	"github.com/fleveque/icon-service/internal/server"
)

func main() {
	// run holds the real work so its deferred cleanup (closing the database,
	// flushing the logger) executes before os.Exit, which skips defers.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("ICON_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync flushes buffered entries. Its error is ignored because it commonly
	// fails on stdout/stderr, which cannot be synced.
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(cfg, server.Deps{
		IconService: a.IconService,
		LookupRepo:  a.LookupRepo,
		LLMCallRepo: a.LLMCallRepo,
	}, logger)

	// Graceful shutdown: SIGINT (Ctrl+C) or SIGTERM (docker stop) ends the
	// select below, then in-flight lookups get a grace period to finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Buffered so the goroutine can exit even if nobody reads the error.
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
