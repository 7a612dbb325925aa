// ABOUTME: Standalone OptiMedix MCP server over stdio
// ABOUTME: Loads config, ingests the corpus and serves the medical tools until stdin closes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/logging"
	"github.com/harper/optimedix/internal/mcp"
	"github.com/harper/optimedix/internal/models"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "optimedix-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; API keys may come from the environment
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing assistant: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("error closing assistant", zap.Error(err))
		}
	}()

	report, err := a.Ingest(ctx)
	switch {
	case err == nil:
		logger.Info("corpus ready",
			zap.Int("documents", report.Documents),
			zap.Int("unchanged", report.Skipped),
			zap.Int("removed", report.Removed))
	case models.IsIngestWarning(err):
		logger.Warn("corpus not ready", zap.Error(err))
	default:
		return fmt.Errorf("ingesting corpus: %w", err)
	}

	logger.Info("MCP server starting on stdio", zap.String("name", mcp.ServerName))
	return mcp.ServeStdio(ctx, a)
}
