// ABOUTME: Builds the App behind every command that talks to the corpus
// ABOUTME: Config and logger come from the global flags
package commands

import (
	"context"
	"fmt"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// openApp builds the App for a command and returns the func that releases it; tests replace it
var openApp = func(ctx context.Context, cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing assistant: %w", err)
	}
	return a, func() { closeApp(a) }, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:  logging.LevelFromFlags(cfg.Log.Level, verbose, quiet),
		Format: cfg.Log.Format,
	})
}

func closeApp(a *app.App) {
	_ = a.Logger.Sync()
	if err := a.Close(); err != nil {
		a.Logger.Warn("error closing assistant", zap.Error(err))
	}
}
