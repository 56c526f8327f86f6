package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/logger"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const configEnv = "TRACKINDEX_CONFIG"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "trackindexer",
		Short:         "Ingest tracks into the hybrid search index",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(configEnv),
		"path to the YAML configuration (env "+configEnv+")")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newQueryCmd(opts),
		newStatusCmd(opts),
		newEnsureIndexCmd(opts),
		newReindexCmd(opts),
	)
	return cmd
}

// runOnce starts a short-lived application, runs fn and stops the application.
// Constructors resolve the targets passed in populate.
func runOnce(ctx context.Context, cfg Config, options []fx.Option, fn func(ctx context.Context) error) error {
	app := fx.New(
		ambientModule(cfg, false),
		fx.Options(options...),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("stop: %w", err)
	}
	return runErr
}

func zapEventLogger(l *logger.LoggerClient) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l.Zap}
}
