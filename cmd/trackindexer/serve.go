package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume ingestion triggers until interrupted",
		Long: `Runs the orchestrator, resuming runs left unfinished by a previous process,
consumes triggers from the configured broker and serves Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			// Run blocks until SIGINT or SIGTERM and exits the process if startup fails.
			fx.New(serveOptions(cfg)).Run()
			return nil
		},
	}
}

func serveOptions(cfg Config) fx.Option {
	return fx.Options(
		ambientModule(cfg, true),
		fx.WithLogger(zapEventLogger),
		indexModule(cfg.Index),
		orchestratorModule(cfg, true),
		publisherModule(cfg.Events, true),
		fx.Provide(triggerHandler),
	)
}
