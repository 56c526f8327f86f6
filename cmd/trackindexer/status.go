package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <isrc>...",
		Short: "Show the latest run of each recording",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			var store pipeline.Store
			return runOnce(cmd.Context(), cfg, []fx.Option{
				storeModule(cfg.Store),
				fx.Populate(&store),
			}, func(ctx context.Context) error {
				return printStatus(ctx, cmd, store, args)
			})
		},
	}
}

func printStatus(ctx context.Context, cmd *cobra.Command, store pipeline.Store, codes []string) error {
	for _, code := range codes {
		normalized, err := isrc.Normalize(code)
		if err != nil {
			return err
		}
		run, err := store.Latest(ctx, normalized)
		if errors.Is(err, pipeline.ErrRunNotFound) {
			cmd.Printf("%s\tnever ingested\n", normalized)
			continue
		}
		if err != nil {
			return fmt.Errorf("status %s: %w", normalized, err)
		}
		cmd.Println(formatRun(run))
	}
	return nil
}

func formatRun(run pipeline.Run) string {
	line := fmt.Sprintf("%s\trun=%s\tstatus=%s\tattempts=%d\tupdated=%s",
		run.ISRC, run.RunID, run.Status, run.Attempts, run.UpdatedAt.Format(time.RFC3339))
	if !run.NextAttemptAt.IsZero() && !run.Terminal() {
		line += "\tnext_attempt=" + run.NextAttemptAt.Format(time.RFC3339)
	}
	if run.ErrorKind != "" {
		line += fmt.Sprintf("\terror_kind=%s\terror=%q", run.ErrorKind, run.Error)
	}
	return line
}
