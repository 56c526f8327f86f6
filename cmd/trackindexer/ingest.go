package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type ingestOptions struct {
	force   bool
	wait    bool
	timeout time.Duration
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <isrc>...",
		Short: "Trigger the ingestion of one or more recordings",
		Long: `Submits an ingestion trigger per ISRC. With --wait the command blocks until
every run is Completed or Failed. Without it the runs are recorded in the store and
left for a serve process to resume, so --wait is required with the memory store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if !opts.wait && cfg.Store.Backend == StoreMemory {
				return fmt.Errorf("ingest: --wait is required with the %s store", StoreMemory)
			}

			var orch *pipeline.Orchestrator
			return runOnce(cmd.Context(), cfg, []fx.Option{
				indexModule(cfg.Index),
				orchestratorModule(cfg, false),
				publisherModule(cfg.Events, false),
				fx.Populate(&orch),
			}, func(ctx context.Context) error {
				return ingest(ctx, cmd, orch, args, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.force, "force", false, "reprocess even when a recent run completed")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait for every run to finish")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "how long --wait waits")
	return cmd
}

// submitter is the part of the orchestrator ingest uses.
type submitter interface {
	Submit(ctx context.Context, req pipeline.Request) (pipeline.Ticket, error)
	Await(ctx context.Context, code, runID string, poll time.Duration) (pipeline.Run, error)
}

func ingest(ctx context.Context, cmd *cobra.Command, orch submitter, codes []string, opts *ingestOptions) error {
	type submitted struct {
		isrc   string
		ticket pipeline.Ticket
	}
	var pending []submitted
	rejected := 0
	for _, code := range codes {
		ticket, err := orch.Submit(ctx, pipeline.Request{ISRC: code, ForceReprocess: opts.force})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", code, err)
		}
		cmd.Printf("%s\trun=%s\tstatus=%s\tcoalesced=%t\n", code, ticket.RunID, ticket.Status, ticket.Coalesced)
		normalized, err := isrc.Normalize(code)
		if err != nil {
			rejected++
			continue
		}
		if !ticket.Status.Terminal() {
			pending = append(pending, submitted{isrc: normalized, ticket: ticket})
		}
	}
	if !opts.wait {
		if rejected > 0 {
			return fmt.Errorf("ingest: %d invalid ISRCs rejected", rejected)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	failed := rejected
	for _, p := range pending {
		run, err := orch.Await(ctx, p.isrc, p.ticket.RunID, 500*time.Millisecond)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", p.isrc, err)
		}
		line := fmt.Sprintf("%s\trun=%s\tstatus=%s\tattempts=%d", run.ISRC, run.RunID, run.Status, run.Attempts)
		if run.Status == pipeline.StatusFailed {
			failed++
			line += fmt.Sprintf("\terror_kind=%s\terror=%q", run.ErrorKind, run.Error)
		}
		cmd.Println(line)
	}
	if failed > 0 {
		return fmt.Errorf("ingest: %d of %d triggers failed", failed, len(codes))
	}
	return nil
}
