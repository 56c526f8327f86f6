package main

import (
	"context"
	"fmt"

	"github.com/Aleph-Alpha/trackindex/v1/minio"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newEnsureIndexCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-index",
		Short: "Create the collection and payload indexes if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			var index vectordb.HybridIndex
			return runOnce(cmd.Context(), cfg, []fx.Option{
				indexModule(cfg.Index),
				fx.Populate(&index),
			}, func(ctx context.Context) error {
				if err := index.EnsureSchema(ctx); err != nil {
					return err
				}
				n, err := index.Count(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("index ready, %d documents\n", n)
				return nil
			})
		},
	}
}

func newReindexCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from the document archive",
		Long: `Ensures the collection schema and upserts every archived document with a freshly
computed sparse vector. No adapter is called; dense vectors come from the archive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if !cfg.Archive.Enabled {
				return fmt.Errorf("reindex: the archive is not enabled")
			}
			var (
				archive *minio.Archive
				index   vectordb.HybridIndex
			)
			return runOnce(cmd.Context(), cfg, []fx.Option{
				indexModule(cfg.Index),
				archiveModule(cfg.Archive),
				fx.Populate(&archive, &index),
			}, func(ctx context.Context) error {
				n, err := reindex(ctx, archive, index)
				cmd.Printf("reindexed %d documents\n", n)
				return err
			})
		},
	}
}

// walker lists archived documents.
type walker interface {
	Walk(ctx context.Context, fn func(*track.TrackDocument) error) error
}

// reindex upserts every document of the archive and returns how many it wrote.
func reindex(ctx context.Context, archive walker, index vectordb.HybridIndex) (int, error) {
	if err := index.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	n := 0
	err := archive.Walk(ctx, func(doc *track.TrackDocument) error {
		if err := index.Upsert(ctx, doc, sparseembedding.EncodeFields(doc.TextFields()...)); err != nil {
			return fmt.Errorf("upsert %s: %w", doc.ISRC, err)
		}
		n++
		return nil
	})
	return n, err
}
