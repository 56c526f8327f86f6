package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/trackindex/v1/search"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type queryOptions struct {
	topK        int
	artist      string
	album       string
	paraphrases []string
	json        bool
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a hybrid search over the index",
		Long: `Embeds the query text, encodes it and its paraphrases as a sparse vector and
returns the top hits fused by reciprocal rank.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			var svc *search.Service
			return runOnce(cmd.Context(), cfg, []fx.Option{
				indexModule(cfg.Index),
				searchModule(cfg),
				fx.Populate(&svc),
			}, func(ctx context.Context) error {
				hits, err := svc.Search(ctx, opts.request(strings.Join(args, " ")))
				if err != nil {
					return err
				}
				return printHits(cmd, hits, opts.json)
			})
		},
	}
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", vectordb.DefaultTopK, "number of hits")
	cmd.Flags().StringVar(&opts.artist, "artist", "", "only tracks by this artist")
	cmd.Flags().StringVar(&opts.album, "album", "", "only tracks from this album")
	cmd.Flags().StringArrayVar(&opts.paraphrases, "paraphrase", nil, "alternative phrasing added to the sparse query (repeatable)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print hits as JSON")
	return cmd
}

func (o *queryOptions) request(text string) search.Request {
	req := search.Request{QueryText: text, Paraphrases: o.paraphrases, TopK: o.topK}
	var conditions []vectordb.Condition
	if o.artist != "" {
		conditions = append(conditions, vectordb.Artist(o.artist))
	}
	if o.album != "" {
		conditions = append(conditions, vectordb.Album(o.album))
	}
	if len(conditions) > 0 {
		req.Filter = vectordb.NewFilter(conditions...)
	}
	return req
}

func printHits(cmd *cobra.Command, hits []vectordb.Hit, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal hits: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, h := range hits {
		cmd.Printf("%2d. %s - %s (%s) [%s] score=%.4f\n", i+1, h.Artist, h.Title, h.Album, h.ISRC, h.Score)
		if h.ShortDescription != nil && *h.ShortDescription != "" {
			cmd.Printf("    %s\n", *h.ShortDescription)
		}
	}
	return nil
}
