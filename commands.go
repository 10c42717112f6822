package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poem-mood/services"
	"poem-mood/storage"
)

var importCmd = &cobra.Command{
	Use:   "import [csv]",
	Short: "Import poems from a CSV file (Title, Author, Content, Views)",
	Long: `Import reads a local CSV file or s3://bucket/key. By default the poems
collection is cleared first; use --append to keep existing poems.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run sentiment, keyword and consolidation passes",
	RunE:  runEnrich,
}

var extractKeywordsCmd = &cobra.Command{
	Use:   "extract-keywords",
	Short: "Extract keywords for poems that have a sentiment but no keywords",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPass(cmd, func(a *app) services.Pass {
			return services.KeywordPass{Extractor: a.extractor()}
		})
	},
}

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Recompute secondary sentiment tags from stored sentiment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return runPass(cmd, func(*app) services.Pass {
			return services.RefinePass{All: all}
		})
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Derive recommendation_tags.evokes for every poem",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPass(cmd, func(*app) services.Pass {
			return services.ConsolidatePass{}
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all poems",
	RunE:  runReset,
}

func init() {
	importCmd.Flags().Bool("append", false, "keep existing poems instead of clearing the collection")
	importCmd.Flags().Int("batch-size", 0, "poems per insert (default IMPORT_BATCH_SIZE)")

	for _, c := range []*cobra.Command{enrichCmd, extractKeywordsCmd, refineCmd} {
		c.Flags().Int("limit", 0, "process at most this many poems (0 = all)")
	}
	refineCmd.Flags().Bool("all", false, "recompute tags for every poem, not only missing ones")
	resetCmd.Flags().Bool("yes", false, "confirm deletion")

	rootCmd.AddCommand(importCmd, enrichCmd, extractKeywordsCmd, refineCmd, consolidateCmd, resetCmd)
}

func limitFlag(cmd *cobra.Command) int {
	if cmd.Flags().Lookup("limit") == nil {
		return 0
	}
	limit, _ := cmd.Flags().GetInt("limit")
	return limit
}

func newPipeline(a *app) *services.Pipeline {
	return services.NewPipeline(a.store, a.log, a.cfg.ProgressEvery)
}

func runPass(cmd *cobra.Command, build func(*app) services.Pass) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := newPipeline(a).RunPass(cmd.Context(), build(a), limitFlag(cmd))
	if perr := printJSON(cmd, rep); perr != nil {
		a.log.Warn("Writing report failed", zap.Error(perr))
	}
	return err
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := newPipeline(a).Enrich(cmd.Context(), a.backend(), a.extractor(), limitFlag(cmd))
	if perr := printJSON(cmd, reports); perr != nil {
		a.log.Warn("Writing report failed", zap.Error(perr))
	}
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	source := a.cfg.CSVPath
	if len(args) == 1 {
		source = args[0]
	}
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = a.cfg.ImportBatchSize
	}
	appendOnly, _ := cmd.Flags().GetBool("append")

	im := services.NewImporter(a.store, a.log, batchSize)
	im.Reset = !appendOnly
	im.OpenObject = func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		client, err := a.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		return storage.OpenObject(ctx, client, bucket, key)
	}

	rep, err := im.Import(cmd.Context(), source)
	if err != nil {
		return err
	}
	return printJSON(cmd, rep)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("refusing to delete all poems without --yes")
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.DeleteAll(cmd.Context())
	if err != nil {
		return err
	}
	a.log.Info("Poems collection cleared", zap.Int64("deleted", n))
	return printJSON(cmd, map[string]int64{"deleted": n})
}
