package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franz/card-indexer/internal/store"
	"github.com/franz/card-indexer/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download missing card images",
	Long: `Plan and execute an image sync against the card index.

Select a category with --lands or --tokens, or pass --query for an arbitrary
search. Images already present in the image tree are skipped, as are
printings without an image and duplicate image URLs within the batch.
Failed downloads are recorded and retried on the next sync.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("lands", false, "sync basic land images")
	syncCmd.Flags().Bool("tokens", false, "sync token and emblem images")
	syncCmd.Flags().String("query", "", "sync images matching a search query")
	syncCmd.Flags().Bool("dry-run", false, "plan only, download nothing")
	addFilterFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	lands, _ := cmd.Flags().GetBool("lands")
	tokens, _ := cmd.Flags().GetBool("tokens")
	query, _ := cmd.Flags().GetString("query")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if !lands && !tokens && query == "" {
		return fmt.Errorf("nothing selected: use --lands, --tokens or --query")
	}

	o, cleanup, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	plan, err := o.PlanSync(ctx, syncer.Filter{
		Lands:   lands,
		Tokens:  tokens,
		Query:   query,
		Filters: filtersFromFlags(cmd),
	})
	if err != nil {
		return err
	}

	if dryRun {
		for _, job := range plan.Jobs {
			fmt.Printf("would download %s -> %s\n", job.Name, job.DestPath)
		}
		return nil
	}

	summary, err := o.ExecuteSync(ctx, plan)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d downloads failed", summary.Failed)
	}
	return nil
}

// addFilterFlags registers the shared result-filtering flags
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("lang", "", "comma-separated language codes")
	cmd.Flags().String("set", "", "set code")
	cmd.Flags().String("artist", "", "artist name substring")
	cmd.Flags().String("rarity", "", "rarity")
	cmd.Flags().Float64("max-mana-value", -1, "maximum mana value")
	cmd.Flags().String("layout", "", "card layout")
	cmd.Flags().String("frame", "", "frame generation")
	cmd.Flags().Bool("full-art", false, "full-art printings only")
	cmd.Flags().Int("limit", 0, "cap the number of results")
}

// filtersFromFlags turns the shared flags into store filters
func filtersFromFlags(cmd *cobra.Command) store.Filters {
	f := store.Filters{}

	if langs, _ := cmd.Flags().GetString("lang"); langs != "" {
		for _, lang := range strings.Split(langs, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				f.Languages = append(f.Languages, lang)
			}
		}
	}
	f.SetCode, _ = cmd.Flags().GetString("set")
	f.Artist, _ = cmd.Flags().GetString("artist")
	f.Rarity, _ = cmd.Flags().GetString("rarity")
	if mv, _ := cmd.Flags().GetFloat64("max-mana-value"); mv >= 0 {
		f.MaxManaValue = &mv
	}
	f.Layout, _ = cmd.Flags().GetString("layout")
	f.Frame, _ = cmd.Flags().GetString("frame")
	f.FullArtOnly, _ = cmd.Flags().GetBool("full-art")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	return f
}
