package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/card-indexer/internal/assets"
	"github.com/franz/card-indexer/internal/scryfall"
	"github.com/franz/card-indexer/internal/store"
	"github.com/franz/card-indexer/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset staleness, index metadata and image statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	dataDir := viper.GetString("data-dir")
	imagesDir := viper.GetString("images-dir")
	dbPath := viper.GetString("db")

	// Dataset staleness
	for _, dataset := range []string{scryfall.DatasetDefaultCards, scryfall.DatasetOracleCards} {
		dataPath := fmt.Sprintf("%s/%s.json", dataDir, dataset)
		meta, err := scryfall.LoadLocalMeta(dataPath)
		if err != nil {
			fmt.Printf("dataset %-14s: no local copy\n", dataset)
			continue
		}
		downloaded := time.Unix(meta.DownloadedAtEpoch, 0)
		verdict := "fresh"
		if time.Since(downloaded) > scryfall.MaxDatasetAge {
			verdict = "stale (age)"
		}
		fmt.Printf("dataset %-14s: downloaded %s, upstream token %s - %s\n",
			dataset, humanize.Time(downloaded), meta.UpdatedAt, verdict)
	}

	// Persistent index
	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Printf("index: unusable (%v)\n", err)
	} else {
		defer db.Close()
		printIndexStatus(db)
	}

	// Image tree
	presence := assets.NewPresenceIndex()
	buckets, files, err := presence.Stats(imagesDir)
	if err != nil {
		util.WarnLog("Could not inspect image tree: %v", err)
	} else {
		fmt.Printf("images: %d files in %d buckets under %s\n", files, buckets, imagesDir)
	}

	return nil
}

func printIndexStatus(db *store.Store) {
	meta, err := db.Meta()
	if err != nil {
		fmt.Printf("index: no completed build (%v)\n", err)
		return
	}

	builtAt := meta.BuiltAt
	if t, err := time.Parse(time.RFC3339, meta.BuiltAt); err == nil {
		builtAt = humanize.Time(t)
	}
	fmt.Printf("index: schema v%d, built %s, upstream token %s, run %s\n",
		meta.SchemaVersion, builtAt, meta.UpstreamVersion, meta.RunID)

	total, err := db.CountPrints()
	if err != nil {
		fmt.Printf("index: unreadable (%v)\n", err)
		return
	}
	basics, tokens, err := db.CategoryCounts()
	if err != nil {
		fmt.Printf("index: %d prints\n", total)
		return
	}
	fmt.Printf("index: %d prints (%d basic lands, %d tokens)\n", total, basics, tokens)
}
