package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/franz/card-indexer/internal/scryfall"
	"github.com/franz/card-indexer/internal/store"
	"github.com/franz/card-indexer/internal/syncer"
	"github.com/franz/card-indexer/internal/util"
)

// buildOrchestrator wires the store, client and orchestrator from the
// effective configuration. The returned cleanup closes the store.
func buildOrchestrator() (*syncer.Orchestrator, func(), error) {
	applyLogFlags()

	dbPath := viper.GetString("db")
	util.DebugLog("Opening card index: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open card index: %w", err)
	}

	offline := viper.GetBool("offline")
	o := syncer.New(&syncer.Config{
		Client:    scryfall.NewClient(),
		Store:     db,
		Policy:    scryfall.NewStalenessPolicy(offline),
		DataDir:   viper.GetString("data-dir"),
		ImagesDir: viper.GetString("images-dir"),
		Offline:   offline,
		Workers:   viper.GetInt("workers"),
	})

	return o, func() { db.Close() }, nil
}
