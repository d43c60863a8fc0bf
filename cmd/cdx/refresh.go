package main

import (
	"context"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ensure the local dataset and card index are fresh",
	Long: `Check the local bulk dataset against the upstream snapshot and rebuild
the card index when needed.

A dataset is considered stale when there is no local copy, when the upstream
version token has changed, or when the local copy is older than seven days.
Without --force a fresh dataset and an unchanged index make this a no-op, so
refresh is safe to run from cron.`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().Bool("force", false, "re-download and rebuild even when fresh")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	o, cleanup, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	force, _ := cmd.Flags().GetBool("force")
	return o.EnsureIndexFresh(context.Background(), force)
}
