package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the card index",
	Long: `Full-text search over card names, type lines, rules text, set codes and
slugs. Uses the persistent index when available and falls back to the
in-memory index otherwise. The shared filter flags narrow the results.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addFilterFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	o, cleanup, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := o.Source()
	if err != nil {
		return err
	}

	filters := filtersFromFlags(cmd)
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := strings.Join(args, " ")
	hits, err := source.Search(query, filters)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for _, e := range hits {
		line := fmt.Sprintf("%-40s %s (%s) #%s [%s]",
			e.Name, e.SetCode, e.Lang, e.CollectorNumber, e.Variant)
		if e.TypeLine != "" {
			line += "  " + e.TypeLine
		}
		fmt.Println(line)
	}
	fmt.Printf("%d matches\n", len(hits))
	return nil
}
