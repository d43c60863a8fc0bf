package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func filterTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addFilterFlags(cmd)
	return cmd
}

func TestFiltersFromFlags(t *testing.T) {
	cmd := filterTestCmd()
	if err := cmd.ParseFlags([]string{
		"--lang", "en, de",
		"--set", "one",
		"--artist", "Rebecca",
		"--max-mana-value", "3.5",
		"--full-art",
		"--limit", "25",
	}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	f := filtersFromFlags(cmd)

	if len(f.Languages) != 2 || f.Languages[0] != "en" || f.Languages[1] != "de" {
		t.Errorf("unexpected languages %v", f.Languages)
	}
	if f.SetCode != "one" {
		t.Errorf("unexpected set %q", f.SetCode)
	}
	if f.Artist != "Rebecca" {
		t.Errorf("unexpected artist %q", f.Artist)
	}
	if f.MaxManaValue == nil || *f.MaxManaValue != 3.5 {
		t.Errorf("unexpected mana value %v", f.MaxManaValue)
	}
	if !f.FullArtOnly {
		t.Error("full-art flag not applied")
	}
	if f.Limit != 25 {
		t.Errorf("unexpected limit %d", f.Limit)
	}
}

func TestFiltersDefaults(t *testing.T) {
	cmd := filterTestCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	f := filtersFromFlags(cmd)
	if f.MaxManaValue != nil {
		t.Error("unset mana value must not constrain results")
	}
	if len(f.Languages) != 0 || f.SetCode != "" || f.FullArtOnly {
		t.Errorf("unexpected non-zero defaults: %+v", f)
	}
}
