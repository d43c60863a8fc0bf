package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/card-indexer/internal/bulk"
)

const syntheticBulk = `[
  {
    "id": "forest-1", "oracle_id": "oracle-forest", "name": "Forest", "lang": "en",
    "set": "abc", "collector_number": "101", "type_line": "Basic Land — Forest",
    "image_uris": {"png": "https://img.example/forest-1.png"}
  },
  {
    "id": "forest-2", "oracle_id": "oracle-forest", "name": "Forest", "lang": "en",
    "set": "xyz", "collector_number": "7", "type_line": "Basic Land — Forest",
    "image_uris": {"png": "https://img.example/forest-2.png"}
  },
  {
    "id": "token-1", "oracle_id": "oracle-goblin", "name": "Goblin", "lang": "en",
    "set": "txy", "collector_number": "3", "type_line": "Token Creature — Goblin",
    "layout": "token",
    "all_parts": [
      {"id": "absent-source", "component": "combo_piece", "name": "Goblin Maker"}
    ],
    "image_uris": {"large": "https://img.example/token-1.jpg"}
  }
]`

func writeBulk(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bulk.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write bulk file: %v", err)
	}
	return path
}

func TestBuildRoundTrip(t *testing.T) {
	result, err := Build(writeBulk(t, syntheticBulk), "token-v1")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	ix := result.Index

	if ix.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", ix.Len())
	}

	// Two printings share a slug but have distinct secondary keys
	forests := ix.IDsForSlug("forest")
	if len(forests) != 2 {
		t.Fatalf("expected 2 forest printings, got %d", len(forests))
	}

	e1 := ix.GetByPrintKey(PrintKey{Slug: "forest", SetCode: "abc", Collector: "101"})
	e2 := ix.GetByPrintKey(PrintKey{Slug: "forest", SetCode: "xyz", Collector: "7"})
	if e1 == nil || e2 == nil {
		t.Fatal("secondary key lookup failed for forest printings")
	}
	if e1.ID == e2.ID {
		t.Error("secondary keys must resolve to distinct printings")
	}

	// Category lists
	if got := len(ix.BasicLands()); got != 2 {
		t.Errorf("expected 2 basic lands, got %d", got)
	}
	if got := len(ix.Tokens()); got != 1 {
		t.Errorf("expected 1 token, got %d", got)
	}

	// Cross-reference to an id absent from the batch is recorded, not dropped
	token := ix.Get("token-1")
	if token == nil {
		t.Fatal("token entry missing")
	}
	if len(token.Related) != 1 {
		t.Fatalf("expected 1 related reference, got %d", len(token.Related))
	}
	if token.Related[0].ID != "absent-source" || token.Related[0].Component != "combo_piece" {
		t.Errorf("unexpected related reference: %+v", token.Related[0])
	}

	// Metadata is stamped
	meta := ix.Meta()
	if meta.UpstreamVersion != "token-v1" {
		t.Errorf("expected upstream token recorded, got %q", meta.UpstreamVersion)
	}
	if meta.SchemaVersion != SchemaVersion {
		t.Errorf("expected schema version %d, got %d", SchemaVersion, meta.SchemaVersion)
	}
	if meta.RunID == "" {
		t.Error("expected a run id")
	}
	if err := ix.Validate(); err != nil {
		t.Errorf("fresh index must validate: %v", err)
	}
}

func TestValidateRejectsOlderSchema(t *testing.T) {
	ix := newBulkIndex(Meta{})
	ix.meta.SchemaVersion = SchemaVersion - 1
	if err := ix.Validate(); err == nil {
		t.Fatal("expected validation failure for older schema")
	}
}

func TestEntryFromRecordClassification(t *testing.T) {
	rec := &bulk.Record{
		ID:              "x1",
		Name:            "Ajani's Pridemate",
		Lang:            "en",
		SetCode:         "one",
		CollectorNumber: "12",
		TypeLine:        "Creature — Cat Soldier",
		BorderColor:     "borderless",
		FrameEffects:    []string{"inverted"},
		ImageURIs:       map[string]string{"normal": "https://img.example/x1.jpg"},
	}

	e := EntryFromRecord(rec)
	if e.Slug != "ajanis-pridemate" {
		t.Errorf("unexpected slug %q", e.Slug)
	}
	if e.Variant != "borderless-oilslick" {
		t.Errorf("unexpected variant %q", e.Variant)
	}
	if e.ImageURL != "https://img.example/x1.jpg" {
		t.Errorf("unexpected image url %q", e.ImageURL)
	}
	if e.IsToken || e.IsBasicLand {
		t.Error("creature misclassified")
	}

	stem := e.ImageStem()
	want := "ajanis-pridemate-borderless-oilslick-en-one-12"
	if stem != want {
		t.Errorf("ImageStem = %q, want %q", stem, want)
	}
}

func TestAugmentMergesWithoutClobbering(t *testing.T) {
	result, err := Build(writeBulk(t, syntheticBulk), "token-v1")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	ix := result.Index

	oracle := `[
  {"id": "o1", "oracle_id": "oracle-forest", "name": "Forest",
   "oracle_text": "({T}: Add {G}.)", "keywords": [], "color_identity": ["G"]}
]`
	oraclePath := filepath.Join(t.TempDir(), "oracle.json")
	if err := os.WriteFile(oraclePath, []byte(oracle), 0644); err != nil {
		t.Fatalf("failed to write oracle file: %v", err)
	}

	merged, err := Augment(ix, oraclePath)
	if err != nil {
		t.Fatalf("augment failed: %v", err)
	}
	if merged != 2 {
		t.Errorf("expected both forest printings merged, got %d", merged)
	}

	e := ix.Get("forest-1")
	if e.OracleText != "({T}: Add {G}.)" {
		t.Errorf("oracle text not merged: %q", e.OracleText)
	}
	if len(e.ColorIdentity) != 1 || e.ColorIdentity[0] != "G" {
		t.Errorf("color identity not merged: %v", e.ColorIdentity)
	}
	// Untouched fields survive
	if e.SetCode != "abc" || e.CollectorNumber != "101" {
		t.Error("augmentation clobbered unrelated fields")
	}

	// Token's oracle id is untouched by the forest record
	if tok := ix.Get("token-1"); tok.OracleText != "" {
		t.Errorf("unrelated entry mutated: %q", tok.OracleText)
	}
}
