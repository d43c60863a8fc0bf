package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func seedTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return root
}

func TestContainsStripsExtensions(t *testing.T) {
	root := seedTree(t,
		"lands/forests/forest-standard-en-abc-101.jpg",
		"tokens/goblin-standard-en-txy-3.png",
	)
	p := NewPresenceIndex()

	ok, err := p.Contains(root, "lands/forests", "forest-standard-en-abc-101")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !ok {
		t.Error("expected stem to be present regardless of extension")
	}

	ok, _ = p.Contains(root, "lands/forests", "forest-standard-en-abc-999")
	if ok {
		t.Error("expected absent stem to be reported absent")
	}

	ok, _ = p.Contains(root, "wrong/bucket", "forest-standard-en-abc-101")
	if ok {
		t.Error("presence is bucket-scoped")
	}
}

func TestContainsAcceptsAlternateStems(t *testing.T) {
	// Older trees used underscore-joined stems; those files still count
	root := seedTree(t, "lands/forests/forest_abc_101.jpg")
	p := NewPresenceIndex()

	ok, err := p.Contains(root, "lands/forests",
		"forest-standard-en-abc-101", // current convention
		"forest_abc_101",             // legacy convention
	)
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !ok {
		t.Error("expected legacy stem to count as present")
	}
}

func TestSnapshotExpiresAfterTTL(t *testing.T) {
	root := seedTree(t, "lands/forest-standard-en-abc-101.jpg")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewPresenceIndexWithClock(5*time.Minute, func() time.Time { return now })

	if ok, _ := p.Contains(root, "lands", "forest-standard-en-abc-101"); !ok {
		t.Fatal("expected seeded file to be present")
	}

	// A file created after the snapshot is invisible within the TTL
	if err := os.WriteFile(filepath.Join(root, "lands", "island-standard-en-abc-5.jpg"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if ok, _ := p.Contains(root, "lands", "island-standard-en-abc-5"); ok {
		t.Error("expected cached snapshot to hide the new file")
	}

	// After the TTL the tree is walked again
	now = now.Add(6 * time.Minute)
	if ok, _ := p.Contains(root, "lands", "island-standard-en-abc-5"); !ok {
		t.Error("expected expired snapshot to pick up the new file")
	}
}

func TestMarkPresentUpdatesSnapshot(t *testing.T) {
	root := seedTree(t, "lands/forest-standard-en-abc-101.jpg")
	p := NewPresenceIndex()

	// Prime the snapshot
	if _, err := p.Contains(root, "lands", "anything"); err != nil {
		t.Fatalf("contains failed: %v", err)
	}

	p.MarkPresent(root, "tokens", "goblin-standard-en-txy-3")
	if ok, _ := p.Contains(root, "tokens", "goblin-standard-en-txy-3"); !ok {
		t.Error("expected marked stem to be present without a rewalk")
	}
}

func TestMissingRootIsEmpty(t *testing.T) {
	p := NewPresenceIndex()
	root := filepath.Join(t.TempDir(), "does-not-exist")

	ok, err := p.Contains(root, "lands", "forest")
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if ok {
		t.Error("missing root contains nothing")
	}

	buckets, files, err := p.Stats(root)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if buckets != 0 || files != 0 {
		t.Errorf("expected empty stats, got %d buckets / %d files", buckets, files)
	}
}
