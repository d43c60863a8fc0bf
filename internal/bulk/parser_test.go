package bulk

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/card-indexer/internal/util"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func writeGzipFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write gzip: %v", err)
	}
	gz.Close()
	f.Close()
	return path
}

func collect(t *testing.T, path string) ([]*Record, *Stats) {
	t.Helper()
	var records []*Record
	stats, err := NewParser(path).Stream(func(rec *Record) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	return records, stats
}

const threeRecords = `[
  {"id": "aaa", "name": "Forest", "set": "abc", "collector_number": "1"},
  {"id": "bbb", "name": "Island", "set": "abc", "collector_number": "2"},
  {"id": "ccc", "name": "Swamp", "set": "abc", "collector_number": "3"}
]`

func TestStreamJSONArray(t *testing.T) {
	path := writeFile(t, "bulk.json", threeRecords)
	records, stats := collect(t, path)

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if stats.Records != 3 || stats.MissingID != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if records[0].Name != "Forest" || records[2].Name != "Swamp" {
		t.Errorf("records decoded out of order: %v, %v", records[0].Name, records[2].Name)
	}
}

func TestStreamWrapperObject(t *testing.T) {
	path := writeFile(t, "bulk.json",
		`{"object": "list", "total": 2, "data": [{"id": "aaa", "name": "Forest"}, {"id": "bbb", "name": "Island"}]}`)
	records, stats := collect(t, path)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if stats.Records != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStreamLineDelimited(t *testing.T) {
	content := `{"id": "aaa", "name": "Forest"}
{"id": "bbb", "name": "Island"}
not json at all
{"id": "ccc", "name": "Swamp"}
`
	path := writeFile(t, "bulk.ndjson", content)
	records, stats := collect(t, path)

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if stats.DecodeFailures != 1 {
		t.Errorf("expected 1 decode failure, got %d", stats.DecodeFailures)
	}
}

func TestMissingIDCountedNotFatal(t *testing.T) {
	path := writeFile(t, "bulk.json",
		`[{"id": "aaa", "name": "Forest"}, {"name": "Nameless"}, {"id": "bbb", "name": "Island"}]`)
	records, stats := collect(t, path)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if stats.MissingID != 1 {
		t.Errorf("expected 1 missing-id record, got %d", stats.MissingID)
	}
}

func TestGzipDetectedByMagicNotExtension(t *testing.T) {
	// A gzip payload in a file named .json must still decode
	path := writeGzipFile(t, "bulk.json", threeRecords)
	records, _ := collect(t, path)
	if len(records) != 3 {
		t.Fatalf("expected 3 records from gzip content, got %d", len(records))
	}
}

func TestPlainContentWithGzExtension(t *testing.T) {
	// Plain JSON in a file named .gz must also decode
	path := writeFile(t, "bulk.json.gz", threeRecords)
	records, _ := collect(t, path)
	if len(records) != 3 {
		t.Fatalf("expected 3 records from plain content, got %d", len(records))
	}
}

func TestMalformedTopLevelIsFatal(t *testing.T) {
	path := writeFile(t, "bulk.json", `[{"id": "aaa"}, {"id": "bbb"`)
	_, err := NewParser(path).Stream(func(rec *Record) error { return nil })
	if err == nil {
		t.Fatal("expected error for truncated array")
	}
	var sfe *util.SourceFormatError
	if !errors.As(err, &sfe) {
		t.Errorf("expected SourceFormatError, got %T: %v", err, err)
	}
}

func TestHandlerErrorAbortsWithoutFormatFallback(t *testing.T) {
	path := writeFile(t, "bulk.json", threeRecords)
	boom := errors.New("boom")
	calls := 0
	_, err := NewParser(path).Stream(func(rec *Record) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 handler call, got %d", calls)
	}
}

func TestProgressCheckpoints(t *testing.T) {
	parser := NewParser(writeFile(t, "bulk.json", threeRecords))
	var checkpoints []int
	parser.OnProgress = func(count int) { checkpoints = append(checkpoints, count) }

	// 3 records never hit the 10k interval; checkpoints stay advisory-empty
	if _, err := parser.Stream(func(rec *Record) error { return nil }); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if len(checkpoints) != 0 {
		t.Errorf("expected no checkpoints for a tiny file, got %v", checkpoints)
	}
}

func TestImageURLPreference(t *testing.T) {
	rec := &Record{ImageURIs: map[string]string{"small": "s", "large": "l", "png": "p"}}
	if got := rec.ImageURL(); got != "p" {
		t.Errorf("expected png preferred, got %q", got)
	}
	rec = &Record{ImageURIs: map[string]string{"normal": "n"}}
	if got := rec.ImageURL(); got != "n" {
		t.Errorf("expected normal, got %q", got)
	}
	if got := (&Record{}).ImageURL(); got != "" {
		t.Errorf("expected empty for no images, got %q", got)
	}
}
