package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/card-indexer/internal/util"
)

func noRetry() *util.RetryConfig {
	return &util.RetryConfig{MaxAttempts: 1}
}

func TestDownloaderWritesAtomically(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	root := t.TempDir()
	presence := NewPresenceIndex()
	// Prime the snapshot so MarkPresent has something to update
	if _, err := presence.Contains(root, "lands", "x"); err != nil {
		t.Fatalf("prime failed: %v", err)
	}

	d := NewDownloader(&DownloaderConfig{
		Concurrency: 2,
		RetryConfig: noRetry(),
		Presence:    presence,
		Root:        root,
	})

	dest := filepath.Join(root, "lands", "forest-standard-en-abc-101.jpg")
	result, err := d.Run(context.Background(), []DownloadJob{
		{ID: "forest-1", Name: "Forest", URL: server.URL, DestPath: dest, Bucket: "lands"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Succeeded != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("final file missing: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected content %q", data)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("temp file left behind after success")
	}

	// Success updates presence without a rewalk
	if ok, _ := presence.Contains(root, "lands", "forest-standard-en-abc-101"); !ok {
		t.Error("expected downloaded stem to be marked present")
	}
}

func TestDownloaderFailureLeavesNoFinalFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	root := t.TempDir()
	d := NewDownloader(&DownloaderConfig{Concurrency: 1, RetryConfig: noRetry()})

	dest := filepath.Join(root, "tokens", "goblin-standard-en-txy-3.jpg")
	result, err := d.Run(context.Background(), []DownloadJob{
		{ID: "token-1", Name: "Goblin", URL: server.URL, DestPath: dest, Bucket: "tokens"},
	})
	if err != nil {
		t.Fatalf("run should not fail the batch: %v", err)
	}

	if result.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", result)
	}
	if len(result.FailedIDs) != 1 || result.FailedIDs[0] != "token-1" {
		t.Errorf("failed id not recorded: %v", result.FailedIDs)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("failed download left a final file")
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("failed download left a temp file")
	}
}

func TestDownloaderContinuesPastFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/bad" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	root := t.TempDir()
	d := NewDownloader(&DownloaderConfig{Concurrency: 1, RetryConfig: noRetry()})

	jobs := []DownloadJob{
		{ID: "a", Name: "A", URL: server.URL + "/bad", DestPath: filepath.Join(root, "a.jpg")},
		{ID: "b", Name: "B", URL: server.URL + "/good", DestPath: filepath.Join(root, "b.jpg")},
	}
	result, err := d.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("expected one success and one failure, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(root, "b.jpg")); err != nil {
		t.Error("later job should still complete after an earlier failure")
	}
}

func TestDownloaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(&DownloaderConfig{Concurrency: 1, RetryConfig: noRetry()})
	_, err := d.Run(ctx, []DownloadJob{
		{ID: "a", Name: "A", URL: "http://127.0.0.1:0/never", DestPath: filepath.Join(t.TempDir(), "a.jpg")},
	})
	if err == nil {
		t.Error("expected cancellation to surface")
	}
}
