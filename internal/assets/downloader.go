package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/franz/card-indexer/internal/util"
)

// DefaultWorkers is the default download pool size
const DefaultWorkers = 12

// DownloadJob is one image to fetch
type DownloadJob struct {
	ID       string // printing id, recorded on failure for retry
	Name     string
	URL      string
	DestPath string
	Bucket   string // presence bucket relative to the image root
}

// Downloader fetches image files with a bounded worker pool. Image hosts are
// CDN-backed, so fetches run at pool concurrency without the API limiter.
type Downloader struct {
	httpClient  *http.Client
	userAgent   string
	concurrency int
	retryConfig *util.RetryConfig
	presence    *PresenceIndex
	root        string
}

// DownloaderConfig holds downloader configuration
type DownloaderConfig struct {
	UserAgent   string
	Concurrency int
	RetryConfig *util.RetryConfig
	Presence    *PresenceIndex // updated on success; may be nil
	Root        string         // image root for presence updates
}

// NewDownloader creates a downloader
func NewDownloader(cfg *DownloaderConfig) *Downloader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultWorkers
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = util.DefaultRetryConfig()
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
		retryConfig: cfg.RetryConfig,
		presence:    cfg.Presence,
		root:        cfg.Root,
	}
}

// Result summarizes one download batch
type Result struct {
	Processed    int
	Succeeded    int
	Failed       int
	BytesWritten int64
	FailedIDs    []string // ids to retry on the next sync
	Errors       []error
}

// Run downloads all jobs. Failures are recorded and skipped, never fatal for
// the batch; cancellation stops between jobs, and jobs already completed
// keep their presence updates.
func (d *Downloader) Run(ctx context.Context, jobs []DownloadJob) (*Result, error) {
	if len(jobs) == 0 {
		return &Result{}, nil
	}

	util.InfoLog("Downloading %d images with %d workers", len(jobs), d.concurrency)

	var processed, succeeded, failed atomic.Int64
	var bytesWritten atomic.Int64

	var mu sync.Mutex
	result := &Result{}

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("Downloading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	jobsChan := make(chan DownloadJob, d.concurrency*2)
	doneChan := make(chan struct{})

	for i := 0; i < d.concurrency; i++ {
		go func() {
			for job := range jobsChan {
				select {
				case <-ctx.Done():
					doneChan <- struct{}{}
					return
				default:
				}

				processed.Add(1)

				bytes, err := d.fetch(ctx, job)
				if err != nil {
					failed.Add(1)
					mu.Lock()
					result.FailedIDs = append(result.FailedIDs, job.ID)
					result.Errors = append(result.Errors, fmt.Errorf("%s: %w", job.Name, err))
					mu.Unlock()
					util.WarnLog("Download failed for %s: %v", job.Name, err)
				} else {
					succeeded.Add(1)
					bytesWritten.Add(bytes)
					if d.presence != nil {
						stem := filepath.Base(job.DestPath)
						stem = stem[:len(stem)-len(filepath.Ext(stem))]
						d.presence.MarkPresent(d.root, job.Bucket, stem)
					}
				}

				if bar != nil {
					bar.Add(1)
				}
			}
			doneChan <- struct{}{}
		}()
	}

	go func() {
		defer close(jobsChan)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobsChan <- job:
			}
		}
	}()

	for i := 0; i < d.concurrency; i++ {
		<-doneChan
	}
	if bar != nil {
		bar.Finish()
	}

	result.Processed = int(processed.Load())
	result.Succeeded = int(succeeded.Load())
	result.Failed = int(failed.Load())
	result.BytesWritten = bytesWritten.Load()

	util.SuccessLog("Downloads complete: %d succeeded, %d failed, %s written",
		result.Succeeded, result.Failed, humanize.Bytes(uint64(result.BytesWritten)))

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// fetch downloads one image to a .part sibling and renames it into place.
// A failed fetch never leaves a partial file at the final path.
func (d *Downloader) fetch(ctx context.Context, job DownloadJob) (int64, error) {
	if err := util.RetryableMkdirAll(ctx, filepath.Dir(job.DestPath), 0755, d.retryConfig); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	return util.RetryWithBackoff(ctx, d.retryConfig, func() (int64, error) {
		return d.fetchOnce(ctx, job)
	}, fmt.Sprintf("download(%s)", job.Name))
}

func (d *Downloader) fetchOnce(ctx context.Context, job DownloadJob) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", job.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if util.IsRetryableStatus(resp.StatusCode) {
		return 0, &util.HTTPStatusError{StatusCode: resp.StatusCode, URL: job.URL}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	tempPath := job.DestPath + ".part"
	out, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(tempPath)
		return 0, fmt.Errorf("download interrupted: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to finalize temp file: %w", err)
	}

	if err := util.RetryableRename(ctx, tempPath, job.DestPath, d.retryConfig); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to move image into place: %w", err)
	}

	util.DebugLog("Downloaded: %s (%s)", job.DestPath, humanize.Bytes(uint64(written)))
	return written, nil
}
