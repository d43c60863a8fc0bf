package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/card-indexer/internal/util"
)

const (
	// BaseURL is the Scryfall API base URL
	BaseURL = "https://api.scryfall.com"

	// UserAgent identifies this application to Scryfall
	// Scryfall requires a proper user agent on every request
	UserAgent = "CDX-CardIndexer/1.0 (https://github.com/franz/card-indexer)"

	// APIRateLimit is the minimum spacing between API requests
	// (Scryfall asks for 50-100ms between requests)
	APIRateLimit = 100 * time.Millisecond
)

// Client handles Scryfall API requests with rate limiting
type Client struct {
	httpClient  *http.Client
	userAgent   string
	rateLimiter *util.RateLimiter
}

// NewClient creates a new Scryfall API client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		userAgent:   UserAgent,
		rateLimiter: util.NewRateLimiter(APIRateLimit),
	}
}

// RateLimiter exposes the client's limiter so other fetchers hitting the
// same host can share the request budget
func (c *Client) RateLimiter() *util.RateLimiter {
	return c.rateLimiter
}

// BulkDataInfo describes one downloadable bulk dataset as reported by the
// Scryfall bulk-data endpoint
type BulkDataInfo struct {
	Type        string `json:"type"`
	UpdatedAt   string `json:"updated_at"`
	DownloadURI string `json:"download_uri"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// BulkDataset names for the datasets the indexer consumes
const (
	DatasetDefaultCards = "default_cards"
	DatasetOracleCards  = "oracle_cards"
)

// BulkData fetches the metadata record for one bulk dataset. The returned
// UpdatedAt token is the upstream version used for staleness decisions.
func (c *Client) BulkData(ctx context.Context, dataset string) (*BulkDataInfo, error) {
	if dataset == "" {
		return nil, fmt.Errorf("dataset name cannot be empty")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	urlStr := fmt.Sprintf("%s/bulk-data/%s", BaseURL, dataset)
	util.DebugLog("Scryfall API: fetching bulk-data metadata for %s", dataset)

	info, err := util.RetryWithBackoff(ctx, util.DefaultRetryConfig(), func() (*BulkDataInfo, error) {
		return c.fetchBulkData(ctx, urlStr)
	}, "bulk-data metadata")
	if err != nil {
		return nil, err
	}

	util.DebugLog("Scryfall: %s updated_at=%s size=%d", dataset, info.UpdatedAt, info.Size)
	return info, nil
}

func (c *Client) fetchBulkData(ctx context.Context, urlStr string) (*BulkDataInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("unknown bulk dataset: %w", util.ErrNotFound)
	}
	if util.IsRetryableStatus(resp.StatusCode) {
		return nil, &util.HTTPStatusError{StatusCode: resp.StatusCode, URL: urlStr}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var info BulkDataInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if info.DownloadURI == "" {
		return nil, fmt.Errorf("bulk-data record has no download_uri")
	}
	return &info, nil
}

// DownloadDataset streams a bulk dataset to destPath. The payload goes to a
// .part sibling first and is renamed into place only after the full body has
// been written, so a killed download never leaves a truncated dataset behind.
func (c *Client) DownloadDataset(ctx context.Context, downloadURI, destPath string) error {
	if err := util.RetryableMkdirAll(ctx, filepath.Dir(destPath), 0755, util.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	start := time.Now()
	util.InfoLog("Downloading bulk dataset to %s", destPath)

	err := util.Retry(ctx, util.DefaultRetryConfig(), func() error {
		return c.downloadOnce(ctx, downloadURI, destPath)
	}, "bulk dataset download")
	if err != nil {
		return err
	}

	util.SuccessLog("Bulk dataset downloaded in %s", time.Since(start).Round(time.Second))
	return nil
}

func (c *Client) downloadOnce(ctx context.Context, downloadURI, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", downloadURI, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if util.IsRetryableStatus(resp.StatusCode) {
		return &util.HTTPStatusError{StatusCode: resp.StatusCode, URL: downloadURI}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d downloading dataset", resp.StatusCode)
	}

	tempPath := destPath + ".part"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tempPath)
		return fmt.Errorf("download interrupted: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize temp file: %w", err)
	}

	if err := util.RetryableRename(ctx, tempPath, destPath, util.DefaultRetryConfig()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}

	return nil
}
