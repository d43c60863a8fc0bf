package scryfall

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/franz/card-indexer/internal/util"
)

// MaxDatasetAge is how old a local dataset may get before it is refreshed
// even when the upstream version token has not changed
const MaxDatasetAge = 7 * 24 * time.Hour

// LocalMeta records what we know about a downloaded dataset. It lives in a
// JSON sidecar next to the dataset file.
type LocalMeta struct {
	DownloadURI       string `json:"download_uri"`
	UpdatedAt         string `json:"updated_at"` // upstream version token
	DownloadedAt      string `json:"downloaded_at"`
	DownloadedAtEpoch int64  `json:"downloaded_at_epoch"`
}

// MetaPath returns the sidecar path for a dataset file
func MetaPath(dataPath string) string {
	return dataPath + ".meta.json"
}

// LoadLocalMeta reads the sidecar for a dataset. Returns ErrNoLocalCopy when
// either the dataset or its sidecar is missing.
func LoadLocalMeta(dataPath string) (*LocalMeta, error) {
	if _, err := os.Stat(dataPath); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", dataPath, util.ErrNoLocalCopy)
	}

	data, err := os.ReadFile(MetaPath(dataPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dataset %s has no metadata sidecar: %w", dataPath, util.ErrNoLocalCopy)
		}
		return nil, fmt.Errorf("failed to read dataset metadata: %w", err)
	}

	meta := &LocalMeta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("failed to parse dataset metadata: %w", err)
	}
	return meta, nil
}

// WriteLocalMeta writes the sidecar for a freshly downloaded dataset
func WriteLocalMeta(dataPath string, meta *LocalMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset metadata: %w", err)
	}
	if err := os.WriteFile(MetaPath(dataPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset metadata: %w", err)
	}
	return nil
}

// StalenessPolicy decides whether a local dataset needs refreshing
type StalenessPolicy struct {
	MaxAge  time.Duration
	Offline bool

	// Confirm, when set, is asked before a refresh proceeds. Returning
	// false downgrades the refresh to a no-op.
	Confirm func(reason string) bool

	now func() time.Time // test hook
}

// NewStalenessPolicy returns the default policy
func NewStalenessPolicy(offline bool) *StalenessPolicy {
	return &StalenessPolicy{
		MaxAge:  MaxDatasetAge,
		Offline: offline,
		now:     time.Now,
	}
}

// Verdict is the outcome of a staleness evaluation
type Verdict struct {
	Stale  bool
	Reason string
}

// Evaluate decides whether the dataset at dataPath should be re-downloaded
// given the current upstream metadata. Upstream may be nil when it could not
// be fetched; only the age rule applies then.
func (p *StalenessPolicy) Evaluate(dataPath string, upstream *BulkDataInfo) Verdict {
	if p.Offline {
		return Verdict{Stale: false, Reason: "offline mode"}
	}

	meta, err := LoadLocalMeta(dataPath)
	if err != nil {
		if errors.Is(err, util.ErrNoLocalCopy) {
			return p.confirm(Verdict{Stale: true, Reason: "no local copy"})
		}
		// Unreadable sidecar: treat as absent
		util.WarnLog("Dataset metadata unreadable, treating as stale: %v", err)
		return p.confirm(Verdict{Stale: true, Reason: "metadata unreadable"})
	}

	if upstream != nil && upstream.UpdatedAt != meta.UpdatedAt {
		return p.confirm(Verdict{
			Stale:  true,
			Reason: fmt.Sprintf("upstream version changed (%s -> %s)", meta.UpdatedAt, upstream.UpdatedAt),
		})
	}

	maxAge := p.MaxAge
	if maxAge <= 0 {
		maxAge = MaxDatasetAge
	}
	age := p.clock().Sub(time.Unix(meta.DownloadedAtEpoch, 0))
	if age > maxAge {
		return p.confirm(Verdict{
			Stale:  true,
			Reason: fmt.Sprintf("local copy is %s old (max %s)", age.Round(time.Hour), maxAge),
		})
	}

	return Verdict{Stale: false, Reason: "up to date"}
}

// LocalAge returns how old the local dataset is, or an error when absent
func (p *StalenessPolicy) LocalAge(dataPath string) (time.Duration, error) {
	meta, err := LoadLocalMeta(dataPath)
	if err != nil {
		return 0, err
	}
	return p.clock().Sub(time.Unix(meta.DownloadedAtEpoch, 0)), nil
}

func (p *StalenessPolicy) confirm(v Verdict) Verdict {
	if v.Stale && p.Confirm != nil && !p.Confirm(v.Reason) {
		return Verdict{Stale: false, Reason: "refresh declined: " + v.Reason}
	}
	return v
}

func (p *StalenessPolicy) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}
