package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/franz/card-indexer/internal/assets"
	"github.com/franz/card-indexer/internal/index"
	"github.com/franz/card-indexer/internal/report"
	"github.com/franz/card-indexer/internal/scryfall"
	"github.com/franz/card-indexer/internal/store"
	"github.com/franz/card-indexer/internal/util"
)

// Orchestrator coordinates dataset refresh, index builds and image sync
type Orchestrator struct {
	client   *scryfall.Client
	store    *store.Store
	policy   *scryfall.StalenessPolicy
	presence *assets.PresenceIndex

	dataDir   string
	imagesDir string
	offline   bool
	workers   int

	memory *index.BulkIndex
}

// Config holds orchestrator configuration
type Config struct {
	Client    *scryfall.Client
	Store     *store.Store // may be nil: in-memory only
	Policy    *scryfall.StalenessPolicy
	Presence  *assets.PresenceIndex
	DataDir   string
	ImagesDir string
	Offline   bool
	Workers   int
}

// New creates an orchestrator
func New(cfg *Config) *Orchestrator {
	if cfg.Policy == nil {
		cfg.Policy = scryfall.NewStalenessPolicy(cfg.Offline)
	}
	if cfg.Presence == nil {
		cfg.Presence = assets.NewPresenceIndex()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = assets.DefaultWorkers
	}
	return &Orchestrator{
		client:    cfg.Client,
		store:     cfg.Store,
		policy:    cfg.Policy,
		presence:  cfg.Presence,
		dataDir:   cfg.DataDir,
		imagesDir: cfg.ImagesDir,
		offline:   cfg.Offline,
		workers:   cfg.Workers,
	}
}

func (o *Orchestrator) datasetPath(dataset string) string {
	return filepath.Join(o.dataDir, dataset+".json")
}

// EnsureIndexFresh makes sure the local dataset, the in-memory index and the
// persistent index all reflect the current upstream snapshot. Without force
// the call is idempotent: a fresh dataset and a matching fingerprint mean no
// download and no rebuild.
func (o *Orchestrator) EnsureIndexFresh(ctx context.Context, force bool) error {
	summary := report.NewRefreshSummary()
	datasetPath := o.datasetPath(scryfall.DatasetDefaultCards)
	oraclePath := o.datasetPath(scryfall.DatasetOracleCards)

	refreshed, reason, err := o.refreshDataset(ctx, scryfall.DatasetDefaultCards, datasetPath, force)
	if err != nil {
		return err
	}
	summary.DatasetRefreshed = refreshed
	summary.RefreshReason = reason

	if refreshed {
		// The oracle dataset rides along with the main one; its failure is
		// not fatal because augmentation is optional
		if _, _, err := o.refreshDataset(ctx, scryfall.DatasetOracleCards, oraclePath, force); err != nil {
			util.WarnLog("Oracle dataset refresh failed, continuing without augmentation: %v", err)
		}
	}

	needRebuild := force || refreshed
	if !needRebuild {
		needRebuild = o.storeNeedsRebuild(datasetPath)
	}
	if !needRebuild {
		util.InfoLog("Index is up to date (%s)", reason)
		return nil
	}

	upstreamVersion := ""
	if meta, err := scryfall.LoadLocalMeta(datasetPath); err == nil {
		upstreamVersion = meta.UpdatedAt
	}

	result, err := index.Build(datasetPath, upstreamVersion)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	o.memory = result.Index
	summary.Entries = result.Index.Len()
	summary.MissingID = result.Stats.MissingID
	summary.DecodeFailures = result.Stats.DecodeFailures

	if merged, err := index.Augment(o.memory, oraclePath); err != nil {
		util.WarnLog("Oracle augmentation failed: %v", err)
	} else {
		summary.OracleMerged = merged
	}

	if o.store != nil {
		sources, err := o.fingerprints(datasetPath, oraclePath)
		if err != nil {
			return err
		}
		if err := o.store.Rebuild(o.memory, sources); err != nil {
			return fmt.Errorf("persistent rebuild failed: %w", err)
		}
		summary.PersistedTo = "sqlite"
	}

	summary.Print()
	return nil
}

// refreshDataset applies the staleness policy to one dataset and downloads a
// new snapshot when needed
func (o *Orchestrator) refreshDataset(ctx context.Context, dataset, dataPath string, force bool) (bool, string, error) {
	if o.offline {
		if _, err := scryfall.LoadLocalMeta(dataPath); err != nil {
			if dataset == scryfall.DatasetDefaultCards {
				return false, "", fmt.Errorf("offline with no local dataset: %w", util.ErrNoLocalCopy)
			}
			return false, "offline, no local copy", nil
		}
		return false, "offline mode", nil
	}

	var upstream *scryfall.BulkDataInfo
	upstream, err := o.client.BulkData(ctx, dataset)
	if err != nil {
		// Metadata endpoint unreachable: fall back to the age rule alone
		util.WarnLog("Could not fetch upstream metadata for %s: %v", dataset, err)
		upstream = nil
	}

	verdict := o.policy.Evaluate(dataPath, upstream)
	if force {
		verdict = scryfall.Verdict{Stale: true, Reason: "forced"}
	}
	if !verdict.Stale {
		return false, verdict.Reason, nil
	}

	downloadURI := ""
	if upstream != nil {
		downloadURI = upstream.DownloadURI
	} else if meta, err := scryfall.LoadLocalMeta(dataPath); err == nil {
		downloadURI = meta.DownloadURI
	}
	if downloadURI == "" {
		return false, "", fmt.Errorf("no download URI known for %s", dataset)
	}

	util.InfoLog("Refreshing %s: %s", dataset, verdict.Reason)
	if err := o.client.DownloadDataset(ctx, downloadURI, dataPath); err != nil {
		return false, "", fmt.Errorf("dataset download failed: %w", err)
	}

	now := time.Now()
	meta := &scryfall.LocalMeta{
		DownloadURI:       downloadURI,
		DownloadedAt:      now.UTC().Format(time.RFC3339),
		DownloadedAtEpoch: now.Unix(),
	}
	if upstream != nil {
		meta.UpdatedAt = upstream.UpdatedAt
	}
	if err := scryfall.WriteLocalMeta(dataPath, meta); err != nil {
		return false, "", err
	}

	return true, verdict.Reason, nil
}

// storeNeedsRebuild reports whether the persistent index is missing, built
// by another schema generation, or built from a different dataset file
func (o *Orchestrator) storeNeedsRebuild(datasetPath string) bool {
	if o.store == nil {
		return o.memory == nil
	}

	if err := o.store.EnsureReadable(); err != nil {
		util.DebugLog("Persistent index needs rebuild: %v", err)
		return true
	}

	stored, err := o.store.SourceFingerprint(datasetPath)
	if err != nil || stored == nil {
		return true
	}
	size, mtime, err := util.GetFileMetadata(datasetPath)
	if err != nil {
		return true
	}
	if stored.SizeBytes != size || stored.MtimeUnix != mtime {
		util.DebugLog("Dataset fingerprint changed, rebuild required")
		return true
	}
	return false
}

func (o *Orchestrator) fingerprints(paths ...string) ([]store.SourceFile, error) {
	var sources []store.SourceFile
	for _, p := range paths {
		size, mtime, err := util.GetFileMetadata(p)
		if err != nil {
			continue // oracle dataset may be absent
		}
		hash, err := util.GenerateContentHash(p)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint %s: %w", p, err)
		}
		sources = append(sources, store.SourceFile{
			Path:      p,
			SHA1:      hash,
			SizeBytes: size,
			MtimeUnix: mtime,
		})
	}
	return sources, nil
}

// Source returns the query strategy: persistent index preferred, in-memory
// fallback when available. Returns an error when neither index exists.
func (o *Orchestrator) Source() (CardSource, error) {
	var primary, fallback CardSource
	if o.store != nil {
		primary = &storeSource{s: o.store}
	}
	if o.memory != nil {
		fallback = NewMemorySource(o.memory)
	}
	if primary == nil && fallback == nil {
		return nil, errors.New("no card index available: run 'cdx refresh' first")
	}
	return NewFallbackSource(primary, fallback), nil
}
