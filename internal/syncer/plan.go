package syncer

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/franz/card-indexer/internal/assets"
	"github.com/franz/card-indexer/internal/classify"
	"github.com/franz/card-indexer/internal/index"
	"github.com/franz/card-indexer/internal/report"
	"github.com/franz/card-indexer/internal/store"
	"github.com/franz/card-indexer/internal/util"
)

// Filter selects which catalog entries a sync covers
type Filter struct {
	Lands   bool
	Tokens  bool
	Query   string
	Filters store.Filters
}

// Plan is the result of sync planning: the downloads to run plus the
// structured reasons candidates were skipped
type Plan struct {
	Jobs []assets.DownloadJob

	SkippedPresent   int
	SkippedNoImage   int
	SkippedDuplicate int
}

// PlanSync queries the card source, expands one hop of related printings,
// and filters the candidates against the presence index. Planning the same
// sync twice with no downloads in between yields the same plan; after a
// successful sync it yields an empty one.
func (o *Orchestrator) PlanSync(ctx context.Context, filter Filter) (*Plan, error) {
	source, err := o.Source()
	if err != nil {
		return nil, err
	}

	entries, err := gatherEntries(source, filter)
	if err != nil {
		return nil, err
	}

	entries, err = expandRelated(source, entries)
	if err != nil {
		return nil, err
	}

	util.InfoLog("Planning sync for %d candidate printings", len(entries))

	plan := &Plan{}
	seenURLs := make(map[string]struct{})

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if e.ImageURL == "" {
			plan.SkippedNoImage++
			continue
		}

		if _, dup := seenURLs[e.ImageURL]; dup {
			plan.SkippedDuplicate++
			continue
		}

		bucket := bucketFor(e)
		stem := e.ImageStem()

		present, err := o.presence.Contains(o.imagesDir, bucket, stem, e.LegacyImageStem())
		if err != nil {
			return nil, err
		}
		if present {
			// Aliases sharing this URL are covered by the existing file
			seenURLs[e.ImageURL] = struct{}{}
			plan.SkippedPresent++
			continue
		}
		seenURLs[e.ImageURL] = struct{}{}

		plan.Jobs = append(plan.Jobs, assets.DownloadJob{
			ID:       e.ID,
			Name:     e.Name,
			URL:      e.ImageURL,
			DestPath: filepath.Join(o.imagesDir, filepath.FromSlash(bucket), stem+imageExt(e.ImageURL)),
			Bucket:   bucket,
		})
	}

	util.InfoLog("Sync plan: %d downloads, %d present, %d without image, %d duplicate urls",
		len(plan.Jobs), plan.SkippedPresent, plan.SkippedNoImage, plan.SkippedDuplicate)

	return plan, nil
}

// ExecuteSync runs a plan through the download pool and prints a summary
func (o *Orchestrator) ExecuteSync(ctx context.Context, plan *Plan) (*report.SyncSummary, error) {
	summary := report.NewSyncSummary()
	summary.Planned = len(plan.Jobs)
	summary.SkippedPresent = plan.SkippedPresent
	summary.SkippedNoImage = plan.SkippedNoImage
	summary.SkippedDuplicate = plan.SkippedDuplicate

	if len(plan.Jobs) == 0 {
		util.InfoLog("Nothing to download")
		summary.Print()
		return summary, nil
	}

	downloader := assets.NewDownloader(&assets.DownloaderConfig{
		UserAgent:   "CDX-CardIndexer/1.0",
		Concurrency: o.workers,
		Presence:    o.presence,
		Root:        o.imagesDir,
	})

	result, err := downloader.Run(ctx, plan.Jobs)
	if result != nil {
		summary.Downloaded = result.Succeeded
		summary.Failed = result.Failed
		summary.BytesWritten = result.BytesWritten
		for _, e := range result.Errors {
			summary.RecordFailure("%v", e)
		}
	}
	summary.Print()
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// gatherEntries runs the selected queries against the card source
func gatherEntries(source CardSource, filter Filter) ([]*index.CatalogEntry, error) {
	var entries []*index.CatalogEntry
	seen := make(map[string]struct{})

	appendAll := func(batch []*index.CatalogEntry) {
		for _, e := range batch {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			entries = append(entries, e)
		}
	}

	if filter.Lands {
		batch, err := source.BasicLands(filter.Filters)
		if err != nil {
			return nil, fmt.Errorf("basic land query failed: %w", err)
		}
		appendAll(batch)
	}
	if filter.Tokens {
		batch, err := source.Tokens(filter.Filters)
		if err != nil {
			return nil, fmt.Errorf("token query failed: %w", err)
		}
		appendAll(batch)
	}
	if filter.Query != "" {
		batch, err := source.Search(filter.Query, filter.Filters)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		appendAll(batch)
	}

	return entries, nil
}

// expandRelated adds printings reachable through exactly one hop of the
// relationship relation. Related ids absent from the index are dropped here;
// they were recorded for a reason, but there is nothing to download for them.
func expandRelated(source CardSource, entries []*index.CatalogEntry) ([]*index.CatalogEntry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}

	rels, err := source.RelatedTo(ids)
	if err != nil {
		return nil, fmt.Errorf("relationship expansion failed: %w", err)
	}

	added := 0
	for _, rel := range rels {
		if _, dup := seen[rel.RelatedID]; dup {
			continue
		}
		seen[rel.RelatedID] = struct{}{}

		related, err := source.GetByID(rel.RelatedID)
		if err != nil {
			return nil, err
		}
		if related == nil {
			continue
		}
		entries = append(entries, related)
		added++
	}

	if added > 0 {
		util.DebugLog("Related expansion added %d printings", added)
	}
	return entries, nil
}

// bucketFor places an entry in the image tree: basic lands by produced-color
// category, tokens by subtype, everything else by set
func bucketFor(e *index.CatalogEntry) string {
	switch {
	case e.IsBasicLand:
		return path.Join("lands", classify.LandCategory(e.TypeLine, e.OracleText))
	case e.IsToken:
		sub := classify.TokenSubtype(e.TypeLine)
		return path.Join("tokens", classify.Slugify(sub))
	default:
		return path.Join("cards", e.SetCode)
	}
}

// imageExt picks the file extension from the image URL, defaulting to .jpg
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := path.Ext(u.Path)
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	}
	return ".jpg"
}
