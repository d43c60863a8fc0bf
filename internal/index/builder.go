package index

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/franz/card-indexer/internal/bulk"
	"github.com/franz/card-indexer/internal/classify"
	"github.com/franz/card-indexer/internal/util"
)

// BuildResult bundles the index with the parse statistics of the pass
type BuildResult struct {
	Index *BulkIndex
	Stats *bulk.Stats
}

// Build streams the bulk dataset file into a fresh in-memory index.
// upstreamVersion is the version token recorded by the staleness layer.
func Build(path, upstreamVersion string) (*BuildResult, error) {
	util.InfoLog("Building card index from %s", path)

	ix := newBulkIndex(Meta{
		BuiltAt:         time.Now(),
		UpstreamVersion: upstreamVersion,
		RunID:           uuid.NewString(),
	})

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Indexing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("cards"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	parser := bulk.NewParser(path)
	parser.OnProgress = func(count int) {
		if bar != nil {
			bar.Set(count)
		} else {
			util.DebugLog("Indexed %d records", count)
		}
	}

	stats, err := parser.Stream(func(rec *bulk.Record) error {
		ix.add(EntryFromRecord(rec))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if bar != nil {
		bar.Finish()
	}

	util.SuccessLog("Indexed %d cards (%d missing id, %d undecodable)",
		ix.Len(), stats.MissingID, stats.DecodeFailures)

	return &BuildResult{Index: ix, Stats: stats}, nil
}

// EntryFromRecord classifies one raw bulk record into a catalog entry
func EntryFromRecord(rec *bulk.Record) *CatalogEntry {
	variant := classify.VariantLabel(classify.VariantSignals{
		FullArt:      rec.FullArt,
		Textless:     rec.Textless,
		BorderColor:  rec.BorderColor,
		Frame:        rec.Frame,
		FrameEffects: rec.FrameEffects,
		PromoTypes:   rec.PromoTypes,
		Finishes:     rec.Finishes,
		SetCode:      rec.SetCode,
	})

	e := &CatalogEntry{
		ID:              rec.ID,
		OracleID:        rec.OracleID,
		Name:            rec.Name,
		Slug:            classify.Slugify(rec.Name),
		Lang:            rec.Lang,
		SetCode:         rec.SetCode,
		CollectorNumber: rec.CollectorNumber,
		TypeLine:        rec.TypeLine,
		OracleText:      rec.OracleText,
		ImageURL:        rec.ImageURL(),
		Variant:         variant,
		IsBasicLand:     classify.IsBasicLand(rec.TypeLine),
		IsToken:         classify.IsToken(rec.TypeLine, rec.Layout),
		Keywords:        rec.Keywords,
		ColorIdentity:   rec.ColorIdentity,
		Artist:          rec.Artist,
		Rarity:          rec.Rarity,
		ManaValue:       rec.ManaValue,
		Layout:          rec.Layout,
		Frame:           rec.Frame,
		Border:          rec.BorderColor,
		ReleasedAt:      rec.ReleasedAt,
		Legalities:      rec.Legalities,
		Promo:           rec.Promo,
		Textless:        rec.Textless,
		FullArt:         rec.FullArt,
	}

	if usd, ok := rec.Prices["usd"]; ok && usd != nil {
		e.PriceUSD = *usd
	}

	for _, part := range rec.AllParts {
		if part.ID == "" || part.ID == rec.ID {
			continue
		}
		e.Related = append(e.Related, Related{
			ID:        part.ID,
			Component: part.Component,
			Name:      part.Name,
		})
	}

	return e
}

// Augment merges the oracle (augmentation) dataset into an existing index.
// Only rules text, keywords and color identity are touched, and only on
// entries whose oracle id matches; nothing else in the index changes.
func Augment(ix *BulkIndex, oraclePath string) (int, error) {
	util.InfoLog("Merging oracle text from %s", oraclePath)

	// Index entries by oracle id once; entries can share an oracle id
	byOracle := make(map[string][]*CatalogEntry, ix.Len())
	ix.Each(func(e *CatalogEntry) error {
		if e.OracleID != "" {
			byOracle[e.OracleID] = append(byOracle[e.OracleID], e)
		}
		return nil
	})

	merged := 0
	stats, err := bulk.StreamOracle(oraclePath, func(rec *bulk.OracleRecord) error {
		for _, e := range byOracle[rec.OracleID] {
			mergeOracle(e, rec)
			merged++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("oracle merge failed: %w", err)
	}

	util.SuccessLog("Oracle merge: %d entries updated (%d oracle records, %d skipped)",
		merged, stats.Records, stats.MissingID+stats.DecodeFailures)

	return merged, nil
}

// mergeOracle applies one oracle record to one entry without clobbering
// fields the oracle side does not carry
func mergeOracle(e *CatalogEntry, rec *bulk.OracleRecord) {
	if rec.OracleText != "" {
		e.OracleText = rec.OracleText
	}
	if len(rec.Keywords) > 0 {
		e.Keywords = rec.Keywords
	}
	if len(rec.ColorIdentity) > 0 {
		e.ColorIdentity = rec.ColorIdentity
	}
}
