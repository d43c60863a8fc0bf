package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/franz/card-indexer/internal/index"
	"github.com/franz/card-indexer/internal/util"
)

// SourceFile fingerprints one ingested dataset file
type SourceFile struct {
	Path      string
	SHA1      string
	SizeBytes int64
	MtimeUnix int64
}

// Rebuild truncates and repopulates the persistent index from a completed
// in-memory build. Writes happen in fixed-size batches, one transaction per
// batch, so a crashed build loses bounded work. The metadata row is written
// only after everything else has committed: a half-finished build is never
// mistaken for a valid index.
func (s *Store) Rebuild(ix *index.BulkIndex, sources []SourceFile) error {
	start := time.Now()
	util.InfoLog("Rebuilding persistent index (%d entries)", ix.Len())

	// Invalidate the index first; readers gate on the metadata row
	err := s.Transaction(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM metadata",
			"DELETE FROM card_relationships",
			"DELETE FROM prints",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("truncate failed (%s): %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	entries := make([]*index.CatalogEntry, 0, ix.Len())
	ix.Each(func(e *index.CatalogEntry) error {
		entries = append(entries, e)
		return nil
	})

	for from := 0; from < len(entries); from += insertBatchSize {
		to := from + insertBatchSize
		if to > len(entries) {
			to = len(entries)
		}
		if err := s.insertPrintBatch(entries[from:to]); err != nil {
			return err
		}
	}

	// One bulk statement repopulates the external-content FTS table
	if _, err := s.db.Exec("INSERT INTO prints_fts(prints_fts) VALUES('rebuild')"); err != nil {
		return fmt.Errorf("failed to rebuild full-text index: %w", err)
	}

	// Relationships reference prints by id, so they are derived only after
	// the full main relation is committed
	if err := s.rebuildRelationships(entries); err != nil {
		return err
	}

	if err := s.recordSourceFiles(sources); err != nil {
		return err
	}

	meta := ix.Meta()
	err = s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO metadata (id, schema_version, upstream_version, run_id, built_at)
			VALUES (1, ?, ?, ?, ?)
		`, currentSchemaVersion, meta.UpstreamVersion, meta.RunID, meta.BuiltAt.UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write build metadata: %w", err)
	}

	util.SuccessLog("Persistent index rebuilt: %d entries in %s", len(entries), time.Since(start).Round(time.Millisecond))
	return nil
}

// insertPrintBatch writes one batch of prints inside a single transaction
func (s *Store) insertPrintBatch(entries []*index.CatalogEntry) error {
	return s.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO prints (
				id, oracle_id, name, slug, lang, set_code, collector_number,
				type_line, oracle_text, image_url, variant,
				is_basic_land, is_token, keywords_json, color_identity_json,
				artist, rarity, mana_value, layout, frame, border, released_at,
				legalities_json, promo, textless, full_art, price_usd
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			_, err := stmt.Exec(
				e.ID, e.OracleID, e.Name, e.Slug, e.Lang, e.SetCode, e.CollectorNumber,
				e.TypeLine, e.OracleText, e.ImageURL, e.Variant,
				boolInt(e.IsBasicLand), boolInt(e.IsToken),
				marshalJSON(e.Keywords), marshalJSON(e.ColorIdentity),
				e.Artist, e.Rarity, e.ManaValue, e.Layout, e.Frame, e.Border, e.ReleasedAt,
				marshalJSON(e.Legalities), boolInt(e.Promo), boolInt(e.Textless), boolInt(e.FullArt),
				e.PriceUSD,
			)
			if err != nil {
				return fmt.Errorf("failed to insert print %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// rebuildRelationships derives the relationship relation from the embedded
// related-part lists. Insertion is idempotent: duplicates are ignored, and a
// related id absent from this batch is recorded, not dropped.
func (s *Store) rebuildRelationships(entries []*index.CatalogEntry) error {
	return s.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO card_relationships (source_id, related_id, kind)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare relationship insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			for _, rel := range e.Related {
				kind := rel.Component
				if kind == "" {
					kind = "related"
				}
				if _, err := stmt.Exec(e.ID, rel.ID, kind); err != nil {
					return fmt.Errorf("failed to insert relationship %s -> %s: %w", e.ID, rel.ID, err)
				}
			}
		}
		return nil
	})
}

// recordSourceFiles replaces the fingerprint rows for the ingested files
func (s *Store) recordSourceFiles(sources []SourceFile) error {
	return s.Transaction(func(tx *sql.Tx) error {
		for _, src := range sources {
			_, err := tx.Exec(`
				INSERT OR REPLACE INTO source_files (path, sha1, size_bytes, mtime_unix, ingested_at)
				VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			`, src.Path, src.SHA1, src.SizeBytes, src.MtimeUnix)
			if err != nil {
				return fmt.Errorf("failed to record source file %s: %w", src.Path, err)
			}
		}
		return nil
	})
}

// SourceFingerprint returns the stored fingerprint for a path, or nil
func (s *Store) SourceFingerprint(path string) (*SourceFile, error) {
	src := &SourceFile{}
	err := s.db.QueryRow(`
		SELECT path, COALESCE(sha1, ''), COALESCE(size_bytes, 0), COALESCE(mtime_unix, 0)
		FROM source_files WHERE path = ?
	`, path).Scan(&src.Path, &src.SHA1, &src.SizeBytes, &src.MtimeUnix)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source fingerprint: %w", err)
	}
	return src, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// marshalJSON encodes a value for a *_json column; nil collections become ""
func marshalJSON(v interface{}) string {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return ""
		}
	case map[string]string:
		if len(t) == 0 {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
