package index

import (
	"fmt"
	"time"
)

// SchemaVersion is the in-memory index schema generation. An index built by
// older code reports a lower number and must be rebuilt, never patched.
const SchemaVersion = 3

// Meta describes one ingestion pass
type Meta struct {
	BuiltAt         time.Time
	UpstreamVersion string // upstream version token of the bulk snapshot
	SchemaVersion   int
	RunID           string // unique id of this ingestion run
}

// BulkIndex is the in-memory artifact of one ingestion pass. It is built
// wholesale and never mutated afterwards, except by the bounded Augment pass
// which merges supplementary oracle text into existing entries.
type BulkIndex struct {
	byID       map[string]*CatalogEntry
	byPrintKey map[PrintKey]string
	bySlug     map[string][]string

	basicLands []string
	tokens     []string

	meta Meta
}

// newBulkIndex creates an empty index stamped with the current schema version
func newBulkIndex(meta Meta) *BulkIndex {
	meta.SchemaVersion = SchemaVersion
	return &BulkIndex{
		byID:       make(map[string]*CatalogEntry),
		byPrintKey: make(map[PrintKey]string),
		bySlug:     make(map[string][]string),
		meta:       meta,
	}
}

// add inserts an entry into every lookup table. Later duplicates of the same
// identifier replace earlier ones in byID but are not double-counted in the
// category lists.
func (ix *BulkIndex) add(e *CatalogEntry) {
	if _, seen := ix.byID[e.ID]; seen {
		ix.byID[e.ID] = e
		return
	}

	ix.byID[e.ID] = e
	ix.byPrintKey[e.Key()] = e.ID
	ix.bySlug[e.Slug] = append(ix.bySlug[e.Slug], e.ID)

	if e.IsBasicLand {
		ix.basicLands = append(ix.basicLands, e.ID)
	}
	if e.IsToken {
		ix.tokens = append(ix.tokens, e.ID)
	}
}

// Get returns the entry for an identifier, or nil
func (ix *BulkIndex) Get(id string) *CatalogEntry {
	return ix.byID[id]
}

// GetByPrintKey resolves the (slug, set, collector) secondary key
func (ix *BulkIndex) GetByPrintKey(key PrintKey) *CatalogEntry {
	id, ok := ix.byPrintKey[key]
	if !ok {
		return nil
	}
	return ix.byID[id]
}

// IDsForSlug returns all printing identifiers sharing a name slug
func (ix *BulkIndex) IDsForSlug(slug string) []string {
	return ix.bySlug[slug]
}

// BasicLands returns the identifiers of all basic land printings
func (ix *BulkIndex) BasicLands() []string {
	return ix.basicLands
}

// Tokens returns the identifiers of all token/emblem printings
func (ix *BulkIndex) Tokens() []string {
	return ix.tokens
}

// Each calls fn for every entry. Iteration order is unspecified.
func (ix *BulkIndex) Each(fn func(e *CatalogEntry) error) error {
	for _, e := range ix.byID {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of distinct entries
func (ix *BulkIndex) Len() int {
	return len(ix.byID)
}

// Meta returns the ingestion pass metadata
func (ix *BulkIndex) Meta() Meta {
	return ix.meta
}

// Validate checks the index was built by the current schema generation
func (ix *BulkIndex) Validate() error {
	if ix.meta.SchemaVersion < SchemaVersion {
		return fmt.Errorf("in-memory index schema %d older than %d: rebuild required",
			ix.meta.SchemaVersion, SchemaVersion)
	}
	return nil
}
