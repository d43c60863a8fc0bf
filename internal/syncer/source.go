package syncer

import (
	"sort"
	"strings"

	"github.com/franz/card-indexer/internal/index"
	"github.com/franz/card-indexer/internal/store"
	"github.com/franz/card-indexer/internal/util"
)

// CardSource answers catalog queries. Two implementations exist: the
// persistent SQLite index and the in-memory bulk index; the orchestrator
// prefers the persistent one and falls back when it cannot answer.
type CardSource interface {
	BasicLands(f store.Filters) ([]*index.CatalogEntry, error)
	Tokens(f store.Filters) ([]*index.CatalogEntry, error)
	Search(query string, f store.Filters) ([]*index.CatalogEntry, error)
	GetByID(id string) (*index.CatalogEntry, error)
	RelatedTo(sourceIDs []string) ([]store.Relationship, error)
}

// storeSource adapts *store.Store to CardSource; the store already has the
// matching method set
type storeSource struct {
	s *store.Store
}

func (ss *storeSource) BasicLands(f store.Filters) ([]*index.CatalogEntry, error) {
	return ss.s.BasicLands(f)
}

func (ss *storeSource) Tokens(f store.Filters) ([]*index.CatalogEntry, error) {
	return ss.s.Tokens(f)
}

func (ss *storeSource) Search(query string, f store.Filters) ([]*index.CatalogEntry, error) {
	return ss.s.Search(query, f)
}

func (ss *storeSource) GetByID(id string) (*index.CatalogEntry, error) {
	return ss.s.GetByID(id)
}

func (ss *storeSource) RelatedTo(sourceIDs []string) ([]store.Relationship, error) {
	return ss.s.RelatedTo(sourceIDs)
}

// memorySource answers queries from the in-memory bulk index. Search is a
// case-folded substring scan rather than full-text, which is good enough for
// the fallback path.
type memorySource struct {
	ix *index.BulkIndex
}

// NewMemorySource wraps an in-memory index as a CardSource
func NewMemorySource(ix *index.BulkIndex) CardSource {
	return &memorySource{ix: ix}
}

func (ms *memorySource) BasicLands(f store.Filters) ([]*index.CatalogEntry, error) {
	return ms.collect(ms.ix.BasicLands(), f), nil
}

func (ms *memorySource) Tokens(f store.Filters) ([]*index.CatalogEntry, error) {
	return ms.collect(ms.ix.Tokens(), f), nil
}

func (ms *memorySource) Search(query string, f store.Filters) ([]*index.CatalogEntry, error) {
	terms := strings.Fields(strings.ToLower(query))

	var out []*index.CatalogEntry
	ms.ix.Each(func(e *index.CatalogEntry) error {
		if matchesTerms(e, terms) && matchesFilters(e, f) {
			out = append(out, e)
		}
		return nil
	})
	sortEntries(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (ms *memorySource) GetByID(id string) (*index.CatalogEntry, error) {
	return ms.ix.Get(id), nil
}

func (ms *memorySource) RelatedTo(sourceIDs []string) ([]store.Relationship, error) {
	var rels []store.Relationship
	seen := make(map[store.Relationship]struct{})

	for _, id := range sourceIDs {
		e := ms.ix.Get(id)
		if e == nil {
			continue
		}
		for _, rel := range e.Related {
			kind := rel.Component
			if kind == "" {
				kind = "related"
			}
			r := store.Relationship{SourceID: id, RelatedID: rel.ID, Kind: kind}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			rels = append(rels, r)
		}
	}
	return rels, nil
}

func (ms *memorySource) collect(ids []string, f store.Filters) []*index.CatalogEntry {
	var out []*index.CatalogEntry
	for _, id := range ids {
		e := ms.ix.Get(id)
		if e != nil && matchesFilters(e, f) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func matchesTerms(e *index.CatalogEntry, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	haystack := strings.ToLower(e.Name + " " + e.TypeLine + " " + e.OracleText + " " + e.SetCode + " " + e.Slug)
	for _, term := range terms {
		if !strings.Contains(haystack, strings.Trim(term, `"`)) {
			return false
		}
	}
	return true
}

func matchesFilters(e *index.CatalogEntry, f store.Filters) bool {
	if len(f.Languages) > 0 {
		found := false
		for _, lang := range f.Languages {
			if e.Lang == lang {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SetCode != "" && e.SetCode != f.SetCode {
		return false
	}
	if f.Artist != "" && !strings.Contains(strings.ToLower(e.Artist), strings.ToLower(f.Artist)) {
		return false
	}
	if f.Rarity != "" && e.Rarity != f.Rarity {
		return false
	}
	if f.MaxManaValue != nil && e.ManaValue > *f.MaxManaValue {
		return false
	}
	if f.Layout != "" && e.Layout != f.Layout {
		return false
	}
	if f.Frame != "" && e.Frame != f.Frame {
		return false
	}
	if f.FullArtOnly && !e.FullArt {
		return false
	}
	return true
}

// sortEntries matches the persistent index ordering
func sortEntries(entries []*index.CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Slug != b.Slug {
			return a.Slug < b.Slug
		}
		if a.SetCode != b.SetCode {
			return a.SetCode < b.SetCode
		}
		return a.CollectorNumber < b.CollectorNumber
	})
}

// fallbackSource tries the persistent source first and falls back to the
// in-memory one. Schema mismatches stay fatal: a wrong-generation database
// must be rebuilt, not silently papered over. When no fallback exists the
// persistent error surfaces as-is.
type fallbackSource struct {
	primary  CardSource
	fallback CardSource
}

// NewFallbackSource composes the query strategy. Either argument may be nil.
func NewFallbackSource(primary, fallback CardSource) CardSource {
	return &fallbackSource{primary: primary, fallback: fallback}
}

func (fs *fallbackSource) BasicLands(f store.Filters) ([]*index.CatalogEntry, error) {
	return query(fs, func(s CardSource) ([]*index.CatalogEntry, error) { return s.BasicLands(f) })
}

func (fs *fallbackSource) Tokens(f store.Filters) ([]*index.CatalogEntry, error) {
	return query(fs, func(s CardSource) ([]*index.CatalogEntry, error) { return s.Tokens(f) })
}

func (fs *fallbackSource) Search(q string, f store.Filters) ([]*index.CatalogEntry, error) {
	return query(fs, func(s CardSource) ([]*index.CatalogEntry, error) { return s.Search(q, f) })
}

func (fs *fallbackSource) GetByID(id string) (*index.CatalogEntry, error) {
	return query(fs, func(s CardSource) (*index.CatalogEntry, error) { return s.GetByID(id) })
}

func (fs *fallbackSource) RelatedTo(ids []string) ([]store.Relationship, error) {
	return query(fs, func(s CardSource) ([]store.Relationship, error) { return s.RelatedTo(ids) })
}

func query[T any](fs *fallbackSource, op func(CardSource) (T, error)) (T, error) {
	var zero T

	if fs.primary != nil {
		result, err := op(fs.primary)
		if err == nil {
			return result, nil
		}
		if util.IsSchemaMismatch(err) {
			return zero, err
		}
		if fs.fallback == nil {
			return zero, err
		}
		util.DebugLog("Persistent index unavailable, using in-memory fallback: %v", err)
		return op(fs.fallback)
	}

	if fs.fallback != nil {
		return op(fs.fallback)
	}
	return zero, util.ErrNotFound
}
