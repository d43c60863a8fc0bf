package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/franz/card-indexer/internal/index"
)

// Filters narrows query results. Zero values mean "no constraint".
type Filters struct {
	Languages    []string
	SetCode      string
	Artist       string // substring match
	Rarity       string
	MaxManaValue *float64
	Layout       string
	Frame        string
	FullArtOnly  bool
	Limit        int
}

// printColumns is the scan list shared by every entry query
const printColumns = `
	id, COALESCE(oracle_id, ''), name, slug, COALESCE(lang, ''),
	COALESCE(set_code, ''), COALESCE(collector_number, ''),
	COALESCE(type_line, ''), COALESCE(oracle_text, ''),
	COALESCE(image_url, ''), COALESCE(variant, ''),
	COALESCE(is_basic_land, 0), COALESCE(is_token, 0),
	COALESCE(keywords_json, ''), COALESCE(color_identity_json, ''),
	COALESCE(artist, ''), COALESCE(rarity, ''), COALESCE(mana_value, 0),
	COALESCE(layout, ''), COALESCE(frame, ''), COALESCE(border, ''),
	COALESCE(released_at, ''), COALESCE(legalities_json, ''),
	COALESCE(promo, 0), COALESCE(textless, 0), COALESCE(full_art, 0),
	COALESCE(price_usd, '')`

// BasicLands returns basic land printings matching the filters
func (s *Store) BasicLands(f Filters) ([]*index.CatalogEntry, error) {
	return s.queryPrints("is_basic_land = 1", nil, f)
}

// Tokens returns token and emblem printings matching the filters
func (s *Store) Tokens(f Filters) ([]*index.CatalogEntry, error) {
	return s.queryPrints("is_token = 1", nil, f)
}

// GetByID returns one printing, or nil when absent
func (s *Store) GetByID(id string) (*index.CatalogEntry, error) {
	if err := s.EnsureReadable(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow("SELECT "+printColumns+" FROM prints WHERE id = ?", id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get print %s: %w", id, err)
	}
	return e, nil
}

// Search runs a full-text query over name, type line, rules text, set code
// and slug, then applies the structured filters
func (s *Store) Search(query string, f Filters) ([]*index.CatalogEntry, error) {
	if err := s.EnsureReadable(); err != nil {
		return nil, err
	}

	where, args := buildFilterClause(f)
	args = append([]interface{}{ftsQuote(query)}, args...)

	sqlQuery := "SELECT " + printColumns + ` FROM prints
		WHERE rowid IN (SELECT rowid FROM prints_fts WHERE prints_fts MATCH ?)` +
		where + " ORDER BY slug, set_code, collector_number"
	if f.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// queryPrints runs a filtered query with a fixed category predicate
func (s *Store) queryPrints(base string, baseArgs []interface{}, f Filters) ([]*index.CatalogEntry, error) {
	if err := s.EnsureReadable(); err != nil {
		return nil, err
	}

	where, args := buildFilterClause(f)
	args = append(baseArgs, args...)

	sqlQuery := "SELECT " + printColumns + " FROM prints WHERE " + base + where + " ORDER BY slug, set_code, collector_number"
	if f.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("print query failed: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Relationship is one row of the cross-entry relation
type Relationship struct {
	SourceID  string
	RelatedID string
	Kind      string
}

// RelatedTo returns the outgoing relationships for the given source ids
func (s *Store) RelatedTo(sourceIDs []string) ([]Relationship, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	if err := s.EnsureReadable(); err != nil {
		return nil, err
	}

	placeholders := strings.Repeat("?,", len(sourceIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(sourceIDs))
	for i, id := range sourceIDs {
		args[i] = id
	}

	rows, err := s.db.Query(`
		SELECT source_id, related_id, kind FROM card_relationships
		WHERE source_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("relationship query failed: %w", err)
	}
	defer rows.Close()

	var rels []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.SourceID, &r.RelatedID, &r.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// CountPrints returns the number of rows in the main relation
func (s *Store) CountPrints() (int, error) {
	if err := s.EnsureReadable(); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM prints").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count prints: %w", err)
	}
	return count, nil
}

// CategoryCounts returns how many prints fall into each special category
func (s *Store) CategoryCounts() (basicLands, tokens int, err error) {
	if err := s.EnsureReadable(); err != nil {
		return 0, 0, err
	}
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(is_basic_land), 0), COALESCE(SUM(is_token), 0) FROM prints
	`).Scan(&basicLands, &tokens)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return basicLands, tokens, nil
}

// buildFilterClause renders Filters into an AND-joined WHERE suffix
func buildFilterClause(f Filters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if len(f.Languages) > 0 {
		ph := strings.Repeat("?,", len(f.Languages))
		clauses = append(clauses, "lang IN ("+ph[:len(ph)-1]+")")
		for _, lang := range f.Languages {
			args = append(args, lang)
		}
	}
	if f.SetCode != "" {
		clauses = append(clauses, "set_code = ?")
		args = append(args, f.SetCode)
	}
	if f.Artist != "" {
		clauses = append(clauses, "artist LIKE ?")
		args = append(args, "%"+f.Artist+"%")
	}
	if f.Rarity != "" {
		clauses = append(clauses, "rarity = ?")
		args = append(args, f.Rarity)
	}
	if f.MaxManaValue != nil {
		clauses = append(clauses, "mana_value <= ?")
		args = append(args, *f.MaxManaValue)
	}
	if f.Layout != "" {
		clauses = append(clauses, "layout = ?")
		args = append(args, f.Layout)
	}
	if f.Frame != "" {
		clauses = append(clauses, "frame = ?")
		args = append(args, f.Frame)
	}
	if f.FullArtOnly {
		clauses = append(clauses, "full_art = 1")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// ftsQuote wraps each whitespace-separated term in double quotes so user
// input cannot break the MATCH expression syntax
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry scans one prints row into a catalog entry
func scanEntry(row rowScanner) (*index.CatalogEntry, error) {
	e := &index.CatalogEntry{}
	var isBasic, isToken, promo, textless, fullArt int
	var keywordsJSON, colorsJSON, legalitiesJSON string

	err := row.Scan(
		&e.ID, &e.OracleID, &e.Name, &e.Slug, &e.Lang,
		&e.SetCode, &e.CollectorNumber,
		&e.TypeLine, &e.OracleText,
		&e.ImageURL, &e.Variant,
		&isBasic, &isToken,
		&keywordsJSON, &colorsJSON,
		&e.Artist, &e.Rarity, &e.ManaValue,
		&e.Layout, &e.Frame, &e.Border,
		&e.ReleasedAt, &legalitiesJSON,
		&promo, &textless, &fullArt,
		&e.PriceUSD,
	)
	if err != nil {
		return nil, err
	}

	e.IsBasicLand = isBasic == 1
	e.IsToken = isToken == 1
	e.Promo = promo == 1
	e.Textless = textless == 1
	e.FullArt = fullArt == 1

	if keywordsJSON != "" {
		json.Unmarshal([]byte(keywordsJSON), &e.Keywords)
	}
	if colorsJSON != "" {
		json.Unmarshal([]byte(colorsJSON), &e.ColorIdentity)
	}
	if legalitiesJSON != "" {
		json.Unmarshal([]byte(legalitiesJSON), &e.Legalities)
	}

	return e, nil
}

func scanEntries(rows *sql.Rows) ([]*index.CatalogEntry, error) {
	var entries []*index.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan print: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
