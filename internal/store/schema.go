package store

// Schema v1 - initial card index schema
const schemaV1 = `
-- DDL migration tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per printing
CREATE TABLE IF NOT EXISTS prints (
  id TEXT PRIMARY KEY,
  oracle_id TEXT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  lang TEXT,
  set_code TEXT,
  collector_number TEXT,
  type_line TEXT,
  oracle_text TEXT,
  image_url TEXT,
  variant TEXT,
  is_basic_land INTEGER DEFAULT 0,
  is_token INTEGER DEFAULT 0,
  keywords_json TEXT,
  color_identity_json TEXT,
  artist TEXT,
  rarity TEXT,
  mana_value REAL,
  layout TEXT,
  frame TEXT,
  border TEXT,
  released_at TEXT,
  legalities_json TEXT,
  promo INTEGER DEFAULT 0,
  textless INTEGER DEFAULT 0,
  full_art INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_prints_slug ON prints(slug);
CREATE INDEX IF NOT EXISTS idx_prints_set ON prints(set_code);
CREATE INDEX IF NOT EXISTS idx_prints_basic ON prints(is_basic_land) WHERE is_basic_land = 1;
CREATE INDEX IF NOT EXISTS idx_prints_token ON prints(is_token) WHERE is_token = 1;
CREATE INDEX IF NOT EXISTS idx_prints_print_key ON prints(slug, set_code, collector_number);

-- Full-text shadow table over the searchable columns, external content
CREATE VIRTUAL TABLE IF NOT EXISTS prints_fts USING fts5(
  name, type_line, oracle_text, set_code, slug,
  content='prints',
  content_rowid='rowid'
);

-- Cross-entry relationships derived from embedded related-part lists.
-- related_id may reference a printing absent from the batch; that is data,
-- not an error, so there is deliberately no foreign key on it.
CREATE TABLE IF NOT EXISTS card_relationships (
  source_id TEXT NOT NULL REFERENCES prints(id) ON DELETE CASCADE,
  related_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  PRIMARY KEY (source_id, related_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_relationships_related ON card_relationships(related_id);

-- Fingerprints of ingested source files, for incremental refresh
CREATE TABLE IF NOT EXISTS source_files (
  path TEXT PRIMARY KEY,
  sha1 TEXT,
  size_bytes INTEGER,
  mtime_unix INTEGER,
  ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Single-row build metadata; written only after a full rebuild completes
CREATE TABLE IF NOT EXISTS metadata (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  schema_version INTEGER NOT NULL,
  upstream_version TEXT,
  run_id TEXT,
  built_at DATETIME
);
`

// Schema v2 - pricing snapshot (additive; nullable column, no data loss)
const schemaV2 = `
ALTER TABLE prints ADD COLUMN price_usd TEXT;
`
