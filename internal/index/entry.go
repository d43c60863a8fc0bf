package index

// Related is one cross-entry reference embedded in a printing record
type Related struct {
	ID        string // identifier of the related printing (may be absent from this batch)
	Component string // relationship kind: token, meld_part, combo_piece, ...
	Name      string
}

// CatalogEntry is one printing of a catalog item, fully classified.
// The in-memory index and the persistent index share this shape; the
// persistent index additionally stores the columns the in-memory lookup path
// does not need.
type CatalogEntry struct {
	ID              string
	OracleID        string
	Name            string
	Slug            string
	Lang            string
	SetCode         string
	CollectorNumber string
	TypeLine        string
	OracleText      string
	ImageURL        string
	Variant         string // visual-variant taxonomy label

	IsBasicLand bool
	IsToken     bool

	Keywords      []string
	ColorIdentity []string

	Related []Related

	// Persistent-index-only columns
	Artist     string
	Rarity     string
	ManaValue  float64
	Layout     string
	Frame      string
	Border     string
	ReleasedAt string
	Legalities map[string]string
	PriceUSD   string
	Promo      bool
	Textless   bool
	FullArt    bool
}

// PrintKey is the stable secondary key for a printing within one ingestion
// pass: unique per (slug, set, collector number)
type PrintKey struct {
	Slug      string
	SetCode   string
	Collector string
}

// Key returns the entry's print key
func (e *CatalogEntry) Key() PrintKey {
	return PrintKey{Slug: e.Slug, SetCode: e.SetCode, Collector: e.CollectorNumber}
}

// ImageStem returns the base file name (without extension) under which this
// entry's image is stored: <slug>-<variant>-<lang>-<set>[-<collector>]
func (e *CatalogEntry) ImageStem() string {
	stem := e.Slug + "-" + e.Variant + "-" + e.Lang + "-" + e.SetCode
	if e.CollectorNumber != "" {
		stem += "-" + e.CollectorNumber
	}
	return stem
}

// LegacyImageStem returns the underscore-joined stem older image trees used.
// Recognized read-only when checking presence; never written for new files.
func (e *CatalogEntry) LegacyImageStem() string {
	return e.Slug + "_" + e.SetCode + "_" + e.CollectorNumber
}
