package bulk

// RelatedPart is a reference from one printing to a related printing
// (token, meld half, combo piece) embedded in the bulk record
type RelatedPart struct {
	ID        string `json:"id"`
	Component string `json:"component"`
	Name      string `json:"name"`
	TypeLine  string `json:"type_line"`
}

// Record is one raw printing record as published in the bulk dataset.
// Only the fields the index cares about are decoded; everything else in the
// upstream object is ignored.
type Record struct {
	ID              string `json:"id"`
	OracleID        string `json:"oracle_id"`
	Name            string `json:"name"`
	Lang            string `json:"lang"`
	SetCode         string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	TypeLine        string `json:"type_line"`
	OracleText      string `json:"oracle_text"`
	Layout          string `json:"layout"`
	Frame           string `json:"frame"`
	BorderColor     string `json:"border_color"`
	Rarity          string `json:"rarity"`
	Artist          string `json:"artist"`
	ReleasedAt      string `json:"released_at"`
	ManaValue       float64 `json:"cmc"`

	FullArt  bool `json:"full_art"`
	Textless bool `json:"textless"`
	Promo    bool `json:"promo"`

	Keywords      []string `json:"keywords"`
	ColorIdentity []string `json:"color_identity"`
	FrameEffects  []string `json:"frame_effects"`
	PromoTypes    []string `json:"promo_types"`
	Finishes      []string `json:"finishes"`

	ImageURIs  map[string]string  `json:"image_uris"`
	Legalities map[string]string  `json:"legalities"`
	Prices     map[string]*string `json:"prices"`

	AllParts []RelatedPart `json:"all_parts"`
}

// ImageURL returns the preferred image URL for the record, largest first.
// Returns "" when the record carries no images (e.g. non-card layouts).
func (r *Record) ImageURL() string {
	for _, key := range []string{"png", "large", "normal", "small"} {
		if url, ok := r.ImageURIs[key]; ok && url != "" {
			return url
		}
	}
	return ""
}

// OracleRecord is one entry of the oracle (augmentation) dataset: shared
// rules text keyed by oracle id, one row per abstract card
type OracleRecord struct {
	OracleID      string   `json:"oracle_id"`
	Name          string   `json:"name"`
	OracleText    string   `json:"oracle_text"`
	Keywords      []string `json:"keywords"`
	ColorIdentity []string `json:"color_identity"`
}
