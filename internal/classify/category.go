package classify

import (
	"strings"
)

// CategoryFallback is the bucket for lands no rule can place
const CategoryFallback = "misc"

// colorComboNames maps a canonical WUBRG-ordered color subset to its bucket
// name. Every 1- to 5-color subset is covered, so mana-production analysis
// always lands on a name.
var colorComboNames = map[string]string{
	"W": "white",
	"U": "blue",
	"B": "black",
	"R": "red",
	"G": "green",

	"WU": "azorius",
	"WB": "orzhov",
	"WR": "boros",
	"WG": "selesnya",
	"UB": "dimir",
	"UR": "izzet",
	"UG": "simic",
	"BR": "rakdos",
	"BG": "golgari",
	"RG": "gruul",

	"WUB": "esper",
	"WUR": "jeskai",
	"WUG": "bant",
	"WBR": "mardu",
	"WBG": "abzan",
	"WRG": "naya",
	"UBR": "grixis",
	"UBG": "sultai",
	"URG": "temur",
	"BRG": "jund",

	"WUBR": "yore-tiller",
	"WUBG": "witch-maw",
	"WURG": "ink-treader",
	"WBRG": "dune-brood",
	"UBRG": "glint-eye",

	"WUBRG": "rainbow",
}

// basicLandColors maps a basic land name in the type line to its bucket
var basicLandColors = []struct {
	name   string
	bucket string
}{
	{"Plains", "white"},
	{"Island", "blue"},
	{"Swamp", "black"},
	{"Mountain", "red"},
	{"Forest", "green"},
	{"Wastes", "colorless"},
}

// specialLandBuckets are named mechanical subtypes with their own buckets.
// Checked before generic color analysis: a Gate that taps for white and blue
// still files under gates. The order within this list is also fixed.
var specialLandBuckets = []struct {
	marker string
	bucket string
}{
	{"Gate", "gates"},
	{"Lair", "lairs"},
	{"Locus", "locus"},
	{"Sphere", "spheres"},
	{"Urza's", "urzas"},
	{"Desert", "deserts"},
	{"Cave", "caves"},
	{"Snow", "snow"},
}

// LandCategory derives the archetype bucket for a land from its type line
// and rules text. Rules are evaluated in a fixed order and the first match
// wins; the order is a semantic contract, not an implementation detail.
func LandCategory(typeLine, oracleText string) string {
	// Basic lands file by their printed color, regardless of rules text
	if strings.Contains(typeLine, "Basic") {
		for _, bl := range basicLandColors {
			if strings.Contains(typeLine, bl.name) {
				return bl.bucket
			}
		}
	}

	for _, sp := range specialLandBuckets {
		if strings.Contains(typeLine, sp.marker) {
			return sp.bucket
		}
	}

	// Non-basic lands with a basic land subtype (duals, shocks) still carry
	// the subtype in the type line; derive colors from those first
	subtypeColors := make(map[byte]bool)
	for _, bl := range basicLandColors {
		if bl.bucket == "colorless" {
			continue
		}
		if strings.Contains(typeLine, bl.name) {
			subtypeColors[wubrgLetter(bl.bucket)] = true
		}
	}
	if name := comboName(subtypeColors); name != "" {
		return name
	}

	// Fall back to mana-production analysis of the rules text
	if name := comboName(producedColors(oracleText)); name != "" {
		return name
	}

	return CategoryFallback
}

// wubrgLetter maps a mono-color bucket name to its WUBRG letter
func wubrgLetter(bucket string) byte {
	switch bucket {
	case "white":
		return 'W'
	case "blue":
		return 'U'
	case "black":
		return 'B'
	case "red":
		return 'R'
	case "green":
		return 'G'
	}
	return 0
}

// producedColors scans rules text for mana-producing sentences and collects
// the WUBRG colors they add. "Any color" produces all five.
func producedColors(oracleText string) map[byte]bool {
	colors := make(map[byte]bool)
	lower := strings.ToLower(oracleText)

	for _, line := range strings.Split(lower, "\n") {
		if !strings.Contains(line, "add") {
			continue
		}
		if strings.Contains(line, "any color") || strings.Contains(line, "any one color") {
			for _, c := range []byte{'W', 'U', 'B', 'R', 'G'} {
				colors[c] = true
			}
			continue
		}
		for sym, c := range map[string]byte{"{w}": 'W', "{u}": 'U', "{b}": 'B', "{r}": 'R', "{g}": 'G'} {
			if strings.Contains(line, sym) {
				colors[c] = true
			}
		}
	}

	return colors
}

// comboName canonicalizes a color set to WUBRG order and looks up its bucket.
// Returns "" for the empty set.
func comboName(colors map[byte]bool) string {
	if len(colors) == 0 {
		return ""
	}
	var key strings.Builder
	for _, c := range []byte{'W', 'U', 'B', 'R', 'G'} {
		if colors[c] {
			key.WriteByte(c)
		}
	}
	return colorComboNames[key.String()]
}
