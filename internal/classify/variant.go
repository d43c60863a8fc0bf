package classify

import (
	"sort"
	"strings"
)

// VariantSignals are the visual-treatment inputs taken from one bulk record
type VariantSignals struct {
	FullArt      bool
	Textless     bool
	BorderColor  string   // "black", "white", "borderless", ...
	Frame        string   // frame era code: "1993", "1997", "2003", "2015", "future"
	FrameEffects []string // showcase, extendedart, inverted, gilded, etched, ...
	PromoTypes   []string // serialized, boosterfun, concept, thick, ...
	Finishes     []string // nonfoil, foil, etched
	SetCode      string
}

// oilslickSets are the sets whose "inverted" frame effect is the oilslick
// treatment. Known-incomplete heuristic; kept as-is for stable output.
// TODO: revisit when upstream tags oilslick explicitly instead of reusing
// the inverted frame effect.
var oilslickSets = map[string]bool{
	"one": true,
	"mom": true,
	"mul": true,
}

// primaryVariants is evaluated in order; the first matching predicate names
// the primary label. Most visually distinctive wins, so the order is part of
// the output contract.
var primaryVariants = []struct {
	label string
	match func(s VariantSignals) bool
}{
	{"textless", func(s VariantSignals) bool { return s.Textless }},
	{"borderless", func(s VariantSignals) bool { return s.BorderColor == "borderless" }},
	{"showcase", func(s VariantSignals) bool { return s.hasFrameEffect("showcase") }},
	{"extended-art", func(s VariantSignals) bool { return s.hasFrameEffect("extendedart") }},
	{"retro", func(s VariantSignals) bool { return s.Frame == "1993" || s.Frame == "1997" }},
	{"full-art", func(s VariantSignals) bool { return s.FullArt }},
}

// modifierVariants are appended as suffixes after the primary label, each at
// most once, sorted for determinism
var modifierVariants = []struct {
	label string
	match func(s VariantSignals) bool
}{
	{"etched", func(s VariantSignals) bool { return s.hasFrameEffect("etched") || s.hasFinish("etched") }},
	{"foil", func(s VariantSignals) bool { return s.hasFinish("foil") && !s.hasFinish("nonfoil") }},
	{"gilded", func(s VariantSignals) bool { return s.hasFrameEffect("gilded") }},
	{"oilslick", func(s VariantSignals) bool { return s.hasFrameEffect("inverted") && oilslickSets[s.SetCode] }},
	{"serialized", func(s VariantSignals) bool { return s.hasPromoType("serialized") }},
	{"boosterfun", func(s VariantSignals) bool { return s.hasPromoType("boosterfun") }},
	{"concept", func(s VariantSignals) bool { return s.hasPromoType("concept") }},
	{"thick", func(s VariantSignals) bool { return s.hasPromoType("thick") }},
}

func (s VariantSignals) hasFrameEffect(name string) bool { return containsFold(s.FrameEffects, name) }
func (s VariantSignals) hasPromoType(name string) bool   { return containsFold(s.PromoTypes, name) }
func (s VariantSignals) hasFinish(name string) bool      { return containsFold(s.Finishes, name) }

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// VariantLabel derives the visual-variant taxonomy label for a printing:
// exactly one primary label plus zero or more sorted modifier suffixes,
// joined with dashes. Pure and total: every input yields a non-empty string.
func VariantLabel(s VariantSignals) string {
	primary := "standard"
	for _, pv := range primaryVariants {
		if pv.match(s) {
			primary = pv.label
			break
		}
	}

	var modifiers []string
	for _, mv := range modifierVariants {
		if mv.label == primary {
			continue
		}
		if mv.match(s) {
			modifiers = append(modifiers, mv.label)
		}
	}
	sort.Strings(modifiers)

	if len(modifiers) == 0 {
		return primary
	}
	return primary + "-" + strings.Join(modifiers, "-")
}
